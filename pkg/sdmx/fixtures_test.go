package sdmx

const dataflowsXML = `<?xml version="1.0" encoding="utf-8"?>
<message:Structure xmlns:message="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message" xmlns:structure="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure" xmlns:common="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common">
  <message:Header><message:ID>IREF1</message:ID></message:Header>
  <message:Structures>
    <structure:Dataflows>
      <structure:Dataflow id="22_289" agencyID="IT1" version="1.0">
        <common:Name xml:lang="it">Popolazione residente al 1° gennaio</common:Name>
        <common:Name xml:lang="en">Resident population on 1st January</common:Name>
        <structure:Structure><Ref id="DCIS_POPRES1" version="1.0" agencyID="IT1" package="datastructure" class="DataStructure" /></structure:Structure>
      </structure:Dataflow>
      <structure:Dataflow id="101_12" agencyID="IT1" version="1.2">
        <common:Name xml:lang="it">Solo italiano</common:Name>
        <structure:Structure><Ref id="DCSP_COLTIVAZIONI" /></structure:Structure>
      </structure:Dataflow>
      <structure:Dataflow id="999_1" agencyID="IT1" version="1.0">
        <common:Name xml:lang="fr">Seulement français</common:Name>
      </structure:Dataflow>
    </structure:Dataflows>
  </message:Structures>
</message:Structure>`

const datastructureXML = `<?xml version="1.0" encoding="utf-8"?>
<message:Structure xmlns:message="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message" xmlns:structure="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure" xmlns:common="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common">
  <message:Structures>
    <structure:DataStructures>
      <structure:DataStructure id="DCIS_POPRES1" agencyID="IT1" version="1.0">
        <structure:DataStructureComponents>
          <structure:DimensionList id="DimensionDescriptor">
            <structure:Dimension id="FREQ" position="1">
              <structure:ConceptIdentity><Ref id="FREQ" /></structure:ConceptIdentity>
              <structure:LocalRepresentation><structure:Enumeration><Ref id="CL_FREQ" /></structure:Enumeration></structure:LocalRepresentation>
            </structure:Dimension>
            <structure:Dimension id="REF_AREA" position="2">
              <structure:LocalRepresentation><structure:Enumeration><Ref id="CL_ITTER107" /></structure:Enumeration></structure:LocalRepresentation>
            </structure:Dimension>
            <structure:Dimension id="SEX" position="4">
              <structure:LocalRepresentation><structure:Enumeration><Ref id="CL_SEXISTAT1" /></structure:Enumeration></structure:LocalRepresentation>
            </structure:Dimension>
            <structure:TimeDimension id="TIME_PERIOD" position="7" />
          </structure:DimensionList>
        </structure:DataStructureComponents>
      </structure:DataStructure>
    </structure:DataStructures>
  </message:Structures>
</message:Structure>`

const codelistXML = `<?xml version="1.0" encoding="utf-8"?>
<message:Structure xmlns:message="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message" xmlns:structure="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure" xmlns:common="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common">
  <message:Structures>
    <structure:Codelists>
      <structure:Codelist id="CL_SEXISTAT1" agencyID="IT1" version="1.0">
        <common:Name xml:lang="it">Sesso</common:Name>
        <common:Name xml:lang="en">Sex</common:Name>
        <structure:Code id="1"><common:Name xml:lang="it">maschi</common:Name><common:Name xml:lang="en">males</common:Name></structure:Code>
        <structure:Code id="2"><common:Name xml:lang="it">femmine</common:Name><common:Name xml:lang="en">females</common:Name></structure:Code>
        <structure:Code id="9"><common:Name xml:lang="it">totale</common:Name><common:Name xml:lang="en">total</common:Name></structure:Code>
      </structure:Codelist>
    </structure:Codelists>
  </message:Structures>
</message:Structure>`

const genericDataXML = `<?xml version="1.0" encoding="utf-8"?>
<message:GenericData xmlns:message="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message" xmlns:generic="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic" xmlns:common="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common">
  <message:DataSet structureRef="IT1_DCIS_POPRES1_1_0">
    <generic:Series>
      <generic:SeriesKey>
        <generic:Value id="FREQ" value="A" />
        <generic:Value id="REF_AREA" value="ITD55" />
        <generic:Value id="DATA_TYPE" value="JAN" />
        <generic:Value id="SEX" value="9" />
        <generic:Value id="AGE" value="Y85" />
      </generic:SeriesKey>
      <generic:Attributes><generic:Value id="UNIT_MEAS" value="NUM" /></generic:Attributes>
      <generic:Obs>
        <generic:ObsDimension id="TIME_PERIOD" value="2023" />
        <generic:ObsValue value="6759" />
      </generic:Obs>
    </generic:Series>
  </message:DataSet>
</message:GenericData>`
