package sdmx

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// SDMX-ML v2.1 namespaces.
const (
	NamespaceMessage   = "http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message"
	NamespaceStructure = "http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure"
	NamespaceCommon    = "http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common"
	NamespaceGeneric   = "http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic"
	NamespaceXML       = "http://www.w3.org/XML/1998/namespace"
)

// decode unmarshals an SDMX-ML document. The declared prolog encoding is
// ignored: bodies are always handled as UTF-8.
func decode(resource string, data []byte, v any) error {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	if err := d.Decode(v); err != nil {
		return &ParseError{Resource: resource, Err: err}
	}
	return nil
}

// LocalizedName is one language-tagged label (common:Name).
type LocalizedName struct {
	Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr" json:"lang"`
	Text string `xml:",chardata" json:"text"`
}

// Names is the list of labels of an artefact, in document order.
type Names []LocalizedName

// Get returns the first non-empty label for lang.
func (n Names) Get(lang string) (string, bool) {
	for _, ln := range n {
		if ln.Lang == lang && strings.TrimSpace(ln.Text) != "" {
			return ln.Text, true
		}
	}
	return "", false
}

// First tries each language in order and returns the first label found.
func (n Names) First(langs ...string) (string, bool) {
	for _, lang := range langs {
		if s, ok := n.Get(lang); ok {
			return s, true
		}
	}
	return "", false
}

// structure message

type xmlStructureMessage struct {
	Structures xmlStructures `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message Structures"`
}

type xmlStructures struct {
	Dataflows      *xmlDataflows      `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure Dataflows"`
	Codelists      *xmlCodelists      `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure Codelists"`
	DataStructures *xmlDataStructures `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure DataStructures"`
}

type xmlRef struct {
	ID       string `xml:"id,attr"`
	AgencyID string `xml:"agencyID,attr"`
	Version  string `xml:"version,attr"`
	Class    string `xml:"class,attr"`
}

type xmlDataflows struct {
	Dataflows []xmlDataflow `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure Dataflow"`
}

type xmlDataflow struct {
	ID        string        `xml:"id,attr"`
	AgencyID  string        `xml:"agencyID,attr"`
	Version   string        `xml:"version,attr"`
	Names     Names         `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common Name"`
	Structure *xmlStructRef `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure Structure"`
}

type xmlStructRef struct {
	Ref *xmlRef `xml:"Ref"`
}

type xmlCodelists struct {
	Codelists []xmlCodelist `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure Codelist"`
}

type xmlCodelist struct {
	ID       string    `xml:"id,attr"`
	AgencyID string    `xml:"agencyID,attr"`
	Version  string    `xml:"version,attr"`
	Names    Names     `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common Name"`
	Codes    []xmlCode `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure Code"`
}

type xmlCode struct {
	ID    string `xml:"id,attr"`
	Names Names  `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common Name"`
}

type xmlDataStructures struct {
	DataStructures []xmlDataStructure `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure DataStructure"`
}

type xmlDataStructure struct {
	ID         string           `xml:"id,attr"`
	Components xmlDSDComponents `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure DataStructureComponents"`
}

type xmlDSDComponents struct {
	DimensionList xmlDimensionList `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure DimensionList"`
}

type xmlDimensionList struct {
	Dimensions []xmlDimension `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure Dimension"`
}

type xmlDimension struct {
	ID                  string                  `xml:"id,attr"`
	Position            string                  `xml:"position,attr"`
	LocalRepresentation *xmlLocalRepresentation `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure LocalRepresentation"`
}

type xmlLocalRepresentation struct {
	Enumerations []xmlStructRef `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure Enumeration"`
}

// enumerationRefs lists the codelist references of a dimension in document order.
func (d xmlDimension) enumerationRefs() []xmlRef {
	if d.LocalRepresentation == nil {
		return nil
	}
	var refs []xmlRef
	for _, e := range d.LocalRepresentation.Enumerations {
		if e.Ref != nil && e.Ref.ID != "" {
			refs = append(refs, *e.Ref)
		}
	}
	return refs
}

// generic data message

type xmlGenericData struct {
	DataSets []xmlDataSet `xml:"DataSet"`
}

type xmlDataSet struct {
	Series []xmlSeries `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic Series"`
}

type xmlSeries struct {
	Key        xmlValues `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic SeriesKey"`
	Attributes xmlValues `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic Attributes"`
	Obs        []xmlObs  `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic Obs"`
}

type xmlValues struct {
	Values []xmlValue `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic Value"`
}

type xmlValue struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

type xmlObs struct {
	Dimension  *xmlValue `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic ObsDimension"`
	Value      *xmlValue `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic ObsValue"`
	Attributes xmlValues `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic Attributes"`
}
