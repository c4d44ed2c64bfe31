package catalog

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

type code struct {
	id, it, en string
}

const structureOpen = `<?xml version="1.0" encoding="utf-8"?>
<message:Structure xmlns:message="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message" xmlns:structure="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure" xmlns:common="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common">
<message:Structures>`

const structureClose = `</message:Structures></message:Structure>`

func nameXML(lang, text string) string {
	if text == "" {
		return ""
	}
	return fmt.Sprintf(`<common:Name xml:lang="%s">%s</common:Name>`, lang, text)
}

func codelistXML(id, en string, codes []code) string {
	var b strings.Builder
	b.WriteString(structureOpen)
	fmt.Fprintf(&b, `<structure:Codelists><structure:Codelist id="%s" agencyID="IT1" version="1.0">%s`, id, nameXML("en", en))
	for _, c := range codes {
		fmt.Fprintf(&b, `<structure:Code id="%s">%s%s</structure:Code>`, c.id, nameXML("it", c.it), nameXML("en", c.en))
	}
	b.WriteString(`</structure:Codelist></structure:Codelists>`)
	b.WriteString(structureClose)
	return b.String()
}

const dataflowsXML = structureOpen + `
<structure:Dataflows>
  <structure:Dataflow id="22_289" agencyID="IT1" version="1.0">
    <common:Name xml:lang="en">Resident population on 1st January</common:Name>
    <structure:Structure><Ref id="DCIS_POPRES1" /></structure:Structure>
  </structure:Dataflow>
  <structure:Dataflow id="101_1015" agencyID="IT1" version="1.3">
    <common:Name xml:lang="it">Coltivazioni</common:Name>
    <structure:Structure><Ref id="DCSP_COLTIVAZIONI" /></structure:Structure>
  </structure:Dataflow>
</structure:Dataflows>` + structureClose

const datastructureXML = structureOpen + `
<structure:DataStructures><structure:DataStructure id="DCIS_POPRES1">
<structure:DataStructureComponents><structure:DimensionList>
  <structure:Dimension id="FREQ"><structure:LocalRepresentation><structure:Enumeration><Ref id="CL_FREQ" /></structure:Enumeration></structure:LocalRepresentation></structure:Dimension>
  <structure:Dimension id="REF_AREA"><structure:LocalRepresentation><structure:Enumeration><Ref id="CL_ITTER107" /></structure:Enumeration></structure:LocalRepresentation></structure:Dimension>
  <structure:Dimension id="SEX"><structure:LocalRepresentation><structure:Enumeration><Ref id="CL_SEXISTAT1" /></structure:Enumeration></structure:LocalRepresentation></structure:Dimension>
  <structure:Dimension id="AGE"><structure:LocalRepresentation><structure:Enumeration><Ref id="CL_ETA1" /></structure:Enumeration></structure:LocalRepresentation></structure:Dimension>
</structure:DimensionList></structure:DataStructureComponents>
</structure:DataStructure></structure:DataStructures>` + structureClose

var itterCodes = []code{
	{"IT", "Italia", "Italy"},
	{"ITC", "Nord-ovest", "North-west"},
	{"ITD", "Nord-est", "North-east"},
	{"ITC1", "Piemonte", ""},
	{"ITC2", "Valle d'Aosta / Vallée d'Aoste", ""},
	{"ITD1", "Provincia Autonoma Bolzano / Bozen", ""},
	{"ITD5", "Emilia-Romagna", ""},
	{"ITDA", "Trentino Alto Adige / Südtirol", ""},
	{"ITC20", "Valle d'Aosta / Vallée d'Aoste", ""},
	{"ITD10", "Bolzano / Bozen", ""},
	{"ITD55", "Bologna", ""},
	{"ITD58", "Forlì-Cesena", ""},
	{"ITG29", "Olbia-Tempio", ""},
	{"IT108", "Monza e della Brianza", ""},
	{"037006", "Bologna", ""},
	{"040012", "Forlì", ""},
	{"001272", "Torino", ""},
	{"007003", "Aosta", ""},
	{"ITC4", "Lombardia", ""},
}

// fakeSDMX serves the catalog fixtures and counts hits per path.
type fakeSDMX struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
	// missing paths answer 404.
	missing map[string]bool
}

func newFakeSDMX(t *testing.T) *fakeSDMX {
	t.Helper()

	routes := map[string]string{
		"/rest/dataflow/IT1/":                  dataflowsXML,
		"/rest/datastructure/IT1/DCIS_POPRES1": datastructureXML,
		"/rest/codelist/IT1/CL_FREQ":           codelistXML("CL_FREQ", "Frequency", []code{{"A", "annuale", "annual"}}),
		"/rest/codelist/IT1/CL_ITTER107":       codelistXML("CL_ITTER107", "Territory", itterCodes),
		"/rest/codelist/IT1/CL_SEXISTAT1":      codelistXML("CL_SEXISTAT1", "Sex", []code{{"9", "totale", "total"}, {"1", "maschi", "males"}, {"2", "femmine", "females"}}),
		"/rest/codelist/IT1/CL_ETA1":           codelistXML("CL_ETA1", "Age class", []code{{"Y0", "0 anni", "0 years"}, {"Y_GE100", "100 anni e più", "100 years and over"}, {"TOTAL", "totale", "total"}}),
	}

	f := &fakeSDMX{hits: make(map[string]int), missing: make(map[string]bool)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		missing := f.missing[r.URL.Path]
		f.mu.Unlock()
		body, ok := routes[r.URL.Path]
		if !ok || missing {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeSDMX) setMissing(path string) {
	f.mu.Lock()
	f.missing[path] = true
	f.mu.Unlock()
}

func (f *fakeSDMX) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testBuilder(t *testing.T, f *fakeSDMX) (*Builder, *Store) {
	t.Helper()
	client := sdmx.NewClient(sdmx.Config{BaseURL: f.URL + "/rest", Retries: 0, RetryWait: time.Millisecond}, testLogger())
	store := NewStore(t.TempDir())
	cfg := DefaultBuildConfig()
	cfg.Concurrency = 2
	return NewBuilder(client, store, cfg, testLogger(), nil), store
}

// writeTerritories writes partition files directly, bypassing the builder.
func writeTerritories(t *testing.T, store *Store, files map[string][]Entry) {
	t.Helper()
	for name, entries := range files {
		if err := WriteJSONL(store.Dir()+"/"+TerritoryDir+"/"+name, entries); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}
