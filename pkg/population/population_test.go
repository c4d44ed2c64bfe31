package population

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

type mapNamer map[string]string

func (m mapNamer) Name(code string) (string, bool) {
	n, ok := m[code]
	return n, ok
}

var testNames = mapNamer{"ITD55": "Bologna", "ITD57": "Ravenna", "ITC": "Nord-ovest"}

type obs struct{ period, value string }

func series(area, sex, ageCode string, observations ...obs) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<generic:Series><generic:SeriesKey>
<generic:Value id="FREQ" value="A" /><generic:Value id="REF_AREA" value="%s" /><generic:Value id="DATA_TYPE" value="JAN" />
<generic:Value id="SEX" value="%s" /><generic:Value id="AGE" value="%s" /><generic:Value id="MARITAL_STATUS" value="99" />
</generic:SeriesKey>`, area, sex, ageCode)
	for _, o := range observations {
		fmt.Fprintf(&b, `<generic:Obs><generic:ObsDimension id="TIME_PERIOD" value="%s" /><generic:ObsValue value="%s" /></generic:Obs>`, o.period, o.value)
	}
	b.WriteString(`</generic:Series>`)
	return b.String()
}

func genericData(series ...string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<message:GenericData xmlns:message="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message" xmlns:generic="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic">
<message:DataSet>` + strings.Join(series, "\n") + `</message:DataSet></message:GenericData>`
}

var ignoreCode = cmpopts.IgnoreFields(Row{}, "LocationCode")

func TestParseObservations(t *testing.T) {
	data := genericData(
		series("ITD57", "9", "Y_GE100", obs{"2023", "120"}),
		series("ITD55", "9", "Y86", obs{"2023", "5892"}, obs{"2022", "5800"}),
		series("ITD55", "9", "Y85", obs{"2023", "6759"}),
		series("ITX99", "4", "Y_UN5", obs{"2023", "1"}),
		series("ITD55", "1", "TOTAL", obs{"2023", "190000"}),
	)

	rows, err := ParseObservations([]byte(data), testNames)
	if err != nil {
		t.Fatalf("ParseObservations: %v", err)
	}

	want := []Row{
		{Location: "Bologna", Sex: "Total", Age: "86", TimePeriod: "2022", Population: "5800"},
		{Location: "Bologna", Sex: "Total", Age: "85", TimePeriod: "2023", Population: "6759"},
		{Location: "Bologna", Sex: "Total", Age: "86", TimePeriod: "2023", Population: "5892"},
		{Location: "Bologna", Sex: "Male", Age: "total", TimePeriod: "2023", Population: "190000"},
		{Location: "Ravenna", Sex: "Total", Age: "100+", TimePeriod: "2023", Population: "120"},
		{Location: UnknownLocation, Sex: UnknownSex, Age: "Y_UN5", TimePeriod: "2023", Population: "1"},
	}
	if diff := cmp.Diff(want, rows, ignoreCode); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if rows[0].LocationCode != "ITD55" {
		t.Errorf("LocationCode = %q, want ITD55", rows[0].LocationCode)
	}
}

func TestParseObservations_Values(t *testing.T) {
	data := genericData(
		series("ITD55", "9", "Y85", obs{"2023", "6759"}),
	)
	missing := strings.Replace(data, `<generic:ObsValue value="6759" />`, ``, 1)
	rows, err := ParseObservations([]byte(missing), testNames)
	if err != nil {
		t.Fatalf("ParseObservations: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("observation without a value produced rows: %+v", rows)
	}

	bad := genericData(series("ITD55", "9", "Y85", obs{"2023", "n/a"}))
	if _, err := ParseObservations([]byte(bad), testNames); !sdmx.IsParse(err) {
		t.Errorf("error = %v, want ParseError", err)
	}
}

func TestParseObservations_Malformed(t *testing.T) {
	_, err := ParseObservations([]byte("<message:GenericData"), testNames)
	if !sdmx.IsParse(err) {
		t.Errorf("error = %v, want ParseError", err)
	}
}

func TestSortRows_NonIntegerPeriods(t *testing.T) {
	rows := []Row{
		{Location: "A", Age: "1", TimePeriod: "2023-Q1"},
		{Location: "A", Age: "1", TimePeriod: "2023"},
		{Location: "A", Age: "1", TimePeriod: "2021"},
	}
	SortRows(rows)
	got := []string{rows[0].TimePeriod, rows[1].TimePeriod, rows[2].TimePeriod}
	if diff := cmp.Diff([]string{"2021", "2023", "2023-Q1"}, got); diff != "" {
		t.Errorf("period order mismatch (-want +got):\n%s", diff)
	}
}

func TestHasMultipleAges(t *testing.T) {
	single := []Row{
		{Location: "Bologna", Sex: "Total", Age: "85", TimePeriod: "2023", Population: "6759"},
		{Location: "Bologna", Sex: "Male", Age: "85", TimePeriod: "2023", Population: "3000"},
		{Location: "Bologna", Sex: "Total", Age: "85", TimePeriod: "2022", Population: "6700"},
	}
	if HasMultipleAges(single) {
		t.Error("one row per group should not need aggregation")
	}
	multi := append(single, Row{Location: "Bologna", Sex: "Total", Age: "86", TimePeriod: "2023", Population: "5892"})
	if !HasMultipleAges(multi) {
		t.Error("two rows in one group should need aggregation")
	}
	if HasMultipleAges(nil) {
		t.Error("empty input has no groups")
	}
}

func TestGroupAndSum(t *testing.T) {
	tests := []struct {
		name string
		rows []Row
		want []Row
	}{
		{
			name: "range",
			rows: []Row{
				{Location: "Bologna", Sex: "Total", Age: "85", TimePeriod: "2023", Population: "6759"},
				{Location: "Bologna", Sex: "Total", Age: "86", TimePeriod: "2023", Population: "5892"},
			},
			want: []Row{{Location: "Bologna", Sex: "Total", Age: "85-86", TimePeriod: "2023", Population: "12651"}},
		},
		{
			name: "single row keeps bare age",
			rows: []Row{{Location: "Bologna", Sex: "Total", Age: "85", TimePeriod: "2023", Population: "6759"}},
			want: []Row{{Location: "Bologna", Sex: "Total", Age: "85", TimePeriod: "2023", Population: "6759"}},
		},
		{
			name: "100+ is a sticky maximum",
			rows: []Row{
				{Location: "Ravenna", Sex: "Female", Age: "98", TimePeriod: "2023", Population: "10"},
				{Location: "Ravenna", Sex: "Female", Age: "100+", TimePeriod: "2023", Population: "5"},
				{Location: "Ravenna", Sex: "Female", Age: "99", TimePeriod: "2023", Population: "7"},
			},
			want: []Row{{Location: "Ravenna", Sex: "Female", Age: "98-100+", TimePeriod: "2023", Population: "22"}},
		},
		{
			name: "single numeric age with 100+",
			rows: []Row{
				{Location: "Ravenna", Sex: "Total", Age: "99", TimePeriod: "2023", Population: "3"},
				{Location: "Ravenna", Sex: "Total", Age: "100+", TimePeriod: "2023", Population: "2"},
			},
			want: []Row{{Location: "Ravenna", Sex: "Total", Age: "99-100+", TimePeriod: "2023", Population: "5"}},
		},
		{
			name: "only 100+",
			rows: []Row{
				{Location: "Ravenna", Sex: "Total", Age: "100+", TimePeriod: "2023", Population: "2"},
				{Location: "Ravenna", Sex: "Total", Age: "100+", TimePeriod: "2023", Population: "3"},
			},
			want: []Row{{Location: "Ravenna", Sex: "Total", Age: "100+", TimePeriod: "2023", Population: "5"}},
		},
		{
			name: "no numeric age keeps first label",
			rows: []Row{
				{Location: "Ravenna", Sex: "Total", Age: "total", TimePeriod: "2023", Population: "2"},
				{Location: "Ravenna", Sex: "Total", Age: "total", TimePeriod: "2023", Population: "3"},
			},
			want: []Row{{Location: "Ravenna", Sex: "Total", Age: "total", TimePeriod: "2023", Population: "5"}},
		},
		{
			name: "groups in first-appearance order",
			rows: []Row{
				{Location: "Ravenna", Sex: "Total", Age: "1", TimePeriod: "2023", Population: "1"},
				{Location: "Bologna", Sex: "Total", Age: "1", TimePeriod: "2023", Population: "2"},
				{Location: "Ravenna", Sex: "Total", Age: "0", TimePeriod: "2023", Population: "3"},
			},
			want: []Row{
				{Location: "Ravenna", Sex: "Total", Age: "0-1", TimePeriod: "2023", Population: "4"},
				{Location: "Bologna", Sex: "Total", Age: "1", TimePeriod: "2023", Population: "2"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GroupAndSum(tt.rows)
			if err != nil {
				t.Fatalf("GroupAndSum: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGroupAndSum_NotANumber(t *testing.T) {
	for _, v := range []string{"NaN", "n/a", ""} {
		if _, err := GroupAndSum([]Row{{Location: "X", Age: "1", TimePeriod: "2023", Population: v}}); err == nil {
			t.Errorf("population %q: expected error", v)
		}
	}
}

func TestGroupAndSum_Decimal(t *testing.T) {
	got, err := GroupAndSum([]Row{
		{Location: "Bologna", Sex: "Total", Age: "85", TimePeriod: "2023", Population: "6759.0"},
		{Location: "Bologna", Sex: "Total", Age: "86", TimePeriod: "2023", Population: "5892"},
	})
	if err != nil {
		t.Fatalf("GroupAndSum: %v", err)
	}
	if len(got) != 1 || got[0].Population != "12651" {
		t.Errorf("got %+v, want one row of 12651", got)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "6759", want: 6759},
		{in: " 42 ", want: 42},
		{in: "6759.0", want: 6759},
		{in: "12.9", want: 12},
		{in: "abc", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAggregation_UnknownLocationsStayApart(t *testing.T) {
	rows := []Row{
		{Location: UnknownLocation, Sex: "Total", Age: "total", TimePeriod: "2023", Population: "100", LocationCode: "037006"},
		{Location: UnknownLocation, Sex: "Total", Age: "total", TimePeriod: "2023", Population: "200", LocationCode: "058091"},
	}
	if HasMultipleAges(rows) {
		t.Error("two location codes should not need aggregation")
	}

	rows = append(rows,
		Row{Location: UnknownLocation, Sex: "Total", Age: "5", TimePeriod: "2023", Population: "1", LocationCode: "037006"},
	)
	if !HasMultipleAges(rows) {
		t.Error("a repeated location code should need aggregation")
	}
	got, err := GroupAndSum(rows)
	if err != nil {
		t.Fatalf("GroupAndSum: %v", err)
	}
	want := []Row{
		{Location: UnknownLocation, Sex: "Total", Age: "5", TimePeriod: "2023", Population: "101", LocationCode: "037006"},
		{Location: UnknownLocation, Sex: "Total", Age: "total", TimePeriod: "2023", Population: "200", LocationCode: "058091"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestDefaults(t *testing.T) {
	got := Request{LocationIDs: " ITD55 + ITD57 ", Age: "Y_GE98"}.WithDefaults()
	want := Request{LocationIDs: "ITD55+ITD57", Sex: "9", Age: "Y_GE98", StartPeriod: "2023-01-01", EndPeriod: "2023-12-31"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ITD55", "ITD57"}, got.Locations()); diff != "" {
		t.Errorf("locations mismatch (-want +got):\n%s", diff)
	}
}

func testFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := sdmx.NewClient(sdmx.Config{BaseURL: srv.URL + "/rest", Retries: 0, RetryWait: time.Millisecond}, logger)
	return NewFetcher(client, testNames, Config{}, logger)
}

func TestFetch_Aggregates(t *testing.T) {
	var gotPath, gotQuery string
	f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(genericData(
			series("ITD55", "9", "Y85", obs{"2023", "6759"}),
			series("ITD55", "9", "Y86", obs{"2023", "5892"}),
		)))
	})

	res, err := f.Fetch(context.Background(), Request{LocationIDs: "ITD55", Age: "Y85-86"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if wantPath := "/rest/data/IT1,22_289_DF_DCIS_POPRES1_1,1.0/A.ITD55.JAN.9.Y85+Y86.99/ALL/"; gotPath != wantPath {
		t.Errorf("path = %s, want %s", gotPath, wantPath)
	}
	if !strings.Contains(gotQuery, "startPeriod=2023-01-01") || !strings.Contains(gotQuery, "dimensionAtObservation=TIME_PERIOD") {
		t.Errorf("query = %s", gotQuery)
	}
	if !res.Aggregated {
		t.Error("multi-age result should be aggregated")
	}
	want := []Row{{Location: "Bologna", Sex: "Total", Age: "85-86", TimePeriod: "2023", Population: "12651", LocationCode: "ITD55"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasSuffix(res.URL, "dimensionAtObservation=TIME_PERIOD") {
		t.Errorf("URL = %s", res.URL)
	}
}

func TestFetch_SingleAgePassesThrough(t *testing.T) {
	f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(genericData(
			series("ITD55", "9", "TOTAL", obs{"2023", "390000"}),
			series("ITD57", "9", "TOTAL", obs{"2023", "380000"}),
		)))
	})
	res, err := f.Fetch(context.Background(), Request{LocationIDs: "ITD55+ITD57"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Aggregated {
		t.Error("single-age result should not be aggregated")
	}
	if len(res.Rows) != 2 || res.Rows[0].Age != "total" {
		t.Errorf("rows = %+v", res.Rows)
	}
}

func TestFetch_Errors(t *testing.T) {
	f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "NoRecordsFound", http.StatusNotFound)
	})
	if _, err := f.Fetch(context.Background(), Request{}); !sdmx.IsNetwork(err) {
		t.Errorf("error = %v, want NetworkError", err)
	}
	if _, err := f.Fetch(context.Background(), Request{Age: "Y_UNx"}); err == nil {
		t.Error("expected error for invalid age spec")
	}
}
