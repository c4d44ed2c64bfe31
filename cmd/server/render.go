package main

import (
	"fmt"
	"io"

	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/population"
	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderSteps(w io.Writer, steps []catalog.Step) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Step", "Description"})
	for _, s := range steps {
		t.AppendRow(table.Row{s.ID, s.Description})
	}
	t.Render()
}

func renderManifest(w io.Writer, m *catalog.Manifest) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Step", "Records", "Elapsed", "Status"})
	for _, s := range m.Steps {
		status := "ok"
		if s.Error != "" {
			status = "FAILED: " + s.Error
		}
		t.AppendRow(table.Row{s.ID, s.Records, s.Elapsed, status})
	}
	t.Render()
}

func renderRows(w io.Writer, res *population.Result) {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
	} else {
		t := newTable(w)
		t.AppendHeader(table.Row{"Location", "Sex", "Age (years)", "Time period", "Population"})
		for _, r := range res.Rows {
			t.AppendRow(table.Row{r.Location, r.Sex, r.Age, r.TimePeriod, r.Population})
		}
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	}
	_, _ = fmt.Fprintln(w, res.URL)
}
