package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/itter"
)

// LocationLister gives the partitions offered to the model.
type LocationLister interface {
	Entries(t itter.Type) ([]catalog.Entry, error)
}

// promptPartitions are listed in the location prompt. Municipalities are too
// many to fit.
var promptPartitions = []struct {
	typ   itter.Type
	title string
}{
	{itter.Areas, "Geographic areas"},
	{itter.Regions, "Regions"},
	{itter.Provinces, "Provinces"},
}

// LocationPrompt builds the system message asking the model for the code(s)
// of the locations the user is talking about.
func LocationPrompt(locs LocationLister) (string, error) {
	var b strings.Builder
	b.WriteString("From the provided list of locations, select the one that best matches the user's needs.\n")
	for _, p := range promptPartitions {
		entries, err := locs.Entries(p.typ)
		if err != nil {
			return "", fmt.Errorf("location prompt: %w", err)
		}
		fmt.Fprintf(&b, "%s:\n", p.title)
		enc := json.NewEncoder(&b)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(entries); err != nil {
			return "", fmt.Errorf("location prompt: %w", err)
		}
	}
	b.WriteString(`
Instruction:
Review the user prompt and the locations list, then return the id of the most relevant location, just the id and nothing else.
If there are multiple locations, combine their ids with a plus '+' sign.

Examples:
- Query: "Tell me the population of Sicilia" -> Response: "ITD3".
- Query: "I want the unemployment rate in Sud Italia?" -> Response: "ITF".
- Query: "What is the population of Bologna, Ravenna and Parma?" -> Response: "ITD55+ITD57+ITD52".

Important: only return the exact string (e.g., "ITC41") without any additional words or explanations.
`)
	return b.String(), nil
}
