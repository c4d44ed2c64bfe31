package catalog

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/hazyhaar/istat-census/pkg/itter"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

// Ordered language preferences for display names.
var (
	TerritoryNameLanguages = []string{"it", "en"}
	CodelistNameLanguages  = []string{"en", "it"}
)

// ExtractTerritories keeps the codes of cl that belong to partition t and
// appear in constraints. Names come from TerritoryNameLanguages (the code
// itself when none is found), bilingual names are corrected, and the result
// is sorted by name.
func ExtractTerritories(t itter.Type, cl *sdmx.Codelist, constraints []string) []Entry {
	allowed := toSet(constraints)
	out := []Entry{}
	for _, c := range cl.Codes {
		if !allowed[c.ID] || !itter.Matches(t, c.ID) {
			continue
		}
		name, ok := c.Names.First(TerritoryNameLanguages...)
		if !ok {
			name = c.ID
		}
		out = append(out, Entry{Name: itter.CorrectName(c.ID, name), Code: c.ID})
	}
	sortByName(out)
	return out
}

// ShardByLetter groups entries by the upper-cased first letter of their name.
// Each shard is sorted by name.
func ShardByLetter(entries []Entry) map[string][]Entry {
	shards := make(map[string][]Entry)
	for _, e := range entries {
		r, _ := utf8.DecodeRuneInString(e.Name)
		if r == utf8.RuneError {
			continue
		}
		letter := string(unicode.ToUpper(r))
		shards[letter] = append(shards[letter], e)
	}
	for _, s := range shards {
		sortByName(s)
	}
	return shards
}

// ExtractCodelist exports the codes of a dimension codelist that appear in
// constraints, named from CodelistNameLanguages and sorted by name.
func ExtractCodelist(cl *sdmx.Codelist, constraints []string) []Entry {
	allowed := toSet(constraints)
	out := []Entry{}
	for _, c := range cl.Codes {
		if !allowed[c.ID] {
			continue
		}
		name, ok := c.Names.First(CodelistNameLanguages...)
		if !ok {
			name = c.ID
		}
		out = append(out, Entry{Name: name, Code: c.ID})
	}
	sortByName(out)
	return out
}

func sortByName(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
