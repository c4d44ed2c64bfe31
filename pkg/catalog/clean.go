package catalog

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/istat-census/pkg/itter"
)

// CleanDataflowID keeps only the digits and underscores of s
// ("Dataflow 22_289." -> "22_289").
func CleanDataflowID(s string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, s)
	return cleaned, cleaned != ""
}

// locationIDPatterns are tried in order; the first hit wins.
var locationIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:ITC|ITD|ITE|ITF|ITG)\b|^IT\b`),
	regexp.MustCompile(`\b(?:ITC|ITD|ITE|ITF|ITG)\d\b`),
	regexp.MustCompile(`\b(?:ITC|ITD|ITE|ITF|ITG)\d{2}\b|IT111`),
	regexp.MustCompile(`\b\d{6}\b`),
}

// CleanLocationID extracts the first territorial code found in free text
// ("the code is ITD55." -> "ITD55").
func CleanLocationID(s string) (string, bool) {
	for _, re := range locationIDPatterns {
		if m := re.FindString(s); m != "" {
			return m, true
		}
	}
	return "", false
}

// CleanLocationType returns the first partition whose catalog name
// ("_regions", ...) appears in s.
func CleanLocationType(s string) (itter.Type, bool) {
	for _, t := range itter.Types {
		if strings.Contains(s, t.Name()) {
			return t, true
		}
	}
	return "", false
}
