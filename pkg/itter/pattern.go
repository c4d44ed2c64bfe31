package itter

import (
	"regexp"
)

// compiledPattern is a single named regex with an optional rejecting
// validator. RE2 has no lookahead, so exclusions such as "ITD but not ITD1"
// are expressed as a reject func run after a successful match.
type compiledPattern struct {
	name   string
	re     *regexp.Regexp
	reject func(string) bool
}

// whitelist holds the irregular province codes that do not follow the
// two-digit layout.
var whitelist = []string{"IT111", "IT108", "IT110", "IT109", "ITC4A", "ITE1A", "ITC4B"}

func rejectCodes(codes ...string) func(string) bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return func(code string) bool { return set[code] }
}

func whitelistPattern() *regexp.Regexp {
	expr := "^(?:"
	for i, c := range whitelist {
		if i > 0 {
			expr += "|"
		}
		expr += regexp.QuoteMeta(c)
	}
	return regexp.MustCompile(expr + ")$")
}

var patterns = map[Type][]compiledPattern{
	Areas: {
		{name: "country", re: regexp.MustCompile(`^IT$`)},
		{name: "area", re: regexp.MustCompile(`^IT[CDEFG]$`)},
	},
	Regions: {
		{name: "region", re: regexp.MustCompile(`^IT[CEFG]\d$`)},
		// ITD1 and ITD2 are the autonomous provinces of Bolzano and Trento.
		{name: "region-d", re: regexp.MustCompile(`^ITD\d$`), reject: rejectCodes("ITD1", "ITD2")},
		{name: "trentino", re: regexp.MustCompile(`^ITDA$`)},
	},
	Provinces: {
		{name: "province", re: regexp.MustCompile(`^IT[CDEF]\d{2}$`)},
		// ITG29 Olbia-Tempio no longer exists.
		{name: "province-g", re: regexp.MustCompile(`^ITG\d{2}$`), reject: rejectCodes("ITG29")},
		{name: "irregular", re: whitelistPattern()},
	},
	Municipalities: {
		{name: "municipality", re: regexp.MustCompile(`^\d{6}$`)},
	},
}

// match tests code against the patterns of t. Returns the matching pattern name.
func match(t Type, code string) (string, bool) {
	for _, p := range patterns[t] {
		if !p.re.MatchString(code) {
			continue
		}
		if p.reject != nil && p.reject(code) {
			continue
		}
		return p.name, true
	}
	return "", false
}

// Matches reports whether code belongs to partition t.
func Matches(t Type, code string) bool {
	_, ok := match(t, code)
	return ok
}

// Classify returns the partition of code. Codes outside every partition
// (e.g. ITD1, ITG29, NUTS3 codes of foreign layout) return false.
func Classify(code string) (Type, bool) {
	for _, t := range Types {
		if Matches(t, code) {
			return t, true
		}
	}
	return "", false
}
