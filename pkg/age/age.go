// Package age translates between SDMX age codes (Y18, Y_GE100, Y_UN15,
// Y18-25, TOTAL) and the labels shown to users.
package age

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Total is the code and label covering every age.
	Total = "TOTAL"
	// Top is the single code standing for 100 years and over.
	Top = "Y_GE100"
	// TopLabel is the display label of Top.
	TopLabel = "100+"
	// MaxEnumerated is the last age with its own code; older ages fall in Top.
	MaxEnumerated = 99
)

// Sort keys of the non-numeric labels.
const (
	topKey          = 101
	totalKey        = 102
	unrecognizedKey = 103
)

// Combine expands an age specification into the ordered atomic codes of the
// SDMX query key:
//
//	TOTAL    -> TOTAL
//	Y_GE{n}  -> Y{n} .. Y99, Y_GE100
//	Y_UN{n}  -> Y0 .. Y{n-1}
//	Y{a}-{b} -> Y{a} .. Y{b}
//	Y{n}     -> Y{n}
func Combine(spec string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case strings.EqualFold(spec, Total):
		return []string{Total}, nil

	case strings.HasPrefix(spec, "Y_GE"):
		n, err := parseAge(spec, spec[len("Y_GE"):])
		if err != nil {
			return nil, err
		}
		if n > MaxEnumerated+1 {
			return nil, fmt.Errorf("age spec %q: lower bound above %d", spec, MaxEnumerated+1)
		}
		codes := seq(n, MaxEnumerated)
		return append(codes, Top), nil

	case strings.HasPrefix(spec, "Y_UN"):
		n, err := parseAge(spec, spec[len("Y_UN"):])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("age spec %q: empty range", spec)
		}
		return seq(0, n-1), nil

	case strings.HasPrefix(spec, "Y") && strings.Contains(spec, "-"):
		lo, hi, _ := strings.Cut(spec[1:], "-")
		a, err := parseAge(spec, lo)
		if err != nil {
			return nil, err
		}
		b, err := parseAge(spec, hi)
		if err != nil {
			return nil, err
		}
		if b < a {
			return nil, fmt.Errorf("age spec %q: empty range", spec)
		}
		return seq(a, b), nil

	case strings.HasPrefix(spec, "Y"):
		if _, err := parseAge(spec, spec[1:]); err != nil && spec != Top {
			return nil, err
		}
		return []string{spec}, nil
	}
	return nil, fmt.Errorf("age spec %q: unrecognized format", spec)
}

// Join renders codes in the wire format of the query key.
func Join(codes []string) string {
	return strings.Join(codes, "+")
}

func parseAge(spec, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("age spec %q: invalid age %q", spec, s)
	}
	return n, nil
}

func seq(from, to int) []string {
	if to < from {
		return []string{}
	}
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, "Y"+strconv.Itoa(i))
	}
	return out
}

// ToDisplay maps an atomic code to its label: TOTAL -> "total",
// Y_GE100 -> "100+", Y{n} -> "{n}". Other codes are not recognized.
func ToDisplay(code string) (string, bool) {
	switch code {
	case Total:
		return "total", true
	case Top:
		return TopLabel, true
	}
	if !strings.HasPrefix(code, "Y") || len(code) == 1 {
		return "", false
	}
	digits := code[1:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}

// SortKey orders labels: numeric ages by value, then "100+", then TOTAL
// (any case), then anything unrecognized.
func SortKey(label string) int {
	switch {
	case label == TopLabel:
		return topKey
	case strings.EqualFold(label, Total):
		return totalKey
	}
	n, err := strconv.Atoi(label)
	if err != nil || n < 0 {
		return unrecognizedKey
	}
	return n
}

// Less reports whether label a sorts before label b.
func Less(a, b string) bool {
	ka, kb := SortKey(a), SortKey(b)
	if ka != kb {
		return ka < kb
	}
	return a < b
}

// Numeric returns the integer value of a plain numeric age label.
func Numeric(label string) (int, bool) {
	n, err := strconv.Atoi(label)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
