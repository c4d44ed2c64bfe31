// Package population fetches resident population series from the SDMX
// service and shapes them into sorted, optionally age-aggregated rows.
package population

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/istat-census/pkg/age"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

// Placeholders for codes missing from the lookup tables.
const (
	UnknownLocation = "Unknown Location"
	UnknownSex      = "Unknown Sex"
)

var sexLabels = map[string]string{
	"1": "Male",
	"2": "Female",
	"9": "Total",
}

// SexLabel maps a SEX code to its label.
func SexLabel(code string) string {
	if l, ok := sexLabels[code]; ok {
		return l
	}
	return UnknownSex
}

// Row is one population figure.
type Row struct {
	Location   string `json:"location"`
	Sex        string `json:"sex"`
	Age        string `json:"age (years)"`
	TimePeriod string `json:"time period"`
	Population string `json:"population"`

	// LocationCode is the REF_AREA code the row was read from.
	LocationCode string `json:"-"`
}

// LocationNamer resolves a territorial code to its display name.
type LocationNamer interface {
	Name(code string) (string, bool)
}

// ParseObservations turns a generic-data message into rows, one per
// observation, sorted by period, location and age. Observations without a
// value are skipped; a value that is not a number is a *sdmx.ParseError.
func ParseObservations(data []byte, names LocationNamer) ([]Row, error) {
	series, err := sdmx.ParseGenericData(data)
	if err != nil {
		return nil, err
	}

	rows := []Row{}
	for _, s := range series {
		areaCode, _ := s.Value("REF_AREA")
		location := UnknownLocation
		if names != nil {
			if n, ok := names.Name(areaCode); ok {
				location = n
			}
		}

		ageCode, _ := s.Value("AGE")
		ageLabel, ok := age.ToDisplay(ageCode)
		if !ok {
			ageLabel = ageCode
		}

		sexCode, _ := s.Value("SEX")
		sex := SexLabel(sexCode)

		for _, o := range s.Observations {
			if !o.HasValue {
				continue
			}
			if _, err := ParseCount(o.Value); err != nil {
				return nil, &sdmx.ParseError{Resource: "data", Err: fmt.Errorf("%s/%s: %w", areaCode, o.Period, err)}
			}
			rows = append(rows, Row{
				Location:     location,
				Sex:          sex,
				Age:          ageLabel,
				TimePeriod:   o.Period,
				Population:   o.Value,
				LocationCode: areaCode,
			})
		}
	}
	SortRows(rows)
	return rows, nil
}

// ParseCount reads a population count. Decimal forms are truncated toward
// zero.
func ParseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("population %q: not a number", s)
	}
	return int64(f), nil
}

// SortRows orders rows by integer time period, then location name, then age.
// Periods that are not integers sort after the others, lexically.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TimePeriod != b.TimePeriod {
			pa, errA := strconv.Atoi(a.TimePeriod)
			pb, errB := strconv.Atoi(b.TimePeriod)
			switch {
			case errA == nil && errB == nil:
				if pa != pb {
					return pa < pb
				}
			case errA == nil:
				return true
			case errB == nil:
				return false
			default:
				return a.TimePeriod < b.TimePeriod
			}
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		return age.Less(a.Age, b.Age)
	})
}
