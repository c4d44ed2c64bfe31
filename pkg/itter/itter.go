// Package itter classifies ISTAT territorial codes (the CL_ITTER107 codelist)
// into geographic areas, regions, provinces and municipalities.
package itter

import (
	"fmt"
	"strings"
)

// Type is one of the four territorial partitions.
type Type string

const (
	Areas          Type = "A"
	Regions        Type = "R"
	Provinces      Type = "P"
	Municipalities Type = "M"
)

// Types lists every partition in classification order.
var Types = []Type{Areas, Regions, Provinces, Municipalities}

var names = map[Type]string{
	Areas:          "_geographic_areas",
	Regions:        "_regions",
	Provinces:      "_provinces",
	Municipalities: "_municipalities",
}

// Name returns the catalog name of t, e.g. "_regions".
func (t Type) Name() string { return names[t] }

// FileName returns the jsonl file name of t inside the ITTER107 directory.
func (t Type) FileName() string { return names[t] + ".jsonl" }

// ShardFileName returns the file name of the municipality shard for letter.
func ShardFileName(letter string) string {
	return names[Municipalities] + "_" + letter + ".jsonl"
}

// Valid reports whether t is one of the four partitions.
func (t Type) Valid() bool {
	_, ok := names[t]
	return ok
}

// ParseType accepts a partition letter ("R"), a catalog name ("_regions")
// or a plain word ("regions", "areas", "geographic_areas").
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if t := Type(strings.ToUpper(s)); t.Valid() {
		return t, nil
	}
	word := strings.TrimPrefix(strings.ToLower(s), "_")
	for _, t := range Types {
		name := strings.TrimPrefix(names[t], "_")
		if word == name || "geographic_"+word == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown location type %q", s)
}
