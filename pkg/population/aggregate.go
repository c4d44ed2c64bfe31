package population

import (
	"fmt"
	"strconv"

	"github.com/hazyhaar/istat-census/pkg/age"
)

type groupKey struct {
	location, sex, period string
}

// keyOf identifies a row's location by its code so that distinct codes
// sharing the unknown-location placeholder are never merged.
func keyOf(r Row) groupKey {
	loc := r.LocationCode
	if loc == "" {
		loc = "name:" + r.Location
	}
	return groupKey{location: loc, sex: r.Sex, period: r.TimePeriod}
}

// HasMultipleAges reports whether some (location, sex, period) appears in
// more than one row.
func HasMultipleAges(rows []Row) bool {
	seen := make(map[groupKey]bool, len(rows))
	for _, r := range rows {
		k := keyOf(r)
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}

type group struct {
	first      Row
	min, max   int
	hasNumeric bool
	hasTop     bool
	total      int64
}

// GroupAndSum collapses rows sharing (location, sex, period) into one row
// whose population is the sum of the group and whose age is the range
// "min-max". "100+" is a sticky maximum: once seen, the label ends in
// "-100+". A group made of a single age keeps that bare age. Groups come
// out in order of first appearance.
//
// A group without any numeric age is labelled "100+" when it contains that
// code, otherwise it keeps the label of its first row.
func GroupAndSum(rows []Row) ([]Row, error) {
	var order []groupKey
	groups := make(map[groupKey]*group)

	for _, r := range rows {
		n, err := ParseCount(r.Population)
		if err != nil {
			return nil, fmt.Errorf("%s/%s/%s: %w", r.Location, r.Sex, r.TimePeriod, err)
		}

		k := keyOf(r)
		g, ok := groups[k]
		if !ok {
			g = &group{first: r}
			groups[k] = g
			order = append(order, k)
		}
		g.total += n

		if r.Age == age.TopLabel {
			g.hasTop = true
			continue
		}
		a, ok := age.Numeric(r.Age)
		if !ok {
			continue
		}
		if !g.hasNumeric || a < g.min {
			g.min = a
		}
		if !g.hasNumeric || a > g.max {
			g.max = a
		}
		g.hasNumeric = true
	}

	out := make([]Row, 0, len(order))
	for _, k := range order {
		g := groups[k]
		r := g.first
		r.Age = g.label()
		r.Population = strconv.FormatInt(g.total, 10)
		out = append(out, r)
	}
	return out, nil
}

func (g *group) label() string {
	switch {
	case !g.hasNumeric && g.hasTop:
		return age.TopLabel
	case !g.hasNumeric:
		return g.first.Age
	case g.hasTop:
		return fmt.Sprintf("%d-%s", g.min, age.TopLabel)
	case g.min != g.max:
		return fmt.Sprintf("%d-%d", g.min, g.max)
	default:
		return strconv.Itoa(g.min)
	}
}
