package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds a location name for lookup: lowercase, accents
// stripped, apostrophe variants unified, inner whitespace collapsed
// (e.g. "Forlì-Cesena" -> "forli-cesena", "Valle D’Aosta" -> "valle d'aosta").
func NormalizeName(s string) string {
	s = strings.NewReplacer("’", "'", "`", "'", "´", "'").Replace(s)
	result, _, _ := transform.String(stripAccents, strings.ToLower(s))
	return strings.Join(strings.Fields(result), " ")
}
