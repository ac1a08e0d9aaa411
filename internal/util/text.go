package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces = regexp.MustCompile(`\s+`)
	reCoat   = regexp.MustCompile(`оцинк[а-я]*`)
)

// glyphs folds the multiplication-sign zoo (×, Cyrillic х/Х, *) into a single
// ASCII "x" and normalizes ё. Comparisons run on the folded copy; raw order
// text keeps its original spelling.
var glyphs = strings.NewReplacer("×", "x", "Х", "x", "х", "x", "*", "x", "ё", "е", "Ё", "е")

// NormalizeQuery produces the word-level canonical form used for alias
// lookup and tokenization: lower case, folded glyphs, collapsed whitespace.
func NormalizeQuery(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = glyphs.Replace(s)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeCompact is the substring-match form used by the ranking engine:
// NormalizeQuery with all spaces removed and coating spelling variants
// (оцинкованный, оцинк. ...) collapsed to the canonical "цинк".
func NormalizeCompact(input string) string {
	s := NormalizeQuery(input)
	s = reCoat.ReplaceAllString(s, "цинк")
	return strings.ReplaceAll(s, " ", "")
}

// Tokenize splits the canonical form into words, trimming punctuation.
func Tokenize(input string) []string {
	parts := strings.Fields(NormalizeQuery(input))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, ".,!?;:()[]{}\"'")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Jaccard computes word-set Jaccard similarity of two strings:
// |A ∩ B| / |A ∪ B| over tokenized lowercase words.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA)
	for tok := range setB {
		if !setA[tok] {
			union++
		}
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range Tokenize(s) {
		set[tok] = true
	}
	return set
}

var reUnitSuffix = regexp.MustCompile(`\s*(мм|см)\.?\s*$`)

// StripUnitSuffix removes a trailing length unit: "40 мм" -> "40".
func StripUnitSuffix(value string) string {
	return strings.TrimSpace(reUnitSuffix.ReplaceAllString(strings.TrimSpace(value), ""))
}

// CanonDiameter canonicalizes a diameter token: unit stripped, upper case,
// Cyrillic М mapped to Latin M ("м6" -> "M6", "4,2 мм" -> "4,2").
func CanonDiameter(value string) string {
	s := strings.ToUpper(StripUnitSuffix(value))
	s = strings.ReplaceAll(s, "М", "M")
	return s
}

// CanonLength canonicalizes a length token: unit stripped, nothing else.
func CanonLength(value string) string {
	return StripUnitSuffix(value)
}
