package util

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedQty is a quantity extracted from an order line.
type ParsedQty struct {
	Qty  *float64
	Unit *string // "шт" or "уп"
	Raw  string
}

// \b does not work next to Cyrillic letters (Go treats them as non-word
// runes), so the unit word is anchored with an explicit non-letter guard.
var reQty = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(штук|упаковок|упак|шт|уп)\.?($|[^а-яё])`)

// ParseQty extracts the requested quantity from free-form order text:
// "болт М10 100 шт" -> 100 шт. The unit is canonicalized to шт/уп.
// Returns zero-value ParsedQty when no quantity marker is present —
// bare numbers are never treated as quantities, they are usually sizes.
func ParseQty(text string) ParsedQty {
	m := reQty.FindStringSubmatch(text)
	if m == nil {
		return ParsedQty{}
	}
	num := strings.ReplaceAll(m[1], ",", ".")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return ParsedQty{}
	}
	unit := "шт"
	if strings.HasPrefix(strings.ToLower(m[2]), "уп") {
		unit = "уп"
	}
	return ParsedQty{Qty: &v, Unit: &unit, Raw: m[0]}
}

// StripQty removes the quantity marker from the text so the remainder can
// be matched against the catalog without the count polluting size tokens.
func StripQty(text string) string {
	s := reQty.ReplaceAllString(text, " ")
	return strings.TrimSpace(regexp.MustCompile(`\s+`).ReplaceAllString(s, " "))
}
