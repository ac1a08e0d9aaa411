package pipeline

import (
	"regexp"
	"strings"

	"metiz/internal"
	"metiz/internal/util"
)

// Normalizer turns raw order text into positioned OrderLines with whatever
// structured tokens the pattern rules can extract. Extraction never fails a
// line: tokens that cannot be found stay nil.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Lines are split on newline, semicolon and tab only. Commas are preserved
// because they appear inside decimal sizes ("4,0х120").
var reLineSep = regexp.MustCompile(`[\n;\t]+`)

var (
	// metric diameter with Latin or Cyrillic M, optional length after a
	// separator already folded to "x" by NormalizeQuery
	reMetricSize = regexp.MustCompile(`[mм](\d+(?:[.,]\d+)?)(?:x(\d+(?:[.,]\d+)?))?`)
	// bare size pair without M prefix: "4,0x120", "50x50"
	reBareSize = regexp.MustCompile(`(^|[^mм\d.,])(\d+(?:[.,]\d+)?)x(\d+(?:[.,]\d+)?)`)
	reStandard = regexp.MustCompile(`(din|iso|гост)\s*(\d+(?:[.-]\d+)*)`)
	// explicit non-letter guard instead of \b, which is ASCII-only
	reLength   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:мм|см)\.?($|[^а-яё])`)
	reGrade    = regexp.MustCompile(`кл\.?\s*пр\.?\s*(\d+(?:\.\d+)?)`)
)

// synonym tables are scanned in declared order; the first hit wins.
var coatingSynonyms = []struct{ probe, canon string }{
	{"оцинк", "цинк"},
	{"цинк", "цинк"},
	{"zn", "цинк"},
	{"желт", "желтый цинк"},
	{"фосфат", "фосфат"},
	{"черн", "без покрытия"},
	{"без покрытия", "без покрытия"},
}

var materialSynonyms = []struct{ probe, canon string }{
	{"латун", "латунный"},
	{"нерж", "нержавеющая сталь"},
	{"a2", "нержавеющая сталь"},
	{"a4", "нержавеющая сталь"},
	{"полиамид", "полиамид"},
	{"нейлон", "полиамид"},
	{"сталь", "сталь"},
}

var typeKeywords = []string{
	"болт", "винт", "саморез", "анкер", "гайка", "шайба", "дюбель", "шуруп", "гвоздь", "шпилька",
}

var subtypeKeywords = []string{
	"забиваемый", "клиновой", "распорный", "шестигранный", "потайной",
	"полукруглый", "строительный", "кровельный", "мебельный", "уголок",
}

// Normalize splits raw text into order lines and extracts tokens per line.
// Pure function; the original spelling survives in RawText, all pattern
// matching runs on a canonicalized lower-case copy.
func (n *Normalizer) Normalize(raw string, source internal.InputSource) []internal.OrderLine {
	var lines []internal.OrderLine
	for _, part := range reLineSep.Split(raw, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens := n.ExtractTokens(part)
		qty := 1.0
		if tokens.Quantity != nil {
			qty = *tokens.Quantity
		}
		lines = append(lines, internal.OrderLine{
			Position:          len(lines) + 1,
			RawText:           part,
			Source:            source,
			Tokens:            tokens,
			RequestedQuantity: qty,
		})
	}
	return lines
}

// ExtractTokens applies the pattern rules to one line of text.
func (n *Normalizer) ExtractTokens(line string) internal.TokenSet {
	norm := util.NormalizeQuery(line)
	var ts internal.TokenSet

	for _, kw := range typeKeywords {
		if strings.Contains(norm, kw) {
			ts.Type = util.StringPtr(kw)
			break
		}
	}
	for _, kw := range subtypeKeywords {
		if strings.Contains(norm, kw) {
			ts.Subtype = util.StringPtr(kw)
			break
		}
	}

	if m := reStandard.FindStringSubmatch(norm); m != nil {
		ts.Standard = util.StringPtr(strings.ToUpper(m[1]) + " " + m[2])
	}
	if m := reGrade.FindStringSubmatch(norm); m != nil {
		ts.Grade = util.StringPtr(m[1])
	}

	if m := reMetricSize.FindStringSubmatch(norm); m != nil {
		ts.Diameter = util.StringPtr("M" + decimalDot(m[1]))
		if m[2] != "" {
			ts.Length = util.StringPtr(decimalDot(m[2]))
		}
	} else if m := reBareSize.FindStringSubmatch(norm); m != nil {
		ts.Diameter = util.StringPtr(decimalDot(m[2]))
		ts.Length = util.StringPtr(decimalDot(m[3]))
	}
	if ts.Length == nil {
		if m := reLength.FindStringSubmatch(norm); m != nil {
			ts.Length = util.StringPtr(decimalDot(m[1]))
		}
	}

	for _, syn := range coatingSynonyms {
		if strings.Contains(norm, syn.probe) {
			ts.Coating = util.StringPtr(syn.canon)
			break
		}
	}
	for _, syn := range materialSynonyms {
		if strings.Contains(norm, syn.probe) {
			ts.Material = util.StringPtr(syn.canon)
			break
		}
	}

	if q := util.ParseQty(line); q.Qty != nil {
		ts.Quantity = q.Qty
	}

	ts.Confidence = extractionConfidence(ts)
	return ts
}

// decimalDot canonicalizes the decimal separator: "4,2" -> "4.2".
func decimalDot(s string) string {
	return strings.ReplaceAll(s, ",", ".")
}

func extractionConfidence(ts internal.TokenSet) float64 {
	c := 0.3
	if ts.Type != nil {
		c += 0.25
	}
	if ts.Diameter != nil {
		c += 0.25
	}
	if ts.Length != nil {
		c += 0.1
	}
	if ts.Standard != nil {
		c += 0.1
	}
	if c > 0.95 {
		c = 0.95
	}
	return c
}
