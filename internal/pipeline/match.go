package pipeline

import (
	"context"
	"sort"
	"strings"

	"metiz/internal"
	"metiz/internal/catalog"
	"metiz/internal/util"
)

// Per-attribute weights for the fuzzy attribute-overlap component.
const (
	attrWeightDiameter = 0.3
	attrWeightLength   = 0.3
	attrWeightMaterial = 0.15
	attrWeightCoating  = 0.15
	attrWeightStandard = 0.1

	wordOverlapWeight = 0.4
	attrOverlapWeight = 0.6
)

// typeFamilies groups recognized fastener types with their cognates; a
// candidate whose name carries no keyword from the query's family is
// dropped. Unrecognized types disable the filter entirely.
var typeFamilies = map[string][]string{
	"болт":    {"болт"},
	"винт":    {"винт"},
	"саморез": {"саморез", "шуруп"},
	"шуруп":   {"шуруп", "саморез"},
	"анкер":   {"анкер"},
	"гайка":   {"гайка"},
	"шайба":   {"шайба"},
	"дюбель":  {"дюбель"},
}

// Matcher retrieves candidate catalog entries for one order line: exact
// alias lookup first, then fuzzy lexical/attribute overlap over the local
// index, then the external search fallback when the index is unavailable.
type Matcher struct {
	index       *catalog.Index
	search      *catalog.SearchClient
	scoreFloor  float64
	okThreshold float64
	gap         float64
}

func NewMatcher(index *catalog.Index, search *catalog.SearchClient, scoreFloor, okThreshold, gap float64) *Matcher {
	return &Matcher{
		index:       index,
		search:      search,
		scoreFloor:  scoreFloor,
		okThreshold: okThreshold,
		gap:         gap,
	}
}

// FindCandidates returns the ranked candidate list for one order line.
// An empty result is a valid state (nothing matched), never an error.
func (m *Matcher) FindCandidates(ctx context.Context, line internal.OrderLine) []internal.Candidate {
	if m.index == nil || m.index.Empty() {
		if m.search == nil {
			return nil
		}
		return m.search.Search(ctx, util.NormalizeQuery(line.RawText), line.Tokens)
	}

	var cands []internal.Candidate

	norm := util.NormalizeQuery(line.RawText)
	for _, it := range m.index.AliasLookup(norm) {
		cands = append(cands, internal.Candidate{
			SKU:         it.SKU,
			Name:        it.Name,
			PackSize:    it.PackSize,
			Unit:        it.Unit,
			Price:       it.Price,
			Score:       1.0,
			Explanation: "точное совпадение по синониму",
			Source:      internal.CandidateRules,
		})
	}

	for _, it := range m.index.Items() {
		score := m.fuzzyScore(line, it)
		if score <= m.scoreFloor {
			continue
		}
		cands = append(cands, internal.Candidate{
			SKU:         it.SKU,
			Name:        it.Name,
			PackSize:    it.PackSize,
			Unit:        it.Unit,
			Price:       it.Price,
			Score:       score,
			Explanation: "нечеткое совпадение",
			Source:      internal.CandidateFuzzy,
		})
	}

	cands = filterByType(cands, line.Tokens.Type)
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	return dedupeBySKU(cands)
}

// AutoAccept reports whether the top candidate may be taken without review:
// its score clears the threshold and it leads the runner-up by the
// configured gap.
func (m *Matcher) AutoAccept(cands []internal.Candidate) bool {
	if len(cands) == 0 {
		return false
	}
	if cands[0].Score < m.okThreshold {
		return false
	}
	if len(cands) == 1 {
		return true
	}
	return cands[0].Score-cands[1].Score >= m.gap
}

func (m *Matcher) fuzzyScore(line internal.OrderLine, it internal.CatalogItem) float64 {
	words := util.Jaccard(line.RawText, it.Name)

	attrs := 0.0
	if attrMatches(line.Tokens.Diameter, it.Attrs.Diameter) {
		attrs += attrWeightDiameter
	}
	if attrMatches(line.Tokens.Length, it.Attrs.Length) {
		attrs += attrWeightLength
	}
	if attrMatches(line.Tokens.Material, it.Attrs.Material) {
		attrs += attrWeightMaterial
	}
	if attrMatches(line.Tokens.Coating, it.Attrs.Coating) {
		attrs += attrWeightCoating
	}
	if attrMatches(line.Tokens.Standard, it.Attrs.Standard) {
		attrs += attrWeightStandard
	}

	return wordOverlapWeight*words + attrOverlapWeight*attrs
}

// attrMatches compares a query token with an item attribute: both present
// and one a case-insensitive substring of the other.
func attrMatches(token, attr *string) bool {
	if token == nil || attr == nil {
		return false
	}
	a := util.NormalizeCompact(*token)
	b := util.NormalizeCompact(*attr)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func filterByType(cands []internal.Candidate, typ *string) []internal.Candidate {
	if typ == nil {
		return cands
	}
	family, ok := typeFamilies[strings.ToLower(strings.TrimSpace(*typ))]
	if !ok {
		return cands
	}
	out := cands[:0]
	for _, c := range cands {
		name := util.NormalizeQuery(c.Name)
		for _, kw := range family {
			if strings.Contains(name, kw) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// dedupeBySKU keeps the first (highest-scoring) occurrence per SKU.
func dedupeBySKU(cands []internal.Candidate) []internal.Candidate {
	seen := make(map[string]bool, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if seen[c.SKU] {
			continue
		}
		seen[c.SKU] = true
		out = append(out, c)
	}
	return out
}
