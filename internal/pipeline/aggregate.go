package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"metiz/internal"
	"metiz/internal/util"
)

// CandidateFinder retrieves and vets candidates for one order line.
// *Matcher is the production implementation.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, line internal.OrderLine) []internal.Candidate
	AutoAccept(cands []internal.Candidate) bool
}

// Aggregator resolves a multi-line order: one best candidate per line,
// identical sub-queries matched once per request, original position order
// preserved in the output. Every input line produces exactly one result.
type Aggregator struct {
	matcher CandidateFinder
}

func NewAggregator(matcher CandidateFinder) *Aggregator {
	return &Aggregator{matcher: matcher}
}

// Aggregate matches and ranks every order line. The candidate cache is
// scoped to this call; it bounds matcher invocations to the number of
// distinct sub-queries, not the number of lines.
func (a *Aggregator) Aggregate(ctx context.Context, lines []internal.OrderLine) []internal.RankedResult {
	cache := make(map[string][]internal.Candidate)
	results := make([]internal.RankedResult, 0, len(lines))

	for _, line := range lines {
		query := SubQuery(line)
		cands, ok := cache[query]
		if !ok {
			cands = a.matcher.FindCandidates(ctx, line)
			cache[query] = cands
		}
		results = append(results, a.resolve(line, query, cands))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Line.Position < results[j].Line.Position
	})
	return results
}

func (a *Aggregator) resolve(line internal.OrderLine, query string, cands []internal.Candidate) internal.RankedResult {
	if len(cands) == 0 {
		q := "Уточните параметры детали: в каталоге ничего не найдено по запросу «" + query + "»"
		return internal.RankedResult{
			Line:               line,
			SearchQuery:        query,
			Chosen:             nil,
			ProbabilityPercent: 0,
			MatchReason:        "не найдено в каталоге",
			Status:             internal.StatusNeedsClarification,
			Clarification:      &q,
		}
	}

	best := cands[0]
	bestRank := Rank(best.Name, line.Tokens)
	for _, c := range cands[1:] {
		r := Rank(c.Name, line.Tokens)
		if r.ProbabilityPercent > bestRank.ProbabilityPercent {
			best, bestRank = c, r
		}
	}

	res := internal.RankedResult{
		Line:               line,
		SearchQuery:        query,
		Chosen:             &best,
		ProbabilityPercent: bestRank.ProbabilityPercent,
		MatchReason:        bestRank.MatchReason(),
		Explanation:        bestRank.Explanation,
		Candidates:         cands,
	}
	if best.Source == internal.CandidateRules {
		res.MatchReason = best.Explanation
	}

	switch {
	case best.Source == internal.CandidateRules,
		bestRank.ProbabilityPercent >= 70 && a.matcher.AutoAccept(cands):
		res.Status = internal.StatusApproved
	case bestRank.ProbabilityPercent >= 70:
		res.Status = internal.StatusNeedsRefinement
	case bestRank.ProbabilityPercent >= 40:
		res.Status = internal.StatusNeedsRefinement
		res.Clarification = util.StringPtr(clarifications(line.Tokens, bestRank))
	default:
		res.Status = internal.StatusNeedsClarification
		res.Clarification = util.StringPtr(clarifications(line.Tokens, bestRank))
	}
	return res
}

// SubQuery builds the short search string for one line: type, size and
// standard when known, otherwise the normalized raw text.
func SubQuery(line internal.OrderLine) string {
	ts := line.Tokens
	var parts []string
	if ts.Type != nil {
		parts = append(parts, *ts.Type)
	}
	if ts.Diameter != nil {
		size := *ts.Diameter
		if ts.Length != nil {
			size += "x" + *ts.Length
		}
		parts = append(parts, size)
	}
	if ts.Standard != nil {
		parts = append(parts, *ts.Standard)
	}
	if len(parts) == 0 {
		return util.NormalizeQuery(line.RawText)
	}
	return util.NormalizeQuery(strings.Join(parts, " "))
}

// clarifications produces up to three follow-up questions for a
// low-confidence line, driven by which match categories are missing.
func clarifications(ts internal.TokenSet, o RankOutcome) string {
	var qs []string
	if !o.SizeMatch {
		if ts.Diameter == nil {
			qs = append(qs, "Уточните размер: диаметр и длину, например М10х30.")
		} else {
			qs = append(qs, fmt.Sprintf("Размер %s не найден в каталоге — проверьте диаметр и длину.", util.Deref(ts.Diameter)))
		}
	}
	if !o.StandardMatch && ts.Standard == nil {
		qs = append(qs, "Укажите стандарт (DIN, ISO или ГОСТ), если он известен.")
	}
	if !o.TypeMatch && ts.Type == nil {
		qs = append(qs, "Уточните тип детали: болт, винт, саморез, анкер и т.д.")
	}
	if !o.CoatingMatch && ts.Coating == nil {
		qs = append(qs, "Какое покрытие требуется: цинк, фосфат или без покрытия?")
	}
	if len(qs) > 3 {
		qs = qs[:3]
	}
	return strings.Join(qs, "\n")
}

// BuildReportRows converts ranked results into the renderer row schema.
// Rows with a chosen candidate below minProbability are excluded; sentinel
// not-found rows always stay visible.
func BuildReportRows(results []internal.RankedResult, minProbability int) []internal.ReportRow {
	rows := make([]internal.ReportRow, 0, len(results))
	for _, r := range results {
		row := internal.ReportRow{
			OrderPosition:      r.Line.Position,
			SearchQuery:        r.SearchQuery,
			FullQuery:          r.Line.RawText,
			RequestedQuantity:  r.Line.RequestedQuantity,
			ProbabilityPercent: r.ProbabilityPercent,
			MatchReason:        r.MatchReason,
			Status:             string(r.Status),
		}
		if r.Chosen == nil {
			row.SKU = internal.NotFoundSKU
			row.Name = internal.NotFoundName
			row.Unit = "шт"
			rows = append(rows, row)
			continue
		}
		if r.ProbabilityPercent < minProbability {
			continue
		}
		row.SKU = r.Chosen.SKU
		row.Name = r.Chosen.Name
		row.PackSize = r.Chosen.PackSize
		row.Unit = r.Chosen.Unit
		rows = append(rows, row)
	}
	return rows
}
