package pipeline

import (
	"fmt"
	"strings"

	"metiz/internal"
	"metiz/internal/util"
)

// Category weights and combination bonuses for the probability score.
// Floor/ceiling overrides apply after the bonuses, before clamping.
const (
	weightType     = 25
	weightStandard = 40
	weightSize     = 30
	weightCoating  = 15

	bonusStandardSize     = 15
	bonusTypeSize         = 10
	bonusTypeStandardSize = 20

	floorStandardSize  = 80
	ceilingTypeOnly    = 40
	ceilingCoatingOnly = 20
)

// RankOutcome is the result of scoring one candidate name against a token
// set. The per-category flags feed clarification-question generation, the
// explanation is the audit trail of every rule that fired.
type RankOutcome struct {
	ProbabilityPercent int
	Explanation        string
	TypeMatch          bool
	StandardMatch      bool
	SizeMatch          bool
	CoatingMatch       bool
}

// Rank scores candidateName against the extracted tokens with weighted
// category matches, combination bonuses and hard floor/ceiling rules. The
// result is always in [0, 100].
func Rank(candidateName string, ts internal.TokenSet) RankOutcome {
	name := util.NormalizeCompact(candidateName)
	var o RankOutcome
	var trail []string
	score := 0

	if ts.Type != nil {
		probe := util.NormalizeCompact(*ts.Type)
		if probe != "" && strings.Contains(name, probe) {
			o.TypeMatch = true
			score += weightType
			trail = append(trail, fmt.Sprintf("тип совпал: %s (+%d)", *ts.Type, weightType))
		}
	}
	if ts.Standard != nil {
		for _, v := range standardVariants(*ts.Standard) {
			if strings.Contains(name, v) {
				o.StandardMatch = true
				score += weightStandard
				trail = append(trail, fmt.Sprintf("стандарт совпал: %s (+%d)", *ts.Standard, weightStandard))
				break
			}
		}
	}
	if ts.Diameter != nil {
		for _, v := range sizeVariants(*ts.Diameter, util.Deref(ts.Length)) {
			if strings.Contains(name, v) {
				o.SizeMatch = true
				score += weightSize
				trail = append(trail, fmt.Sprintf("размер совпал: %s (+%d)", v, weightSize))
				break
			}
		}
	}
	if ts.Coating != nil {
		probe := util.NormalizeCompact(*ts.Coating)
		if probe != "" && strings.Contains(name, probe) {
			o.CoatingMatch = true
			score += weightCoating
			trail = append(trail, fmt.Sprintf("покрытие совпало: %s (+%d)", *ts.Coating, weightCoating))
		}
	}

	if o.StandardMatch && o.SizeMatch {
		score += bonusStandardSize
		trail = append(trail, fmt.Sprintf("бонус: стандарт и размер (+%d)", bonusStandardSize))
	}
	if o.TypeMatch && o.SizeMatch {
		score += bonusTypeSize
		trail = append(trail, fmt.Sprintf("бонус: тип и размер (+%d)", bonusTypeSize))
	}
	if o.TypeMatch && o.StandardMatch && o.SizeMatch {
		score += bonusTypeStandardSize
		trail = append(trail, fmt.Sprintf("бонус: тип, стандарт и размер (+%d)", bonusTypeStandardSize))
	}

	switch {
	case o.StandardMatch && o.SizeMatch:
		if score < floorStandardSize {
			score = floorStandardSize
			trail = append(trail, fmt.Sprintf("нижняя граница %d: стандарт и размер совпали", floorStandardSize))
		}
	case o.TypeMatch && !o.SizeMatch && !o.StandardMatch && !o.CoatingMatch:
		if score > ceilingTypeOnly {
			score = ceilingTypeOnly
			trail = append(trail, fmt.Sprintf("верхняя граница %d: совпал только тип", ceilingTypeOnly))
		}
	case o.CoatingMatch && !o.TypeMatch && !o.SizeMatch && !o.StandardMatch:
		if score > ceilingCoatingOnly {
			score = ceilingCoatingOnly
			trail = append(trail, fmt.Sprintf("верхняя граница %d: совпало только покрытие", ceilingCoatingOnly))
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	o.ProbabilityPercent = score
	o.Explanation = strings.Join(trail, "\n")
	return o
}

// MatchReason renders the short report-facing reason for a rank outcome.
func (o RankOutcome) MatchReason() string {
	switch {
	case o.TypeMatch && o.StandardMatch && o.SizeMatch && o.CoatingMatch:
		return "полное совпадение параметров"
	case o.StandardMatch && o.SizeMatch:
		return "совпадение по стандарту и размеру"
	case o.TypeMatch && o.SizeMatch:
		return "совпадение по типу и размеру"
	case o.SizeMatch:
		return "совпадение по размеру"
	case o.TypeMatch:
		return "совпадение только по типу"
	case o.CoatingMatch:
		return "совпадение только по покрытию"
	default:
		return "слабое совпадение"
	}
}

// standardVariants produces the compact spellings of a standard code:
// "DIN 933" matches both "din933" and "din-933" in normalized names.
func standardVariants(std string) []string {
	s := strings.ToLower(strings.TrimSpace(std))
	compact := strings.ReplaceAll(s, " ", "")
	return []string{compact, strings.ReplaceAll(compact, "гост", "гост-"), strings.ReplaceAll(s, " ", "-")}
}

// sizeVariants generates the size spellings to probe for in a normalized
// candidate name. For metric sizes both Latin and Cyrillic M prefixes are
// produced (normalization folds multiplication glyphs but not letters), and
// decimal diameters get comma and dot spellings plus a fraction-only
// alternate. Bare sizes ("50x50" angle style) get separator variants only,
// never an M prefix.
func sizeVariants(diameter, length string) []string {
	d := strings.ToLower(strings.TrimSpace(diameter))
	metric := strings.HasPrefix(d, "m") || strings.HasPrefix(d, "м")
	if metric {
		d = strings.TrimLeft(d, "mм")
	}
	if d == "" {
		return nil
	}

	nums := numberSpellings(d)
	seps := []string{"x", "-", ""}
	if !metric {
		seps = []string{"x", "-"}
	}

	var out []string
	add := func(v string) {
		for _, seen := range out {
			if seen == v {
				return
			}
		}
		out = append(out, v)
	}

	prefixes := []string{""}
	if metric {
		prefixes = []string{"m", "м"}
	}
	for _, p := range prefixes {
		for _, n := range nums {
			if length == "" {
				add(p + n)
				continue
			}
			for _, sep := range seps {
				add(p + n + sep + length)
			}
		}
	}
	return out
}

// numberSpellings lists the spellings of one size number: the canonical
// dot form, the comma form, and for decimal fractions the fraction digits
// alone ("4.2" -> "4.2", "4,2", "2").
func numberSpellings(n string) []string {
	out := []string{n}
	if strings.Contains(n, ".") {
		out = append(out, strings.ReplaceAll(n, ".", ","))
		if i := strings.Index(n, "."); i+1 < len(n) {
			out = append(out, n[i+1:])
		}
	}
	return out
}
