package pipeline

import (
	"context"
	"testing"

	"metiz/internal"
	"metiz/internal/catalog"
)

func testItems() []internal.CatalogItem {
	return []internal.CatalogItem{
		{
			SKU: "B-933-1030", Name: "Болт DIN 933 М10х30 цинк", PackSize: 100, Unit: "шт", IsActive: true,
			Attrs: internal.ItemAttributes{Diameter: str("M10"), Length: str("30"), Coating: str("цинк"), Standard: str("DIN 933")},
		},
		{
			SKU: "B-933-1240", Name: "Болт DIN 933 М12х40 цинк", PackSize: 50, Unit: "шт", IsActive: true,
			Attrs: internal.ItemAttributes{Diameter: str("M12"), Length: str("40"), Coating: str("цинк"), Standard: str("DIN 933")},
		},
		{
			SKU: "G-934-10", Name: "Гайка DIN 934 М10", PackSize: 200, Unit: "шт", IsActive: true,
			Attrs: internal.ItemAttributes{Diameter: str("M10"), Standard: str("DIN 934")},
		},
	}
}

func testMatcher(aliases []internal.AliasEntry) *Matcher {
	ix := catalog.NewIndex(testItems(), aliases)
	return NewMatcher(ix, nil, 0.10, 0.75, 0.10)
}

func lineFor(n *Normalizer, text string) internal.OrderLine {
	lines := n.Normalize(text, internal.SourceText)
	return lines[0]
}

func TestFindCandidatesAlias(t *testing.T) {
	m := testMatcher([]internal.AliasEntry{{Alias: "болт десятка", SKU: "B-933-1030"}})
	line := lineFor(NewNormalizer(), "Болт десятка")

	cands := m.FindCandidates(context.Background(), line)
	if len(cands) == 0 {
		t.Fatal("кандидаты не найдены")
	}
	if cands[0].SKU != "B-933-1030" || cands[0].Source != internal.CandidateRules {
		t.Errorf("первый кандидат %s/%s, ожидался синоним B-933-1030", cands[0].SKU, cands[0].Source)
	}
	if cands[0].Score != 1.0 {
		t.Errorf("score = %v, want 1.0", cands[0].Score)
	}
}

func TestFindCandidatesFuzzy(t *testing.T) {
	m := testMatcher(nil)
	line := lineFor(NewNormalizer(), "Болт DIN 933 М10х30 цинк")

	cands := m.FindCandidates(context.Background(), line)
	if len(cands) == 0 {
		t.Fatal("кандидаты не найдены")
	}
	if cands[0].SKU != "B-933-1030" {
		t.Errorf("лучший кандидат %s, ожидался B-933-1030", cands[0].SKU)
	}
	if cands[0].Source != internal.CandidateFuzzy {
		t.Errorf("source = %s, want fuzzy", cands[0].Source)
	}
}

func TestFindCandidatesTypeFilter(t *testing.T) {
	m := testMatcher(nil)
	line := lineFor(NewNormalizer(), "Гайка М10")

	for _, c := range m.FindCandidates(context.Background(), line) {
		if c.SKU != "G-934-10" {
			t.Errorf("фильтр по типу пропустил %s (%s)", c.SKU, c.Name)
		}
	}
}

func TestFindCandidatesDedup(t *testing.T) {
	// the same SKU reachable through alias and fuzzy must appear once
	m := testMatcher([]internal.AliasEntry{{Alias: "болт din 933 м10x30 цинк", SKU: "B-933-1030"}})
	line := lineFor(NewNormalizer(), "Болт DIN 933 М10х30 цинк")

	cands := m.FindCandidates(context.Background(), line)
	seen := map[string]int{}
	for _, c := range cands {
		seen[c.SKU]++
	}
	if seen["B-933-1030"] != 1 {
		t.Errorf("SKU B-933-1030 встречается %d раз", seen["B-933-1030"])
	}
}

func TestFindCandidatesEmptyIsNotError(t *testing.T) {
	m := testMatcher(nil)
	line := lineFor(NewNormalizer(), "труба профильная 40х20")

	if cands := m.FindCandidates(context.Background(), line); len(cands) != 0 {
		t.Errorf("ожидался пустой список, получено %d", len(cands))
	}
}

func TestAutoAccept(t *testing.T) {
	m := testMatcher(nil)
	cases := []struct {
		name  string
		cands []internal.Candidate
		want  bool
	}{
		{"empty", nil, false},
		{"single strong", []internal.Candidate{{Score: 0.8}}, true},
		{"below threshold", []internal.Candidate{{Score: 0.7}}, false},
		{"clear gap", []internal.Candidate{{Score: 0.9}, {Score: 0.5}}, true},
		{"narrow gap", []internal.Candidate{{Score: 0.8}, {Score: 0.75}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.AutoAccept(tc.cands); got != tc.want {
				t.Errorf("AutoAccept = %v, want %v", got, tc.want)
			}
		})
	}
}
