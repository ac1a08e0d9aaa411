package pipeline

import (
	"context"
	"errors"
	"testing"

	"metiz/internal"
	"metiz/internal/catalog"
)

// stubOracle returns canned items regardless of the input text.
type stubOracle struct {
	items []internal.TokenSet
	calls int
}

func (s *stubOracle) Interpret(_ context.Context, _ string) []internal.TokenSet {
	s.calls++
	return s.items
}

func newTestProcessor(o Interpreter, store RequestStore) *Processor {
	ix := catalog.NewIndex(testItems(), nil)
	matcher := NewMatcher(ix, nil, 0.10, 0.75, 0.10)
	return NewProcessor(
		NewNormalizer(),
		NewClassifier([]string{"нужно", "несколько"}, []string{"что-то", "подходящий"}, 8),
		o,
		NewAggregator(matcher),
		store,
	)
}

func TestProcessEmptyInputFails(t *testing.T) {
	p := newTestProcessor(nil, nil)
	if _, err := p.Process(context.Background(), "  \n\t ; ", internal.SourceText); !errors.Is(err, ErrNoLines) {
		t.Errorf("err = %v, want ErrNoLines", err)
	}
}

func TestProcessDeterministicLine(t *testing.T) {
	o := &stubOracle{}
	p := newTestProcessor(o, nil)

	out, err := p.Process(context.Background(), "Болт DIN 933 М10х30 цинк", internal.SourceText)
	if err != nil {
		t.Fatal(err)
	}
	if o.calls != 0 {
		t.Errorf("оракул вызван %d раз для простой строки", o.calls)
	}
	if len(out.Results) != 1 {
		t.Fatalf("результатов %d", len(out.Results))
	}
	if out.Results[0].Chosen == nil || out.Results[0].Chosen.SKU != "B-933-1030" {
		t.Errorf("результат %+v", out.Results[0])
	}
}

func TestProcessOracleFailureStillCompletes(t *testing.T) {
	// the oracle degraded to its sentinel: the pipeline must still produce
	// one result per line, not panic or error out
	o := &stubOracle{items: []internal.TokenSet{{Confidence: 0.1}}}
	p := newTestProcessor(o, nil)

	out, err := p.Process(context.Background(), "что-то подходящее для крепления утеплителя", internal.SourceText)
	if err != nil {
		t.Fatal(err)
	}
	if o.calls != 1 {
		t.Errorf("оракул вызван %d раз", o.calls)
	}
	if len(out.Results) != 1 {
		t.Fatalf("результатов %d", len(out.Results))
	}
}

func TestProcessOracleSplitsMultiOrder(t *testing.T) {
	o := &stubOracle{items: []internal.TokenSet{
		{Type: str("болт"), Diameter: str("M10"), Length: str("30"), Confidence: 0.8},
		{Type: str("гайка"), Diameter: str("M10"), Confidence: 0.8},
	}}
	p := newTestProcessor(o, nil)

	out, err := p.Process(context.Background(), "нужно болтов и гаек на десять", internal.SourceText)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Lines) != 2 {
		t.Fatalf("строк после оракула %d, want 2", len(out.Lines))
	}
	if len(out.Results) != 2 {
		t.Fatalf("результатов %d, want 2", len(out.Results))
	}
	for i, r := range out.Results {
		if r.Line.Position != i+1 {
			t.Errorf("позиция %d на месте %d", r.Line.Position, i)
		}
	}
}

func TestProcessOracleEnrichesTokens(t *testing.T) {
	o := &stubOracle{items: []internal.TokenSet{
		{Type: str("дюбель"), Diameter: str("10"), Length: str("80"), Confidence: 0.9},
	}}
	p := newTestProcessor(o, nil)

	out, err := p.Process(context.Background(), "что-то вроде грибка на десять", internal.SourceText)
	if err != nil {
		t.Fatal(err)
	}
	ts := out.Lines[0].Tokens
	if ts.Type == nil || *ts.Type != "дюбель" {
		t.Errorf("type = %v, оракул должен заполнить пропуск", ts.Type)
	}
}

func TestMergeTokensRuleWins(t *testing.T) {
	rule := internal.TokenSet{Diameter: str("M10"), Confidence: 0.6}
	oracle := internal.TokenSet{Diameter: str("M12"), Length: str("40"), Confidence: 0.9}

	got := mergeTokens(rule, oracle)
	if *got.Diameter != "M10" {
		t.Errorf("diameter = %s, правило должно побеждать оракула", *got.Diameter)
	}
	if got.Length == nil || *got.Length != "40" {
		t.Errorf("length = %v, пропуск должен заполниться", got.Length)
	}
	if got.Confidence != 0.9 {
		t.Errorf("confidence = %v", got.Confidence)
	}
}
