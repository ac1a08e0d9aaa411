package pipeline

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"metiz/internal"
)

// ErrNoLines is returned when the input contains zero parseable lines.
// This is the only fatal condition: everything past line detection
// degrades per line instead of failing the request.
var ErrNoLines = errors.New("во входном тексте нет ни одной строки заказа")

// Interpreter is the NLP oracle boundary. Implementations never return an
// error: failures surface as a low-confidence sentinel item.
type Interpreter interface {
	Interpret(ctx context.Context, rawText string) []internal.TokenSet
}

// RequestStore persists requests and their per-line outcomes.
type RequestStore interface {
	SaveRequest(ctx context.Context, traceID, source, rawText string) (int64, error)
	SaveResults(ctx context.Context, requestID int64, results []internal.RankedResult) error
}

// Outcome is the full result of one processed request.
type Outcome struct {
	TraceID string
	Lines   []internal.OrderLine
	Results []internal.RankedResult
}

// Processor wires the pipeline: normalize, classify, consult the oracle
// for ambiguous lines, match, rank, aggregate, persist.
type Processor struct {
	normalizer *Normalizer
	classifier *Classifier
	oracle     Interpreter
	aggregator *Aggregator
	store      RequestStore
}

// NewProcessor builds a Processor. oracle and store may be nil: without an
// oracle every line goes through the deterministic parse, without a store
// nothing is persisted.
func NewProcessor(n *Normalizer, c *Classifier, oracle Interpreter, agg *Aggregator, store RequestStore) *Processor {
	return &Processor{normalizer: n, classifier: c, oracle: oracle, aggregator: agg, store: store}
}

// Process runs one raw order end to end. Exactly one RankedResult per
// final order line, position-ordered.
func (p *Processor) Process(ctx context.Context, raw string, source internal.InputSource) (*Outcome, error) {
	lines := p.normalizer.Normalize(raw, source)
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	traceID := uuid.NewString()
	var requestID int64
	if p.store != nil {
		id, err := p.store.SaveRequest(ctx, traceID, string(source), raw)
		if err != nil {
			log.Printf("запрос %s: не сохранен: %v", traceID, err)
		} else {
			requestID = id
		}
	}

	lines = p.expandWithOracle(ctx, lines)
	results := p.aggregator.Aggregate(ctx, lines)

	if p.store != nil && requestID != 0 {
		if err := p.store.SaveResults(ctx, requestID, results); err != nil {
			log.Printf("запрос %s: результаты не сохранены: %v", traceID, err)
		}
	}
	return &Outcome{TraceID: traceID, Lines: lines, Results: results}, nil
}

// expandWithOracle sends ambiguous lines to the oracle. A single returned
// item enriches the line's tokens; multiple items split the line into
// several order lines. Positions are reassigned afterwards so they stay
// contiguous and input-ordered.
func (p *Processor) expandWithOracle(ctx context.Context, lines []internal.OrderLine) []internal.OrderLine {
	out := make([]internal.OrderLine, 0, len(lines))
	for _, line := range lines {
		decision := p.classifier.Classify(line.RawText)
		if !decision.NeedsOracle || p.oracle == nil {
			out = append(out, line)
			continue
		}

		items := p.oracle.Interpret(ctx, line.RawText)
		switch len(items) {
		case 0:
			out = append(out, line)
		case 1:
			line.Tokens = mergeTokens(line.Tokens, items[0])
			out = append(out, line)
		default:
			for _, it := range items {
				split := line
				split.Tokens = mergeTokens(internal.TokenSet{Confidence: line.Tokens.Confidence}, it)
				if it.Quantity != nil {
					split.RequestedQuantity = *it.Quantity
				}
				out = append(out, split)
			}
		}
	}
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

// mergeTokens fills gaps in the rule-extracted tokens with oracle output.
// Rule extraction wins where both produced a value: the oracle is not
// trusted over the deterministic parse.
func mergeTokens(rule, oracle internal.TokenSet) internal.TokenSet {
	out := rule
	if out.Type == nil {
		out.Type = oracle.Type
	}
	if out.Subtype == nil {
		out.Subtype = oracle.Subtype
	}
	if out.Diameter == nil {
		out.Diameter = oracle.Diameter
	}
	if out.Length == nil {
		out.Length = oracle.Length
	}
	if out.Material == nil {
		out.Material = oracle.Material
	}
	if out.Coating == nil {
		out.Coating = oracle.Coating
	}
	if out.Standard == nil {
		out.Standard = oracle.Standard
	}
	if out.Grade == nil {
		out.Grade = oracle.Grade
	}
	if out.Quantity == nil {
		out.Quantity = oracle.Quantity
	}
	if oracle.Confidence > out.Confidence {
		out.Confidence = oracle.Confidence
	}
	return out
}
