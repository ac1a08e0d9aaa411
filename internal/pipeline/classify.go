package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"metiz/internal/util"
)

// Classifier decides per line whether deterministic pattern rules suffice
// or the line must be delegated to the NLP oracle. Pure decision function,
// no network calls.
type Classifier struct {
	multiOrderWords []string
	vagueWords      []string
	maxWords        int
}

func NewClassifier(multiOrderWords, vagueWords []string, maxWords int) *Classifier {
	return &Classifier{
		multiOrderWords: multiOrderWords,
		vagueWords:      vagueWords,
		maxWords:        maxWords,
	}
}

// Decision carries the verdict and a reason string for the request log.
type Decision struct {
	NeedsOracle bool
	Reason      string
}

// simple templates that a rule parse handles reliably: a standard code with
// a size, or a recognized type with a metric size, optionally followed by
// coating, material or quantity.
var simpleTemplates = []*regexp.Regexp{
	regexp.MustCompile(`^(din|iso|гост)\s*\d+\S*\s+[mм]?\d+(?:[.,]\d+)?(?:x\d+(?:[.,]\d+)?)?`),
	regexp.MustCompile(`^(болт|винт|саморез|анкер|гайка|шайба|дюбель|шуруп|гвоздь|шпилька)\s.*\d`),
}

var reSpecialPunct = regexp.MustCompile(`[(){}\[\]/\\#@&%=?]`)

// Classify applies the precedence rules; the first rule that fires wins.
func (c *Classifier) Classify(line string) Decision {
	norm := util.NormalizeQuery(line)

	for _, tpl := range simpleTemplates {
		if tpl.MatchString(norm) {
			return Decision{NeedsOracle: false, Reason: "простой шаблон"}
		}
	}
	for _, w := range c.multiOrderWords {
		if strings.Contains(norm, w) {
			return Decision{NeedsOracle: true, Reason: fmt.Sprintf("признак сложного заказа: %q", w)}
		}
	}
	for _, w := range c.vagueWords {
		if strings.Contains(norm, w) {
			return Decision{NeedsOracle: true, Reason: fmt.Sprintf("разговорная формулировка: %q", w)}
		}
	}
	if n := len(strings.Fields(norm)); n > c.maxWords {
		return Decision{NeedsOracle: true, Reason: fmt.Sprintf("длинное описание: %d слов", n)}
	}
	if reSpecialPunct.MatchString(norm) {
		return Decision{NeedsOracle: true, Reason: "специальные символы"}
	}
	return Decision{NeedsOracle: false, Reason: "детерминированный разбор"}
}
