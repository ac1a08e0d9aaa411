package pipeline

import "testing"

func testClassifier() *Classifier {
	return NewClassifier(
		[]string{"нужно", "несколько", "комплект"},
		[]string{"что-то", "подходящий", "грибком", "под ключ"},
		8,
	)
}

func TestClassifySimpleTemplates(t *testing.T) {
	c := testClassifier()
	for _, in := range []string{
		"болт м10х30",
		"Болт М10х30 цинк 100 шт",
		"саморез 4,2х25",
		"DIN 933 М10х30",
		"гайка м8",
	} {
		if d := c.Classify(in); d.NeedsOracle {
			t.Errorf("Classify(%q): ожидался детерминированный разбор, причина %q", in, d.Reason)
		}
	}
}

func TestClassifyOracleTriggers(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"multi-order word", "нужно пять метизов на объект"},
		{"vague term", "что-то для гипсокартона"},
		{"colloquial", "дюбель грибком для утеплителя"},
		{"too many words", "очень длинное описание детали из очень многих отдельных слов тут"},
		{"special punctuation", "крепеж (оцинованный) 10/30"},
	}
	c := testClassifier()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if d := c.Classify(tc.in); !d.NeedsOracle {
				t.Errorf("Classify(%q): ожидалось обращение к оракулу", tc.in)
			}
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	c := testClassifier()
	// A simple template wins even when an indicator word is present.
	d := c.Classify("болт м10х30 нужно 100 шт")
	if d.NeedsOracle {
		t.Errorf("простой шаблон должен иметь приоритет, причина %q", d.Reason)
	}
}
