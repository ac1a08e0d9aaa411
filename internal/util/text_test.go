package util

import (
	"math"
	"testing"
)

func TestNormalizeQuery(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"multiplication glyphs", "Болт М10×30", "болт м10x30"},
		{"cyrillic kha", "Саморез 4,2х25", "саморез 4,2x25"},
		{"asterisk", "Анкер 8*60", "анкер 8x60"},
		{"yo folding", "Гвоздём", "гвоздем"},
		{"whitespace collapse", "  болт   м6  ", "болт м6"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeQuery(tc.in); got != tc.want {
				t.Errorf("NormalizeQuery(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeQueryIdempotent(t *testing.T) {
	inputs := []string{"Болт М10×30 оцинк.", "Саморез 4,2х25", "ДЮБЕЛЬ 6х40"}
	for _, in := range inputs {
		once := NormalizeQuery(in)
		if twice := NormalizeQuery(once); twice != once {
			t.Errorf("NormalizeQuery не идемпотентна: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeCompact(t *testing.T) {
	if got := NormalizeCompact("Болт оцинкованный М6 х 40"); got != "болтцинкм6x40" {
		t.Errorf("NormalizeCompact = %q", got)
	}
}

func TestJaccard(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "болт м10", "болт м10", 1},
		{"disjoint", "болт м10", "гайка шайба", 0},
		{"half overlap", "болт цинк", "болт фосфат", 1.0 / 3.0},
		{"empty side", "", "болт", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Jaccard(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Jaccard(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCanonDiameter(t *testing.T) {
	cases := []struct{ in, want string }{
		{"м6", "M6"},
		{"M10", "M10"},
		{"4,2 мм", "4,2"},
		{"12 мм", "12"},
	}
	for _, tc := range cases {
		if got := CanonDiameter(tc.in); got != tc.want {
			t.Errorf("CanonDiameter(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
