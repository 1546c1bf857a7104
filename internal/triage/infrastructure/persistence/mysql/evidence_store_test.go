package mysql

import "testing"

func TestNameSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"Global Trading LLC", "Global Trading LLC", 1.0, 1.0},
		{"global trading llc", "  Global Trading LLC ", 1.0, 1.0}, // 大小写与首尾空白不敏感
		{"Global Trading LLC", "Global Trading Co", 0.80, 0.95},
		{"Global Trading LLC", "Acme Bakery", 0.0, 0.40},
		{"", "anything", 0.0, 0.0},
	}
	for _, c := range cases {
		got := nameSimilarity(c.a, c.b)
		if got < c.min || got > c.max {
			t.Errorf("nameSimilarity(%q, %q) = %.3f, want within [%.2f, %.2f]", c.a, c.b, got, c.min, c.max)
		}
	}
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}
	for _, c := range cases {
		if got := editDistance(c.a, c.b); got != c.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
