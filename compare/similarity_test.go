package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Foundation", "Foundation", 1},
		{"case folded", "FOUNDATION", "foundation", 1},
		{"empty left", "", "Foundation", 0},
		{"empty right", "Foundation", "", 0},
		{"both empty", "", "", 0},
		{"single rune equal", "a", "A", 1},
		{"single rune differs", "a", "b", 0},
		{"disjoint", "abc", "xyz", 0},
		{"night/nacht", "night", "nacht", 0.25},
		{"compatibility forms", "ﬁre", "fire", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"The Name of the Wind", "Name of the Wind"},
		{"Hyperion", "Endymion"},
		{"aaab", "ab"},
		{"Straße", "STRASSE"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "%q vs %q", p[0], p[1])
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestSimilarity_MinorEditStaysAboveThreshold(t *testing.T) {
	t.Parallel()

	assert.GreaterOrEqual(t, Similarity("The Fellowship of the Ring", "The Fellowship of the Rings"), 0.8)
	assert.Less(t, Similarity("The Fellowship of the Ring", "The Two Towers"), 0.8)
}
