package report

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhrases(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"קניית מזון", "purchase of food"},
		{"חדר אוכל", "dining room"},
		{"תיקון מזגן", "repair air conditioner"},
		{"כרטיס אשראי", "credit card"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "input %q", tc.in)
	}
}

// Multi-word phrases must win over their component words: if the word
// entries applied first, the phrase entry could never match.
func TestNormalizePhraseBeforeWord(t *testing.T) {
	got := Normalize("קניית מזון")
	assert.Equal(t, "purchase of food", got)
	assert.NotContains(t, got, "food food")
}

func TestNormalizeLetterFallback(t *testing.T) {
	// a word not in the dictionary falls through to per-letter mapping
	got := Normalize("שלום")
	assert.Equal(t, "shlvm", got)
}

func TestNormalizeFinalsMatchRegulars(t *testing.T) {
	assert.Equal(t, Normalize("ם"), Normalize("מ"))
	assert.Equal(t, Normalize("ך"), Normalize("כ"))
	assert.Equal(t, Normalize("ץ"), Normalize("צ"))
}

func TestNormalizeLatinOnlyLowercased(t *testing.T) {
	assert.Equal(t, "already english", Normalize("Already English"))
	assert.Equal(t, "mixed case 123!", Normalize("MiXeD CaSe 123!"))
}

func TestNormalizeMixedInput(t *testing.T) {
	got := Normalize("תיקון in room 5")
	assert.Equal(t, "repair in room 5", got)
}

func TestNormalizeEmptyAndWhitespace(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	// Hebrew input with extra whitespace collapses to single spaces
	got := Normalize("חדר   אוכל")
	assert.False(t, strings.Contains(got, "  "))
}

// Normalize is total and deterministic; output never contains Hebrew.
func TestNormalizeTotality(t *testing.T) {
	inputs := []string{
		"", "plain", "קניית מזון", "שלום עולם", "½ŧ→", "תקלה במקלחת",
		"₪ 100", "אבגדהוזחטיכלמנסעפצקרשת",
	}
	for _, in := range inputs {
		first := Normalize(in)
		second := Normalize(first)
		assert.Equal(t, first, Normalize(in), "deterministic for %q", in)
		assert.Equal(t, first, second, "idempotent for %q", in)
		for _, r := range first {
			assert.False(t, unicode.Is(unicode.Hebrew, r), "hebrew rune %q survived in %q", r, first)
		}
	}
}
