package report

import (
	"strings"
	"unicode"
)

// phrasePairs is the ordered Hebrew substitution dictionary applied before
// the per-letter fallback. Order matters: multi-word domain phrases must be
// replaced before their component words, and words before single letters,
// or a phrase gets half-translated and the remainder is mangled by the
// letter table. Entries are best-effort readability for exported reports,
// not a translation layer.
var phrasePairs = [][2]string{
	// multi-word phrases first
	{"קניית מזון", "purchase of food"},
	{"חדר אוכל", "dining room"},
	{"חדר כביסה", "laundry room"},
	{"תחבורה ציבורית", "public transport"},
	{"חומרי ניקוי", "cleaning supplies"},
	{"דוח הוצאות", "expense report"},
	{"בקשת החזר", "refund request"},
	{"כרטיס אשראי", "credit card"},
	{"העברה בנקאית", "bank transfer"},
	// single words
	{"מזגן", "air conditioner"},
	{"מקלחת", "shower"},
	{"מטבח", "kitchen"},
	{"מקרר", "refrigerator"},
	{"כביסה", "laundry"},
	{"ניקיון", "cleaning"},
	{"תיקון", "repair"},
	{"תקלה", "fault"},
	{"חדר", "room"},
	{"מזון", "food"},
	{"אוכל", "food"},
	{"קניות", "shopping"},
	{"מזומן", "cash"},
	{"הוצאה", "expense"},
	{"החזר", "refund"},
	{"חייל", "soldier"},
	{"בית", "house"},
}

// letterTable is the per-character fallback for Hebrew text left
// untranslated by the phrase dictionary. Finals map like their regular
// forms.
var letterTable = map[rune]string{
	'א': "a", 'ב': "b", 'ג': "g", 'ד': "d", 'ה': "h",
	'ו': "v", 'ז': "z", 'ח': "ch", 'ט': "t", 'י': "y",
	'כ': "k", 'ך': "k", 'ל': "l", 'מ': "m", 'ם': "m",
	'נ': "n", 'ן': "n", 'ס': "s", 'ע': "a", 'פ': "p",
	'ף': "p", 'צ': "tz", 'ץ': "tz", 'ק': "k", 'ר': "r",
	'ש': "sh", 'ת': "t",
}

// Normalize prepares a text field for export output. Hebrew input goes
// through the phrase dictionary, then the per-letter fallback, then is
// lowercased with whitespace collapsed. Pure-Latin input is only
// lowercased. Total and deterministic: empty input yields "".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	if !containsHebrew(s) {
		return strings.ToLower(s)
	}

	for _, pair := range phrasePairs {
		s = strings.ReplaceAll(s, pair[0], pair[1])
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := letterTable[r]; ok {
			b.WriteString(repl)
			continue
		}
		if unicode.Is(unicode.Hebrew, r) {
			// points, cantillation, currency sign: drop
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(strings.ToLower(b.String())), " ")
}

func containsHebrew(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hebrew, r) {
			return true
		}
	}
	return false
}
