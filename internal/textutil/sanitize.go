package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose into a base letter plus combining mark.
var foldReplacer = strings.NewReplacer(
	"ı", "i",
	"ß", "ss",
	"æ", "ae",
	"Æ", "ae",
	"ø", "o",
	"Ø", "o",
	"œ", "oe",
	"đ", "d",
	"ł", "l",
	"Ł", "l",
)

var lower = cases.Lower(language.Und)

// Truncate shortens value to at most maxLen runes, ending with an ellipsis
// when anything was cut.
func Truncate(value string, maxLen int) string {
	value = strings.TrimSpace(value)
	if maxLen <= 0 || utf8.RuneCountInString(value) <= maxLen {
		return value
	}
	runes := []rune(value)
	if maxLen == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:maxLen-1])) + "…"
}

// Slugify converts value into a lowercase ASCII slug no longer than maxLen
// runes (0 means unlimited). Returns "untitled" when nothing survives.
func Slugify(value string, maxLen int) string {
	folded := foldAccents(foldReplacer.Replace(strings.TrimSpace(value)))
	folded = lower.String(folded)

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	slug := b.String()
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

func foldAccents(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}
