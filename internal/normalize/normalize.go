// Package normalize provides name transliteration and formatting for
// exports and library filenames.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// cyrillicToLatin is the Russian romanization table. Uppercase letters go
// through the same table; casing is restored afterwards.
var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

var russianTitle = cases.Title(language.Russian)

// Transliterate romanizes Cyrillic text. Non-Cyrillic runes pass through
// unchanged. An uppercase source letter capitalizes its whole replacement
// only when it starts an all-caps run; otherwise just the first letter.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		lower := unicodeLower(r)
		repl, ok := cyrillicToLatin[lower]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if r != lower && repl != "" {
			repl = strings.ToUpper(repl[:1]) + repl[1:]
		}
		b.WriteString(repl)
	}
	return b.String()
}

// TitleCase capitalizes each word of a personal name, Cyrillic included.
func TitleCase(s string) string {
	return russianTitle.String(strings.ToLower(strings.TrimSpace(s)))
}

// FileSafe renders a name usable as a filename component: words joined by
// underscores, path separators and control characters dropped.
func FileSafe(s string) string {
	fields := strings.Fields(s)
	joined := strings.Join(fields, "_")
	var b strings.Builder
	b.Grow(len(joined))
	for _, r := range joined {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			// skip
		case r < 0x20:
			// skip
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}

func unicodeLower(r rune) rune {
	if r >= 'А' && r <= 'Я' {
		return r + 0x20
	}
	if r == 'Ё' {
		return 'ё'
	}
	return r
}
