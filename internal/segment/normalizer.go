package segment

import (
	"regexp"
	"strings"
)

// bracketRE strips bracketed and parenthesized annotations, non-greedy,
// possibly repeated ("Фотостимуляция [10 Гц] (оба)" -> "Фотостимуляция ").
var bracketRE = regexp.MustCompile(`\[.*?\]|\(.*?\)`)

// Frequency patterns for stimulation labels. The tone-qualified form wins
// over the generic one when both match.
var (
	freqRE = regexp.MustCompile(`(\d+)\s*Гц`)
	toneRE = regexp.MustCompile(`Тон\s*(\d+)\s*Гц`)
)

// stimParamRE recognizes translated stimulation labels that carry a
// frequency, e.g. "Photic10Hz" or "Auditory4Hz".
var stimParamRE = regexp.MustCompile(`^(Photic|Auditory)\d+Hz$`)

// Translation maps a source-language phrase to its canonical English tag.
// Matching is substring containment against the cleaned label; slice order
// sets precedence.
type Translation struct {
	Match string
	Tag   string
}

// DefaultExcluded returns the canonical exclusion set: markers that are
// noise or print artifacts and never become segment boundaries. The
// recording-gap marker is excluded rather than translated.
func DefaultExcluded() []string {
	return []string{
		"stimFlash",
		"Артефакт",
		"Начало печати",
		"Окончание печати",
		"Эпилептиформная активность",
		`Комплекс "острая волна - медленная волна"`,
		"Множественные спайки и острые волны",
		"Разрыв записи",
	}
}

// DefaultTranslations returns the canonical phrase translation table.
func DefaultTranslations() []Translation {
	return []Translation{
		{Match: "Фоновая запись", Tag: "Baseline"},
		{Match: "Открывание глаз", Tag: "EyesOpen"},
		{Match: "Закрывание глаз", Tag: "EyesClosed"},
		{Match: "Без стимуляции", Tag: "Rest"},
		{Match: "Фотостимуляция", Tag: "PhoticStim"},
		{Match: "После фотостимуляции", Tag: "PostPhotic"},
		{Match: "Встроенный фотостимулятор", Tag: "Photic"},
		{Match: "Встроенный слуховой стимулятор", Tag: "Auditory"},
		{Match: "Остановка стимуляции", Tag: "StimOff"},
		{Match: "Гипервентиляция", Tag: "Hypervent"},
		{Match: "После гипервентиляции", Tag: "PostHypervent"},
		{Match: "Бодрствование", Tag: "Awake"},
	}
}

// Normalizer maps raw annotation labels to canonical names.
// It is pure and safe for concurrent use.
type Normalizer struct {
	excluded     map[string]struct{}
	translations []Translation
}

// NewNormalizer creates a normalizer with the given exclusion set and
// translation table. Nil slices select the defaults.
func NewNormalizer(excluded []string, translations []Translation) *Normalizer {
	if excluded == nil {
		excluded = DefaultExcluded()
	}
	if translations == nil {
		translations = DefaultTranslations()
	}
	ex := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		ex[name] = struct{}{}
	}
	return &Normalizer{excluded: ex, translations: translations}
}

// Normalize maps a raw annotation label to its canonical name.
// ok is false when the label is an excluded marker.
func (n *Normalizer) Normalize(raw string) (name string, ok bool) {
	cleaned := strings.TrimSpace(bracketRE.ReplaceAllString(raw, ""))

	if _, found := n.excluded[cleaned]; found {
		return "", false
	}
	if _, found := n.excluded[raw]; found {
		return "", false
	}

	if cleaned == "" {
		if raw == "" {
			return LabelUnknown, true
		}
		return raw, true
	}

	for _, t := range n.translations {
		if !strings.Contains(cleaned, t.Match) {
			continue
		}
		if strings.Contains(t.Tag, "Photic") || strings.Contains(t.Tag, "Auditory") {
			// Frequency is extracted from the raw label: it usually lives
			// inside the brackets the cleaning step removed.
			if m := toneRE.FindStringSubmatch(raw); m != nil {
				return t.Tag + m[1] + "Hz", true
			}
			if m := freqRE.FindStringSubmatch(raw); m != nil {
				return t.Tag + m[1] + "Hz", true
			}
		}
		return t.Tag, true
	}

	// Untranslated labels pass through cleaned.
	return cleaned, true
}

// isStimOnset reports whether the label marks the start of a stimulation
// sequence whose parameters arrive as the next event.
func isStimOnset(label string) bool {
	return label == "PhoticStim"
}

// isStimParam reports whether the label carries stimulation parameters.
func isStimParam(label string) bool {
	return stimParamRE.MatchString(label)
}
