package segment

import "testing"

func TestNormalizeTranslations(t *testing.T) {
	n := NewNormalizer(nil, nil)

	tests := []struct {
		raw  string
		want string
	}{
		{"Фоновая запись", "Baseline"},
		{"Открывание глаз", "EyesOpen"},
		{"Закрывание глаз", "EyesClosed"},
		{"Без стимуляции", "Rest"},
		{"После фотостимуляции", "PostPhotic"},
		{"Остановка стимуляции", "StimOff"},
		{"Гипервентиляция 1", "Hypervent"},
		{"После гипервентиляции", "PostHypervent"},
		{"Бодрствование", "Awake"},
		// Stimulation labels gain a frequency suffix from the raw text.
		{"Встроенный фотостимулятор оба, 50 мс, 4 Гц", "Photic4Hz"},
		{"Встроенный фотостимулятор [10 Гц]", "Photic10Hz"},
		{"Встроенный слуховой стимулятор (Тон 1000 Гц)", "Auditory1000Hz"},
		// Tone match wins over the generic frequency match.
		{"Встроенный слуховой стимулятор Тон 500 Гц 20 Гц", "Auditory500Hz"},
		// Без частоты: bare tag.
		{"Встроенный фотостимулятор", "Photic"},
		// Bracketed text is stripped before translation lookup.
		{"Фоновая запись [начало]", "Baseline"},
		{"Фоновая запись (глаза закрыты)", "Baseline"},
		// Untranslated labels pass through cleaned.
		{"Проба с открытыми глазами", "Проба с открытыми глазами"},
		{"Custom marker [x]", "Custom marker"},
	}

	for _, tt := range tests {
		got, ok := n.Normalize(tt.raw)
		if !ok {
			t.Errorf("Normalize(%q) excluded, want %q", tt.raw, tt.want)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeExcluded(t *testing.T) {
	n := NewNormalizer(nil, nil)

	excluded := []string{
		"stimFlash",
		"Артефакт",
		"Начало печати",
		"Окончание печати",
		"Эпилептиформная активность",
		`Комплекс "острая волна - медленная волна"`,
		"Множественные спайки и острые волны",
		"Разрыв записи",
		// Exclusion also applies after bracket stripping.
		"Артефакт [движение]",
	}

	for _, raw := range excluded {
		if got, ok := n.Normalize(raw); ok {
			t.Errorf("Normalize(%q) = %q, want excluded", raw, got)
		}
	}
}

func TestNormalizeEmptyAndFallback(t *testing.T) {
	n := NewNormalizer(nil, nil)

	// Entirely bracketed label falls back to the raw text.
	if got, ok := n.Normalize("[полностью в скобках]"); !ok || got != "[полностью в скобках]" {
		t.Errorf("bracket-only label: got %q ok=%v", got, ok)
	}
	// Empty label maps to the Unknown sentinel.
	if got, ok := n.Normalize(""); !ok || got != LabelUnknown {
		t.Errorf("empty label: got %q ok=%v", got, ok)
	}
}

func TestNormalizeCustomExclusionSet(t *testing.T) {
	// The gap marker translates instead of being excluded when the caller
	// supplies a table that says so.
	n := NewNormalizer(
		[]string{"stimFlash"},
		append(DefaultTranslations(), Translation{Match: "Разрыв записи", Tag: "Gap"}),
	)

	if got, ok := n.Normalize("Разрыв записи"); !ok || got != "Gap" {
		t.Errorf("got %q ok=%v, want Gap", got, ok)
	}
	if _, ok := n.Normalize("stimFlash"); ok {
		t.Error("stimFlash should stay excluded")
	}
}

// P5: normalization is deterministic.
func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer(nil, nil)
	inputs := []string{
		"Встроенный фотостимулятор оба, 50 мс, 4 Гц",
		"Фоновая запись [x]",
		"Артефакт",
		"что-то нестандартное",
	}
	for _, raw := range inputs {
		a, okA := n.Normalize(raw)
		b, okB := n.Normalize(raw)
		if a != b || okA != okB {
			t.Errorf("Normalize(%q) unstable: (%q,%v) vs (%q,%v)", raw, a, okA, b, okB)
		}
	}
}

func TestStimClassifiers(t *testing.T) {
	if !isStimOnset("PhoticStim") {
		t.Error("PhoticStim should be a stimulation onset")
	}
	if isStimOnset("Photic10Hz") {
		t.Error("Photic10Hz is a parameter, not an onset")
	}
	if !isStimParam("Photic10Hz") || !isStimParam("Auditory4Hz") {
		t.Error("frequency-suffixed stimulation tags should classify as parameters")
	}
	if isStimParam("Baseline") || isStimParam("Photic") {
		t.Error("non-frequency labels must not classify as parameters")
	}
}
