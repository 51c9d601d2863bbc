package normalize

import "testing"

func TestTransliterate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Иванов Иван", "Ivanov Ivan"},
		{"Щербаков", "Shcherbakov"},
		{"Ёлкина Юлия", "Yolkina Yuliya"},
		{"Объедков", "Obedkov"},
		{"Смирнов-Петров", "Smirnov-Petrov"},
		{"Smith John", "Smith John"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Transliterate(tt.in); got != tt.want {
			t.Errorf("Transliterate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"иванов иван петрович", "Иванов Иван Петрович"},
		{"ИВАНОВ", "Иванов"},
		{"  smith john  ", "Smith John"},
	}
	for _, tt := range tests {
		if got := TitleCase(tt.in); got != tt.want {
			t.Errorf("TitleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileSafe(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Иванов Иван", "Иванов_Иван"},
		{"a/b\\c:d", "abcd"},
		{"  spaced   out  ", "spaced_out"},
		{"trailing. ", "trailing"},
	}
	for _, tt := range tests {
		if got := FileSafe(tt.in); got != tt.want {
			t.Errorf("FileSafe(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
