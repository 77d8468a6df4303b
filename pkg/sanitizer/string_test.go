package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapse inner spaces", "Ada    Lovelace", "Ada Lovelace"},
		{"tabs and newlines", "Ada\t\nLovelace", "Ada Lovelace"},
		{"trim", "  Ada  ", "Ada"},
		{"control characters dropped", "Ada\x00Lovelace", "AdaLovelace"},
		{"unicode preserved", "  José   Álvarez ", "José Álvarez"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Ada@Example.COM ", "Ada@example.com"},
		{"ada@example.com", "ada@example.com"},
		{"not-an-email", "not-an-email"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeEmail(tt.input); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
