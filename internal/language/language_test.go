package language

import (
	"testing"

	"bookforge/internal/book"
)

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"heb", "he"},
		{"fre", "fr"},
		{"farsi", "fa"},
		{"he-IL", "he"},
		{"pt-BR", "pt"},
		{"", ""},
		{"not a language", ""},
	}
	for _, tt := range tests {
		if got := ToISO2(tt.input); got != tt.expected {
			t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"he-IL", "Hebrew"},
		{"arabic", "Arabic"},
		{"", "Unknown"},
		{"xx", "XX"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		input    string
		expected book.Direction
	}{
		{"en", book.LeftToRight},
		{"he", book.RightToLeft},
		{"ar-EG", book.RightToLeft},
		{"fa", book.RightToLeft},
		{"yiddish", book.RightToLeft},
		{"ja", book.LeftToRight},
		{"", book.LeftToRight},
	}
	for _, tt := range tests {
		if got := Direction(tt.input); got != tt.expected {
			t.Errorf("Direction(%q) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestTitle(t *testing.T) {
	if got := Title("en", "noa and the moon"); got != "Noa And The Moon" {
		t.Fatalf("Title = %q", got)
	}
}
