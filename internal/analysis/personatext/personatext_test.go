package personatext_test

import (
	"strings"
	"testing"

	"github.com/hayasaka/p-tavern/internal/analysis/personatext"
)

func TestExtractName(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{
			"markdown field",
			"## Persona\n**Name**: Sunny\n**Personality**: cheerful\n",
			"Sunny",
		},
		{
			"plain field",
			"Name: Akari Hoshino\nBackstory: born at sea.",
			"Akari Hoshino",
		},
		{
			"decorated line",
			"**Name:** *Sunny* \nmore text",
			"Sunny",
		},
		{
			"marker at end of text",
			"Name: Momo",
			"Momo",
		},
		{
			"no marker",
			"A cheerful character with no labeled fields.",
			personatext.FallbackName,
		},
		{
			"empty text",
			"",
			personatext.FallbackName,
		},
		{
			"marker with empty value",
			"Name:\nPersonality: quiet",
			personatext.FallbackName,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := personatext.ExtractName(tc.text); got != tc.want {
				t.Fatalf("ExtractName(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestSanitizeStripsRoleTokens(t *testing.T) {
	raw := "  role - user Hello there role - model\n"
	got := personatext.Sanitize(raw)

	if strings.Contains(got, "role - user") || strings.Contains(got, "role - model") {
		t.Fatalf("role tokens survived: %q", got)
	}
	if got != "Hello there" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}

func TestSanitizeTrimsWhitespace(t *testing.T) {
	if got := personatext.Sanitize("\n\t answer \n"); got != "answer" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}

func TestIsStop(t *testing.T) {
	for input, want := range map[string]bool{
		"stop":        true,
		"STOP":        true,
		" stop \n":    true,
		"stop it":     false,
		"unstoppable": false,
		"":            false,
	} {
		if got := personatext.IsStop(input); got != want {
			t.Fatalf("IsStop(%q) = %v, want %v", input, got, want)
		}
	}
}
