package contacts

import (
	"testing"
	"unicode/utf8"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"  +1-555-0100  ":    "15550100",
		"5550100":            "5550100",
		"+390000000001":      "0000000001",
		"+1 (707) 287-4936":  "7) 2874936",
		"3471234567":         "3471234567",
		"not a phone at all": "one at all",
	}
	for in, want := range cases {
		got := NormalizePhone(in)
		if got != want {
			t.Fatalf("NormalizePhone(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNormalizePhone_IdempotentAndBounded(t *testing.T) {
	inputs := []string{
		"", "+", "-", "   ", "+39 347 123 4567", "+1-555-0100", "00393471234567",
		"abc", "ÄÖÜ-äöü-ßßßßßßßßß", "+-+-+-", "12345678901234567890",
	}
	for _, in := range inputs {
		once := NormalizePhone(in)
		if utf8.RuneCountInString(once) > KeyLength {
			t.Fatalf("NormalizePhone(%q)=%q longer than %d", in, once, KeyLength)
		}
		if twice := NormalizePhone(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizer_CountryPrefix(t *testing.T) {
	n, err := NewNormalizer("country-prefix", "+39")
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	cases := map[string]string{
		"347-123-4567":  "393471234567",
		"+393471234567": "393471234567",
		"5550100":       "5550100",
	}
	for in, want := range cases {
		got := n.Normalize(in)
		if got != want {
			t.Fatalf("Normalize(%q)=%q want %q", in, got, want)
		}
		if again := n.Normalize(got); again != got {
			t.Fatalf("not idempotent for %q: %q then %q", in, got, again)
		}
	}
}

func TestNewNormalizer_Errors(t *testing.T) {
	if _, err := NewNormalizer("e164", ""); err == nil {
		t.Fatalf("expected error for unknown rule")
	}
	if _, err := NewNormalizer("country-prefix", " "); err == nil {
		t.Fatalf("expected error for missing country code")
	}
}
