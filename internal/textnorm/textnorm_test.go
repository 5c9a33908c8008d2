package textnorm

import (
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Gusto is great", "Gusto is great"},
		{"url", "see https://example.com/a?b=c for details", "see for details"},
		{"user ref", "thanks /u/payroll_guy for this", "thanks for this"},
		{"subreddit ref", "posted in /r/smallbusiness today", "posted in today"},
		{"bold", "this is **really** bad", "this is really bad"},
		{"italic", "this is *quite* good", "this is quite good"},
		{"whitespace", "  too   many\n\tspaces  ", "too many spaces"},
		{"bare domain kept", "we use gusto.com daily", "we use gusto.com daily"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"**Gusto** support https://x.io/y is *great* /u/me /r/payroll",
		"ADP is terrible.   Gusto works great.",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Errorf("Clean not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestLettersOnly(t *testing.T) {
	got := LettersOnly("Email me@x.com about Payroll-Taxes! https://a.b/c 2024")
	want := "email about payroll taxes"
	if got != want {
		t.Errorf("LettersOnly = %q, want %q", got, want)
	}
}

func TestWords(t *testing.T) {
	got := Words("Don't use ADP's app, it's slow!")
	want := []string{"don't", "use", "adp's", "app", "it's", "slow"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words = %v, want %v", got, want)
	}
	if len(Words("  ...  ")) != 0 {
		t.Error("expected no words from punctuation")
	}
}

func TestContainsAtWordStart(t *testing.T) {
	tests := []struct {
		text, phrase string
		want         bool
	}{
		{"the fees kept rising", "fee", true},
		{"quickbooks payroll", "ui", false},
		{"the ui is clean", "ui", true},
		{"ui first", "ui", true},
		{"rapid growth", "api", false},
		{"rapid api growth", "api", true},
		{"easy to use", "easy to use", true},
		{"anything", "", false},
	}
	for _, tt := range tests {
		if got := ContainsAtWordStart(tt.text, tt.phrase); got != tt.want {
			t.Errorf("ContainsAtWordStart(%q, %q) = %v, want %v", tt.text, tt.phrase, got, tt.want)
		}
	}
}
