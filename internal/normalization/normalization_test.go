package normalization

import (
  "testing"
)

func TestParseInputStringFoldsCaseAndTrims(t *testing.T) {
  cases := map[string]string{
    "  User@Example.COM  ": "user@example.com",
    "Registration":         "registration",
    "   ":                  "",
  }
  for input, want := range cases {
    if got := ParseInputString(input); got != want {
      t.Errorf("ParseInputString(%q) = %q, want %q", input, got, want)
    }
  }
}

func TestTrimInputStringPreservesCase(t *testing.T) {
  if got := TrimInputString("  S3cret-Pa55word  "); got != "S3cret-Pa55word" {
    t.Errorf("TrimInputString changed more than whitespace: %q", got)
  }
  if got := TrimInputString("Display Name"); got != "Display Name" {
    t.Errorf("TrimInputString(%q) = %q", "Display Name", got)
  }
}
