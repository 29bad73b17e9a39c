package utils

import (
  "testing"
)

func TestGetEnvDefaultsWhenUnsetOrBlank(t *testing.T) {
  if got := GetEnv("LIBRETUTOR_TEST_UNSET", "fallback", nil); got != "fallback" {
    t.Errorf("unset: got %q, want fallback", got)
  }
  t.Setenv("LIBRETUTOR_TEST_BLANK", "   ")
  if got := GetEnv("LIBRETUTOR_TEST_BLANK", "fallback", nil); got != "fallback" {
    t.Errorf("blank: got %q, want fallback", got)
  }
  t.Setenv("LIBRETUTOR_TEST_SET", "value")
  if got := GetEnv("LIBRETUTOR_TEST_SET", "fallback", nil); got != "value" {
    t.Errorf("set: got %q, want value", got)
  }
}

func TestGetEnvAsInt(t *testing.T) {
  if got := GetEnvAsInt("LIBRETUTOR_TEST_UNSET_INT", 42, nil); got != 42 {
    t.Errorf("unset: got %d, want 42", got)
  }
  t.Setenv("LIBRETUTOR_TEST_INT", " 3600 ")
  if got := GetEnvAsInt("LIBRETUTOR_TEST_INT", 42, nil); got != 3600 {
    t.Errorf("set: got %d, want 3600", got)
  }
  t.Setenv("LIBRETUTOR_TEST_BAD_INT", "one hour")
  if got := GetEnvAsInt("LIBRETUTOR_TEST_BAD_INT", 42, nil); got != 42 {
    t.Errorf("unparseable: got %d, want 42", got)
  }
}
