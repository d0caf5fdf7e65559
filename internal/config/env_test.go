package config

import (
	"testing"
	"time"
)

func TestStringFallsBackWhenUnset(t *testing.T) {
	t.Setenv("QUAL_TEST_STRING", "")
	if got := String("QUAL_TEST_STRING", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	t.Setenv("QUAL_TEST_STRING", "  value  ")
	if got := String("QUAL_TEST_STRING", "fallback"); got != "value" {
		t.Errorf("got %q, want trimmed value", got)
	}
}

func TestIntParsing(t *testing.T) {
	t.Setenv("QUAL_TEST_INT", "42")
	if got := Int("QUAL_TEST_INT", 7); got != 42 {
		t.Errorf("got %d", got)
	}
	t.Setenv("QUAL_TEST_INT", "not-a-number")
	if got := Int("QUAL_TEST_INT", 7); got != 7 {
		t.Errorf("invalid value: got %d, want fallback", got)
	}
}

func TestDurationParsing(t *testing.T) {
	t.Setenv("QUAL_TEST_DUR", "1500ms")
	if got := Duration("QUAL_TEST_DUR", time.Second); got != 1500*time.Millisecond {
		t.Errorf("got %v", got)
	}
}

func TestBoolParsing(t *testing.T) {
	cases := map[string]bool{"1": true, "true": true, "YES": true, "0": false, "False": false, "no": false}
	for val, want := range cases {
		t.Setenv("QUAL_TEST_BOOL", val)
		if got := Bool("QUAL_TEST_BOOL", !want); got != want {
			t.Errorf("Bool(%q) = %v, want %v", val, got, want)
		}
	}
	t.Setenv("QUAL_TEST_BOOL", "maybe")
	if got := Bool("QUAL_TEST_BOOL", true); got != true {
		t.Error("unparsable value must return the fallback")
	}
}
