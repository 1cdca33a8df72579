package raw

import "testing"

func TestGet_PrefixAndDefault(t *testing.T) {
	t.Setenv("LOG_LEVEL", "  info ")
	c := New().Prefix("LOG_")

	if got := c.Get("LEVEL", "debug"); got != "info" {
		t.Fatalf("Get = %q, want info", got)
	}
	if got := c.Get("MISSING", "debug"); got != "debug" {
		t.Fatalf("Get default = %q, want debug", got)
	}
}

func TestGetBool(t *testing.T) {
	cases := map[string]bool{"1": true, "true": true, "YES": true, "on": true, "0": false, "nope": false}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			t.Setenv("RAW_FLAG", in)
			if got := New().GetBool("RAW_FLAG", !want); got != want {
				t.Fatalf("GetBool(%q) = %v, want %v", in, got, want)
			}
		})
	}
	if !New().GetBool("RAW_UNSET_FLAG", true) {
		t.Fatal("unset should return default")
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("RAW_N", "42")
	t.Setenv("RAW_BAD", "4x")
	t.Setenv("RAW_NEG", "-3")
	c := New()
	if got := c.GetInt("RAW_N", 1); got != 42 {
		t.Fatalf("GetInt = %d, want 42", got)
	}
	if got := c.GetInt("RAW_BAD", 7); got != 7 {
		t.Fatalf("malformed should fall back, got %d", got)
	}
	if got := c.GetInt("RAW_NEG", 7); got != 7 {
		t.Fatalf("negative should fall back, got %d", got)
	}
}
