package strings

import (
	"testing"

	"aidetect/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	if got := IfEmpty(nil, []string{"GET"}); len(got) != 1 || got[0] != "GET" {
		t.Fatalf("IfEmpty default = %v", got)
	}
	if got := IfEmpty([]int{1, 2}, []int{9}); len(got) != 2 {
		t.Fatalf("IfEmpty kept = %v", got)
	}
}

func TestMustPrefix(t *testing.T) {
	cases := map[string]string{"capture": "/capture", "/pages/": "/pages", "  /meta  ": "/meta"}
	for in, want := range cases {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	testkit.MustPanic(t, func() { MustPrefix(" / ") })
	testkit.MustPanic(t, func() { MustString("  ", "name") })
}

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"日本語", 1, "日"},
		{"abc", 0, ""},
	}
	for _, c := range cases {
		if got := TruncateRunes(c.in, c.n); got != c.want {
			t.Fatalf("TruncateRunes(%q,%d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "tab", "win"); got != "tab" {
		t.Fatalf("FirstNonEmpty = %q", got)
	}
	if FirstNonEmpty() != "" {
		t.Fatal("empty input")
	}
}
