package normalize

import (
	"strings"
	"testing"
)

func TestText_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapse", "  a \t b\n\n c  ", "a b c"},
		{"nfkc fullwidth", "ＡＢＣ", "ABC"},
		{"nfkc ligature", "ﬁne", "fine"},
		{"zero width", "in\u200bvisible\ufeff", "invisible"},
		{"controls", "bell\x07 rings", "bell rings"},
		{"invalid utf8", "ok\xffay", "okay"},
		{"case kept", "Moreover, It Works", "Moreover, It Works"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.in); got != tc.want {
				t.Fatalf("Text(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestText_Deterministic(t *testing.T) {
	in := strings.Repeat("The quick brown fox. ", 40)
	if Text(in) != Text(in) {
		t.Fatal("normalization is not deterministic")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("Truncate short = %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Fatalf("Truncate zero cap = %q", got)
	}
}
