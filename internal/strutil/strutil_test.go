package strutil

import "testing"

func TestTruncateUTF8(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		maxBytes int
		want     string
	}{
		{"shorter_than_limit", "hello", 10, "hello"},
		{"exact_limit", "hello", 5, "hello"},
		{"ascii_cut", "hello world", 5, "hello"},
		{"multibyte_not_split", "héllo", 2, "h"},
		{"cjk_boundary", "日本語", 4, "日"},
		{"zero_limit", "abc", 0, ""},
		{"empty", "", 5, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateUTF8(tc.in, tc.maxBytes); got != tc.want {
				t.Errorf("TruncateUTF8(%q, %d) = %q, want %q", tc.in, tc.maxBytes, got, tc.want)
			}
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	cases := []struct {
		name   string
		values []string
		want   string
	}{
		{"first_wins", []string{"a", "b"}, "a"},
		{"skips_empty", []string{"", "b"}, "b"},
		{"skips_whitespace", []string{"  ", "\t", "c"}, "c"},
		{"trims_result", []string{" padded "}, "padded"},
		{"all_empty", []string{"", "  "}, ""},
		{"no_values", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FirstNonEmpty(tc.values...); got != tc.want {
				t.Errorf("FirstNonEmpty(%v) = %q, want %q", tc.values, got, tc.want)
			}
		})
	}
}
