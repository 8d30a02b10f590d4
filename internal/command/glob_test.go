package command

import "testing"

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern, s string
		want       bool
	}{
		{"*", "", true},
		{"*", "a/b/c", true},
		{"user*", "user/1", true},
		{"user*", "user", true},
		{"user*", "use", false},
		{"*/1", "user/1", true},
		{"a**b", "a/x/b", true},
		{"h?llo", "hello", true},
		{"h?llo", "hllo", false},
		{"h?llo", "h/llo", true},
		{"h[ae]llo", "hallo", true},
		{"h[ae]llo", "hillo", false},
		{"h[^e]llo", "hallo", true},
		{"h[^e]llo", "hello", false},
		{"h[!e]llo", "hello", false},
		{"h[a-c]llo", "hbllo", true},
		{"h[c-a]llo", "hbllo", true},
		{"h[a-c]llo", "hdllo", false},
		{"h[\\]]llo", "h]llo", true},
		{"h\\*llo", "h*llo", true},
		{"h\\*llo", "hello", false},
		{"h\\?", "h?", true},
		{"a\\", "a\\", true},
		{"[", "", false},
		{"[abc", "a", true},
		{"abc", "abcd", false},
		{"", "", true},
	}
	for _, tt := range tests {
		if got := matchGlob(tt.pattern, tt.s); got != tt.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}
