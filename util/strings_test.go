package util

import "testing"

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "", "hello", "world"); got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
	if got := Coalesce(0, 0, 42); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestTailRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello world", 5, "world"},
		{"short", 10, "short"},
		{"abc", 0, ""},
		{"", 3, ""},
		{"你好世界", 2, "世界"},
		{"ab你好", 3, "b你好"},
	}
	for _, tc := range tests {
		if got := TailRunes(tc.in, tc.n); got != tc.want {
			t.Errorf("TailRunes(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
