package tomo

import (
	"errors"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TS_001", "TS_001"},
		{"run 12", "run_12"},
		{"  run / 12  ", "run_12"},
		{"wbp.denoised-v2", "wbp.denoised-v2"},
		{"a///b", "a_b"},
		{"__trimmed__", "trimmed"},
		{"ünïcode", "n_code"},
	}
	for _, test := range tests {
		got, err := SanitizeName(test.in)
		if err != nil {
			t.Errorf("SanitizeName(%q) unexpected error: %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestSanitizeNameRejectsUnusable(t *testing.T) {
	for _, in := range []string{"", "///", "日本語"} {
		if _, err := SanitizeName(in); err == nil {
			t.Errorf("SanitizeName(%q) should fail", in)
		} else {
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("SanitizeName(%q) returned %T, want ValidationError", in, err)
			}
		}
	}
}
