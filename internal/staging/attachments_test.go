package staging

import (
	"slices"
	"testing"
)

func TestParseAttachments(t *testing.T) {
	tests := []struct {
		name    string
		message string
		paths   []string
		cleaned string
	}{
		{
			name:    "no marker",
			message: "please grade these essays",
			paths:   nil,
			cleaned: "please grade these essays",
		},
		{
			name:    "single path",
			message: "here you go\n[User attached files: /tmp/essays.zip]",
			paths:   []string{"/tmp/essays.zip"},
			cleaned: "here you go",
		},
		{
			name:    "multiple paths with spaces",
			message: "grade these [User attached files: /tmp/a.pdf, /tmp/b.pdf , /tmp/c.pdf]",
			paths:   []string{"/tmp/a.pdf", "/tmp/b.pdf", "/tmp/c.pdf"},
			cleaned: "grade these",
		},
		{
			name:    "marker only",
			message: "[User attached files: /home/t/rubric.pdf]",
			paths:   []string{"/home/t/rubric.pdf"},
			cleaned: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			paths, cleaned := ParseAttachments(tc.message)
			if !slices.Equal(paths, tc.paths) {
				t.Errorf("paths = %v, want %v", paths, tc.paths)
			}
			if cleaned != tc.cleaned {
				t.Errorf("cleaned = %q, want %q", cleaned, tc.cleaned)
			}
		})
	}
}
