package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadStory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")
	if err := os.WriteFile(path, []byte(`{"id":"s1","body":"Rent doubled","policyArea":"housing","location":{"state":"TX"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	story, err := readStory(path, nil)
	if err != nil {
		t.Fatalf("readStory: %v", err)
	}
	if story.ID != "s1" || story.Location.State != "TX" {
		t.Errorf("story = %+v", story)
	}

	story, err = readStory("-", strings.NewReader(`{"headline":"Flooded again"}`))
	if err != nil || story.Headline != "Flooded again" {
		t.Errorf("stdin story = %+v, %v", story, err)
	}

	if _, err := readStory("-", strings.NewReader(`{"policyArea":"housing"}`)); err == nil {
		t.Error("expected error for a story without text")
	}
	if _, err := readStory(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"story-1", "story-1"},
		{"a/b\\c", "a_b_c"},
		{"what? now", "what_-now"},
		{"..", "story"},
		{"", "story"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
