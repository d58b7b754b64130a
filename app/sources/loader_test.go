package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadValidFile(t *testing.T) {
	path := writeTemp(t, `
sources:
  - name: BBC News
    url: http://feeds.bbci.co.uk/news/rss.xml
  - name: NPR
    url: https://feeds.npr.org/1001/rss.xml
    enabled: false
`)

	list, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(list))
	}
	if list[0].Name != "BBC News" {
		t.Errorf("expected first source BBC News, got %q", list[0].Name)
	}
	if !list[0].IsEnabled() {
		t.Error("source without enabled flag should default to enabled")
	}
	if list[1].IsEnabled() {
		t.Error("explicitly disabled source reported as enabled")
	}

	enabled := Enabled(list)
	if len(enabled) != 1 || enabled[0].Name != "BBC News" {
		t.Errorf("Enabled() returned wrong set: %v", enabled)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	list, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}
	if len(list) != len(Defaults) {
		t.Errorf("expected %d default sources, got %d", len(Defaults), len(list))
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty list", "sources: []"},
		{"missing name", "sources:\n  - url: http://example.com/rss\n"},
		{"missing url", "sources:\n  - name: Test\n"},
		{"duplicate name", "sources:\n  - name: A\n    url: http://a.example/rss\n  - name: A\n    url: http://b.example/rss\n"},
		{"bad yaml", "sources: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, tt.content)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
