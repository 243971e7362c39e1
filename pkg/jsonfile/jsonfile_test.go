package jsonfile

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "models.json")
	in := map[string]string{"gpt-4o": "upstream-model"}
	if err := Save(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	var out map[string]string
	if err := Load(path, &out); err != nil {
		t.Fatalf("load: %v", err)
	}
	if out["gpt-4o"] != "upstream-model" {
		t.Fatalf("round trip mismatch: %v", out)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var out map[string]string
	err := Load(filepath.Join(t.TempDir(), "absent.json"), &out)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
