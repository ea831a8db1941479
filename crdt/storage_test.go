package crdt

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestSaveLoad verifies the snapshot roundtrip.
func TestSaveLoad(t *testing.T) {
	doc := New()
	for i, value := range []string{"h", "i", "\n"} {
		if _, err := doc.Insert(i+1, value); err != nil {
			t.Errorf("error: %v\n", err)
		}
	}

	fileName := filepath.Join(t.TempDir(), "doc.json")

	if err := Save(fileName, &doc); err != nil {
		t.Fatalf("save error: %v\n", err)
	}

	loaded, err := Load(fileName)
	if err != nil {
		t.Fatalf("load error: %v\n", err)
	}

	if !cmp.Equal(loaded.Characters, doc.Characters) {
		t.Errorf("loaded != saved; diff = %v\n", cmp.Diff(loaded.Characters, doc.Characters))
	}
}

// TestLoad_MissingFile surfaces the underlying error.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Errorf("expected an error for a missing file\n")
	}
}
