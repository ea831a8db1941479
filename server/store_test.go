package main

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/burntcarrot/coedit/crdt"
)

func newTestStore(t *testing.T) *snapshotStore {
	t.Helper()

	s, err := newSnapshotStore(filepath.Join(t.TempDir(), "coedit.db"))
	if err != nil {
		t.Fatalf("open store: %v\n", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundtrip(t *testing.T) {
	s := newTestStore(t)

	doc := crdt.New()
	for i, value := range []string{"h", "i"} {
		if _, err := doc.Insert(i+1, value); err != nil {
			t.Fatalf("insert: %v\n", err)
		}
	}

	if err := s.Save("notes", doc); err != nil {
		t.Fatalf("save: %v\n", err)
	}

	loaded, found, err := s.Load("notes")
	if err != nil {
		t.Fatalf("load: %v\n", err)
	}
	if !found {
		t.Fatalf("expected snapshot to exist\n")
	}

	if !cmp.Equal(loaded.Characters, doc.Characters) {
		t.Errorf("loaded != saved; diff = %v\n", cmp.Diff(loaded.Characters, doc.Characters))
	}
}

func TestStoreOverwrite(t *testing.T) {
	s := newTestStore(t)

	doc := crdt.New()
	_, _ = doc.Insert(1, "a")
	if err := s.Save("notes", doc); err != nil {
		t.Fatalf("save: %v\n", err)
	}

	_, _ = doc.Insert(2, "b")
	if err := s.Save("notes", doc); err != nil {
		t.Fatalf("second save: %v\n", err)
	}

	loaded, _, err := s.Load("notes")
	if err != nil {
		t.Fatalf("load: %v\n", err)
	}

	if got := crdt.Content(loaded); got != "ab" {
		t.Errorf("content = %q, expected ab\n", got)
	}
}

func TestStoreMissing(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Load("ghost")
	if err != nil {
		t.Fatalf("load: %v\n", err)
	}
	if found {
		t.Errorf("expected no snapshot for unknown name\n")
	}
}
