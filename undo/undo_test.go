package undo

import (
	"testing"
	"time"

	"github.com/burntcarrot/coedit/crdt"
)

const editorOrigin crdt.Origin = "editor"

func typeString(doc *crdt.Document, s string) {
	for i, r := range []rune(s) {
		_, _ = doc.InsertWith(editorOrigin, i+1, string(r))
	}
}

func TestUndoRedo(t *testing.T) {
	doc := crdt.New()
	m := NewManager(&doc, editorOrigin)
	defer m.Close()

	typeString(&doc, "hi")

	if !m.CanUndo() {
		t.Fatalf("expected an undoable item\n")
	}

	if !m.Undo() {
		t.Fatalf("undo failed\n")
	}
	if got := doc.Content(); got != "" {
		t.Errorf("content after undo = %q, expected empty\n", got)
	}

	if !m.Redo() {
		t.Fatalf("redo failed\n")
	}
	if got := doc.Content(); got != "hi" {
		t.Errorf("content after redo = %q, expected hi\n", got)
	}
}

// TestCaptureTimeout verifies that edits past the merge window land in
// separate stack items.
func TestCaptureTimeout(t *testing.T) {
	doc := crdt.New()
	m := NewManager(&doc, editorOrigin)
	defer m.Close()
	m.SetCaptureTimeout(time.Millisecond)

	_, _ = doc.InsertWith(editorOrigin, 1, "a")
	time.Sleep(5 * time.Millisecond)
	_, _ = doc.InsertWith(editorOrigin, 2, "b")

	m.Undo()
	if got := doc.Content(); got != "a" {
		t.Errorf("content = %q, expected a (only the second item undone)\n", got)
	}

	m.Undo()
	if got := doc.Content(); got != "" {
		t.Errorf("content = %q, expected empty\n", got)
	}
}

// TestUntrackedOrigin verifies remote edits never enter the undo stack.
func TestUntrackedOrigin(t *testing.T) {
	doc := crdt.New()
	m := NewManager(&doc, editorOrigin)
	defer m.Close()

	_, _ = doc.InsertWith("remote", 1, "r")

	if m.CanUndo() {
		t.Errorf("expected remote edit to be outside undo scope\n")
	}

	// A tracked edit after a remote one only undoes itself.
	_, _ = doc.InsertWith(editorOrigin, 2, "x")
	m.Undo()

	if got := doc.Content(); got != "r" {
		t.Errorf("content = %q, expected r\n", got)
	}
}

// TestResetClearsStacks verifies a document reset drops the undo history even
// though resets arrive with origins the manager does not track; undoing into
// freshly synced content would corrupt it.
func TestResetClearsStacks(t *testing.T) {
	doc := crdt.New()
	m := NewManager(&doc, editorOrigin)
	defer m.Close()

	typeString(&doc, "old")

	synced := crdt.New()
	for i, r := range []rune("abc") {
		_, _ = synced.Insert(i+1, string(r))
	}
	doc.Reset(synced, "remote")

	if m.CanUndo() {
		t.Errorf("expected the reset to clear the undo stack\n")
	}
	if m.Undo() {
		t.Errorf("expected nothing to undo after the reset\n")
	}
	if got := doc.Content(); got != "abc" {
		t.Errorf("content = %q, expected abc untouched\n", got)
	}
}

func TestRedoClearedByNewEdit(t *testing.T) {
	doc := crdt.New()
	m := NewManager(&doc, editorOrigin)
	defer m.Close()

	_, _ = doc.InsertWith(editorOrigin, 1, "a")
	m.Undo()

	if !m.CanRedo() {
		t.Fatalf("expected a redoable item\n")
	}

	_, _ = doc.InsertWith(editorOrigin, 1, "b")

	if m.CanRedo() {
		t.Errorf("expected new edit to clear the redo stack\n")
	}
}

func TestStackListeners(t *testing.T) {
	doc := crdt.New()
	m := NewManager(&doc, editorOrigin)
	defer m.Close()
	m.SetCaptureTimeout(0)

	added, popped := 0, 0
	m.OnStackItemAdded(func(it *Item) {
		added++
		it.Meta["cursor"] = 1
	})
	handle := m.OnStackItemPopped(func(it *Item) {
		popped++
		if _, ok := it.Meta["cursor"]; !ok {
			t.Errorf("expected metadata to survive the pop\n")
		}
	})

	_, _ = doc.InsertWith(editorOrigin, 1, "a")
	m.Undo()

	if added != 1 || popped != 1 {
		t.Errorf("added = %v, popped = %v, expected 1 and 1\n", added, popped)
	}

	m.RemoveListener(handle)
	m.Redo()

	if popped != 1 {
		t.Errorf("popped listener fired after removal\n")
	}
}

// TestReplayedOpsCarryOrigin verifies undo replays are tagged for shipping.
func TestReplayedOpsCarryOrigin(t *testing.T) {
	doc := crdt.New()
	m := NewManager(&doc, editorOrigin)
	defer m.Close()

	_, _ = doc.InsertWith(editorOrigin, 1, "a")

	var origins []crdt.Origin
	doc.Observe(func(ev crdt.Event) {
		origins = append(origins, ev.Origin)
	})

	m.Undo()

	if len(origins) != 1 || origins[0] != Origin {
		t.Errorf("origins = %v, expected [%v]\n", origins, Origin)
	}
}
