// Package undo scopes undo/redo history to a tracked set of document
// origins, so a client only ever undoes its own edits.
package undo

import (
	"time"

	"github.com/burntcarrot/coedit/crdt"
)

// Origin tags edits replayed by the manager, so other listeners can treat
// them like any non-editor change.
const Origin crdt.Origin = "undo"

// DefaultCaptureTimeout merges edits closer together than this into one
// stack item, so a typing run undoes as a unit.
const DefaultCaptureTimeout = 500 * time.Millisecond

// Item is one undoable unit: the tracked events that produced it, plus
// caller metadata (the binding stores cursor state here).
type Item struct {
	ops []crdt.Event

	Meta map[string]interface{}
}

// Len returns the number of events captured in the item.
func (it *Item) Len() int {
	return len(it.ops)
}

// Manager observes a document and captures events from tracked origins into
// an undo stack.
type Manager struct {
	doc     *crdt.Document
	tracked map[crdt.Origin]struct{}

	undoStack []*Item
	redoStack []*Item

	captureTimeout time.Duration
	lastCapture    time.Time

	replaying bool

	observer     int
	onAdded      map[int]func(*Item)
	onPopped     map[int]func(*Item)
	nextListener int
}

// NewManager returns a manager capturing events from the given origins.
func NewManager(doc *crdt.Document, origins ...crdt.Origin) *Manager {
	m := &Manager{
		doc:            doc,
		tracked:        make(map[crdt.Origin]struct{}),
		captureTimeout: DefaultCaptureTimeout,
		onAdded:        make(map[int]func(*Item)),
		onPopped:       make(map[int]func(*Item)),
	}
	for _, origin := range origins {
		m.tracked[origin] = struct{}{}
	}

	m.observer = doc.Observe(m.capture)
	return m
}

// Track adds an origin to the tracked set.
func (m *Manager) Track(origin crdt.Origin) {
	m.tracked[origin] = struct{}{}
}

// SetCaptureTimeout sets the merge window for consecutive edits.
func (m *Manager) SetCaptureTimeout(d time.Duration) {
	m.captureTimeout = d
}

// OnStackItemAdded registers a listener fired when a new stack item opens.
func (m *Manager) OnStackItemAdded(fn func(*Item)) int {
	m.nextListener++
	m.onAdded[m.nextListener] = fn
	return m.nextListener
}

// OnStackItemPopped registers a listener fired when an item is undone or redone.
func (m *Manager) OnStackItemPopped(fn func(*Item)) int {
	m.nextListener++
	m.onPopped[m.nextListener] = fn
	return m.nextListener
}

// RemoveListener removes a listener registered with either hook.
func (m *Manager) RemoveListener(handle int) {
	delete(m.onAdded, handle)
	delete(m.onPopped, handle)
}

func (m *Manager) capture(ev crdt.Event) {
	if m.replaying {
		return
	}

	// A reset replaces history the stacks know nothing about, whatever its
	// origin. Resets arrive with untracked origins (full syncs, file loads),
	// so this runs before the tracked-origin gate.
	if ev.Type == crdt.OpReset {
		m.Clear()
		return
	}

	if _, ok := m.tracked[ev.Origin]; !ok {
		return
	}

	// A fresh tracked edit invalidates the redo stack.
	m.redoStack = nil

	now := time.Now()
	if len(m.undoStack) > 0 && now.Sub(m.lastCapture) < m.captureTimeout {
		top := m.undoStack[len(m.undoStack)-1]
		top.ops = append(top.ops, ev)
		m.lastCapture = now
		return
	}

	item := &Item{ops: []crdt.Event{ev}, Meta: make(map[string]interface{})}
	m.undoStack = append(m.undoStack, item)
	m.lastCapture = now

	for _, fn := range m.onAdded {
		fn(item)
	}
}

// CanUndo reports whether an undo stack item exists.
func (m *Manager) CanUndo() bool {
	return len(m.undoStack) > 0
}

// CanRedo reports whether a redo stack item exists.
func (m *Manager) CanRedo() bool {
	return len(m.redoStack) > 0
}

// Undo reverts the newest stack item by applying inverse operations, tagged
// with the manager's origin. Reports whether anything was undone.
func (m *Manager) Undo() bool {
	if len(m.undoStack) == 0 {
		return false
	}

	item := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]

	// Inverses apply in reverse capture order.
	m.replaying = true
	for i := len(item.ops) - 1; i >= 0; i-- {
		m.apply(invert(item.ops[i]))
	}
	m.replaying = false

	m.redoStack = append(m.redoStack, item)
	// Close the merge window so the next edit opens a fresh item.
	m.lastCapture = time.Time{}

	for _, fn := range m.onPopped {
		fn(item)
	}
	return true
}

// Redo re-applies the newest undone item. Reports whether anything was redone.
func (m *Manager) Redo() bool {
	if len(m.redoStack) == 0 {
		return false
	}

	item := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]

	m.replaying = true
	for _, ev := range item.ops {
		m.apply(ev)
	}
	m.replaying = false

	m.undoStack = append(m.undoStack, item)
	m.lastCapture = time.Time{}

	for _, fn := range m.onPopped {
		fn(item)
	}
	return true
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.undoStack = nil
	m.redoStack = nil
}

// Close unregisters the manager from the document.
func (m *Manager) Close() {
	m.doc.Unobserve(m.observer)
}

func invert(ev crdt.Event) crdt.Event {
	switch ev.Type {
	case crdt.OpInsert:
		return crdt.Event{Type: crdt.OpDelete, Position: ev.Position, Value: ev.Value}
	default:
		return crdt.Event{Type: crdt.OpInsert, Position: ev.Position, Value: ev.Value}
	}
}

// apply replays an operation on the document, tagged with the manager's
// origin so downstream listeners ship and render it like any remote change.
func (m *Manager) apply(ev crdt.Event) {
	switch ev.Type {
	case crdt.OpInsert:
		_, _ = m.doc.InsertWith(Origin, ev.Position, ev.Value)
	case crdt.OpDelete:
		_ = m.doc.DeleteWith(Origin, ev.Position)
	}
}
