// Package binding wires a collaborative text document to an editor buffer,
// and relays cursor state through an awareness channel so every participant
// sees everyone else's cursor.
package binding

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/burntcarrot/coedit/awareness"
	"github.com/burntcarrot/coedit/commons"
	"github.com/burntcarrot/coedit/crdt"
	"github.com/burntcarrot/coedit/editor"
	"github.com/burntcarrot/coedit/undo"
)

// Origins tagging document mutations flowing through the binding.
const (
	// OriginEditor tags edits the local editor produced.
	OriginEditor crdt.Origin = "editor"

	// OriginRemote tags edits received over the wire.
	OriginRemote crdt.Origin = "remote"
)

// DefaultCursorDebounce is the quiet interval before a cursor move is
// broadcast through awareness.
const DefaultCursorDebounce = 100 * time.Millisecond

// metaCursor is the stack-item metadata key holding the cursor snapshot.
const metaCursor = "cursor"

// Option configures a Binding.
type Option func(*Binding)

// WithUndoManager scopes undo/redo to the binding's edits.
func WithUndoManager(m *undo.Manager) Option {
	return func(b *Binding) { b.um = m }
}

// WithCursorDebounce overrides the cursor broadcast interval. Zero makes
// broadcasts synchronous.
func WithCursorDebounce(d time.Duration) Option {
	return func(b *Binding) { b.debounce = d }
}

// Binding keeps one document and one editor in sync for its whole lifetime.
type Binding struct {
	doc *crdt.Document
	ed  *editor.Editor
	aw  *awareness.Awareness
	um  *undo.Manager

	// mu guards applying, sel, cursors and changed. applying stops the
	// document and editor change handlers from re-entrantly feeding each
	// other while one side replays the other's update.
	mu       sync.Mutex
	applying bool
	closed   bool

	// sel is the current selection as anchors that survive concurrent
	// edits; it is refreshed on every cursor move, so it always reflects
	// the pre-change selection when a remote update lands.
	sel awareness.Cursor

	// cursors holds the rendered remote cursor state; changed collects
	// the clients whose cursors moved since the last flush.
	cursors map[uuid.UUID]editor.RemoteCursor
	changed map[uuid.UUID]struct{}

	debounce  time.Duration
	broadcast *debouncer

	docObserver int
	awListener  int
	undoAdded   int
	undoPopped  int

	onOperation func(commons.Operation)
}

// New constructs a binding between a document and an editor. The awareness
// handle may be nil when no presence channel exists.
func New(doc *crdt.Document, ed *editor.Editor, aw *awareness.Awareness, opts ...Option) *Binding {
	b := &Binding{
		doc:      doc,
		ed:       ed,
		aw:       aw,
		cursors:  make(map[uuid.UUID]editor.RemoteCursor),
		changed:  make(map[uuid.UUID]struct{}),
		debounce: DefaultCursorDebounce,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.broadcast = newDebouncer(b.debounce, b.broadcastCursor)

	ed.SetText(doc.Content())
	b.refreshSelection()

	ed.OnChange = b.handleEditorChange
	ed.OnCursor = b.handleCursorMove
	ed.OnBlur = b.handleBlur
	b.docObserver = doc.Observe(b.handleDocEvent)

	if aw != nil {
		b.awListener = aw.OnUpdate(b.handleAwareness)
	}

	if b.um != nil {
		b.um.Track(OriginEditor)
		b.undoAdded = b.um.OnStackItemAdded(b.handleStackItemAdded)
		b.undoPopped = b.um.OnStackItemPopped(b.handleStackItemPopped)
	}

	return b
}

// OnOperation sets the callback receiving local operations for transport.
func (b *Binding) OnOperation(fn func(commons.Operation)) {
	b.onOperation = fn
}

// ApplyRemoteOperation integrates an operation received over the wire.
func (b *Binding) ApplyRemoteOperation(op commons.Operation) error {
	return op.Apply(b.doc, OriginRemote)
}

// ResetDocument replaces the document's content wholesale, as when a full
// sync arrives or a file is loaded.
func (b *Binding) ResetDocument(d crdt.Document) {
	b.doc.Reset(d, OriginRemote)
}

// Undo reverts the last local edit through the undo manager.
func (b *Binding) Undo() bool {
	if b.um == nil {
		return false
	}
	return b.um.Undo()
}

// Redo re-applies the last undone edit.
func (b *Binding) Redo() bool {
	if b.um == nil {
		return false
	}
	return b.um.Redo()
}

// handleEditorChange turns a local buffer splice into document operations.
func (b *Binding) handleEditorChange(ch editor.Change) {
	b.mu.Lock()
	if b.applying || b.closed {
		b.mu.Unlock()
		return
	}
	b.applying = true
	b.mu.Unlock()

	// Positions on the document are 1-based visible indexes. Deleting at
	// the same position repeatedly walks the removed range.
	for i := 0; i < ch.Deleted; i++ {
		_ = b.doc.DeleteWith(OriginEditor, ch.Position+1)
	}
	for i, r := range []rune(ch.Inserted) {
		_, _ = b.doc.InsertWith(OriginEditor, ch.Position+i+1, string(r))
	}

	b.mu.Lock()
	b.applying = false
	b.mu.Unlock()
}

// handleDocEvent routes document events by origin: local edits ship out,
// everything else replays into the editor.
func (b *Binding) handleDocEvent(ev crdt.Event) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}

	switch ev.Origin {
	case OriginEditor:
		b.ship(ev)
		// Local edits shift every remote cursor's index too.
		b.markCursorsDirty()
	case undo.Origin:
		b.ship(ev)
		b.applyDocToEditor()
	default:
		b.applyDocToEditor()
	}
}

func (b *Binding) ship(ev crdt.Event) {
	if b.onOperation != nil && ev.Type != crdt.OpReset {
		b.onOperation(commons.FromEvent(ev))
	}
}

// applyDocToEditor reconciles the editor buffer with the document content by
// applying a minimal diff, then restores the selection from its anchors.
func (b *Binding) applyDocToEditor() {
	b.mu.Lock()
	if b.applying {
		b.mu.Unlock()
		return
	}
	b.applying = true
	sel := b.sel
	b.mu.Unlock()

	before := string(b.ed.Text)
	after := b.doc.Content()

	if before != after {
		for _, sp := range splices(before, after) {
			b.ed.Splice(sp.position, sp.deleted, sp.inserted)
		}
	}

	// Restore the selection from the pre-change anchors.
	head := crdt.AbsolutePosition(b.doc, sel.Head)
	anchor := crdt.AbsolutePosition(b.doc, sel.Anchor)
	if anchor != head {
		b.ed.SetCursor(anchor)
		b.ed.StartSelection()
	} else {
		b.ed.ClearSelection()
	}
	b.ed.SetCursor(head)

	// Every remote cursor index may have shifted.
	b.markCursorsDirty()

	b.mu.Lock()
	b.applying = false
	b.mu.Unlock()

	b.FlushCursors()
}

func (b *Binding) markCursorsDirty() {
	b.mu.Lock()
	for id := range b.cursors {
		b.changed[id] = struct{}{}
	}
	b.mu.Unlock()
}

// handleCursorMove refreshes the selection anchors and schedules a debounced
// cursor broadcast.
func (b *Binding) handleCursorMove(int) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	b.refreshSelection()

	if b.aw != nil {
		b.broadcast.trigger()
	}
}

func (b *Binding) refreshSelection() {
	head := b.ed.Cursor
	anchor := head
	if b.ed.SelectionAnchor >= 0 {
		anchor = b.ed.SelectionAnchor
	}

	sel := awareness.Cursor{
		Anchor: crdt.NewRelativePosition(b.doc, anchor, -1),
		Head:   crdt.NewRelativePosition(b.doc, head, -1),
	}

	b.mu.Lock()
	b.sel = sel
	b.mu.Unlock()
}

// broadcastCursor publishes the local selection through awareness. It runs on
// the debounce timer goroutine.
func (b *Binding) broadcastCursor() {
	b.mu.Lock()
	sel := b.sel
	closed := b.closed
	b.mu.Unlock()

	if closed || b.aw == nil {
		return
	}
	b.aw.SetLocalCursor(&sel)
}

// handleBlur drops the local cursor from awareness when focus is lost.
func (b *Binding) handleBlur() {
	if b.aw == nil {
		return
	}
	b.broadcast.cancel()
	b.aw.SetLocalCursor(nil)
}

// handleAwareness marks clients whose presence changed for the next flush.
func (b *Binding) handleAwareness(u awareness.Update) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	for _, ids := range [][]uuid.UUID{u.Added, u.Updated, u.Removed} {
		for _, id := range ids {
			if b.aw != nil && id == b.aw.ClientID {
				continue
			}
			b.changed[id] = struct{}{}
		}
	}
	b.mu.Unlock()
}

// FlushCursors rewrites the remote cursors that changed since the last call.
func (b *Binding) FlushCursors() {
	if b.aw == nil {
		return
	}

	b.mu.Lock()
	dirty := b.changed
	b.changed = make(map[uuid.UUID]struct{})
	b.mu.Unlock()

	if len(dirty) == 0 {
		return
	}

	states := b.aw.States()
	for id := range dirty {
		state, ok := states[id]
		if !ok || state.Cursor == nil {
			b.ed.RemoveRemoteCursor(id.String())
			b.mu.Lock()
			delete(b.cursors, id)
			b.mu.Unlock()
			continue
		}

		rc := editor.RemoteCursor{
			Index: crdt.AbsolutePosition(b.doc, state.Cursor.Head),
			User:  state.User,
			Color: editor.ColorAttr(state.Color),
		}
		b.ed.SetRemoteCursor(id.String(), rc)

		b.mu.Lock()
		b.cursors[id] = rc
		b.mu.Unlock()
	}
}

// RemoteCursors returns the rendered remote cursor state.
func (b *Binding) RemoteCursors() map[uuid.UUID]editor.RemoteCursor {
	b.mu.Lock()
	defer b.mu.Unlock()

	cursors := make(map[uuid.UUID]editor.RemoteCursor, len(b.cursors))
	for id, c := range b.cursors {
		cursors[id] = c
	}
	return cursors
}

// handleStackItemAdded snapshots the selection on a fresh undo item.
func (b *Binding) handleStackItemAdded(item *undo.Item) {
	b.mu.Lock()
	item.Meta[metaCursor] = b.sel
	b.mu.Unlock()
}

// handleStackItemPopped restores the selection captured when the popped item
// was pushed.
func (b *Binding) handleStackItemPopped(item *undo.Item) {
	sel, ok := item.Meta[metaCursor].(awareness.Cursor)
	if !ok {
		return
	}
	b.ed.SetCursor(crdt.AbsolutePosition(b.doc, sel.Head))
}

// Unbind removes every listener the binding registered. It is idempotent;
// after it returns, the document, editor, awareness and undo manager no
// longer reference the binding.
func (b *Binding) Unbind() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.broadcast.stop()
	b.doc.Unobserve(b.docObserver)

	b.ed.OnChange = nil
	b.ed.OnCursor = nil
	b.ed.OnBlur = nil

	if b.aw != nil {
		b.aw.RemoveListener(b.awListener)
	}
	if b.um != nil {
		b.um.RemoveListener(b.undoAdded)
		b.um.RemoveListener(b.undoPopped)
	}
}

// splice is one buffer edit derived from a diff.
type splice struct {
	position int
	deleted  int
	inserted string
}

// splices computes the minimal edits turning before into after, with rune
// positions relative to the evolving buffer.
func splices(before, after string) []splice {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMainRunes([]rune(before), []rune(after), false)

	var out []splice
	position := 0
	for _, d := range diffs {
		length := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			position += length
		case diffmatchpatch.DiffDelete:
			out = append(out, splice{position: position, deleted: length})
		case diffmatchpatch.DiffInsert:
			out = append(out, splice{position: position, inserted: d.Text})
			position += length
		}
	}
	return out
}
