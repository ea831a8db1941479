// Package awareness carries ephemeral per-client state (cursor, name, color)
// that is shared with other clients but never becomes part of the document.
package awareness

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/burntcarrot/coedit/crdt"
)

// Cursor is a selection expressed as two anchors that survive concurrent
// edits. A collapsed cursor has Anchor == Head.
type Cursor struct {
	Anchor crdt.RelativePosition `json:"anchor"`
	Head   crdt.RelativePosition `json:"head"`
}

// State is the ephemeral state one client shares with the others.
type State struct {
	User   string  `json:"user"`
	Color  string  `json:"color"`
	Cursor *Cursor `json:"cursor,omitempty"`
}

// Entry is a client's state with its clock, as sent over the wire. A nil
// State marks a removed client; the clock is kept so stale updates for the
// same client keep losing.
type Entry struct {
	ID    uuid.UUID `json:"id"`
	Clock int       `json:"clock"`
	State *State    `json:"state"`
}

// Update lists the clients whose state changed in one notification.
type Update struct {
	Added   []uuid.UUID
	Updated []uuid.UUID
	Removed []uuid.UUID
}

type entry struct {
	clock    int
	state    *State
	lastSeen time.Time
}

// Awareness tracks every client's ephemeral state, keyed by client ID. Each
// entry is clock-versioned; merges ignore anything stale.
type Awareness struct {
	ClientID uuid.UUID

	mu           sync.Mutex
	entries      map[uuid.UUID]*entry
	listeners    map[int]func(Update)
	nextListener int
}

// New returns an Awareness instance for the given local client.
func New(clientID uuid.UUID) *Awareness {
	return &Awareness{
		ClientID:  clientID,
		entries:   make(map[uuid.UUID]*entry),
		listeners: make(map[int]func(Update)),
	}
}

// OnUpdate registers a listener for state changes. The returned handle
// unregisters it via RemoveListener.
func (a *Awareness) OnUpdate(fn func(Update)) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextListener++
	a.listeners[a.nextListener] = fn
	return a.nextListener
}

// RemoveListener removes a previously registered listener.
func (a *Awareness) RemoveListener(handle int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.listeners, handle)
}

// SetLocalState replaces the local client's state and bumps its clock. A nil
// state announces the client as gone.
func (a *Awareness) SetLocalState(s *State) {
	a.mu.Lock()

	ent, ok := a.entries[a.ClientID]
	if !ok {
		ent = &entry{}
		a.entries[a.ClientID] = ent
	}
	// A removed entry lingers with a nil state for clock monotonicity, so
	// "new" means no live state, not just map absence.
	wasLive := ok && ent.state != nil
	ent.clock++
	ent.state = s
	ent.lastSeen = time.Now()

	update := Update{}
	switch {
	case s == nil:
		update.Removed = []uuid.UUID{a.ClientID}
	case !wasLive:
		update.Added = []uuid.UUID{a.ClientID}
	default:
		update.Updated = []uuid.UUID{a.ClientID}
	}

	listeners := a.snapshotListeners()
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(update)
	}
}

// SetLocalCursor updates only the cursor of the local state, keeping user and
// color. A nil cursor clears it (the client lost focus).
func (a *Awareness) SetLocalCursor(c *Cursor) {
	state := a.LocalState()
	if state == nil {
		if c == nil {
			return
		}
		state = &State{}
	}

	next := *state
	next.Cursor = c
	a.SetLocalState(&next)
}

// LocalState returns a copy of the local client's state, or nil.
func (a *Awareness) LocalState() *State {
	a.mu.Lock()
	defer a.mu.Unlock()

	ent, ok := a.entries[a.ClientID]
	if !ok || ent.state == nil {
		return nil
	}
	state := *ent.state
	return &state
}

// ApplyUpdate merges a remote entry. Updates with stale clocks are dropped;
// the return value reports whether the entry was applied.
func (a *Awareness) ApplyUpdate(ent Entry) bool {
	a.mu.Lock()

	current, ok := a.entries[ent.ID]
	if ok && ent.Clock <= current.clock {
		a.mu.Unlock()
		return false
	}

	if !ok {
		current = &entry{}
		a.entries[ent.ID] = current
	}
	// Same as SetLocalState: a client re-setting state after a removal is a
	// rejoin, reported as Added.
	wasLive := ok && current.state != nil
	current.clock = ent.Clock
	current.state = ent.State
	current.lastSeen = time.Now()

	update := Update{}
	switch {
	case ent.State == nil:
		update.Removed = []uuid.UUID{ent.ID}
	case !wasLive:
		update.Added = []uuid.UUID{ent.ID}
	default:
		update.Updated = []uuid.UUID{ent.ID}
	}

	listeners := a.snapshotListeners()
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(update)
	}
	return true
}

// States returns a copy of all live client states.
func (a *Awareness) States() map[uuid.UUID]State {
	a.mu.Lock()
	defer a.mu.Unlock()

	states := make(map[uuid.UUID]State)
	for id, ent := range a.entries {
		if ent.state != nil {
			states[id] = *ent.state
		}
	}
	return states
}

// LocalEntry returns the local client's wire entry.
func (a *Awareness) LocalEntry() Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	ent, ok := a.entries[a.ClientID]
	if !ok {
		return Entry{ID: a.ClientID}
	}
	return Entry{ID: a.ClientID, Clock: ent.clock, State: ent.state}
}

// Snapshot returns every known entry, for syncing a newly joined client.
func (a *Awareness) Snapshot() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := make([]Entry, 0, len(a.entries))
	for id, ent := range a.entries {
		entries = append(entries, Entry{ID: id, Clock: ent.clock, State: ent.state})
	}
	return entries
}

// Prune drops remote entries that have been idle longer than maxIdle and
// notifies listeners. The local entry is never pruned.
func (a *Awareness) Prune(maxIdle time.Duration) {
	a.mu.Lock()

	var removed []uuid.UUID
	for id, ent := range a.entries {
		if id == a.ClientID || ent.state == nil {
			continue
		}
		if time.Since(ent.lastSeen) > maxIdle {
			ent.state = nil
			removed = append(removed, id)
		}
	}

	if len(removed) == 0 {
		a.mu.Unlock()
		return
	}

	update := Update{Removed: removed}
	listeners := a.snapshotListeners()
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(update)
	}
}

func (a *Awareness) snapshotListeners() []func(Update) {
	listeners := make([]func(Update), 0, len(a.listeners))
	for _, fn := range a.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}
