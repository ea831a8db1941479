package awareness

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestSetLocalState(t *testing.T) {
	a := New(uuid.New())

	var updates []Update
	a.OnUpdate(func(u Update) {
		updates = append(updates, u)
	})

	a.SetLocalState(&State{User: "ada", Color: "green"})
	a.SetLocalState(&State{User: "ada", Color: "red"})

	if got := a.LocalState(); got == nil || got.Color != "red" {
		t.Errorf("local state = %+v, expected color red\n", got)
	}

	want := []Update{
		{Added: []uuid.UUID{a.ClientID}},
		{Updated: []uuid.UUID{a.ClientID}},
	}

	if !cmp.Equal(updates, want) {
		t.Errorf("updates != want; diff = %v\n", cmp.Diff(updates, want))
	}
}

func TestApplyUpdate_StaleClock(t *testing.T) {
	a := New(uuid.New())
	remote := uuid.New()

	if !a.ApplyUpdate(Entry{ID: remote, Clock: 2, State: &State{User: "bob"}}) {
		t.Errorf("expected fresh update to apply\n")
	}

	// A stale clock must lose, even with different content.
	if a.ApplyUpdate(Entry{ID: remote, Clock: 1, State: &State{User: "mallory"}}) {
		t.Errorf("expected stale update to be dropped\n")
	}

	states := a.States()
	if got := states[remote].User; got != "bob" {
		t.Errorf("user = %v, expected = bob\n", got)
	}
}

func TestApplyUpdate_Removal(t *testing.T) {
	a := New(uuid.New())
	remote := uuid.New()

	a.ApplyUpdate(Entry{ID: remote, Clock: 1, State: &State{User: "bob"}})

	var removed []uuid.UUID
	a.OnUpdate(func(u Update) {
		removed = append(removed, u.Removed...)
	})

	a.ApplyUpdate(Entry{ID: remote, Clock: 2, State: nil})

	if _, ok := a.States()[remote]; ok {
		t.Errorf("expected %v to be gone\n", remote)
	}

	if len(removed) != 1 || removed[0] != remote {
		t.Errorf("removed = %v, expected = [%v]\n", removed, remote)
	}
}

// TestApplyUpdate_Rejoin verifies a client that was removed and comes back is
// reported as Added again, not Updated; its entry lingers with a nil state for
// clock monotonicity.
func TestApplyUpdate_Rejoin(t *testing.T) {
	a := New(uuid.New())
	remote := uuid.New()

	a.ApplyUpdate(Entry{ID: remote, Clock: 1, State: &State{User: "bob"}})
	a.ApplyUpdate(Entry{ID: remote, Clock: 2, State: nil})

	var updates []Update
	a.OnUpdate(func(u Update) {
		updates = append(updates, u)
	})

	a.ApplyUpdate(Entry{ID: remote, Clock: 3, State: &State{User: "bob"}})

	want := []Update{
		{Added: []uuid.UUID{remote}},
	}
	if !cmp.Equal(updates, want) {
		t.Errorf("updates != want; diff = %v\n", cmp.Diff(updates, want))
	}
}

// TestSetLocalState_Rejoin covers the same transition on the local entry.
func TestSetLocalState_Rejoin(t *testing.T) {
	a := New(uuid.New())

	a.SetLocalState(&State{User: "ada"})
	a.SetLocalState(nil)

	var updates []Update
	a.OnUpdate(func(u Update) {
		updates = append(updates, u)
	})

	a.SetLocalState(&State{User: "ada"})

	want := []Update{
		{Added: []uuid.UUID{a.ClientID}},
	}
	if !cmp.Equal(updates, want) {
		t.Errorf("updates != want; diff = %v\n", cmp.Diff(updates, want))
	}
}

func TestSetLocalCursor(t *testing.T) {
	a := New(uuid.New())
	a.SetLocalState(&State{User: "ada", Color: "green"})

	before := a.LocalEntry().Clock

	a.SetLocalCursor(&Cursor{})

	state := a.LocalState()
	if state == nil || state.Cursor == nil || state.User != "ada" {
		t.Errorf("state = %+v, expected cursor set and user kept\n", state)
	}

	if a.LocalEntry().Clock <= before {
		t.Errorf("expected cursor update to bump the clock\n")
	}
}

func TestPrune(t *testing.T) {
	a := New(uuid.New())
	remote := uuid.New()

	a.SetLocalState(&State{User: "ada"})
	a.ApplyUpdate(Entry{ID: remote, Clock: 1, State: &State{User: "bob"}})

	time.Sleep(5 * time.Millisecond)
	a.Prune(time.Millisecond)

	states := a.States()
	if _, ok := states[remote]; ok {
		t.Errorf("expected idle remote entry to be pruned\n")
	}

	// The local entry survives pruning.
	if _, ok := states[a.ClientID]; !ok {
		t.Errorf("expected local entry to survive\n")
	}
}

func TestRemoveListener(t *testing.T) {
	a := New(uuid.New())

	fired := 0
	handle := a.OnUpdate(func(Update) { fired++ })
	a.RemoveListener(handle)

	a.SetLocalState(&State{User: "ada"})

	if fired != 0 {
		t.Errorf("listener fired after removal\n")
	}
}
