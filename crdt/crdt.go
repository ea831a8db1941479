package crdt

// CRDT is the minimal surface a collaborative text type exposes to callers
// that only care about positional edits.
type CRDT interface {
	Insert(position int, value string) (string, error)
	Delete(position int) string
}

var _ CRDT = (*Document)(nil)
