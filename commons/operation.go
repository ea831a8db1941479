package commons

import (
	"fmt"

	"github.com/burntcarrot/coedit/crdt"
)

// Operation represents a CRDT operation.
type Operation struct {
	// Type represents the operation type, for example, insert, delete.
	Type string `json:"type"`

	// Position represents the position at which the operation has been made.
	Position int `json:"position"`

	// Value represents the content of the operation. Mostly a character.
	Value string `json:"value"`
}

// FromEvent converts a document event into its wire operation.
func FromEvent(ev crdt.Event) Operation {
	return Operation{Type: ev.Type, Position: ev.Position, Value: ev.Value}
}

// Apply performs the operation on a document, tagged with the given origin.
func (op Operation) Apply(doc *crdt.Document, origin crdt.Origin) error {
	switch op.Type {
	case crdt.OpInsert:
		if _, err := doc.InsertWith(origin, op.Position, op.Value); err != nil {
			return fmt.Errorf("apply insert at %d: %w", op.Position, err)
		}
	case crdt.OpDelete:
		_ = doc.DeleteWith(origin, op.Position)
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
	return nil
}
