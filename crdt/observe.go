package crdt

// Origin tags a document mutation with its source. Observers use it to skip
// events they caused themselves.
type Origin string

// LocalOrigin is the default origin for untagged edits.
const LocalOrigin Origin = "local"

// Operation types carried by events.
const (
	OpInsert = "insert"
	OpDelete = "delete"
	OpReset  = "reset"
)

// Event describes a single document mutation. Position is the 1-based visible
// character position the operation targeted; Value is the inserted or deleted
// character.
type Event struct {
	Type     string
	Position int
	Value    string
	Origin   Origin
}

// Observe registers a callback invoked after every document mutation. The
// returned handle unregisters it via Unobserve.
func (doc *Document) Observe(fn func(Event)) int {
	if doc.observers == nil {
		doc.observers = make(map[int]func(Event))
	}

	doc.nextObserver++
	doc.observers[doc.nextObserver] = fn
	return doc.nextObserver
}

// Unobserve removes a previously registered observer.
func (doc *Document) Unobserve(handle int) {
	delete(doc.observers, handle)
}

func (doc *Document) notify(ev Event) {
	for _, fn := range doc.observers {
		fn(ev)
	}
}
