package crdt

// RelativePosition anchors a cursor to a character identifier instead of an
// absolute offset. Character IDs are stable across concurrent edits (deletes
// only tombstone), so an anchor stays meaningful after remote changes move
// the text around it.
type RelativePosition struct {
	// CharID is the identifier of the anchor character, or one of the
	// "start"/"end" sentinels.
	CharID string `json:"charID"`

	// Assoc determines which side of the cursor the anchor sits on:
	// negative anchors to the character left of the cursor, anything else
	// to the character right of it.
	Assoc int `json:"assoc"`
}

// NewRelativePosition anchors the given cursor index. index counts visible
// characters before the cursor, so it ranges from 0 to VisibleLength.
func NewRelativePosition(doc *Document, index int, assoc int) RelativePosition {
	if assoc < 0 {
		char := IthVisible(*doc, index)
		if char.ID == "-1" {
			char = doc.Find("start")
		}
		return RelativePosition{CharID: char.ID, Assoc: assoc}
	}

	char := IthVisible(*doc, index+1)
	if char.ID == "-1" {
		char = doc.Find("end")
	}
	return RelativePosition{CharID: char.ID, Assoc: assoc}
}

// AbsolutePosition resolves an anchor back to a cursor index in the current
// document. A tombstoned anchor resolves to where the character used to be;
// an unknown anchor clamps to the end of the document.
func AbsolutePosition(doc *Document, rel RelativePosition) int {
	position := doc.Position(rel.CharID)
	if position == -1 {
		return doc.VisibleLength()
	}

	// Count visible characters up to the anchor. A left-side anchor is
	// included in the count, a right-side anchor is not.
	limit := position
	if rel.Assoc >= 0 {
		limit = position - 1
	}

	index := 0
	for _, char := range doc.Characters[:limit] {
		if char.Visible {
			index++
		}
	}
	return index
}
