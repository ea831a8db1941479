package editor

import (
	"github.com/nsf/termbox-go"
)

// RemoteCursor is the rendered state of another participant's cursor.
type RemoteCursor struct {
	Index int
	User  string
	Color termbox.Attribute
}

// SetRemoteCursor adds or moves a remote participant's cursor.
func (e *Editor) SetRemoteCursor(id string, c RemoteCursor) {
	if c.Index < 0 {
		c.Index = 0
	}
	if c.Index > len(e.Text) {
		c.Index = len(e.Text)
	}
	e.cursors[id] = c
}

// RemoveRemoteCursor drops a remote participant's cursor.
func (e *Editor) RemoveRemoteCursor(id string) {
	delete(e.cursors, id)
}

// RemoteCursors returns a copy of the rendered remote cursors.
func (e *Editor) RemoteCursors() map[string]RemoteCursor {
	cursors := make(map[string]RemoteCursor, len(e.cursors))
	for id, c := range e.cursors {
		cursors[id] = c
	}
	return cursors
}

// ColorAttr maps a color name from the awareness state to a termbox color.
func ColorAttr(name string) termbox.Attribute {
	switch name {
	case "red":
		return termbox.ColorRed
	case "green":
		return termbox.ColorGreen
	case "yellow":
		return termbox.ColorYellow
	case "blue":
		return termbox.ColorBlue
	case "magenta":
		return termbox.ColorMagenta
	case "cyan":
		return termbox.ColorCyan
	default:
		return termbox.ColorWhite
	}
}

// drawRemoteCursors paints each remote cursor as a colored cell over the
// character it sits on.
func (e *Editor) drawRemoteCursors() {
	for _, c := range e.cursors {
		cx, cy := e.calcXY(c.Index)

		col := cx - e.ColOff - 1
		row := cy - e.RowOff - 1
		if col < 0 || col >= e.Width || row < 0 || row >= e.Height-1 {
			continue
		}

		r := ' '
		if c.Index < len(e.Text) && e.Text[c.Index] != '\n' {
			r = e.Text[c.Index]
		}

		termbox.SetCell(col, row, r, termbox.ColorBlack, c.Color)
	}
}
