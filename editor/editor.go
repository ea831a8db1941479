package editor

import (
	"fmt"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"
)

// Change describes a splice of the editor's buffer: Deleted runes removed at
// Position, then Inserted written in their place.
type Change struct {
	Position int
	Deleted  int
	Inserted string
}

type Editor struct {
	Text   []rune
	Cursor int
	Width  int
	Height int

	// ColOff and RowOff are the scroll window offsets.
	ColOff int
	RowOff int

	ScrollEnabled bool

	ShowMsg   bool
	StatusMsg string

	// SelectionAnchor is the fixed end of the selection, or -1 when
	// nothing is selected. The moving end is the Cursor.
	SelectionAnchor int

	// OnChange is invoked after every buffer splice, local or not.
	OnChange func(Change)

	// OnCursor is invoked after the cursor moves.
	OnCursor func(int)

	// OnBlur is invoked when the editor loses focus.
	OnBlur func()

	cursors map[string]RemoteCursor
}

type EditorConfig struct {
	ScrollEnabled bool
}

func NewEditor(conf EditorConfig) *Editor {
	return &Editor{
		ScrollEnabled:   conf.ScrollEnabled,
		SelectionAnchor: -1,
		cursors:         make(map[string]RemoteCursor),
	}
}

func (e *Editor) GetText() []rune {
	return e.Text
}

// SetText replaces the buffer wholesale without reporting a change. Splice is
// the reporting path; SetText is for load and full-sync resets.
func (e *Editor) SetText(text string) {
	e.Text = []rune(text)
	if e.Cursor > len(e.Text) {
		e.Cursor = len(e.Text)
	}
}

func (e *Editor) GetX() int {
	x, _ := e.calcXY(e.Cursor)
	return x
}

func (e *Editor) SetX(x int) {
	e.Cursor = x
	e.notifyCursor()
}

func (e *Editor) GetY() int {
	_, y := e.calcXY(e.Cursor)
	return y
}

func (e *Editor) GetWidth() int {
	return e.Width
}

func (e *Editor) GetHeight() int {
	return e.Height
}

func (e *Editor) SetSize(w, h int) {
	e.Width = w
	e.Height = h
}

// SetCursor moves the cursor to an absolute index, clamped to the buffer.
func (e *Editor) SetCursor(index int) {
	if index < 0 {
		index = 0
	}
	if index > len(e.Text) {
		index = len(e.Text)
	}
	e.Cursor = index
	e.notifyCursor()
}

// StartSelection fixes the selection anchor at the current cursor.
func (e *Editor) StartSelection() {
	e.SelectionAnchor = e.Cursor
}

// ClearSelection collapses the selection.
func (e *Editor) ClearSelection() {
	e.SelectionAnchor = -1
}

// Selection returns the selected range in buffer order. A collapsed
// selection returns the cursor twice.
func (e *Editor) Selection() (int, int) {
	if e.SelectionAnchor < 0 {
		return e.Cursor, e.Cursor
	}
	if e.SelectionAnchor <= e.Cursor {
		return e.SelectionAnchor, e.Cursor
	}
	return e.Cursor, e.SelectionAnchor
}

// Blur reports a focus loss to the binding.
func (e *Editor) Blur() {
	if e.OnBlur != nil {
		e.OnBlur()
	}
}

// AddRune adds a rune to the editor's state and updates position.
func (e *Editor) AddRune(r rune) {
	position := e.Cursor

	if e.Cursor == 0 {
		e.Text = append([]rune{r}, e.Text...)
	} else if e.Cursor < len(e.Text) {
		e.Text = append(e.Text[:e.Cursor], e.Text[e.Cursor-1:]...)
		e.Text[e.Cursor] = r
	} else {
		e.Text = append(e.Text[:e.Cursor], r)
	}
	e.Cursor++

	e.notifyChange(Change{Position: position, Inserted: string(r)})
	e.notifyCursor()
}

// DeleteRuneBackward removes the rune before the cursor.
func (e *Editor) DeleteRuneBackward() {
	if e.Cursor == 0 {
		return
	}

	position := e.Cursor - 1
	e.Text = append(e.Text[:position], e.Text[e.Cursor:]...)
	e.Cursor--

	e.notifyChange(Change{Position: position, Deleted: 1})
	e.notifyCursor()
}

// Splice replaces deleted runes at position with the inserted text. The
// binding uses it to apply remote changes; the cursor is left where it is
// (the binding restores it from its anchors afterwards).
func (e *Editor) Splice(position, deleted int, inserted string) {
	if position < 0 {
		position = 0
	}
	if position > len(e.Text) {
		position = len(e.Text)
	}
	if position+deleted > len(e.Text) {
		deleted = len(e.Text) - position
	}

	tail := make([]rune, len(e.Text[position+deleted:]))
	copy(tail, e.Text[position+deleted:])

	e.Text = append(e.Text[:position], []rune(inserted)...)
	e.Text = append(e.Text, tail...)

	if e.Cursor > len(e.Text) {
		e.Cursor = len(e.Text)
	}

	e.notifyChange(Change{Position: position, Deleted: deleted, Inserted: inserted})
}

func (e *Editor) notifyChange(ch Change) {
	if e.OnChange != nil {
		e.OnChange(ch)
	}
}

func (e *Editor) notifyCursor() {
	if e.OnCursor != nil {
		e.OnCursor(e.Cursor)
	}
}

// Draw updates the UI by setting cells with the editor's content.
func (e *Editor) Draw() {
	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)

	cx, cy := e.calcXY(e.Cursor)
	termbox.SetCursor(cx-e.ColOff-1, cy-e.RowOff-1)

	x, y := 0, 0
	for i := 0; i < len(e.Text); i++ {
		if e.Text[i] == rune('\n') {
			x = 0
			y++
			continue
		}

		col := x - e.ColOff
		row := y - e.RowOff
		if col >= 0 && col < e.Width && row >= 0 && row < e.Height-1 {
			termbox.SetCell(col, row, e.Text[i], termbox.ColorDefault, termbox.ColorDefault)
		}

		// Update x by rune's width.
		x = x + runewidth.RuneWidth(e.Text[i])
	}

	e.drawRemoteCursors()

	if e.ShowMsg {
		e.SetStatusBar()
	} else {
		e.showPositions()
	}

	// Flush back buffer!
	termbox.Flush()
}

func (e *Editor) SetStatusBar() {
	e.ShowMsg = true

	for i, r := range []rune(e.StatusMsg) {
		termbox.SetCell(i, e.Height-1, r, termbox.ColorDefault, termbox.ColorDefault)
	}

	_ = time.AfterFunc(5*time.Second, func() {
		e.ShowMsg = false
	})
}

// showPositions shows the positions with other details.
func (e *Editor) showPositions() {
	x, y := e.calcXY(e.Cursor)

	// Construct message for debugging.
	str := fmt.Sprintf("x=%d, y=%d, cursor=%d, len(text)=%d", x, y, e.Cursor, len(e.Text))

	for i, r := range []rune(str) {
		termbox.SetCell(i, e.Height-1, r, termbox.ColorDefault, termbox.ColorDefault)
	}
}

// MoveCursor updates the Cursor position, scrolling the window when enabled.
func (e *Editor) MoveCursor(x, y int) {
	if len(e.Text) == 0 {
		return
	}
	// Move cursor horizontally.
	newCursor := e.Cursor + x

	// Move cursor vertically.
	if y > 0 {
		newCursor = e.calcCursorDown()
	}

	if y < 0 {
		newCursor = e.calcCursorUp()
	}

	if e.ScrollEnabled {
		cx, cy := e.calcXY(newCursor)

		// Move the window to adjust to the cursor.
		rowStart := e.RowOff + 1
		rowEnd := e.RowOff + e.Height - 1
		if cy <= rowStart {
			e.RowOff -= rowStart - cy
		}
		if cy > rowEnd {
			e.RowOff += cy - rowEnd
		}

		colStart := e.ColOff + 1
		colEnd := e.ColOff + e.Width
		if cx <= colStart {
			e.ColOff -= colStart - cx
		}
		if cx > colEnd {
			e.ColOff += cx - colEnd
		}
	}

	// Reset to bounds.
	if newCursor > len(e.Text) {
		newCursor = len(e.Text)
	}

	if newCursor < 0 {
		newCursor = 0
	}

	e.Cursor = newCursor
	e.notifyCursor()
}

// For the functions calcCursorUp and calcCursorDown, newline characters are found by iterating
// backward and forward from the current Cursor position. These characters are taken as the "start"
// and "end" of the current line. The "offset" from the start of the current line to the Cursor
// is calculated and used to determine the final Cursor position on the target line, based on whether the
// offset is greater than the length of the target line. "pos" is used as a placeholder variable for
// the Cursor.

// calcCursorUp calculates the intended Cursor position after moving the Cursor up one line.
func (e *Editor) calcCursorUp() int {
	pos := e.Cursor
	offset := 0

	// If the initial cursor is out of the bounds of the Text or already on a newline, move it.
	if pos == len(e.Text) || e.Text[pos] == '\n' {
		offset++
		pos--
	}

	if pos < 0 {
		pos = 0
	}

	start, end := pos, pos

	// Find the start of the current line.
	for start > 0 && e.Text[start] != '\n' {
		start--
	}

	// If the Cursor is already on the first line, move to the beginning of the Text.
	if start == 0 {
		return 0
	}

	// Find the end of the current line.
	for end < len(e.Text) && e.Text[end] != '\n' {
		end++
	}

	// Find the start of the previous line.
	prevStart := start - 1
	for prevStart >= 0 && e.Text[prevStart] != '\n' {
		prevStart--
	}

	// Calculate the distance from the start of the current line to the Cursor.
	offset += pos - start
	if offset <= start-prevStart {
		return prevStart + offset
	} else {
		return start
	}
}

func (e *Editor) calcCursorDown() int {
	pos := e.Cursor
	offset := 0

	// If the initial Cursor is out of the bounds of the Text or already on a newline, move it.
	if pos == len(e.Text) || e.Text[pos] == '\n' {
		offset++
		pos--
	}

	if pos < 0 {
		pos = 0
	}

	start, end := pos, pos

	// Find the start of the current line.
	for start > 0 && e.Text[start] != '\n' {
		start--
	}

	// This handles the case where the Cursor is on the first line. This is necessary because the start
	// of the first line is not a newline character, unlike the other lines in the Text.
	if start == 0 && e.Text[start] != '\n' {
		offset++
	}

	// Find the end of the current line.
	for end < len(e.Text) && e.Text[end] != '\n' {
		end++
	}

	// This handles the case where the Cursor is on a newline. end has to be incremented, otherwise
	// start == end.
	if e.Text[pos] == '\n' && e.Cursor != 0 {
		end++
	}

	// If the Cursor is already on the last line, move to the end of the Text.
	if end == len(e.Text) {
		return len(e.Text)
	}

	// Find the end of the next line.
	nextEnd := end + 1
	for nextEnd < len(e.Text) && e.Text[nextEnd] != '\n' {
		nextEnd++
	}

	// Calculate the distance from the start of the current line to the Cursor.
	offset += pos - start
	if offset < nextEnd-end {
		return end + offset
	} else {
		return nextEnd
	}
}

// calcXY calculates Cursor position from the index obtained from the content.
func (e *Editor) calcXY(index int) (int, int) {
	x := 1
	y := 1

	if index < 0 {
		return x, y
	}

	if index > len(e.Text) {
		index = len(e.Text)
	}

	for i := 0; i < index; i++ {
		if e.Text[i] == rune('\n') {
			x = 1
			y++
		} else {
			x = x + runewidth.RuneWidth(e.Text[i])
		}
	}
	return x, y
}
