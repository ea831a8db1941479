package main

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nsf/termbox-go"
	"github.com/sirupsen/logrus"

	"github.com/burntcarrot/coedit/commons"
	"github.com/burntcarrot/coedit/crdt"
)

// The connection is written to from the main loop, the cursor debouncer and
// the config watcher, so every write goes through send.
var writeMu sync.Mutex

// send writes a message to the WebSocket connection.
func send(conn *websocket.Conn, msg commons.Message) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	return conn.WriteJSON(&msg)
}

// handleTermboxEvent handles key input by routing it through the editor; the
// binding keeps the document in sync and hands finished operations back for
// sending.
func handleTermboxEvent(ev termbox.Event, conn *websocket.Conn) error {
	switch ev.Type {
	case termbox.EventResize:
		e.SetSize(termbox.Size())

	case termbox.EventKey:
		switch ev.Key {

		// The default keys for exiting a session are Esc and Ctrl+C.
		case termbox.KeyEsc, termbox.KeyCtrlC:
			// Return an error with the prefix "coedit", so that it gets treated as an exit "event".
			return errors.New("coedit: exiting")

		// The default key for saving the editor's contents is Ctrl+S.
		case termbox.KeyCtrlS:
			// If no file name is specified, set filename to "coedit-content.txt"
			if fileName == "" {
				fileName = "coedit-content.txt"
			}

			// Save the CRDT to a file.
			err := crdt.Save(fileName, &doc)
			if err != nil {
				e.StatusMsg = "Failed to save to " + fileName
				logger.Errorf("failed to save to %s", fileName)
				e.SetStatusBar()
				return err
			}

			// Set the status bar.
			e.StatusMsg = "Saved document to " + fileName
			e.SetStatusBar()

		// The default key for loading content from a file is Ctrl+L.
		case termbox.KeyCtrlL:
			if fileName != "" {
				logger.Log(logrus.InfoLevel, "LOADING DOCUMENT")
				newDoc, err := crdt.Load(fileName)
				e.StatusMsg = "Loading " + fileName
				e.SetStatusBar()
				if err != nil {
					e.StatusMsg = "Failed to load " + fileName
					logger.Errorf("failed to load file %s", fileName)
					e.SetStatusBar()
					return err
				}

				// The binding replaces the document and the editor buffer.
				b.ResetDocument(newDoc)

				logger.Log(logrus.InfoLevel, "SENDING DOCUMENT")
				docMsg := commons.Message{Type: commons.DocSyncMessage, Document: doc}
				if err := send(conn, docMsg); err != nil {
					e.StatusMsg = "lost connection!"
					e.SetStatusBar()
				}
			} else {
				e.StatusMsg = "No file to load!"
				e.SetStatusBar()
			}

		// The default keys for undoing and redoing local edits are Ctrl+Z and Ctrl+R.
		case termbox.KeyCtrlZ:
			if !b.Undo() {
				e.StatusMsg = "Nothing to undo"
				e.SetStatusBar()
			}
		case termbox.KeyCtrlR:
			if !b.Redo() {
				e.StatusMsg = "Nothing to redo"
				e.SetStatusBar()
			}

		// The default keys for moving left inside the text area are the left arrow key, and Ctrl+B (move backward).
		case termbox.KeyArrowLeft, termbox.KeyCtrlB:
			e.MoveCursor(-1, 0)

		// The default keys for moving right inside the text area are the right arrow key, and Ctrl+F (move forward).
		case termbox.KeyArrowRight, termbox.KeyCtrlF:
			e.MoveCursor(1, 0)

		// The default keys for moving up inside the text area are the up arrow key, and Ctrl+P (move to previous line).
		case termbox.KeyArrowUp, termbox.KeyCtrlP:
			e.MoveCursor(0, -1)

		// The default keys for moving down inside the text area are the down arrow key, and Ctrl+N (move to next line).
		case termbox.KeyArrowDown, termbox.KeyCtrlN:
			e.MoveCursor(0, 1)

		// Home key, moves cursor to initial position (X=0).
		case termbox.KeyHome:
			e.SetX(0)

		// End key, moves cursor to final position (X= length of text).
		case termbox.KeyEnd:
			e.SetX(len(e.Text))

		// Ctrl+Space toggles the selection anchor at the cursor.
		case termbox.KeyCtrlSpace:
			if e.SelectionAnchor >= 0 {
				e.ClearSelection()
			} else {
				e.StartSelection()
			}

		// The default keys for deleting a character are Backspace and Delete.
		case termbox.KeyBackspace, termbox.KeyBackspace2:
			e.DeleteRuneBackward()
		case termbox.KeyDelete:
			e.DeleteRuneBackward()

		// The Tab key inserts 4 spaces to simulate a "tab".
		case termbox.KeyTab:
			for i := 0; i < 4; i++ {
				e.AddRune(' ')
			}

		// The Enter key inserts a newline character to the editor's content.
		case termbox.KeyEnter:
			e.AddRune('\n')

		// The Space key inserts a space character to the editor's content.
		case termbox.KeySpace:
			e.AddRune(' ')

		// Every other key is eligible to be a candidate for insertion.
		default:
			if ev.Ch != 0 {
				e.AddRune(ev.Ch)
			}
		}
	}

	e.Draw()
	return nil
}

// getTermboxChan returns a channel of termbox Events repeatedly waiting on user input.
func getTermboxChan() chan termbox.Event {
	termboxChan := make(chan termbox.Event)

	go func() {
		for {
			termboxChan <- termbox.PollEvent()
		}
	}()

	return termboxChan
}

// handleMsg updates the local session with the contents of the message.
func handleMsg(msg commons.Message, conn *websocket.Conn) {
	switch msg.Type {
	case commons.DocSyncMessage:
		logger.Infof("DOCSYNC RECEIVED, updating local doc %+v\n", msg.Document)

		b.ResetDocument(msg.Document)

	case commons.DocReqMessage:
		logger.Infof("DOCREQ RECEIVED, sending local document to %v\n", msg.ID)

		docMsg := commons.Message{Type: commons.DocSyncMessage, Document: doc, ID: msg.ID}
		if err := send(conn, docMsg); err != nil {
			logger.Errorf("failed to send document: %v\n", err)
		}

	case commons.SiteIDMessage:
		siteID, err := strconv.Atoi(msg.Text)
		if err != nil {
			logger.Errorf("failed to set siteID, err: %v\n", err)
			break
		}

		doc.SetSite(siteID)
		logger.Infof("SITE ID %v, INTENDED SITE ID: %v", doc.Site(), siteID)

	case commons.JoinMessage:
		e.StatusMsg = fmt.Sprintf("%s has joined the session!", msg.Username)
		e.SetStatusBar()

	case commons.UsersMessage:
		e.StatusMsg = fmt.Sprintf("Active users: %s", msg.Text)
		e.SetStatusBar()

	case commons.AwarenessMessage:
		for _, ent := range msg.Awareness {
			aw.ApplyUpdate(ent)
		}
		b.FlushCursors()

	default:
		if msg.Operation.Type != "" {
			if err := b.ApplyRemoteOperation(msg.Operation); err != nil {
				logger.Errorf("failed to apply remote operation, err: %v\n", err)
			}
			logger.Infof("REMOTE %s: %q at position %v\n", msg.Operation.Type, msg.Operation.Value, msg.Operation.Position)
		}
	}

	// printDoc is used for debugging purposes. Don't comment this out.
	// This can be toggled via the `-debug` flag.
	// The default behavior for printDoc is to NOT log anything.
	// This is to ensure that the debug logs don't take up much space on the user's filesystem, and can be toggled on demand.
	printDoc(doc)

	e.Draw()
}

// getMsgChan returns a message channel that repeatedly reads from a websocket connection.
func getMsgChan(conn *websocket.Conn) chan commons.Message {
	messageChan := make(chan commons.Message)
	go func() {
		for {
			var msg commons.Message

			// Read message.
			err := conn.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Errorf("websocket error: %v", err)
				}
				break
			}

			logger.Infof("message received: %+v\n", msg)

			// send message through channel
			messageChan <- msg

		}
	}()
	return messageChan
}
