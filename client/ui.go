package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nsf/termbox-go"

	"github.com/burntcarrot/coedit/awareness"
	"github.com/burntcarrot/coedit/binding"
	"github.com/burntcarrot/coedit/commons"
	"github.com/burntcarrot/coedit/editor"
	"github.com/burntcarrot/coedit/undo"
)

// How often presence is re-announced, and how long a silent peer's cursor
// lingers before pruning.
const (
	presenceInterval = 10 * time.Second
	presenceMaxIdle  = 30 * time.Second
)

// UI creates a new editor view, binds it to the document and runs the main loop.
func UI(conn *websocket.Conn) error {
	err := termbox.Init()
	if err != nil {
		return err
	}
	defer termbox.Close()

	e = editor.NewEditor(editor.EditorConfig{ScrollEnabled: true})
	e.SetSize(termbox.Size())

	aw = awareness.New(uuid.New())
	aw.SetLocalState(&awareness.State{User: conf.User, Color: conf.Color})

	um = undo.NewManager(&doc)
	defer um.Close()

	b = binding.New(&doc, e, aw,
		binding.WithUndoManager(um),
		binding.WithCursorDebounce(time.Duration(conf.CursorDebounceMs)*time.Millisecond),
	)
	defer b.Unbind()

	// Finished local operations go out over the wire.
	b.OnOperation(func(op commons.Operation) {
		msg := commons.Message{Type: commons.OperationMessage, Username: conf.User, Operation: op}
		if err := send(conn, msg); err != nil {
			e.StatusMsg = "lost connection!"
			e.SetStatusBar()
		}
	})

	// So do changes to our own presence entry (cursor moves, renames).
	awHandle := aw.OnUpdate(func(u awareness.Update) {
		ids := make([]uuid.UUID, 0, len(u.Added)+len(u.Updated)+len(u.Removed))
		ids = append(ids, u.Added...)
		ids = append(ids, u.Updated...)
		ids = append(ids, u.Removed...)
		for _, id := range ids {
			if id == aw.ClientID {
				sendPresence(conn)
				return
			}
		}
	})
	defer aw.RemoveListener(awHandle)

	// Announce ourselves to peers that joined before us.
	sendPresence(conn)

	e.Draw()

	return mainLoop(conn)
}

// sendPresence ships the local awareness entry.
func sendPresence(conn *websocket.Conn) {
	msg := commons.Message{
		Type:      commons.AwarenessMessage,
		Username:  conf.User,
		Awareness: []awareness.Entry{aw.LocalEntry()},
	}
	if err := send(conn, msg); err != nil {
		logger.Errorf("failed to send presence: %v\n", err)
	}
}

// mainLoop is the main update loop for the UI.
func mainLoop(conn *websocket.Conn) error {
	termboxChan := getTermboxChan()
	msgChan := getMsgChan(conn)

	presence := time.NewTicker(presenceInterval)
	defer presence.Stop()

	// event select
	for {
		select {
		case termboxEvent := <-termboxChan:
			err := handleTermboxEvent(termboxEvent, conn)
			if err != nil {
				return err
			}
		case msg := <-msgChan:
			handleMsg(msg, conn)
		case <-presence.C:
			// Re-announce so late joiners see us, and drop peers that
			// have gone quiet.
			sendPresence(conn)
			aw.Prune(presenceMaxIdle)
			b.FlushCursors()
			e.Draw()
		}
	}
}
