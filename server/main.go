package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/burntcarrot/coedit/commons"
)

// Upgrader instance to upgrade all HTTP connections to a WebSocket.
var upgrader = websocket.Upgrader{}

// ConnWriter is the write side of a client connection.
type ConnWriter interface {
	WriteJSON(v interface{}) error
	Close() error
}

// client serializes writes to one connection. Both the handler goroutine and
// the broadcast goroutine write to it, and gorilla/websocket supports at most
// one concurrent writer per connection.
type client struct {
	conn ConnWriter
	mu   sync.Mutex
}

func (c *client) write(msg *commons.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *client) close() {
	c.conn.Close()
}

// session holds the currently active client connections for one document.
type session struct {
	clients  map[*client]uuid.UUID
	nextSite int
}

var (
	sessionsMu sync.Mutex
	sessions   = make(map[string]*session)
)

// inbound pairs a message with the client and document it arrived on.
type inbound struct {
	msg  commons.Message
	from *client
	doc  string
}

// Channel for client messages.
var messageChan = make(chan inbound)

var store *snapshotStore

func main() {
	// Parse flags.
	addr := flag.String("addr", ":8080", "Server's network address")
	dbPath := flag.String("db", "coedit.db", "Path to the snapshot database")
	flag.Parse()

	var err error
	store, err = newSnapshotStore(*dbPath)
	if err != nil {
		log.Fatalf("Error opening snapshot store: %v", err)
	}
	defer store.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleConn)

	// Handle incoming messages.
	go handleMsg()

	srv := &http.Server{Addr: *addr, Handler: mux}

	// Stop accepting connections on SIGINT/SIGTERM, then let the deferred
	// store.Close flush the snapshot database.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Printf("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down: %v", err)
		}
	}()

	// Start the server.
	log.Printf("Starting server on %s", *addr)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("Error starting server, exiting.", err)
	}
}

// handleConn upgrades incoming HTTP connections, registers the client in its
// document's session and reads its messages.
func handleConn(w http.ResponseWriter, r *http.Request) {
	docName := r.URL.Query().Get("doc")
	if docName == "" {
		docName = "default"
	}

	// Upgrade incoming HTTP connections to WebSocket connections.
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading connection to websocket: %v", err)
		return
	}
	defer conn.Close()

	clientID := uuid.New()
	cl := &client{conn: conn}

	sessionsMu.Lock()
	sess, ok := sessions[docName]
	if !ok {
		sess = &session{clients: make(map[*client]uuid.UUID)}
		sessions[docName] = sess
	}
	sess.clients[cl] = clientID
	sess.nextSite++
	siteID := sess.nextSite

	var peer *client
	for other := range sess.clients {
		if other != cl {
			peer = other
			break
		}
	}
	sessionsMu.Unlock()

	// Assign the site ID used for the client's character identifiers.
	siteMsg := commons.Message{Type: commons.SiteIDMessage, Text: strconv.Itoa(siteID), ID: clientID}
	if err := cl.write(&siteMsg); err != nil {
		log.Printf("Error sending site ID: %v", err)
	}

	// Bring the client up to date: prefer a live peer's document, fall
	// back to the persisted snapshot.
	if peer != nil {
		reqMsg := commons.Message{Type: commons.DocReqMessage, ID: clientID}
		if err := peer.write(&reqMsg); err != nil {
			log.Printf("Error requesting document from peer: %v", err)
		}
	} else if doc, found, err := store.Load(docName); err != nil {
		log.Printf("Error loading snapshot for %s: %v", docName, err)
	} else if found {
		syncMsg := commons.Message{Type: commons.DocSyncMessage, Document: doc, ID: clientID}
		if err := cl.write(&syncMsg); err != nil {
			log.Printf("Error sending snapshot: %v", err)
		}
	}

	for {
		var msg commons.Message

		// Read message from the connection.
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("Closing connection with ID: %v", clientID)
			sessionsMu.Lock()
			delete(sess.clients, cl)
			if len(sess.clients) == 0 {
				delete(sessions, docName)
			}
			sessionsMu.Unlock()
			break
		}

		// Stamp the sender, except on document syncs, which carry the
		// recipient's ID so they can be routed.
		if msg.Type != commons.DocSyncMessage {
			msg.ID = clientID
		}

		// Send message to messageChan.
		messageChan <- inbound{msg: msg, from: cl, doc: docName}
	}
}

// handleMsg listens to the messageChan channel, persists snapshots, and
// broadcasts messages to the other clients in the same session.
func handleMsg() {
	for {
		// Get message from messageChan.
		in := <-messageChan
		msg := in.msg

		// Log each message to stdout.
		t := time.Now().Format(time.ANSIC)
		switch msg.Type {
		case commons.JoinMessage:
			color.Green("%s >> [%s] %s has joined the session\n", t, in.doc, msg.Username)
		case commons.DocSyncMessage:
			color.Cyan("%s >> [%s] syncing document\n", t, in.doc)
		case commons.AwarenessMessage:
			color.Blue("%s >> [%s] awareness update from %s\n", t, in.doc, msg.Username)
		default:
			color.Green("%s >> [%s] %s: %v\n", t, in.doc, msg.Username, msg.Type)
		}

		// Persist document snapshots as they pass through.
		if msg.Type == commons.DocSyncMessage {
			if err := store.Save(in.doc, msg.Document); err != nil {
				log.Printf("Error saving snapshot for %s: %v", in.doc, err)
			}
		}

		sessionsMu.Lock()
		sess, ok := sessions[in.doc]
		if !ok {
			sessionsMu.Unlock()
			continue
		}

		// A document sync addressed to a client is routed, not broadcast.
		if msg.Type == commons.DocSyncMessage && msg.ID != uuid.Nil {
			for cl, id := range sess.clients {
				if id == msg.ID {
					if err := cl.write(&msg); err != nil {
						log.Printf("Error routing document to client: %v", err)
						cl.close()
						delete(sess.clients, cl)
					}
					break
				}
			}
			sessionsMu.Unlock()
			continue
		}

		// Broadcast to all other clients in the session.
		for cl := range sess.clients {
			if cl == in.from {
				continue
			}
			if err := cl.write(&msg); err != nil {
				log.Printf("Error sending message to client: %v", err)
				cl.close()
				delete(sess.clients, cl)
			}
		}
		sessionsMu.Unlock()
	}
}
