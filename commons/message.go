package commons

import (
	"github.com/google/uuid"

	"github.com/burntcarrot/coedit/awareness"
	"github.com/burntcarrot/coedit/crdt"
)

// Message represents the message sent over the wire.
type Message struct {
	Username string `json:"username"`

	// Text represents the body of the message. This is currently used for joining messages, the siteID, and the list of active users.
	Text string `json:"text"`

	// Type represents the message type.
	Type MessageType `json:"type"`

	// ID represents the client's UUID.
	ID uuid.UUID `json:"ID"`

	// Operation represents the CRDT operation.
	Operation Operation `json:"operation"`

	// Document represents the client's document. This is not used frequently, and should be only used when necessary, due to the large size of documents.
	Document crdt.Document `json:"document"`

	// Awareness carries ephemeral presence entries (cursors, names, colors).
	Awareness []awareness.Entry `json:"awareness,omitempty"`
}

// MessageType represents the type of the message.
type MessageType string

// Supported message types:
// - docSync (for syncing documents)
// - docReq (for requesting documents)
// - SiteID (for generating site IDs)
// - join (for joining messages)
// - users (for the list of active users)
// - operation (for single CRDT operations)
// - awareness (for presence updates)

const (
	DocSyncMessage   MessageType = "docSync"
	DocReqMessage    MessageType = "docReq"
	SiteIDMessage    MessageType = "SiteID"
	JoinMessage      MessageType = "join"
	UsersMessage     MessageType = "users"
	OperationMessage MessageType = "operation"
	AwarenessMessage MessageType = "awareness"
)
