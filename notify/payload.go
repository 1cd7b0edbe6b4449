package notify

import (
	"github.com/hupe1980/matchgo/document"
)

// NotificationType discriminates the two payload variants a channel can
// receive.
type NotificationType string

const (
	// TypeDocument is a document entering, leaving or changing inside the
	// room's result set.
	TypeDocument NotificationType = "document"
	// TypeUser is a customer joining or leaving the room.
	TypeUser NotificationType = "user"
)

// Notification is the payload delivered to one channel. It is encoded once
// per channel and handed to the transport as an opaque frame.
type Notification struct {
	Type       NotificationType `json:"type"`
	RequestID  string           `json:"requestId,omitempty"`
	Timestamp  int64            `json:"timestamp"`
	Index      string           `json:"index"`
	Collection string           `json:"collection"`
	RoomID     string           `json:"roomId"`
	ChannelID  string           `json:"channelId"`

	// Action is the originating mutation for document notifications
	// ("create", "update", ...), or "join"/"leave" for user notifications.
	Action string `json:"action"`
	// State is the mutation completion state ("pending" or "done").
	State string `json:"state,omitempty"`
	// Scope is the outcome relative to this room ("in", "out", "unchanged").
	Scope string `json:"scope,omitempty"`

	// Result is the document content appropriate to the outcome: the
	// post-mutation document for in/unchanged, the pre-mutation document for
	// out.
	Result document.Document `json:"result,omitempty"`

	// Count is the number of customers in the room after a user event.
	Count int `json:"count,omitempty"`
	// Metadata echoes the joining/leaving customer's subscription metadata.
	Metadata any `json:"metadata,omitempty"`
}
