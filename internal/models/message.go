package models

import (
	"encoding/json"
	"time"
)

// MaxTextLength bounds the length of a direct message, in runes.
const MaxTextLength = 2000

// Message represents a direct message between two users. Messages are
// immutable once stored; updated_at is kept for schema symmetry only.
type Message struct {
	ID           int       `db:"id" json:"id"`
	FromUsername string    `db:"from_username" json:"fromUsername"`
	ToUsername   string    `db:"to_username" json:"toUsername"`
	Text         string    `db:"text" json:"text"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Conversation is the per-counterpart view derived from the message log.
// It is computed on every read and never persisted.
type Conversation struct {
	OtherUsername string  `json:"otherUsername"`
	LastMessage   Message `json:"lastMessage"`
}

// RoomEvent is exchanged over live chat connections. Data carries the
// client payload verbatim for events that relay one.
type RoomEvent struct {
	Event    string          `json:"event"`
	Username string          `json:"username,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}
