package chat

import "time"

// A Message represents a persisted chat message. The ID and CreatedAt
// fields are assigned by the store on insert; Sender is the denormalized
// author profile joined at read time and may be nil.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	SenderID  string    `json:"sender_id"`
	Sender    *User     `json:"sender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// A User identifies the author of a message.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// An EventType classifies a row-level change on the message table.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// An Event is a realtime notification of a change to the message table.
// For delete events only Message.ID is guaranteed to be set.
type Event struct {
	Type    EventType `json:"type"`
	Message Message   `json:"message"`
}

// before reports whether m sorts ahead of other. Ordering is by
// CreatedAt ascending with ties broken by ID so a rendered list never
// reorders between refreshes.
func (m Message) before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
