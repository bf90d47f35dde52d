package postgres

import (
	"time"

	"github.com/roomsync/roomsync/chat"
)

// A message represents a message row in the database.
type message struct {
	ID          string    `bun:",pk,type:uuid,default:uuid_generate_v4()"`
	MessageText string    `bun:"message_text,notnull"`
	SenderID    string    `bun:"sender_id,notnull"`
	CreatedAt   time.Time `bun:",nullzero,default:now()"`
	Sender      *user     `bun:"rel:belongs-to,join:sender_id=id"`
}

// A user represents a user profile row in the database.
type user struct {
	ID   string `bun:",pk,type:uuid"`
	Name string `bun:",notnull"`
}

func (m message) chatMessage() chat.Message {
	out := chat.Message{
		ID:        m.ID,
		Text:      m.MessageText,
		SenderID:  m.SenderID,
		CreatedAt: m.CreatedAt,
	}
	if m.Sender != nil {
		out.Sender = &chat.User{
			ID:   m.Sender.ID,
			Name: m.Sender.Name,
		}
	}
	return out
}
