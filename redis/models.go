package redis

import (
	"time"

	"github.com/roomsync/roomsync/chat"
)

// An event is the wire form of a row-change notification.
type event struct {
	Type    string  `json:"type"`
	Message message `json:"message"`
}

// A message is the wire form of a message row inside an event.
type message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	SenderID  string    `json:"sender_id"`
	Sender    *user     `json:"sender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func fromChatEvent(ev chat.Event) event {
	out := event{
		Type: string(ev.Type),
		Message: message{
			ID:        ev.Message.ID,
			Text:      ev.Message.Text,
			SenderID:  ev.Message.SenderID,
			CreatedAt: ev.Message.CreatedAt,
		},
	}
	if ev.Message.Sender != nil {
		out.Message.Sender = &user{
			ID:   ev.Message.Sender.ID,
			Name: ev.Message.Sender.Name,
		}
	}
	return out
}

func (e event) chatEvent() chat.Event {
	out := chat.Event{
		Type: chat.EventType(e.Type),
		Message: chat.Message{
			ID:        e.Message.ID,
			Text:      e.Message.Text,
			SenderID:  e.Message.SenderID,
			CreatedAt: e.Message.CreatedAt,
		},
	}
	if e.Message.Sender != nil {
		out.Message.Sender = &chat.User{
			ID:   e.Message.Sender.ID,
			Name: e.Message.Sender.Name,
		}
	}
	return out
}
