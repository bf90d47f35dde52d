package chat

import (
	"context"
	"log/slog"
)

// A Publisher fans a row-change event out to subscribed clients.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NotifyingStore decorates a Store so every successful mutation emits
// exactly one realtime event. A failed publish is logged, not
// propagated: the row is already persisted and polling will deliver it.
type NotifyingStore struct {
	Store     Store
	Publisher Publisher
	Logger    *slog.Logger
}

func (s *NotifyingStore) InsertMessage(ctx context.Context, msg Message) (Message, error) {
	out, err := s.Store.InsertMessage(ctx, msg)
	if err != nil {
		return Message{}, err
	}
	if err := s.Publisher.Publish(ctx, Event{Type: EventInsert, Message: out}); err != nil {
		s.Logger.Error("Could not publish insert event", "id", out.ID, "error", err.Error())
	}
	return out, nil
}

func (s *NotifyingStore) ListMessages(ctx context.Context) ([]Message, error) {
	return s.Store.ListMessages(ctx)
}

func (s *NotifyingStore) DeleteMessage(ctx context.Context, id string) error {
	if err := s.Store.DeleteMessage(ctx, id); err != nil {
		return err
	}
	ev := Event{Type: EventDelete, Message: Message{ID: id}}
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		s.Logger.Error("Could not publish delete event", "id", id, "error", err.Error())
	}
	return nil
}

var _ Store = (*NotifyingStore)(nil)
