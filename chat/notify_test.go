package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"
)

type testpublisher struct {
	T       *testing.T
	publish func(t *testing.T, ev Event) error
}

func (p *testpublisher) Publish(_ context.Context, ev Event) error {
	return p.publish(p.T, ev)
}

func TestNotifyingStore_InsertMessage(t *testing.T) {
	inserted := msg("1", "hello", "u1", t1)

	t.Run("PublishesInsertEvent", func(t *testing.T) {
		var published []Event
		s := &NotifyingStore{
			Store: &teststore{
				T: t,
				insertMessage: func(t *testing.T, m Message) (Message, error) {
					return inserted, nil
				},
			},
			Publisher: &testpublisher{
				T: t,
				publish: func(t *testing.T, ev Event) error {
					published = append(published, ev)
					return nil
				},
			},
			Logger: slogt.New(t),
		}

		got, err := s.InsertMessage(context.Background(), Message{Text: "hello", SenderID: "u1"})
		if err != nil {
			t.Fatalf("InsertMessage() failed: %v", err)
		}
		if diff := cmp.Diff(inserted, got); diff != "" {
			t.Errorf("Message mismatch (-want +got):\n%s", diff)
		}
		want := []Event{{Type: EventInsert, Message: inserted}}
		if diff := cmp.Diff(want, published); diff != "" {
			t.Errorf("Published events mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("InsertErrorPublishesNothing", func(t *testing.T) {
		s := &NotifyingStore{
			Store: &teststore{
				T: t,
				insertMessage: func(t *testing.T, m Message) (Message, error) {
					return Message{}, ErrServer
				},
			},
			Publisher: &testpublisher{
				T: t,
				publish: func(t *testing.T, ev Event) error {
					t.Error("Publish should not be called when the insert fails")
					return nil
				},
			},
			Logger: slogt.New(t),
		}

		if _, err := s.InsertMessage(context.Background(), Message{Text: "hello"}); !errors.Is(err, ErrServer) {
			t.Fatalf("Got error %v, want %v", err, ErrServer)
		}
	})

	t.Run("PublishFailureDoesNotFailTheSend", func(t *testing.T) {
		s := &NotifyingStore{
			Store: &teststore{
				T: t,
				insertMessage: func(t *testing.T, m Message) (Message, error) {
					return inserted, nil
				},
			},
			Publisher: &testpublisher{
				T: t,
				publish: func(t *testing.T, ev Event) error {
					return errors.New("broker down")
				},
			},
			Logger: slogt.New(t),
		}

		got, err := s.InsertMessage(context.Background(), Message{Text: "hello", SenderID: "u1"})
		if err != nil {
			t.Fatalf("InsertMessage() failed: %v", err)
		}
		if got.ID != "1" {
			t.Errorf("Got id %q, want 1", got.ID)
		}
	})
}

func TestNotifyingStore_DeleteMessage(t *testing.T) {
	var published []Event
	s := &NotifyingStore{
		Store: &teststore{
			T: t,
			deleteMessage: func(t *testing.T, id string) error {
				if id != "1" {
					t.Errorf("Got id %q, want 1", id)
				}
				return nil
			},
		},
		Publisher: &testpublisher{
			T: t,
			publish: func(t *testing.T, ev Event) error {
				published = append(published, ev)
				return nil
			},
		},
		Logger: slogt.New(t),
	}

	if err := s.DeleteMessage(context.Background(), "1"); err != nil {
		t.Fatalf("DeleteMessage() failed: %v", err)
	}
	want := []Event{{Type: EventDelete, Message: Message{ID: "1"}}}
	if diff := cmp.Diff(want, published); diff != "" {
		t.Errorf("Published events mismatch (-want +got):\n%s", diff)
	}
}
