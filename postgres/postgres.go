package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roomsync/roomsync/chat"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store provides message persistence in PostgreSQL.
type Store struct {
	bun *bun.DB
}

var _ chat.Store = (*Store)(nil)

// Connect connects to the database and pings it to ensure the
// connection is working.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Store{
		bun: db,
	}, nil
}

// ListMessages returns all messages joined with their sender profile,
// ordered by creation time ascending.
func (s *Store) ListMessages(ctx context.Context) ([]chat.Message, error) {
	var msgs []message
	err := s.bun.NewSelect().
		Model(&msgs).
		Relation("Sender").
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("scan: %w", err))
	}
	return lo.Map(msgs, func(m message, _ int) chat.Message {
		return m.chatMessage()
	}), nil
}

// InsertMessage persists a message and returns the authoritative copy
// holding the server-assigned id, timestamp and joined sender profile.
func (s *Store) InsertMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	m := &message{
		MessageText: msg.Text,
		SenderID:    msg.SenderID,
	}
	if _, err := s.bun.NewInsert().Model(m).Returning("*").Exec(ctx); err != nil {
		return chat.Message{}, classify(fmt.Errorf("insert: %w", err))
	}
	// Re-select so the confirmed copy matches what a later list returns.
	if err := s.bun.NewSelect().Model(m).Relation("Sender").WherePK().Scan(ctx); err != nil {
		return chat.Message{}, classify(fmt.Errorf("select inserted: %w", err))
	}
	return m.chatMessage(), nil
}

// DeleteMessage removes the message with the given id. Deleting an id
// that is already gone is not an error.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	_, err := s.bun.NewDelete().
		Model((*message)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return classify(fmt.Errorf("delete: %w", err))
	}
	return nil
}

// classify maps driver failures onto the engine's error kinds: a reply
// from the server means the store rejected the operation, anything else
// is a transport failure.
func classify(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %v", chat.ErrServer, err)
	}
	return fmt.Errorf("%w: %v", chat.ErrNetwork, err)
}
