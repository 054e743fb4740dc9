package clientstore

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
)

// SQLStore persists values in the client_storage table.
type SQLStore struct {
	conn database.Connection
	now  func() time.Time
}

// NewSQLStore creates a store over an already migrated connection.
func NewSQLStore(conn database.Connection) *SQLStore {
	return &SQLStore{conn: conn, now: time.Now}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRow(ctx, `SELECT value FROM client_storage WHERE key = ?`, key).Scan(&value)
	if database.IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read client storage %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO client_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write client storage %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.conn.Exec(ctx, `DELETE FROM client_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove client storage %q: %w", key, err)
	}
	return nil
}
