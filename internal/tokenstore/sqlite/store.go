// Package sqlite persists client side session state in a local SQLite file.
// Values are sealed at rest; the row key is bound into the seal so a value
// cannot be moved to another key.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/archivepanel/pkg/cryptox"
	"github.com/aussiebroadwan/archivepanel/pkg/panelsdk"
	_ "modernc.org/sqlite"
)

// ErrUnreadable is returned when a stored value cannot be opened, usually
// because the master key changed.
var ErrUnreadable = errors.New("stored value cannot be decrypted")

var _ panelsdk.TokenStore = (*Store)(nil)

// Store is a panelsdk.TokenStore backed by SQLite.
type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
	now    func() time.Time
}

// NewStore opens the database at dsn. Call ApplyMigrations before use.
func NewStore(dsn string, sealer *cryptox.Sealer) (*Store, error) {
	if sealer == nil {
		return nil, errors.New("sqlite: sealer is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, sealer: sealer, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadToken returns the token stored under key, or "" when there is none.
func (s *Store) LoadToken(ctx context.Context, key string) (string, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE key = ?`, key,
	).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}

	plain, err := s.sealer.Open(sealed, []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadable, key, err)
	}
	return string(plain), nil
}

// SaveToken seals and upserts token under key.
func (s *Store) SaveToken(ctx context.Context, key, token string) error {
	sealed, err := s.sealer.Seal([]byte(token), []byte(key))
	if err != nil {
		return fmt.Errorf("failed to seal %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO client_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, sealed, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// DeleteToken removes key. Deleting a missing key is not an error.
func (s *Store) DeleteToken(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	var unix int64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM client_state WHERE key = ?`, key,
	).Scan(&unix)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return time.Unix(unix, 0), true, nil
}
