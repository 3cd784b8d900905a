// Package history is the clipboard history collaborator: an append-only
// SQLite log of captured and evicted content, optionally sealed at rest.
package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/crypto"
)

// CurrentSchemaVersion is the latest schema version.
const CurrentSchemaVersion = 1

// FileName is the database file inside the history directory.
const FileName = "history.db"

// ErrNotFound is returned by Delete for an unknown id.
var ErrNotFound = errors.New("history item not found")

// Item is one history row, decrypted.
type Item struct {
	ID        string
	Content   string
	Type      classify.ContentType
	Encrypted bool
	CreatedAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	db   *sql.DB
	keys crypto.Keys
	now  func() time.Time

	entropyMu sync.Mutex
	entropy   io.Reader
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the history database in dir. A non-empty
// passphrase seals new rows.
func Open(dir, passphrase string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	_ = os.Chmod(dir, 0o700)

	keys, err := crypto.DeriveKeys(passphrase)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, FileName)
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(path, 0o600)

	s := &Store{
		db:      db,
		keys:    keys,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Sealed reports whether new rows are encrypted.
func (s *Store) Sealed() bool { return s.keys.Seal != nil }

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS items (
		  id           TEXT PRIMARY KEY,
		  content      BLOB NOT NULL,
		  content_mac  TEXT NOT NULL UNIQUE,
		  content_type TEXT NOT NULL,
		  encrypted    INTEGER NOT NULL,
		  size         INTEGER NOT NULL,
		  created_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_items_created
		ON items(created_at DESC, id DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 1)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

func (s *Store) newID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// Append stores content. It returns "" and no error when identical content
// is already recorded.
func (s *Store) Append(ctx context.Context, content string, ct classify.ContentType) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	mac := crypto.MAC([]byte(content), s.keys.MAC)

	blob := []byte(content)
	encrypted := 0
	if s.keys.Seal != nil {
		sealed, err := crypto.Seal(blob, s.keys.Seal)
		if err != nil {
			return "", err
		}
		blob = sealed
		encrypted = 1
	}

	id := s.newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, content, content_mac, content_type, encrypted, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, blob, mac, ct.String(), encrypted, len(content), s.now().UnixMilli())
	if err != nil {
		if isUniqueConstraintError(err) {
			slog.Debug("history duplicate rejected", "type", ct)
			return "", nil
		}
		return "", fmt.Errorf("append history: %w", err)
	}
	return id, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Recent returns up to n items, newest first. Rows that cannot be decrypted
// with the current passphrase are skipped.
func (s *Store) Recent(ctx context.Context, n int) ([]Item, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, content_type, encrypted, created_at
		FROM items
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var (
			it        Item
			blob      []byte
			ctName    string
			encrypted int
			created   int64
		)
		if err := rows.Scan(&it.ID, &blob, &ctName, &encrypted, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		it.Type = classify.ParseContentType(ctName)
		it.Encrypted = encrypted == 1
		it.CreatedAt = time.UnixMilli(created)
		if it.Encrypted {
			if s.keys.Seal == nil {
				slog.Warn("skipping sealed history item, no passphrase", "id", it.ID)
				continue
			}
			plain, err := crypto.Open(blob, s.keys.Seal)
			if err != nil {
				slog.Warn("skipping unreadable history item", "id", it.ID, "err", err)
				continue
			}
			blob = plain
		}
		it.Content = string(blob)
		out = append(out, it)
	}
	return out, rows.Err()
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Delete removes one item.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Trim keeps the newest max rows and returns how many were removed.
func (s *Store) Trim(ctx context.Context, max int) (int, error) {
	if max < 0 {
		max = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM items WHERE id NOT IN (
			SELECT id FROM items ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`, max)
	if err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// PurgeOlderThan removes rows created before t and returns how many.
func (s *Store) PurgeOlderThan(ctx context.Context, t time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE created_at < ?", t.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
