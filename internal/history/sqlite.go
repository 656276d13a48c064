package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/leo-go/internal/chat"
	"github.com/comigor/leo-go/internal/logger"
)

// SQLiteStore keeps transcript blobs in a single table, keyed the same way
// as the object store. It is meant for local development.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "history.db"
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.L.Info("sqlite history DB initialized", "path", path)
	return s, nil
}

// NewSQLiteStore wraps an open database and creates the blobs table.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS blobs (
        key TEXT PRIMARY KEY,
        body BLOB NOT NULL,
        updated_at DATETIME
    );`); err != nil {
		return nil, fmt.Errorf("sqlite create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, userID string) ([]chat.Turn, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM blobs WHERE key = ?;`, Key(userID)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite load %s: %w", Key(userID), err)
	}
	return Decode(body)
}

func (s *SQLiteStore) Save(ctx context.Context, userID string, turns []chat.Turn) error {
	body, err := Encode(turns)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, body, updated_at) VALUES (?,?,?)
        ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at;`,
		Key(userID), body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite save %s: %w", Key(userID), err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
