package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"chikabot/internal/domain"
)

// SQLiteStore keeps a log of processed replies and their delivery
// outcomes. The pipeline never reads it back; it exists for operators
// (doctor command, debugging reply loops and delivery problems).
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// ReplyRecord is one logged delivery attempt sequence.
type ReplyRecord struct {
	EventID           string
	MessageID         string
	SenderID          string
	Delivered         bool
	ExternalMessageID string
	Error             string
	CreatedAt         time.Time
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reply_log (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id            TEXT NOT NULL,
		message_id          TEXT,
		sender_id           TEXT,
		delivered           INTEGER NOT NULL DEFAULT 0,
		external_message_id TEXT,
		error               TEXT,
		created_at          DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reply_log_time ON reply_log(created_at);
	CREATE INDEX IF NOT EXISTS idx_reply_log_sender ON reply_log(sender_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record logs the outcome of one processed event.
func (s *SQLiteStore) Record(ctx context.Context, eventID string, msg *domain.ParsedMessage, outcome domain.DeliveryOutcome) error {
	var messageID, senderID string
	if msg != nil {
		messageID = msg.MessageID
		senderID = msg.SenderID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reply_log (event_id, message_id, sender_id, delivered, external_message_id, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		eventID, messageID, senderID, outcome.Delivered, outcome.ExternalMessageID, outcome.Error, time.Now(),
	)
	return err
}

// Recent returns the newest records, most recent first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]ReplyRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, message_id, sender_id, delivered, external_message_id, error, created_at
		 FROM reply_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ReplyRecord
	for rows.Next() {
		var r ReplyRecord
		if err := rows.Scan(&r.EventID, &r.MessageID, &r.SenderID, &r.Delivered, &r.ExternalMessageID, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
