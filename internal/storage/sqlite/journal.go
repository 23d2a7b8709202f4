package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yegors/runboard/pkg/logger"
)

// Open opens (or creates) the sqlite database at path. Use ":memory:" for
// a throwaway database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writes
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}
	return db, nil
}

// JournalStorage records every assignment mutation attempt
type JournalStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewJournalStorage creates the journal table if needed
func NewJournalStorage(db *sql.DB, logger *logger.Logger) (*JournalStorage, error) {
	storage := &JournalStorage{
		db:     db,
		logger: logger.Named("sqlite-journal"),
	}
	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

func (s *JournalStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS mutations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			date TEXT NOT NULL,
			operation TEXT NOT NULL,
			payload TEXT,
			outcome TEXT NOT NULL,
			status INTEGER NOT NULL DEFAULT 0,
			message TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create mutations table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_mutations_date ON mutations(date)`,
		`CREATE INDEX IF NOT EXISTS idx_mutations_created_at ON mutations(created_at)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create mutations index: %w", err)
		}
	}
	return nil
}

// Record stores one mutation attempt. ID and CreatedAt are filled in when
// empty.
func (s *JournalStorage) Record(ctx context.Context, record *MutationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mutations
		(id, session_id, date, operation, payload, outcome, status, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.SessionID,
		record.Date,
		record.Operation,
		nullString(record.Payload),
		record.Outcome,
		record.Status,
		nullString(record.Message),
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert mutation: %w", err)
	}

	s.logger.Debug("Mutation recorded",
		logger.String("operation", record.Operation),
		logger.String("outcome", record.Outcome),
		logger.String("date", record.Date))
	return nil
}

// ByDate returns the mutations for an operating date, newest first
func (s *JournalStorage) ByDate(ctx context.Context, date string, limit int) ([]*MutationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, date, operation, payload, outcome, status, message, created_at
		FROM mutations
		WHERE date = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		date, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations by date: %w", err)
	}
	defer rows.Close()

	return s.scanRows(rows)
}

// Recent returns the latest mutations across all dates
func (s *JournalStorage) Recent(ctx context.Context, limit int) ([]*MutationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, date, operation, payload, outcome, status, message, created_at
		FROM mutations
		ORDER BY created_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent mutations: %w", err)
	}
	defer rows.Close()

	return s.scanRows(rows)
}

func (s *JournalStorage) scanRows(rows *sql.Rows) ([]*MutationRecord, error) {
	records := []*MutationRecord{}
	for rows.Next() {
		var record MutationRecord
		var payload, message sql.NullString
		var createdAt string

		if err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&record.Date,
			&record.Operation,
			&payload,
			&record.Outcome,
			&record.Status,
			&message,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}

		var err error
		record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		record.Payload = payload.String
		record.Message = message.String

		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mutations: %w", err)
	}
	return records, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
