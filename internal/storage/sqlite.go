// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedbacks (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		district_name TEXT NOT NULL,
		service_type TEXT NOT NULL,
		user_feedback TEXT NOT NULL,
		response_text TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_feedbacks_key ON feedbacks(district_name, service_type);
	CREATE INDEX IF NOT EXISTS idx_feedbacks_created_at ON feedbacks(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const recordColumns = `id, district_name, service_type, user_feedback, response_text, source, embedding, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var emb []byte
	if err := row.Scan(&rec.ID, &rec.DistrictName, &rec.ServiceType, &rec.UserFeedback,
		&rec.ResponseText, &rec.Source, &emb, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if len(emb) > 0 {
		rec.Embedding = vector.DecodeFloat32s(emb)
	}
	return &rec, nil
}

// Insert stores a record under a new UUID.
func (s *SQLiteStorage) Insert(ctx context.Context, rec *models.Record) (string, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	var emb []byte
	if len(rec.Embedding) > 0 {
		emb = vector.EncodeFloat32s(rec.Embedding)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedbacks (id, district_name, service_type, user_feedback, response_text, source, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DistrictName, rec.ServiceType, rec.UserFeedback, rec.ResponseText, rec.Source, emb, rec.CreatedAt,
	)
	if err != nil {
		rec.ID = ""
		return "", fmt.Errorf("failed to insert feedback: %w", err)
	}
	return rec.ID, nil
}

// Get returns a record by ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*models.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM feedbacks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByIDs returns records in the order of ids, skipping ids that are not stored.
func (s *SQLiteStorage) FindByIDs(ctx context.Context, ids []string) ([]*models.Record, error) {
	if len(ids) == 0 {
		return []*models.Record{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM feedbacks WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*models.Record, len(ids))
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*models.Record, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// FindByKey returns the records for one district and service type in insertion order.
func (s *SQLiteStorage) FindByKey(ctx context.Context, district, service string) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM feedbacks
		 WHERE district_name = ? AND service_type = ? ORDER BY seq`,
		district, service)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// List returns records newest first with offset and limit.
func (s *SQLiteStorage) List(ctx context.Context, offset, limit int) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM feedbacks ORDER BY seq DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ForEach streams every record in insertion order.
func (s *SQLiteStorage) ForEach(ctx context.Context, fn func(*models.Record) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM feedbacks ORDER BY seq`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the total number of records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedbacks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func collect(rows *sql.Rows) ([]*models.Record, error) {
	recs := make([]*models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
