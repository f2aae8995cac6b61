package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"iifvs/internal/model"
)

// timeLayout sorts lexically in chronological order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// One writer at a time; avoids SQLITE_BUSY under concurrent uploads.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS scans (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		component_count INTEGER NOT NULL,
		extracted_files_count INTEGER NOT NULL,
		detected_versions TEXT NOT NULL,
		prime_keyword TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveScan inserts a new scan record
func (s *SQLiteStore) SaveScan(ctx context.Context, rec model.ScanRecord) error {
	versions, err := encodeVersions(rec.DetectedVersions)
	if err != nil {
		return err
	}
	query := `INSERT INTO scans (id, filename, sha256, file_size, component_count, extracted_files_count, detected_versions, prime_keyword, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.Filename, rec.SHA256, rec.FileSize, rec.ComponentCount,
		rec.ExtractedFilesCount, versions, rec.PrimeKeyword, rec.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// ListScans returns the most recent scans, newest first
func (s *SQLiteStore) ListScans(ctx context.Context, limit int) ([]model.ScanRecord, error) {
	query := `SELECT id, filename, sha256, file_size, component_count, extracted_files_count, detected_versions, prime_keyword, created_at
		FROM scans ORDER BY created_at DESC, seq DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	results := []model.ScanRecord{}
	for rows.Next() {
		rec, err := scanSQLiteRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *rec)
	}
	return results, rows.Err()
}

// GetScan returns one scan by id
func (s *SQLiteStore) GetScan(ctx context.Context, id string) (*model.ScanRecord, error) {
	query := `SELECT id, filename, sha256, file_size, component_count, extracted_files_count, detected_versions, prime_keyword, created_at
		FROM scans WHERE id = ?`
	rec, err := scanSQLiteRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRow(row rowScanner) (*model.ScanRecord, error) {
	var rec model.ScanRecord
	var versions, created string
	if err := row.Scan(&rec.ID, &rec.Filename, &rec.SHA256, &rec.FileSize, &rec.ComponentCount,
		&rec.ExtractedFilesCount, &versions, &rec.PrimeKeyword, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	rec.CreatedAt = t
	if rec.DetectedVersions, err = decodeVersions(versions); err != nil {
		return nil, err
	}
	return &rec, nil
}

func encodeVersions(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode versions: %w", err)
	}
	return string(b), nil
}

func decodeVersions(s string) ([]string, error) {
	v := []string{}
	if s == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("failed to decode versions: %w", err)
	}
	return v, nil
}
