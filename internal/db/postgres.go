package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"iifvs/internal/model"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store and applies migrations
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			filename TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			file_size BIGINT NOT NULL,
			component_count INTEGER NOT NULL,
			extracted_files_count INTEGER NOT NULL,
			detected_versions JSONB NOT NULL DEFAULT '[]',
			prime_keyword TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveScan inserts a new scan record
func (s *PostgresStore) SaveScan(ctx context.Context, rec model.ScanRecord) error {
	versions, err := encodeVersions(rec.DetectedVersions)
	if err != nil {
		return err
	}
	query := `INSERT INTO scans (id, filename, sha256, file_size, component_count, extracted_files_count, detected_versions, prime_keyword, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.Filename, rec.SHA256, rec.FileSize, rec.ComponentCount,
		rec.ExtractedFilesCount, versions, rec.PrimeKeyword, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// ListScans returns the most recent scans, newest first
func (s *PostgresStore) ListScans(ctx context.Context, limit int) ([]model.ScanRecord, error) {
	query := `SELECT id, filename, sha256, file_size, component_count, extracted_files_count, detected_versions, prime_keyword, created_at
		FROM scans ORDER BY created_at DESC, seq DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	results := []model.ScanRecord{}
	for rows.Next() {
		rec, err := scanPostgresRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *rec)
	}
	return results, rows.Err()
}

// GetScan returns one scan by id
func (s *PostgresStore) GetScan(ctx context.Context, id string) (*model.ScanRecord, error) {
	query := `SELECT id, filename, sha256, file_size, component_count, extracted_files_count, detected_versions, prime_keyword, created_at
		FROM scans WHERE id = $1`
	rec, err := scanPostgresRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func scanPostgresRow(row rowScanner) (*model.ScanRecord, error) {
	var rec model.ScanRecord
	var versions []byte
	if err := row.Scan(&rec.ID, &rec.Filename, &rec.SHA256, &rec.FileSize, &rec.ComponentCount,
		&rec.ExtractedFilesCount, &versions, &rec.PrimeKeyword, &rec.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if rec.DetectedVersions, err = decodeVersions(string(versions)); err != nil {
		return nil, err
	}
	return &rec, nil
}
