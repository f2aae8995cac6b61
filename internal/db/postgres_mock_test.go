package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scanColumns = []string{"id", "filename", "sha256", "file_size", "component_count", "extracted_files_count", "detected_versions", "prime_keyword", "created_at"}

func withMockStore(t *testing.T, fn func(*PostgresStore, sqlmock.Sqlmock)) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	store := &PostgresStore{db: db}
	fn(store, mock)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresStore_Mocked(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("SaveScan Success", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			rec := sampleRecord("p1", created)
			mock.ExpectExec("INSERT INTO scans").
				WithArgs(rec.ID, rec.Filename, rec.SHA256, rec.FileSize, rec.ComponentCount,
					rec.ExtractedFilesCount, `["BusyBox v1.31.1","OpenSSL 1.0.2k"]`, rec.PrimeKeyword, created).
				WillReturnResult(sqlmock.NewResult(1, 1))

			assert.NoError(t, store.SaveScan(ctx, rec))
		})
	})

	t.Run("SaveScan Error", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectExec("INSERT INTO scans").WillReturnError(errors.New("insert error"))

			err := store.SaveScan(ctx, sampleRecord("p1", created))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "insert error")
		})
	})

	t.Run("ListScans", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			rows := sqlmock.NewRows(scanColumns).
				AddRow("p2", "b.bin", "ff", int64(10), 1, 2, []byte(`["Dnsmasq 2.80"]`), "Dnsmasq 2.80", created.Add(time.Hour)).
				AddRow("p1", "a.bin", "ee", int64(20), 0, 0, []byte(`[]`), "IoT Firmware", created)
			mock.ExpectQuery("SELECT (.+) FROM scans ORDER BY created_at DESC").
				WithArgs(2).
				WillReturnRows(rows)

			scans, err := store.ListScans(ctx, 2)
			require.NoError(t, err)
			require.Len(t, scans, 2)
			assert.Equal(t, "p2", scans[0].ID)
			assert.Equal(t, []string{"Dnsmasq 2.80"}, scans[0].DetectedVersions)
			assert.Equal(t, []string{}, scans[1].DetectedVersions)
		})
	})

	t.Run("GetScan Not Found", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectQuery("SELECT (.+) FROM scans WHERE id").
				WithArgs("missing").
				WillReturnError(sql.ErrNoRows)

			_, err := store.GetScan(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	})

	t.Run("GetScan Bad Versions", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			rows := sqlmock.NewRows(scanColumns).
				AddRow("p1", "a.bin", "ee", int64(20), 0, 0, []byte(`{`), "IoT Firmware", created)
			mock.ExpectQuery("SELECT (.+) FROM scans WHERE id").
				WithArgs("p1").
				WillReturnRows(rows)

			_, err := store.GetScan(ctx, "p1")
			assert.Error(t, err)
		})
	})

	t.Run("Migrate", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectExec("CREATE TABLE IF NOT EXISTS scans").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_scans_created_at").WillReturnResult(sqlmock.NewResult(0, 0))
			assert.NoError(t, store.migrate())
		})
	})
}
