package db

import (
	"context"
	"errors"

	"iifvs/internal/model"
)

var (
	// ErrNotFound is returned when a scan record does not exist.
	ErrNotFound = errors.New("scan not found")
	// ErrStoreDisabled is returned by NewStore for the "none" backend.
	ErrStoreDisabled = errors.New("scan history is disabled")
)

// Store interface defines the methods for persistent scan history
type Store interface {
	SaveScan(ctx context.Context, rec model.ScanRecord) error
	ListScans(ctx context.Context, limit int) ([]model.ScanRecord, error)
	GetScan(ctx context.Context, id string) (*model.ScanRecord, error)
	Close() error
}
