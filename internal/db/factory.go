package db

import (
	"fmt"
	"strings"
)

const defaultSQLitePath = "iifvs.db"

// StoreConfig holds configuration for the storage backend
type StoreConfig struct {
	Type             string // "sqlite", "postgres" or "none"
	ConnectionString string // File path for SQLite, DSN for Postgres
}

// NewStore creates a new Store instance based on the provided configuration.
// The "none" type yields ErrStoreDisabled.
func NewStore(config StoreConfig) (Store, error) {
	switch strings.ToLower(config.Type) {
	case "postgres", "postgresql":
		if config.ConnectionString == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		return NewPostgresStore(config.ConnectionString)
	case "sqlite", "sqlite3", "":
		if config.ConnectionString == "" {
			config.ConnectionString = defaultSQLitePath
		}
		return NewSQLiteStore(config.ConnectionString)
	case "none":
		return nil, ErrStoreDisabled
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
