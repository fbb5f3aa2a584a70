package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/skywatch/saucerdefense/internal/config"
	gormstorage "github.com/skywatch/saucerdefense/internal/storage/gorm"
	"github.com/skywatch/saucerdefense/internal/storage/memory"
	"github.com/skywatch/saucerdefense/internal/storage/postgres"
	sqlitestorage "github.com/skywatch/saucerdefense/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration. The "none"
// type records nothing.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, cfg.FlushInterval, log), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, cfg.FlushInterval, log)
	case "memory":
		return memory.New(cfg.Memory, log), nil
	case "none", "":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

var (
	_ Backend    = (*memory.Backend)(nil)
	_ Uploadable = (*memory.Backend)(nil)
	_ Backend    = (*gormstorage.Backend)(nil)
	_ Backend    = (*sqlitestorage.Backend)(nil)
	_ Backend    = (*postgres.Backend)(nil)
)
