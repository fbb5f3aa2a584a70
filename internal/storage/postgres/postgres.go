// Package postgres records sessions in PostgreSQL through the GORM backend.
package postgres

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/skywatch/saucerdefense/internal/config"
	"github.com/skywatch/saucerdefense/internal/database"
	gormstorage "github.com/skywatch/saucerdefense/internal/storage/gorm"
)

// Backend connects to Postgres on Init and records through the embedded
// GORM backend.
type Backend struct {
	*gormstorage.Backend
	cfg           config.DatabaseConfig
	flushInterval time.Duration
	log           zerolog.Logger
}

// New creates a Postgres backend. No connection is made until Init.
func New(cfg config.DatabaseConfig, flushInterval time.Duration, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:           cfg,
		flushInterval: flushInterval,
		log:           log.With().Str("component", "storage.postgres").Logger(),
	}
}

// Init connects, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	b.log.Debug().Str("host", b.cfg.Host).Str("port", b.cfg.Port).Str("database", b.cfg.Database).Msg("Connecting to Postgres")

	db, err := database.OpenPostgres(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.log.Info().Msg("Connected to database")

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Log:           b.log,
		FlushInterval: b.flushInterval,
	})
	return b.Backend.Init()
}

// Close stops the writer. It is safe before a successful Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
