// Package sqlitestorage records sessions in SQLite. With no file path the
// database lives in memory and is dumped to disk periodically via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skywatch/saucerdefense/internal/config"
	"github.com/skywatch/saucerdefense/internal/database"
	gormstorage "github.com/skywatch/saucerdefense/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, flushInterval time.Duration, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSqlite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:            db,
			Log:           log,
			FlushInterval: flushInterval,
		}),
		db:  db,
		cfg: cfg,
		log: log.With().Str("component", "storage.sqlite").Logger(),
	}, nil
}

// inMemory reports whether dumps are needed to persist anything.
func (b *Backend) inMemory() bool {
	return b.cfg.Path == ""
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.inMemory() && b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	if b.inMemory() {
		b.log.Info().Str("dump", b.cfg.DumpPath).Dur("interval", b.cfg.DumpInterval).Msg("Using in-memory SQLite DB with periodic disk dump")
	} else {
		b.log.Info().Str("path", b.cfg.Path).Msg("Using local SQLite DB")
	}
	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump for in-memory databases.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.inMemory() && b.cfg.DumpPath != "" {
		return b.Dump()
	}
	return nil
}

// Dump snapshots the database to DumpPath.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug().Dur("duration", time.Since(start)).Msg("Dumped to disk")
	return nil
}

func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			}
		}
	}
}
