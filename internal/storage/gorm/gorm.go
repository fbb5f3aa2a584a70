// Package gormstorage records sessions through gorm. Events and frame samples
// are queued in memory and written in batches by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skywatch/saucerdefense/pkg/core"
)

// ErrNoSession is returned when recording outside a session.
var ErrNoSession = errors.New("no session started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Log           zerolog.Logger
	FlushInterval time.Duration // zero writes only on Flush, EndSession and Close
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps Dependencies
	log  zerolog.Logger

	mu        sync.Mutex
	sessionID string
	events    []CombatEvent
	frames    []FrameSample

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
		log:  deps.Log.With().Str("component", "storage.gorm").Logger(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}

	b.log.Info().Msg("Migrating schema")
	if err := b.deps.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if b.deps.FlushInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.writeLoop()
	}
	return nil
}

// Close stops the writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// StartSession inserts the session row.
func (b *Backend) StartSession(info *core.SessionInfo) error {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	row := sessionFromCore(info)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	b.mu.Lock()
	b.sessionID = info.ID
	b.mu.Unlock()

	b.log.Info().Str("session", info.ID).Msg("Session started")
	return nil
}

// EndSession writes the queue and stores the result on the session row.
func (b *Backend) EndSession(result *core.SessionResult) error {
	b.mu.Lock()
	id := b.sessionID
	b.mu.Unlock()
	if id == "" {
		return ErrNoSession
	}

	if err := b.Flush(); err != nil {
		return err
	}

	ended := result.EndedAt
	err := b.deps.DB.Model(&Session{ID: id}).Updates(map[string]any{
		"ended_at":         &ended,
		"outcome":          result.Outcome.String(),
		"score":            result.Score,
		"destroyed":        result.Destroyed,
		"spawned":          result.Spawned,
		"structure_health": result.StructureHealth,
		"frames":           result.Frames,
		"sim_time":         result.SimTime,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	b.mu.Lock()
	b.sessionID = ""
	b.mu.Unlock()
	return nil
}

// RecordEvent converts and queues a combat event.
func (b *Backend) RecordEvent(e *core.CombatEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessionID == "" {
		return ErrNoSession
	}
	b.events = append(b.events, eventFromCore(b.sessionID, e, time.Now()))
	return nil
}

// RecordFrame converts and queues a frame sample.
func (b *Backend) RecordFrame(f *core.FrameSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessionID == "" {
		return ErrNoSession
	}
	b.frames = append(b.frames, frameFromCore(b.sessionID, f))
	return nil
}

// Pending returns how many rows are queued.
func (b *Backend) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events) + len(b.frames)
}

// Flush writes all queued rows. Rows that fail to write are queued again.
func (b *Backend) Flush() error {
	b.mu.Lock()
	events, frames := b.events, b.frames
	b.events, b.frames = nil, nil
	b.mu.Unlock()

	errEvents := writeQueue(b.deps.DB, events, "combat events")
	if errEvents != nil {
		b.requeue(events, nil)
	}
	errFrames := writeQueue(b.deps.DB, frames, "frame samples")
	if errFrames != nil {
		b.requeue(nil, frames)
	}
	return errors.Join(errEvents, errFrames)
}

func (b *Backend) requeue(events []CombatEvent, frames []FrameSample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(events, b.events...)
	b.frames = append(frames, b.frames...)
}

// writeQueue writes all items to the database in a transaction.
func writeQueue[T any](db *gorm.DB, items []T, name string) error {
	if len(items) == 0 {
		return nil
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&items, 500).Error
	})
	if err != nil {
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	return nil
}

func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error().Err(err).Msg("Background write failed")
			}
		}
	}
}
