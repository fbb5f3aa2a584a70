// Package memory keeps a session in memory and exports it as a JSON file
// when the session ends.
package memory

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skywatch/saucerdefense/internal/config"
	"github.com/skywatch/saucerdefense/pkg/core"
)

// ErrNoSession is returned when recording outside a session.
var ErrNoSession = errors.New("no session started")

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig
	log zerolog.Logger

	mu             sync.RWMutex
	session        *core.SessionInfo
	result         *core.SessionResult
	events         []core.CombatEvent
	frames         []core.FrameSample
	lastExportPath string
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg: cfg,
		log: log.With().Str("component", "storage.memory").Logger(),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session, discarding anything recorded
// before.
func (b *Backend) StartSession(info *core.SessionInfo) error {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s := *info
	b.session = &s
	b.result = nil
	b.events = nil
	b.frames = nil
	b.lastExportPath = ""
	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession(result *core.SessionResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	r := *result
	b.result = &r
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.log.Info().Str("path", b.lastExportPath).Int("events", len(b.events)).Msg("Session exported")
	return nil
}

// RecordEvent appends a combat event.
func (b *Backend) RecordEvent(e *core.CombatEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.events = append(b.events, *e)
	return nil
}

// RecordFrame appends a frame sample.
func (b *Backend) RecordFrame(f *core.FrameSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.frames = append(b.frames, *f)
	return nil
}

// Events returns a copy of the recorded events.
func (b *Backend) Events() []core.CombatEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.CombatEvent(nil), b.events...)
}

// Frames returns a copy of the recorded frame samples.
func (b *Backend) Frames() []core.FrameSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.FrameSample(nil), b.frames...)
}

// GetExportedFilePath returns the path of the last export, empty before the
// first session ends.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for the scoreboard.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var meta core.UploadMetadata
	if b.session != nil {
		meta.SessionID = b.session.ID
		meta.WorldName = b.session.WorldName
	}
	if b.result != nil {
		meta.Outcome = b.result.Outcome
		meta.Score = b.result.Score
		meta.SimDuration = b.result.SimTime
	}
	return meta
}
