// Package storage defines the session recorder contract and picks a backend
// from configuration.
package storage

import "github.com/skywatch/saucerdefense/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management. StartSession assigns an ID when info has none.
	StartSession(info *core.SessionInfo) error
	EndSession(result *core.SessionResult) error

	// Recording
	RecordEvent(e *core.CombatEvent) error
	RecordFrame(f *core.FrameSample) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the scoreboard.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
