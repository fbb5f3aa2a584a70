package storage

import "github.com/skywatch/saucerdefense/pkg/core"

// Discard is a Backend that records nothing.
type Discard struct{}

func (Discard) Init() error { return nil }
func (Discard) Close() error { return nil }
func (Discard) StartSession(info *core.SessionInfo) error { return nil }
func (Discard) EndSession(result *core.SessionResult) error { return nil }
func (Discard) RecordEvent(e *core.CombatEvent) error { return nil }
func (Discard) RecordFrame(f *core.FrameSample) error { return nil }
