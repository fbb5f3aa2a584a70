package hud

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/skywatch/saucerdefense/internal/config"
	"github.com/skywatch/saucerdefense/pkg/core"
	"github.com/skywatch/saucerdefense/pkg/streaming"
)

// ErrNotConnected is returned when sending before Connect.
var ErrNotConnected = errors.New("hud stream not connected")

// Stream sends HUD frames and combat events to a websocket server. Sends
// never block the frame loop; when the queue is full messages are dropped.
type Stream struct {
	conn       *connection
	cfg        config.HUDConfig
	log        zerolog.Logger
	ackTimeout time.Duration
	connected  atomic.Bool
	dropped    atomic.Int64
}

var _ HUD = (*Stream)(nil)

// NewStream creates a stream. No connection is made until Connect.
func NewStream(cfg config.HUDConfig, log zerolog.Logger) *Stream {
	l := log.With().Str("component", "hud").Logger()
	return &Stream{
		conn:       newConnection(cfg.ReconnectInterval, cfg.MaxReconnect, l),
		cfg:        cfg,
		log:        l,
		ackTimeout: defaultAck,
	}
}

// Connect dials the HUD server.
func (s *Stream) Connect() error {
	if err := s.conn.dial(s.cfg.URL, s.cfg.Secret); err != nil {
		return err
	}
	s.connected.Store(true)
	s.log.Info().Str("url", s.cfg.URL).Msg("HUD stream connected")
	return nil
}

// Close disconnects from the server.
func (s *Stream) Close() error {
	s.connected.Store(false)
	return s.conn.close()
}

// Dropped returns how many messages were dropped because the queue was full.
func (s *Stream) Dropped() int64 { return s.dropped.Load() }

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (s *Stream) sendEnvelope(msgType string, payload any) error {
	if !s.connected.Load() {
		return ErrNotConnected
	}
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	if !s.conn.send(data) {
		s.dropped.Add(1)
	}
	return nil
}

// StartSession announces the session and caches the announcement for
// replay after a reconnect.
func (s *Stream) StartSession(info core.SessionInfo) error {
	if !s.connected.Load() {
		return ErrNotConnected
	}
	data, err := marshalEnvelope(streaming.TypeSessionStart, streaming.SessionStartPayload{
		SessionID: info.ID,
		WorldName: info.WorldName,
		UFOCount:  info.UFOCount,
		Structure: info.StructureVariant,
		CenterLon: info.CenterLon,
		CenterLat: info.CenterLat,
	})
	if err != nil {
		return err
	}

	s.conn.mu.Lock()
	s.conn.cachedStart = data
	s.conn.mu.Unlock()

	return s.conn.sendAndWait(data, streaming.TypeSessionStart, s.ackTimeout)
}

// Update sends the frame's HUD state.
func (s *Stream) Update(state core.HUDState) {
	if err := s.sendEnvelope(streaming.TypeHUDState, state); err != nil && !errors.Is(err, ErrNotConnected) {
		s.log.Debug().Err(err).Msg("HUD update failed")
	}
}

// Event sends one combat event.
func (s *Stream) Event(e core.CombatEvent) error {
	return s.sendEnvelope(streaming.TypeCombatEvent, e)
}

// GameOver sends the result and waits for the server to acknowledge it.
func (s *Stream) GameOver(result core.SessionResult) {
	if err := s.EndSession(result); err != nil {
		s.log.Warn().Err(err).Msg("HUD game over not acknowledged")
	}
}

// EndSession sends game_over, waits for the ack and forgets the cached
// session announcement.
func (s *Stream) EndSession(result core.SessionResult) error {
	if !s.connected.Load() {
		return ErrNotConnected
	}
	data, err := marshalEnvelope(streaming.TypeGameOver, streaming.GameOverPayload{
		Outcome:         result.Outcome,
		Score:           result.Score,
		Destroyed:       result.Destroyed,
		Spawned:         result.Spawned,
		StructureHealth: result.StructureHealth,
		SimTime:         result.SimTime,
	})
	if err != nil {
		return err
	}
	err = s.conn.sendAndWait(data, streaming.TypeGameOver, s.ackTimeout)

	s.conn.mu.Lock()
	s.conn.cachedStart = nil
	s.conn.mu.Unlock()
	return err
}
