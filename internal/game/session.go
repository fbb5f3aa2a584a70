// Package game builds the world and drives it one frame at a time.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"

	"github.com/skywatch/saucerdefense/internal/combat"
	"github.com/skywatch/saucerdefense/internal/dispatcher"
	"github.com/skywatch/saucerdefense/internal/elevation"
	"github.com/skywatch/saucerdefense/internal/flight"
	"github.com/skywatch/saucerdefense/internal/geo"
	"github.com/skywatch/saucerdefense/internal/hud"
	"github.com/skywatch/saucerdefense/internal/input"
	"github.com/skywatch/saucerdefense/internal/logging"
	"github.com/skywatch/saucerdefense/internal/storage"
	"github.com/skywatch/saucerdefense/internal/structure"
	"github.com/skywatch/saucerdefense/internal/terrain"
	"github.com/skywatch/saucerdefense/internal/ufo"
	"github.com/skywatch/saucerdefense/pkg/core"
)

const (
	recorderQueue = 1024
	audioQueue    = 64
)

// half-width in degrees of the box a generated field claims around the
// fallback centre
const fallbackSpan = 0.05

// Audio plays one-shot sound cues. Calls never wait for playback.
type Audio interface {
	Play(cue string, at core.Position3D)
}

// Telemetry receives periodic frame samples.
type Telemetry interface {
	WriteFrame(sessionID, world string, f core.FrameSample) error
}

// HUDs that also stream the session lifecycle and combat events.
type (
	sessionStarter interface {
		StartSession(info core.SessionInfo) error
	}
	eventSink interface {
		Event(e core.CombatEvent) error
	}
)

// Deps are the collaborators a session reports to. Nil fields get no-op
// defaults.
type Deps struct {
	Log        zerolog.Logger
	Storage    storage.Backend
	HUD        hud.HUD
	Audio      Audio
	Telemetry  Telemetry
	Input      *input.Controller
	Autopilot  *input.Autopilot
	Paused     func() bool
	HTTPClient *http.Client
}

// Session is one game from world bootstrap to outcome.
type Session struct {
	cfg  Config
	log  zerolog.Logger
	info core.SessionInfo

	projection *geo.Projection
	field      *elevation.Field
	mesh       *terrain.Mesh
	shoreline  []geom.LineString
	structure  *structure.Structure
	fleet      *ufo.Fleet
	resolver   *combat.Resolver
	plane      *flight.Plane

	input      *input.Controller
	autopilot  *input.Autopilot
	pausedFn   func() bool
	dispatcher *dispatcher.Dispatcher
	storage    storage.Backend
	hud        hud.HUD
	telemetry  Telemetry

	frame   uint
	simTime float64
	paused  bool
	camera  Camera
	over    bool
	ended   bool
	result  core.SessionResult
}

// Bootstrap builds the world: projection, elevation (a generated field when
// the source cannot be loaded), terrain mesh, structure, fleet and the
// optional shoreline. It then starts recording the session.
func Bootstrap(ctx context.Context, cfg Config, deps Deps) (*Session, error) {
	s := &Session{
		cfg:       cfg,
		log:       deps.Log.With().Str("component", "game").Logger(),
		input:     deps.Input,
		autopilot: deps.Autopilot,
		pausedFn:  deps.Paused,
		storage:   deps.Storage,
		hud:       deps.HUD,
		telemetry: deps.Telemetry,
	}
	if s.input == nil {
		s.input = input.NewController()
	}
	if s.storage == nil {
		s.storage = storage.Discard{}
	}
	if s.hud == nil {
		s.hud = hud.Nop{}
	}

	if err := s.buildWorld(ctx, deps); err != nil {
		return nil, err
	}
	if err := s.startRecording(deps); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) buildWorld(ctx context.Context, deps Deps) error {
	tc := s.cfg.Terrain

	opts := []geo.Option{geo.WithLogger(deps.Log)}
	if c := s.cfg.Projection.FallbackCenter; c != nil {
		opts = append(opts, geo.WithFallbackCenter(*c))
	}
	s.projection = geo.NewProjection(opts...)
	s.projection.SetTerrainSize(tc.WorldSize)

	sampling := elevation.Sampling{WorldSize: tc.WorldSize, HeightScale: tc.HeightScale}
	loaderOpts := []elevation.LoaderOption{elevation.WithLoaderLogger(deps.Log)}
	if deps.HTTPClient != nil {
		loaderOpts = append(loaderOpts, elevation.WithHTTPClient(deps.HTTPClient))
	}
	field, err := elevation.NewLoader(tc.Source, sampling, loaderOpts...).Load(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("loading elevation: %w", ctxErr)
		}
		var le *elevation.LoadError
		if !errors.As(err, &le) {
			return fmt.Errorf("loading elevation: %w", err)
		}
		s.log.Warn().Err(err).Msg("Elevation unavailable, generating fallback terrain")
		field = elevation.NewFallbackField(tc.FallbackGridSize, s.fallbackBounds(), sampling, s.cfg.Sim.Seed)
	}
	s.field = field

	// a generated field without a fallback centre has no geographic extent
	if b := field.Metadata().Bounds; b.Valid() && b.MaxLon > b.MinLon && b.MaxLat > b.MinLat {
		if err := s.projection.SetProjectionCenter(b.MinLon, b.MaxLon, b.MinLat, b.MaxLat); err != nil {
			s.log.Warn().Err(err).Msg("Could not centre projection on elevation bounds")
		}
	}

	s.mesh, err = terrain.Build(field, tc.Resolution, tc.WorldSize)
	if err != nil {
		return fmt.Errorf("building terrain: %w", err)
	}

	appearance, err := structure.AppearanceByName(s.cfg.Structure.Variant)
	if err != nil {
		return err
	}
	s.structure = structure.Place(field, s.cfg.Structure.X, s.cfg.Structure.Z, appearance, deps.Log)

	rng := rand.New(rand.NewSource(s.cfg.Sim.Seed))
	s.fleet = ufo.SpawnFleet(s.cfg.UFO.Count, s.structure.Position(), s.cfg.UFO.Params, rng, deps.Log)

	s.resolver, err = combat.NewResolver(s.cfg.Combat, s.fleet, s.structure, deps.Log)
	if err != nil {
		return err
	}
	s.plane = flight.New(s.cfg.Flight)

	if tc.Shoreline != "" {
		s.loadShoreline(tc.Shoreline)
	}
	return nil
}

// fallbackBounds is a small box around the fallback centre, or the zero box.
func (s *Session) fallbackBounds() geo.Bounds {
	c := s.cfg.Projection.FallbackCenter
	if c == nil {
		return geo.Bounds{}
	}
	return geo.Bounds{
		MinLon: c.Lon - fallbackSpan,
		MaxLon: c.Lon + fallbackSpan,
		MinLat: c.Lat - fallbackSpan,
		MaxLat: c.Lat + fallbackSpan,
	}
}

// loadShoreline projects the decorative shoreline. Failures only lose the
// decoration.
func (s *Session) loadShoreline(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Shoreline unavailable")
		return
	}
	features, err := geo.ParseFeatureCollection(data, s.log)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Shoreline unreadable")
		return
	}
	lines, err := geo.ProjectFeatures(s.projection, features, true, s.log)
	if err != nil {
		s.log.Warn().Err(err).Msg("Shoreline not projected")
		return
	}
	s.shoreline = lines
	s.log.Debug().Int("lines", len(lines)).Msg("Shoreline projected")
}

func (s *Session) startRecording(deps Deps) error {
	d, err := dispatcher.New(logging.NewDispatcherLogger(deps.Log))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	s.dispatcher = d

	d.Register(dispatcher.AnyEvent, s.record, dispatcher.Buffered(recorderQueue), dispatcher.Blocking())
	if deps.Audio != nil {
		play := func(e dispatcher.Event) (any, error) {
			deps.Audio.Play(e.Name, e.Position)
			return nil, nil
		}
		for _, name := range []string{
			core.EventPlayerFired,
			core.EventLaserFired,
			core.EventUFOHit,
			core.EventUFOCrashed,
			core.EventStructureDestroyed,
		} {
			d.Register(name, play, dispatcher.Buffered(audioQueue))
		}
	}

	center := s.structure.Position()
	s.info = core.SessionInfo{
		ID:               uuid.NewString(),
		StartedAt:        time.Now(),
		WorldName:        s.cfg.Sim.WorldName,
		Seed:             s.cfg.Sim.Seed,
		UFOCount:         s.fleet.Spawned(),
		StructureVariant: s.structure.Appearance().Name(),
		FallbackTerrain:  s.field.Fallback,
	}
	if g, err := s.projection.LocalToGeo(center.X, center.Z, true); err == nil {
		s.info.CenterLon, s.info.CenterLat = g.Lon, g.Lat
	}

	if err := s.storage.StartSession(&s.info); err != nil {
		d.Close()
		return fmt.Errorf("starting session recording: %w", err)
	}
	if starter, ok := s.hud.(sessionStarter); ok {
		if err := starter.StartSession(s.info); err != nil {
			s.log.Warn().Err(err).Msg("HUD did not acknowledge session start")
		}
	}

	s.log.Info().
		Str("session", s.info.ID).
		Str("world", s.info.WorldName).
		Bool("fallbackTerrain", s.info.FallbackTerrain).
		Int("ufos", s.info.UFOCount).
		Msg("Session started")
	return nil
}

// record stores an event and forwards it to a streaming HUD.
func (s *Session) record(e dispatcher.Event) (any, error) {
	ce := e.CombatEvent
	err := s.storage.RecordEvent(&ce)
	if sink, ok := s.hud.(eventSink); ok {
		if herr := sink.Event(ce); herr != nil && !errors.Is(herr, hud.ErrNotConnected) {
			err = errors.Join(err, herr)
		}
	}
	return nil, err
}

// Info returns the session description.
func (s *Session) Info() core.SessionInfo { return s.info }

// Projection returns the coordinate projector.
func (s *Session) Projection() *geo.Projection { return s.projection }

// Field returns the elevation field.
func (s *Session) Field() *elevation.Field { return s.field }

// Mesh returns the terrain mesh.
func (s *Session) Mesh() *terrain.Mesh { return s.mesh }

// Shoreline returns the projected shoreline, if one was configured.
func (s *Session) Shoreline() []geom.LineString { return s.shoreline }

// Structure returns the defended structure.
func (s *Session) Structure() *structure.Structure { return s.structure }

// Fleet returns the saucers.
func (s *Session) Fleet() *ufo.Fleet { return s.fleet }

// Resolver returns the combat resolver.
func (s *Session) Resolver() *combat.Resolver { return s.resolver }

// Plane returns the player's plane.
func (s *Session) Plane() *flight.Plane { return s.plane }

// Input returns the controller the session drains each frame.
func (s *Session) Input() *input.Controller { return s.input }

// Frame returns the number of frames stepped.
func (s *Session) Frame() uint { return s.frame }

// SimTime returns the simulated seconds, excluding paused frames.
func (s *Session) SimTime() float64 { return s.simTime }

// Paused reports whether gameplay is paused.
func (s *Session) Paused() bool {
	return s.paused || (s.pausedFn != nil && s.pausedFn())
}

// Camera returns the active camera.
func (s *Session) Camera() Camera { return s.camera }

// Over reports whether the session reached an outcome.
func (s *Session) Over() bool { return s.over }

// Result returns the current tally.
func (s *Session) Result() core.SessionResult {
	if s.ended {
		return s.result
	}
	return core.SessionResult{
		Outcome:         s.resolver.Outcome(),
		Score:           s.resolver.Score(),
		Destroyed:       s.resolver.Destroyed(),
		Spawned:         s.resolver.Spawned(),
		StructureHealth: s.structure.Health(),
		Frames:          s.frame,
		SimTime:         s.simTime,
		EndedAt:         time.Now(),
	}
}

// End drains pending events, closes the session record and tells the HUD.
// Calling it again returns the first result.
func (s *Session) End() (core.SessionResult, error) {
	if s.ended {
		return s.result, nil
	}
	s.result = s.Result()
	s.ended = true

	s.dispatcher.Close()
	err := s.storage.EndSession(&s.result)
	if err != nil {
		err = fmt.Errorf("ending session recording: %w", err)
	}
	s.hud.GameOver(s.result)

	s.log.Info().
		Str("session", s.info.ID).
		Stringer("outcome", s.result.Outcome).
		Int("score", s.result.Score).
		Uint("frames", s.result.Frames).
		Float64("simTime", s.result.SimTime).
		Msg("Session ended")
	return s.result, err
}
