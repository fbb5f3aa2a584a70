package game

import (
	"math"

	"github.com/skywatch/saucerdefense/internal/dispatcher"
	"github.com/skywatch/saucerdefense/internal/input"
	"github.com/skywatch/saucerdefense/internal/ufo"
	"github.com/skywatch/saucerdefense/internal/vec"
	"github.com/skywatch/saucerdefense/pkg/core"
)

// Camera is the active view.
type Camera int

const (
	CameraChase Camera = iota
	CameraCockpit
)

func (c Camera) String() string {
	if c == CameraCockpit {
		return "cockpit"
	}
	return "chase"
}

func (c Camera) next() Camera {
	if c == CameraChase {
		return CameraCockpit
	}
	return CameraChase
}

// Step advances the session by dt seconds. dt is clamped to the configured
// maximum so a stalled frame cannot tunnel projectiles or skip laser timing.
// While paused only camera toggles and pause toggles apply. Once the session
// has an outcome Step does nothing.
func (s *Session) Step(dt float64) {
	if s.over || s.ended {
		return
	}
	dt = s.clampDelta(dt)
	s.frame++

	if s.autopilot != nil && !s.Paused() {
		if target, ok := s.nearestFlying(); ok {
			s.autopilot.Fly(s.input, s.plane.Position(), s.plane.Forward(), target, dt)
		}
	}

	shots := 0
	for _, a := range s.input.Drain() {
		switch a {
		case input.TogglePause:
			s.paused = !s.paused
			s.log.Debug().Bool("paused", s.paused).Uint("frame", s.frame).Msg("Pause toggled")
		case input.ToggleCamera:
			s.camera = s.camera.next()
		case input.Shoot:
			if !s.Paused() {
				shots++
			}
		}
	}

	paused := s.Paused()
	s.plane.SetEnabled(!paused)
	if paused {
		s.hud.Update(s.hudState())
		return
	}

	s.simTime += dt
	s.plane.Update(s.input.Controls(), dt)
	s.keepAboveGround()

	var events []core.CombatEvent
	for i := 0; i < shots; i++ {
		p := s.resolver.Fire(s.plane.Position(), s.plane.Forward(), s.plane.Speed())
		events = append(events, core.CombatEvent{
			Name:     core.EventPlayerFired,
			Position: core.Position3D(p.Position),
			UFOID:    -1,
		})
	}

	fleetEvents := s.fleet.Update(dt, s.structure, s.field)
	events = append(events, s.resolver.Resolve(dt, fleetEvents)...)
	for _, fe := range fleetEvents {
		if fe.Report.Crashed {
			fe.UFO.ConsumeCrashEffect()
		}
	}

	for _, e := range events {
		e.Frame = s.frame
		e.SimTime = s.simTime
		if _, err := s.dispatcher.Dispatch(dispatcher.Event{CombatEvent: e}); err != nil {
			s.log.Error().Err(err).Str("event", e.Name).Msg("Event dispatch failed")
		}
	}

	if s.resolver.Outcome() != core.OutcomeNone {
		s.over = true
	}

	if every := s.cfg.Sim.TelemetryEvery; every > 0 && s.frame%uint(every) == 0 {
		s.sample(dt)
	}
	s.hud.Update(s.hudState())
}

func (s *Session) clampDelta(dt float64) float64 {
	if dt < 0 || math.IsNaN(dt) {
		return 0
	}
	if limit := s.cfg.Sim.MaxDelta; limit > 0 && dt > limit {
		return limit
	}
	return dt
}

// keepAboveGround lifts the plane to the configured clearance over the terrain.
func (s *Session) keepAboveGround() {
	pos := s.plane.Position()
	floor := s.field.ElevationAt(pos.X, pos.Z) + s.cfg.Sim.FloorClearance
	if pos.Y < floor {
		pos.Y = floor
		s.plane.SetPosition(pos)
	}
}

// nearestFlying returns the closest saucer still in the air.
func (s *Session) nearestFlying() (vec.Vec3, bool) {
	from := s.plane.Position()
	best, found := math.Inf(1), false
	var target vec.Vec3
	for _, u := range s.fleet.All() {
		if u.State() != ufo.Flying {
			continue
		}
		if d := u.Position().DistanceTo(from); d < best {
			best, target, found = d, u.Position(), true
		}
	}
	return target, found
}

func (s *Session) sample(dt float64) {
	f := core.FrameSample{
		Frame:           s.frame,
		SimTime:         s.simTime,
		DT:              dt,
		PlayerPosition:  core.Position3D(s.plane.Position()),
		Speed:           s.plane.Speed(),
		UFOsFlying:      s.fleet.Count(ufo.Flying),
		Projectiles:     len(s.resolver.Projectiles()),
		StructureHealth: s.structure.Health(),
		Score:           s.resolver.Score(),
	}
	if err := s.storage.RecordFrame(&f); err != nil {
		s.log.Warn().Err(err).Uint("frame", s.frame).Msg("Frame sample not recorded")
	}
	if s.telemetry != nil {
		if err := s.telemetry.WriteFrame(s.info.ID, s.info.WorldName, f); err != nil {
			s.log.Warn().Err(err).Uint("frame", s.frame).Msg("Frame telemetry not written")
		}
	}
}

func (s *Session) hudState() core.HUDState {
	return core.HUDState{
		Frame:           s.frame,
		Speed:           s.plane.Speed(),
		Altitude:        s.plane.Position().Y,
		Score:           s.resolver.Score(),
		StructureHealth: s.structure.HealthPercent(),
		UFOsRemaining:   s.fleet.Count(ufo.Flying),
		Paused:          s.Paused(),
		Camera:          s.camera.String(),
	}
}
