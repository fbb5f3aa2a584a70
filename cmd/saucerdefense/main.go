// Command saucerdefense runs a headless defence session: it builds the world
// from configuration, steps the frame loop until the fight is decided or the
// frame budget runs out, records the session and optionally uploads it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/skywatch/saucerdefense/internal/api"
	"github.com/skywatch/saucerdefense/internal/config"
	"github.com/skywatch/saucerdefense/internal/game"
	"github.com/skywatch/saucerdefense/internal/hud"
	"github.com/skywatch/saucerdefense/internal/influx"
	"github.com/skywatch/saucerdefense/internal/input"
	"github.com/skywatch/saucerdefense/internal/logging"
	"github.com/skywatch/saucerdefense/internal/storage"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"

	AppName = "saucerdefense"
)

type options struct {
	configDir string
	frames    int
	dt        float64
	autopilot bool
}

func main() {
	opts := options{}
	flags := pflag.NewFlagSet(AppName, pflag.ExitOnError)
	flags.StringVarP(&opts.configDir, "config", "c", ".", "directory containing "+config.FileName)
	flags.IntVarP(&opts.frames, "frames", "n", 36000, "maximum number of frames to simulate")
	flags.Float64Var(&opts.dt, "dt", 1.0/60, "seconds of simulation per frame")
	flags.BoolVar(&opts.autopilot, "autopilot", false, "let the scripted pilot fly and shoot")
	_ = flags.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	start := time.Now()

	// defaults are in place even when the file is missing
	cfgErr := config.Load(opts.configDir)

	logCfg := config.GetLoggingConfig(AppName)
	logCfg.Console = os.Stdout
	logs, err := logging.Setup(logCfg, start)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer logs.Close()
	log := logs.Logger()

	log.Info().Str("version", Version).Str("buildDate", BuildDate).Msg("Starting up...")
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Msg("Failed to load config, using defaults!")
	} else {
		log.Info().Str("dir", opts.configDir).Msg("Loaded config")
	}

	backend, err := storage.NewBackend(config.GetStorageConfig(), log)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage backend")
		}
	}()

	deps := game.Deps{
		Log:     log,
		Storage: backend,
		HUD:     connectHUD(log),
	}
	if stream, ok := deps.HUD.(*hud.Stream); ok {
		defer stream.Close()
	}

	if config.GetSimConfig().TelemetryEvery > 0 {
		tel := influx.NewManager(config.GetInfluxConfig(), log)
		if err := tel.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("Telemetry disabled")
		} else {
			deps.Telemetry = tel
			defer func() {
				if err := tel.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close telemetry")
				}
			}()
		}
	}

	if opts.autopilot {
		deps.Autopilot = input.NewAutopilot()
	}

	gameCfg, err := game.LoadConfig()
	if err != nil {
		return fmt.Errorf("reading game config: %w", err)
	}
	session, err := game.Bootstrap(ctx, gameCfg, deps)
	if err != nil {
		return fmt.Errorf("bootstrapping session: %w", err)
	}

	for i := 0; i < opts.frames && !session.Over(); i++ {
		if ctx.Err() != nil {
			log.Warn().Uint("frame", session.Frame()).Msg("Interrupted, ending session")
			break
		}
		session.Step(opts.dt)
	}

	result, err := session.End()
	if err != nil {
		log.Error().Err(err).Msg("Session not fully recorded")
	}
	log.Info().
		Stringer("outcome", result.Outcome).
		Int("score", result.Score).
		Int("destroyed", result.Destroyed).
		Int("spawned", result.Spawned).
		Float64("structureHealth", result.StructureHealth).
		Dur("took", time.Since(start)).
		Msg("Run finished")

	upload(ctx, backend, log)
	return nil
}

// connectHUD dials the HUD server when enabled. A HUD that cannot be reached
// is replaced by one that shows nothing.
func connectHUD(log zerolog.Logger) hud.HUD {
	cfg := config.GetHUDConfig()
	if !cfg.Enabled {
		return hud.Nop{}
	}
	stream := hud.NewStream(cfg, log)
	if err := stream.Connect(); err != nil {
		log.Warn().Err(err).Str("url", cfg.URL).Msg("HUD unreachable, continuing without it")
		return hud.Nop{}
	}
	return stream
}

// upload sends the exported session to the scoreboard when configured.
func upload(ctx context.Context, backend storage.Backend, log zerolog.Logger) {
	cfg := config.GetAPIConfig()
	if !cfg.Upload || cfg.ServerURL == "" {
		return
	}
	exp, ok := backend.(storage.Uploadable)
	if !ok {
		log.Info().Msg("Storage backend produces no export, skipping upload")
		return
	}
	path := exp.GetExportedFilePath()
	if path == "" {
		log.Warn().Msg("No exported session to upload")
		return
	}

	meta := exp.GetExportMetadata()
	meta.Tag = cfg.Tag

	client := api.New(cfg.ServerURL, cfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		log.Warn().Err(err).Msg("Scoreboard unreachable, upload skipped")
		return
	}
	if err := client.Upload(ctx, path, meta); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Upload failed")
		return
	}
	log.Info().Str("path", path).Str("session", meta.SessionID).Msg("Session uploaded")
}
