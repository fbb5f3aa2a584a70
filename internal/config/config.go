package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/skywatch/saucerdefense/internal/combat"
	"github.com/skywatch/saucerdefense/internal/flight"
	"github.com/skywatch/saucerdefense/internal/geo"
	"github.com/skywatch/saucerdefense/internal/logging"
	"github.com/skywatch/saucerdefense/internal/ufo"
	"github.com/skywatch/saucerdefense/internal/vec"
)

// FileName is the config file looked up in the config directory.
const FileName = "saucerdefense.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings. An empty Path keeps
// the database in memory and dumps it to DumpPath every DumpInterval.
type SQLiteConfig struct {
	Path         string
	DumpPath     string
	DumpInterval time.Duration
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// StorageConfig selects and configures the session recording backend.
type StorageConfig struct {
	Type          string // memory, sqlite, postgres or none
	FlushInterval time.Duration
	Memory        MemoryConfig
	SQLite        SQLiteConfig
	Postgres      DatabaseConfig
}

// TerrainConfig describes where the elevation grid comes from and how the
// mesh is built from it.
type TerrainConfig struct {
	Source           string // file path or http(s) URL, .gz accepted
	WorldSize        float64
	HeightScale      float64
	Resolution       int
	FallbackGridSize int
	Shoreline        string // optional GeoJSON FeatureCollection
}

// ProjectionConfig holds the projector's optional fallback centre.
type ProjectionConfig struct {
	FallbackCenter *geo.GeoPoint
}

// UFOConfig is the fleet size plus per-saucer tuning.
type UFOConfig struct {
	Count  int
	Params ufo.Params
}

// StructureConfig places the defended structure.
type StructureConfig struct {
	Variant string
	X, Z    float64
}

// SimConfig holds frame loop settings.
type SimConfig struct {
	WorldName      string
	Seed           int64
	MaxDelta       float64 // seconds
	FloorClearance float64
	TelemetryEvery int // frames between telemetry samples
}

// InfluxConfig holds InfluxDB telemetry settings.
type InfluxConfig struct {
	Enabled   bool
	Host      string
	Port      string
	Protocol  string
	Token     string
	Org       string
	Bucket    string
	BackupDir string
}

// HUDConfig holds the live HUD websocket stream settings.
type HUDConfig struct {
	Enabled           bool
	URL               string
	Secret            string
	ReconnectInterval time.Duration
	MaxReconnect      time.Duration
}

// APIConfig holds the scoreboard upload settings.
type APIConfig struct {
	ServerURL string
	APIKey    string
	Tag       string
	Upload    bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./saucerlogs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("sim.worldName", "harbor")
	viper.SetDefault("sim.seed", 1)
	viper.SetDefault("sim.maxDelta", 0.1)
	viper.SetDefault("sim.floorClearance", 10.0)
	viper.SetDefault("sim.telemetryEvery", 60)

	viper.SetDefault("terrain.source", "./data/elevation.json")
	viper.SetDefault("terrain.worldSize", geo.DefaultWorldWidth)
	viper.SetDefault("terrain.heightScale", 1.0)
	viper.SetDefault("terrain.resolution", 128)
	viper.SetDefault("terrain.fallbackGridSize", 65)
	viper.SetDefault("terrain.shoreline", "")

	viper.SetDefault("projection.fallbackCenter", "")

	d := ufo.DefaultParams()
	viper.SetDefault("ufo.count", 10)
	viper.SetDefault("ufo.radius", d.Radius)
	viper.SetDefault("ufo.height", d.Height)
	viper.SetDefault("ufo.angularSpeed", d.AngularSpeed)
	viper.SetDefault("ufo.hoverAmplitude", d.HoverAmplitude)
	viper.SetDefault("ufo.hoverFrequency", d.HoverFrequency)
	viper.SetDefault("ufo.gravity", d.Gravity)
	viper.SetDefault("ufo.jitter", d.Jitter)
	viper.SetDefault("ufo.crashFlatten", d.CrashFlatten)
	viper.SetDefault("ufo.groundMode", d.GroundMode.String())
	viper.SetDefault("ufo.laser.duration", d.LaserDuration)
	viper.SetDefault("ufo.laser.cooldownMin", d.CooldownMin)
	viper.SetDefault("ufo.laser.cooldownMax", d.CooldownMax)
	viper.SetDefault("ufo.laser.intervalMin", d.IntervalMin)
	viper.SetDefault("ufo.laser.intervalMax", d.IntervalMax)
	viper.SetDefault("ufo.laser.damage", d.LaserDamage)
	viper.SetDefault("ufo.laser.aimSpread", d.AimSpread)

	viper.SetDefault("structure.variant", "lattice")
	viper.SetDefault("structure.x", 0.0)
	viper.SetDefault("structure.z", 0.0)

	f := flight.DefaultParams()
	viper.SetDefault("flight.minSpeed", f.MinSpeed)
	viper.SetDefault("flight.maxSpeed", f.MaxSpeed)
	viper.SetDefault("flight.initialSpeed", f.InitialSpeed)
	viper.SetDefault("flight.acceleration", f.Acceleration)
	viper.SetDefault("flight.pitchSensitivity", f.PitchSensitivity)
	viper.SetDefault("flight.rollSensitivity", f.RollSensitivity)
	viper.SetDefault("flight.smoothing", f.Smoothing)
	viper.SetDefault("flight.autoLevel", f.AutoLevel)
	viper.SetDefault("flight.bankTurn", f.BankTurn)
	viper.SetDefault("flight.maxPitchDeg", radToDeg(f.MaxPitch))
	viper.SetDefault("flight.maxRollDeg", radToDeg(f.MaxRoll))
	viper.SetDefault("flight.start.x", f.InitialPosition.X)
	viper.SetDefault("flight.start.y", f.InitialPosition.Y)
	viper.SetDefault("flight.start.z", f.InitialPosition.Z)
	viper.SetDefault("flight.start.yawDeg", radToDeg(f.InitialYaw))

	c := combat.DefaultParams()
	viper.SetDefault("combat.projectileSpeed", c.ProjectileSpeed)
	viper.SetDefault("combat.lifespan", c.Lifespan)
	viper.SetDefault("combat.hitRadius", c.HitRadius)
	viper.SetDefault("combat.scorePerKill", c.ScorePerKill)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.flushInterval", "2s")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "./recordings/sessions.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "saucerdefense")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "saucer-metrics")
	viper.SetDefault("influx.bucket", "saucer_performance")
	viper.SetDefault("influx.backupDir", "./saucerlogs")

	viper.SetDefault("hud.enabled", false)
	viper.SetDefault("hud.url", "ws://localhost:5000/hud")
	viper.SetDefault("hud.secret", "")
	viper.SetDefault("hud.reconnectInterval", "1s")
	viper.SetDefault("hud.maxReconnect", "30s")

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.tag", "Skirmish")
	viper.SetDefault("api.upload", false)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetLoggingConfig returns the log level and sinks. The console writer is
// left for the caller to set.
func GetLoggingConfig(name string) logging.Config {
	return logging.Config{
		Level:          viper.GetString("logLevel"),
		Dir:            viper.GetString("logsDir"),
		Name:           name,
		GraylogEnabled: viper.GetBool("graylog.enabled"),
		GraylogAddress: viper.GetString("graylog.address"),
	}
}

// GetSimConfig returns the frame loop settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		WorldName:      viper.GetString("sim.worldName"),
		Seed:           viper.GetInt64("sim.seed"),
		MaxDelta:       viper.GetFloat64("sim.maxDelta"),
		FloorClearance: viper.GetFloat64("sim.floorClearance"),
		TelemetryEvery: viper.GetInt("sim.telemetryEvery"),
	}
}

// GetTerrainConfig returns the elevation source and mesh settings.
func GetTerrainConfig() TerrainConfig {
	return TerrainConfig{
		Source:           viper.GetString("terrain.source"),
		WorldSize:        viper.GetFloat64("terrain.worldSize"),
		HeightScale:      viper.GetFloat64("terrain.heightScale"),
		Resolution:       viper.GetInt("terrain.resolution"),
		FallbackGridSize: viper.GetInt("terrain.fallbackGridSize"),
		Shoreline:        viper.GetString("terrain.shoreline"),
	}
}

// GetProjectionConfig returns the projector settings. A fallback centre is
// written as "lon,lat".
func GetProjectionConfig() (ProjectionConfig, error) {
	var cfg ProjectionConfig
	raw := viper.GetString("projection.fallbackCenter")
	if raw == "" {
		return cfg, nil
	}
	p, err := geo.ParseGeoPoint(raw)
	if err != nil {
		return cfg, fmt.Errorf("projection.fallbackCenter: %w", err)
	}
	cfg.FallbackCenter = &p
	return cfg, nil
}

// GetUFOConfig returns the fleet size and saucer tuning.
func GetUFOConfig() (UFOConfig, error) {
	mode, err := ufo.ParseGroundMode(viper.GetString("ufo.groundMode"))
	if err != nil {
		return UFOConfig{}, fmt.Errorf("ufo.groundMode: %w", err)
	}
	return UFOConfig{
		Count: viper.GetInt("ufo.count"),
		Params: ufo.Params{
			Radius:         viper.GetFloat64("ufo.radius"),
			Height:         viper.GetFloat64("ufo.height"),
			AngularSpeed:   viper.GetFloat64("ufo.angularSpeed"),
			HoverAmplitude: viper.GetFloat64("ufo.hoverAmplitude"),
			HoverFrequency: viper.GetFloat64("ufo.hoverFrequency"),
			Gravity:        viper.GetFloat64("ufo.gravity"),
			Jitter:         viper.GetFloat64("ufo.jitter"),
			CrashFlatten:   viper.GetFloat64("ufo.crashFlatten"),
			GroundMode:     mode,
			LaserDuration:  viper.GetFloat64("ufo.laser.duration"),
			CooldownMin:    viper.GetFloat64("ufo.laser.cooldownMin"),
			CooldownMax:    viper.GetFloat64("ufo.laser.cooldownMax"),
			IntervalMin:    viper.GetFloat64("ufo.laser.intervalMin"),
			IntervalMax:    viper.GetFloat64("ufo.laser.intervalMax"),
			LaserDamage:    viper.GetFloat64("ufo.laser.damage"),
			AimSpread:      viper.GetFloat64("ufo.laser.aimSpread"),
		},
	}, nil
}

// GetStructureConfig returns the structure variant and placement.
func GetStructureConfig() StructureConfig {
	return StructureConfig{
		Variant: viper.GetString("structure.variant"),
		X:       viper.GetFloat64("structure.x"),
		Z:       viper.GetFloat64("structure.z"),
	}
}

// GetFlightConfig returns the flight model. Angles are configured in degrees.
func GetFlightConfig() flight.Params {
	return flight.Params{
		MinSpeed:         viper.GetFloat64("flight.minSpeed"),
		MaxSpeed:         viper.GetFloat64("flight.maxSpeed"),
		InitialSpeed:     viper.GetFloat64("flight.initialSpeed"),
		Acceleration:     viper.GetFloat64("flight.acceleration"),
		PitchSensitivity: viper.GetFloat64("flight.pitchSensitivity"),
		RollSensitivity:  viper.GetFloat64("flight.rollSensitivity"),
		Smoothing:        viper.GetFloat64("flight.smoothing"),
		AutoLevel:        viper.GetFloat64("flight.autoLevel"),
		BankTurn:         viper.GetFloat64("flight.bankTurn"),
		MaxPitch:         degToRad(viper.GetFloat64("flight.maxPitchDeg")),
		MaxRoll:          degToRad(viper.GetFloat64("flight.maxRollDeg")),
		InitialPosition: vec.Vec3{
			X: viper.GetFloat64("flight.start.x"),
			Y: viper.GetFloat64("flight.start.y"),
			Z: viper.GetFloat64("flight.start.z"),
		},
		InitialYaw: degToRad(viper.GetFloat64("flight.start.yawDeg")),
	}
}

// GetCombatConfig returns the player weapon settings.
func GetCombatConfig() combat.Params {
	return combat.Params{
		ProjectileSpeed: viper.GetFloat64("combat.projectileSpeed"),
		Lifespan:        viper.GetFloat64("combat.lifespan"),
		HitRadius:       viper.GetFloat64("combat.hitRadius"),
		ScorePerKill:    viper.GetInt("combat.scorePerKill"),
	}
}

// GetStorageConfig returns the session recording backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          viper.GetString("storage.type"),
		FlushInterval: viper.GetDuration("storage.flushInterval"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: DatabaseConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetInfluxConfig returns the telemetry settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Protocol:  viper.GetString("influx.protocol"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

// GetHUDConfig returns the HUD stream settings.
func GetHUDConfig() HUDConfig {
	return HUDConfig{
		Enabled:           viper.GetBool("hud.enabled"),
		URL:               viper.GetString("hud.url"),
		Secret:            viper.GetString("hud.secret"),
		ReconnectInterval: viper.GetDuration("hud.reconnectInterval"),
		MaxReconnect:      viper.GetDuration("hud.maxReconnect"),
	}
}

// GetAPIConfig returns the scoreboard settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Tag:       viper.GetString("api.tag"),
		Upload:    viper.GetBool("api.upload"),
	}
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }

func radToDeg(r float64) float64 { return r * 180 / math.Pi }
