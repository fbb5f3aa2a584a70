package game

import (
	"github.com/skywatch/saucerdefense/internal/combat"
	"github.com/skywatch/saucerdefense/internal/config"
	"github.com/skywatch/saucerdefense/internal/flight"
)

// Config gathers the settings Bootstrap needs.
type Config struct {
	Sim        config.SimConfig
	Terrain    config.TerrainConfig
	Projection config.ProjectionConfig
	UFO        config.UFOConfig
	Structure  config.StructureConfig
	Flight     flight.Params
	Combat     combat.Params
}

// LoadConfig reads the session settings from the loaded configuration.
func LoadConfig() (Config, error) {
	proj, err := config.GetProjectionConfig()
	if err != nil {
		return Config{}, err
	}
	ufos, err := config.GetUFOConfig()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Sim:        config.GetSimConfig(),
		Terrain:    config.GetTerrainConfig(),
		Projection: proj,
		UFO:        ufos,
		Structure:  config.GetStructureConfig(),
		Flight:     config.GetFlightConfig(),
		Combat:     config.GetCombatConfig(),
	}, nil
}
