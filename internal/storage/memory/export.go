package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skywatch/saucerdefense/pkg/core"
)

// Export is the root JSON structure of a recorded session.
type Export struct {
	SessionID        string             `json:"sessionId"`
	WorldName        string             `json:"worldName"`
	StartedAt        time.Time          `json:"startedAt"`
	EndedAt          time.Time          `json:"endedAt"`
	Seed             int64              `json:"seed"`
	StructureVariant string             `json:"structureVariant"`
	FallbackTerrain  bool               `json:"fallbackTerrain"`
	Center           [2]float64         `json:"center"` // lon, lat
	Outcome          core.Outcome       `json:"outcome"`
	Score            int                `json:"score"`
	Destroyed        int                `json:"destroyed"`
	Spawned          int                `json:"spawned"`
	StructureHealth  float64            `json:"structureHealth"`
	EndFrame         uint               `json:"endFrame"`
	SimTime          float64            `json:"simTime"`
	Events           []core.CombatEvent `json:"events"`
	Samples          []core.FrameSample `json:"samples"`
}

// exportJSON writes the session to OutputDir, gzipped when configured.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	world := strings.ReplaceAll(b.session.WorldName, " ", "_")
	world = strings.ReplaceAll(world, ":", "_")
	if world == "" {
		world = "session"
	}
	timestamp := b.session.StartedAt.Format("20060102_150405")
	id := b.session.ID
	if len(id) > 8 {
		id = id[:8]
	}

	filename := fmt.Sprintf("%s_%s_%s.json", world, timestamp, id)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() Export {
	export := Export{
		SessionID:        b.session.ID,
		WorldName:        b.session.WorldName,
		StartedAt:        b.session.StartedAt,
		Seed:             b.session.Seed,
		StructureVariant: b.session.StructureVariant,
		FallbackTerrain:  b.session.FallbackTerrain,
		Center:           [2]float64{b.session.CenterLon, b.session.CenterLat},
		Spawned:          b.session.UFOCount,
		Events:           make([]core.CombatEvent, 0, len(b.events)),
		Samples:          make([]core.FrameSample, 0, len(b.frames)),
	}
	export.Events = append(export.Events, b.events...)
	export.Samples = append(export.Samples, b.frames...)

	if r := b.result; r != nil {
		export.EndedAt = r.EndedAt
		export.Outcome = r.Outcome
		export.Score = r.Score
		export.Destroyed = r.Destroyed
		export.Spawned = r.Spawned
		export.StructureHealth = r.StructureHealth
		export.EndFrame = r.Frames
		export.SimTime = r.SimTime
	}
	return export
}

func writeJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
