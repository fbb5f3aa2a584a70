// Package influx writes frame telemetry to InfluxDB, or to a gzipped line
// protocol backup file when InfluxDB is disabled or unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/skywatch/saucerdefense/internal/config"
	"github.com/skywatch/saucerdefense/pkg/core"
)

// FrameMeasurement is the measurement name of frame samples.
const FrameMeasurement = "frame"

// ErrNotConnected is returned when writing before Connect.
var ErrNotConnected = errors.New("influxDB client not initialized and backup writer not available")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg    config.InfluxConfig
	log    zerolog.Logger
	client influxdb2.Client

	mu         sync.Mutex
	writers    map[string]influxdb2_api.WriteAPI
	backupFile *os.File
	backup     *gzip.Writer
	backupPath string
	valid      bool
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		log:     log.With().Str("component", "influx").Logger(),
		writers: make(map[string]influxdb2_api.WriteAPI),
	}
}

// Valid reports whether points go to InfluxDB rather than the backup file.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// BackupPath returns the backup file path, empty when writing to InfluxDB.
func (m *Manager) BackupPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backupPath
}

// Connect establishes a connection to InfluxDB. When InfluxDB is disabled or
// does not answer a ping, points go to a backup file in BackupDir instead.
func (m *Manager) Connect(ctx context.Context) error {
	if m.cfg.Enabled {
		m.client = influxdb2.NewClientWithOptions(
			fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
			m.cfg.Token,
			influxdb2.DefaultOptions().
				SetBatchSize(2500).
				SetFlushInterval(1000),
		)

		running, err := m.client.Ping(ctx)
		if err == nil && running {
			if err := m.setupOrganizationAndBucket(ctx); err != nil {
				return err
			}
			m.createWriter()
			m.mu.Lock()
			m.valid = true
			m.mu.Unlock()
			m.log.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
			return nil
		}
		m.log.Warn().Err(err).Msg("InfluxDB unreachable, writing to backup file")
		m.client.Close()
		m.client = nil
	}

	return m.openBackup()
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup != nil {
		return nil
	}

	if err := os.MkdirAll(m.cfg.BackupDir, 0755); err != nil {
		return fmt.Errorf("error creating backup dir: %w", err)
	}
	path := filepath.Join(m.cfg.BackupDir,
		fmt.Sprintf("influx_%s.lp.gz", time.Now().Format("20060102_150405")))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	m.backupPath = path
	m.log.Info().Str("backupPath", path).Msg("Writing telemetry to backup file")
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.log.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", m.cfg.Org, err)
		}
	}

	// 90 day retention
	if _, err := m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.log.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", m.cfg.Bucket, err)
		}
	}
	return nil
}

func (m *Manager) createWriter() {
	w := m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(bucket string, errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.log.Error().Err(writeErr).Str("bucket", bucket).Msg("Error sending data to InfluxDB")
		}
	}(m.cfg.Bucket, w.Errors())

	m.mu.Lock()
	m.writers[m.cfg.Bucket] = w
	m.mu.Unlock()
}

// FramePoint builds the telemetry point for one frame sample.
func FramePoint(sessionID, world string, f core.FrameSample, at time.Time) *influxdb2_write.Point {
	fps := 0.0
	if f.DT > 0 {
		fps = 1 / f.DT
	}
	return influxdb2_write.NewPoint(
		FrameMeasurement,
		map[string]string{
			"session": sessionID,
			"world":   world,
		},
		map[string]any{
			"frame":            int64(f.Frame),
			"sim_time":         f.SimTime,
			"dt":               f.DT,
			"fps":              fps,
			"speed":            f.Speed,
			"altitude":         f.PlayerPosition.Y,
			"ufos_flying":      f.UFOsFlying,
			"projectiles":      f.Projectiles,
			"structure_health": f.StructureHealth,
			"score":            f.Score,
		},
		at,
	)
}

// WriteFrame writes a frame sample to the configured bucket.
func (m *Manager) WriteFrame(sessionID, world string, f core.FrameSample) error {
	return m.WritePoint(m.cfg.Bucket, FramePoint(sessionID, world, f, time.Now()))
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.backup == nil {
		return ErrNotConnected
	}
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backup.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client or backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.writers {
		w.Flush()
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.valid = false

	if m.backup == nil {
		return nil
	}
	err := errors.Join(m.backup.Close(), m.backupFile.Close())
	m.backup, m.backupFile = nil, nil
	return err
}
