package postgres

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/saucerdefense/internal/config"
)

func TestInit_Unreachable(t *testing.T) {
	b := New(config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "saucerdefense",
	}, time.Second, zerolog.Nop())

	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to postgres")
	assert.NoError(t, b.Close())
}

func TestClose_BeforeInit(t *testing.T) {
	b := New(config.DatabaseConfig{}, 0, zerolog.Nop())
	assert.NoError(t, b.Close())
}
