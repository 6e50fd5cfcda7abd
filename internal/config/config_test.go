package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1, cfg.NumSnapshots)
	assert.Equal(t, "snapshot_results.csv", cfg.Output)
	assert.Equal(t, 10, cfg.SizeGB)
	assert.Equal(t, "ami_results.csv", cfg.AMICSV)
	assert.Equal(t, 10*time.Minute, cfg.WaitTimeout)
	assert.Equal(t, 5*time.Second, cfg.MetadataTimeout)
	assert.True(t, cfg.FastRestore)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiler.yaml")
	err := os.WriteFile(path, []byte(`
numSnapshots: 3
sizeGB: 2
waitTimeout: 30m
fastRestore: false
copyRegion: auto
`), 0o644)
	require.NoError(t, err)

	cfg := Default()
	require.NoError(t, LoadFile(path, &cfg))

	assert.Equal(t, 3, cfg.NumSnapshots)
	assert.Equal(t, 2, cfg.SizeGB)
	assert.Equal(t, 30*time.Minute, cfg.WaitTimeout)
	assert.False(t, cfg.FastRestore)
	assert.Equal(t, "auto", cfg.CopyRegion)
	// untouched keys keep defaults
	assert.Equal(t, "snapshot_results.csv", cfg.Output)
	assert.Equal(t, DefaultIMDSEndpoint, cfg.IMDSEndpoint)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()
	err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("numSnapshots: [1"), 0o644))
	err = LoadFile(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.NumSnapshots = 0
	cfg.SizeGB = -1
	cfg.Output = " "
	cfg.WaitTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num-snapshots must be at least 1")
	assert.Contains(t, err.Error(), "size must be at least 1 GB")
	assert.Contains(t, err.Error(), "output CSV path must not be empty")
	assert.Contains(t, err.Error(), "wait-timeout must be positive")
}
