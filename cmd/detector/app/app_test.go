package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/drone-detector/internal/storage"
)

func TestRun_Simulated(t *testing.T) {
	dir := t.TempDir()

	config := NewConfig()
	config.Source.Type = SourceSimulate
	config.Source.Seed = 42
	config.Source.SimulatorInterval = Duration(5 * time.Millisecond)
	config.Settings.RefreshInterval = Duration(5 * time.Millisecond)
	config.Storage = StorageConfig{Enabled: true, DataDirectory: dir, Mode: StoreAll}
	config.Web.Enabled = false
	require.NoError(t, config.Validate())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, Run(ctx, config, nil))

	matches, err := filepath.Glob(filepath.Join(dir, "detector_session_*.sqlite"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	store := storage.NewSqliteStore(matches[0])
	defer store.Close()

	sessions, err := store.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "simulate", sessions[0].Source)
	require.NotNil(t, sessions[0].Config)
	assert.Contains(t, *sessions[0].Config, "runID")

	frames, err := store.ReadFrames(context.Background(), sessions[0].ID, storage.WithRadio("right"))
	require.NoError(t, err)
	defer frames.Close()

	require.True(t, frames.Next(context.Background()))
	assert.Len(t, frames.Current().Values, 40)
	assert.Len(t, frames.Current().Labels, 40)
}

func TestRun_MissingStorageDirectory(t *testing.T) {
	config := NewConfig()
	config.Source.Type = SourceSimulate
	config.Storage = StorageConfig{Enabled: true, DataDirectory: filepath.Join(t.TempDir(), "missing"), Mode: StoreAll}
	config.Web.Enabled = false

	err := Run(context.Background(), config, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
