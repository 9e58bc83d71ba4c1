package app

import (
	"context"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
	"github.com/roman-kulish/drone-detector/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedStore writes a session with four frames per radio, the last two of
// the right radio carrying a candidate
func seedStore(t *testing.T) (string, int64) {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "session.sqlite")
	store := storage.NewSqliteStore(dbPath)

	sessionConfig := map[string]any{
		"runID": "test",
		"config": map[string]any{
			"radios": []map[string]any{
				{"name": "left", "firstChannel": 0},
				{"name": "right", "firstChannel": 40},
			},
		},
	}
	sessionID, err := store.CreateSession(ctx, "simulate", sessionConfig)
	require.NoError(t, err)

	var records []*spectrum.FrameRecord
	for seq := 1; seq <= 4; seq++ {
		labels := []detector.Label{q, q, q, q, q}
		if seq > 2 {
			labels = []detector.Label{q, q, c, q, q}
		}
		left := frame("left", seq, []int{1, 1, 2, 1, 1}, []detector.Label{q, q, q, q, q})
		right := frame("right", seq, []int{1, 1, 12, 1, 1}, labels)
		left.SessionID, right.SessionID = sessionID, sessionID
		records = append(records, left, right)
	}
	require.NoError(t, store.StoreFrames(ctx, records))
	require.NoError(t, store.Close())

	return dbPath, sessionID
}

func TestRun(t *testing.T) {
	dbPath, sessionID := seedStore(t)

	config := NewConfig()
	config.DBPath = dbPath
	config.SessionID = sessionID
	config.Radio = "right"
	config.OutputFile = filepath.Join(t.TempDir(), "waterfall.png")

	require.NoError(t, Run(context.Background(), config, discardLogger()))

	f, err := os.Open(config.OutputFile)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, defaultLeftBorder+5*defaultCellWidth+defaultRightBorder, img.Bounds().Dx())
	assert.Equal(t, defaultTopBorder+4*defaultCellHeight+defaultBottomBorder, img.Bounds().Dy())
}

func TestReadWaterfall(t *testing.T) {
	dbPath, sessionID := seedStore(t)
	store := storage.NewSqliteStore(dbPath)
	t.Cleanup(func() { _ = store.Close() })

	config := NewConfig()
	config.SessionID = sessionID
	config.Radio = "right"

	w, err := readWaterfall(context.Background(), store, config, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 4, w.Len())
	assert.Equal(t, 40, w.FirstChannel, "taken from the session configuration")
	assert.Equal(t, 2, w.Detections())

	config.DetectedOnly = true
	override := 7
	config.FirstChannel = &override

	w, err = readWaterfall(context.Background(), store, config, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, 7, w.FirstChannel)

	config.DetectedOnly = true
	config.Radio = "left"
	_, err = readWaterfall(context.Background(), store, config, discardLogger())
	assert.ErrorIs(t, err, storage.ErrNoData)
}

func TestRun_MissingDatabase(t *testing.T) {
	config := NewConfig()
	config.DBPath = filepath.Join(t.TempDir(), "missing.sqlite")
	config.OutputFile = filepath.Join(t.TempDir(), "waterfall.png")

	err := Run(context.Background(), config, discardLogger())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSessionFirstChannel(t *testing.T) {
	cfg := `{"runID":"x","config":{"radios":[{"name":"left","firstChannel":0},{"name":"right","firstChannel":40}]}}`
	bad := `{`

	ch, ok := sessionFirstChannel(&spectrum.Session{Config: &cfg}, "right")
	assert.True(t, ok)
	assert.Equal(t, 40, ch)

	_, ok = sessionFirstChannel(&spectrum.Session{Config: &cfg}, "center")
	assert.False(t, ok)
	_, ok = sessionFirstChannel(&spectrum.Session{Config: &bad}, "right")
	assert.False(t, ok)
	_, ok = sessionFirstChannel(&spectrum.Session{}, "right")
	assert.False(t, ok)
	_, ok = sessionFirstChannel(nil, "right")
	assert.False(t, ok)
}
