package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

const (
	q = detector.Quiet
	c = detector.Candidate
	w = detector.Interference
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()

	s := NewSqliteStore(filepath.Join(t.TempDir(), "detector.db"))
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func testRecord(sessionID int64, radio spectrum.Radio, seq uint64, ts time.Time, detected bool) *spectrum.FrameRecord {
	labels := []detector.Label{q, q, w, q}
	if detected {
		labels = []detector.Label{q, c, w, q}
	}
	return &spectrum.FrameRecord{
		SessionID: sessionID,
		Radio:     radio,
		Seq:       seq,
		Timestamp: ts,
		Values:    []int{1, int(seq), 9, 0},
		Threshold: 6.5,
		Labels:    labels,
		Detected:  detected,
	}
}

func TestSqliteStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.CreateSession(ctx, "/dev/ttyUSB0", map[string]any{"sensitivity": 4})
	require.NoError(t, err)
	second, err := s.CreateSession(ctx, "simulate", nil)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	sess, err := s.Session(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", sess.Source)
	require.NotNil(t, sess.Config)
	assert.JSONEq(t, `{"sensitivity":4}`, *sess.Config)
	assert.WithinDuration(t, time.Now(), sess.StartTime, time.Minute)

	sess, err = s.Session(ctx, second)
	require.NoError(t, err)
	assert.Nil(t, sess.Config)

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first, sessions[0].ID)
	assert.Equal(t, second, sessions[1].ID)

	_, err = s.Session(ctx, 42)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSqliteStore_StoreAndReadFrames(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sessionID, err := s.CreateSession(ctx, "simulate", `{"radios":2}`)
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var records []*spectrum.FrameRecord
	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i) * 100 * time.Millisecond)
		records = append(records, testRecord(sessionID, "left", uint64(i+1), ts, i%3 == 0))
		records = append(records, testRecord(sessionID, "right", uint64(i+1), ts.Add(time.Millisecond), false))
	}
	require.NoError(t, s.StoreFrames(ctx, records[:len(records)-1]))
	require.NoError(t, s.StoreFrame(ctx, records[len(records)-1]))

	testCases := []struct {
		name     string
		opts     []ReaderOption
		expected int
	}{
		{"all frames", nil, 20},
		{"one radio", []ReaderOption{WithRadio("left")}, 10},
		{"detected only", []ReaderOption{WithDetectedOnly()}, 4},
		{"time range", []ReaderOption{WithTimeRange(base.Add(200*time.Millisecond), base.Add(400*time.Millisecond))}, 5},
		{"start time", []ReaderOption{WithRadio("right"), WithStartTime(base.Add(850 * time.Millisecond))}, 1},
		{"end time", []ReaderOption{WithRadio("left"), WithEndTime(base)}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := s.ReadFrames(ctx, sessionID, tc.opts...)
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, tc.expected, r.Len())
			assert.Equal(t, sessionID, r.Session().ID)

			var n int
			var last time.Time
			for r.Next(ctx) {
				f := r.Current()
				assert.False(t, f.Timestamp.Before(last), "frames must be in timestamp order")
				last = f.Timestamp
				n++
			}
			require.NoError(t, r.Error())
			assert.Equal(t, tc.expected, n)
		})
	}

	r, err := s.ReadFrames(ctx, sessionID, WithRadio("left"))
	require.NoError(t, err)
	defer r.Close()

	require.True(t, r.Next(ctx))
	got := r.Current()
	want := records[0]
	assert.Equal(t, want.Radio, got.Radio)
	assert.Equal(t, want.Seq, got.Seq)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, want.Values, got.Values)
	assert.Equal(t, want.Labels, got.Labels)
	assert.Equal(t, want.Threshold, got.Threshold)
	assert.True(t, got.Detected)
}

func TestSqliteStore_ReadFramesErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sessionID, err := s.CreateSession(ctx, "simulate", nil)
	require.NoError(t, err)

	_, err = s.ReadFrames(ctx, sessionID)
	assert.ErrorIs(t, err, ErrNoData)

	require.NoError(t, s.StoreFrame(ctx, testRecord(sessionID, "left", 1, time.Now(), false)))

	_, err = s.ReadFrames(ctx, sessionID, WithDetectedOnly())
	assert.ErrorIs(t, err, ErrNoData)

	_, err = s.ReadFrames(ctx, sessionID+1)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = s.ReadFrames(ctx, 0)
	assert.Error(t, err)

	now := time.Now()
	_, err = s.ReadFrames(ctx, sessionID, WithTimeRange(now, now.Add(-time.Second)))
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	r, err := s.ReadFrames(ctx, sessionID)
	require.NoError(t, err)
	defer r.Close()
	cancel()
	assert.False(t, r.Next(cancelled))
	assert.ErrorIs(t, r.Error(), context.Canceled)
}

func TestSqliteStore_Close(t *testing.T) {
	s := NewSqliteStore(filepath.Join(t.TempDir(), "detector.db"))

	_, err := s.CreateSession(context.Background(), "simulate", nil)
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	_, err = s.CreateSession(context.Background(), "simulate", nil)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestSqliteStore_CloseBeforeRead(t *testing.T) {
	ctx := context.Background()
	s := NewSqliteStore(filepath.Join(t.TempDir(), "detector.db"))

	sessionID, err := s.CreateSession(ctx, "simulate", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Sessions(ctx)
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.Session(ctx, sessionID)
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.ReadFrames(ctx, sessionID)
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.Nil(t, s.read.db)
}

func TestEncodeConfig(t *testing.T) {
	tests := []struct {
		name   string
		config any
		want   sql.NullString
	}{
		{"nil", nil, sql.NullString{}},
		{"string", `{"a":1}`, sql.NullString{String: `{"a":1}`, Valid: true}},
		{"bytes", []byte("raw"), sql.NullString{String: "raw", Valid: true}},
		{"struct", struct {
			Name string `json:"name"`
		}{"left"}, sql.NullString{String: `{"name":"left"}`, Valid: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeConfig(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := encodeConfig(func() {})
	assert.Error(t, err)
}
