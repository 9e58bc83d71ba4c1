package acquisition

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

type recordingObserver struct {
	mu     sync.Mutex
	lines  map[spectrum.Radio]int
	errors map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{lines: map[spectrum.Radio]int{}, errors: map[string]int{}}
}

func (o *recordingObserver) ObserveLine(radio spectrum.Radio) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines[radio]++
}

func (o *recordingObserver) ObserveParseError(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors[reason]++
}

func TestReader_Run(t *testing.T) {
	fb := newTestBuffer(t)
	obs := newRecordingObserver()

	input := strings.Join([]string{
		"I (27) boot: ESP-IDF v5.1",
		"DATA_LEFT:1,2,3,4,5",
		"",
		"garbage without separator",
		"DATA_RIGHT:7,8",
		"DATA_LEFT:9,x,9",
	}, "\n")

	r := NewReader(strings.NewReader(input), fb, WithObserver(obs))
	require.NoError(t, r.Run(context.Background()))

	left, ok := fb.Latest("left")
	require.True(t, ok)
	assert.Equal(t, uint64(2), left.Seq)
	assert.Equal(t, []int{9, 9, 0, 0, 0}, left.Values)

	right, ok := fb.Latest("right")
	require.True(t, ok)
	assert.Equal(t, []int{7, 8, 0}, right.Values)

	assert.Equal(t, 2, obs.lines["left"])
	assert.Equal(t, 1, obs.lines["right"])
	assert.Equal(t, 1, obs.errors["malformed"])
	assert.Equal(t, 1, obs.errors["unknown_label"])
}

func TestReader_ParseErrorsThreshold(t *testing.T) {
	fb := newTestBuffer(t)
	input := "DATA_LEFT:1\nbad\nbad\nDATA_LEFT:2\nbad\nbad\nbad\nDATA_LEFT:3\n"

	r := NewReader(strings.NewReader(input), fb, WithParseErrorsThreshold(3))
	err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrTooManyParseErrors)

	s, _ := fb.Latest("left")
	assert.Equal(t, 2, s.Values[0], "frames after the failure must not be published")
}

func TestReader_Clock(t *testing.T) {
	fb := newTestBuffer(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	r := NewReader(strings.NewReader("DATA_LEFT:1\n"), fb, WithClock(func() time.Time { return ts }))
	require.NoError(t, r.Run(context.Background()))

	s, _ := fb.Latest("left")
	assert.Equal(t, ts, s.Timestamp)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("device unplugged")
}

func TestReader_BrokenPipe(t *testing.T) {
	r := NewReader(failingReader{}, newTestBuffer(t))
	assert.ErrorIs(t, r.Run(context.Background()), ErrBrokenPipe)
}

func TestReader_Cancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	fb := newTestBuffer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- NewReader(pr, fb).Run(ctx)
	}()

	_, err := io.WriteString(pw, "DATA_LEFT:4,4\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := fb.Latest("left")
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	_ = pr.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reader did not stop after cancellation")
	}
}

type silentPort struct {
	reads int
	data  string
}

func (p *silentPort) Read(b []byte) (int, error) {
	p.reads++
	if p.reads < 200 {
		return 0, nil // read timeout
	}
	if p.data == "" {
		return 0, io.EOF
	}
	n := copy(b, p.data)
	p.data = p.data[n:]
	return n, nil
}

func TestTimeoutReader(t *testing.T) {
	fb := newTestBuffer(t)
	port := &silentPort{data: "DATA_LEFT:3,3\n"}

	r := NewReader(NewTimeoutReader(context.Background(), port), fb)
	require.NoError(t, r.Run(context.Background()))

	s, ok := fb.Latest("left")
	require.True(t, ok)
	assert.Equal(t, []int{3, 3, 0, 0, 0}, s.Values)
}

func TestTimeoutReader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := NewTimeoutReader(ctx, &silentPort{}).Read(make([]byte, 8))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}
