package storage

import (
	"context"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

// Store provides an interface for persisting monitoring sessions and the
// classified frames captured during them. Implementations must be safe for
// use by a single writer and any number of readers.
type Store interface {
	// CreateSession initializes a new monitoring session and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - source: Acquisition source, e.g. serial port path or "simulate"
	//   - config: Optional run configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - sessionID: Unique identifier for the created session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, source string, config any) (sessionID int64, err error)

	// Session retrieves a specific monitoring session by its ID.
	Session(ctx context.Context, id int64) (session *spectrum.Session, err error)

	// Sessions returns all monitoring sessions ordered by start time.
	Sessions(ctx context.Context) (sessions []*spectrum.Session, err error)

	// StoreFrame saves one classified frame.
	StoreFrame(ctx context.Context, record *spectrum.FrameRecord) error

	// StoreFrames saves a batch of classified frames in a single atomic transaction.
	StoreFrames(ctx context.Context, records []*spectrum.FrameRecord) error

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}

var _ Store = (*SqliteStore)(nil)
