package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

// ErrStoreClosed is returned when a closed store is used
var ErrStoreClosed = errors.New("store is closed")

const (
	writeParams = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	readParams  = "mode=ro&_busy_timeout=5000"
)

// lazyDB opens a connection pool on first use and remembers the outcome
type lazyDB struct {
	once sync.Once
	db   *sql.DB
	err  error
}

func (l *lazyDB) get(open func() (*sql.DB, error)) (*sql.DB, error) {
	l.once.Do(func() {
		l.db, l.err = open()
	})
	if l.err == nil && l.db == nil {
		return nil, ErrStoreClosed
	}
	return l.db, l.err
}

// seal stops a later get from opening the pool
func (l *lazyDB) seal() {
	l.once.Do(func() {})
}

func (l *lazyDB) close() error {
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// SqliteStore keeps sessions and classified frames in a Sqlite database.
// Writes go through a single WAL connection, reads through a read-only pool.
type SqliteStore struct {
	dbPath string

	write lazyDB
	read  lazyDB

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a new store backed by the Sqlite database at dbPath.
// Connections are opened lazily and the schema is initialized on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) dsn(params string) string {
	return fmt.Sprintf("file:%s?%s", s.dbPath, params)
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	return s.write.get(func() (*sql.DB, error) {
		db, err := sql.Open("sqlite3", s.dsn(writeParams))
		if err != nil {
			return nil, fmt.Errorf("opening write connection: %w", err)
		}
		db.SetMaxOpenConns(1)

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
		return db, nil
	})
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	return s.read.get(func() (*sql.DB, error) {
		db, err := sql.Open("sqlite3", s.dsn(readParams))
		if err != nil {
			return nil, fmt.Errorf("opening read connection: %w", err)
		}
		return db, nil
	})
}

// CreateSession records the start of a monitoring run. The start time is the
// current time in UTC.
func (s *SqliteStore) CreateSession(ctx context.Context, source string, config any) (int64, error) {
	configData, err := encodeConfig(config)
	if err != nil {
		return 0, err
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	result, err := db.ExecContext(ctx, insertSessionSQL, time.Now().UTC(), source, configData)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	sessionID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting session ID: %w", err)
	}
	return sessionID, nil
}

// Session returns the session with the given id, or ErrNoData.
func (s *SqliteStore) Session(ctx context.Context, id int64) (*spectrum.Session, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return loadSession(ctx, db, id)
}

func loadSession(ctx context.Context, db *sql.DB, id int64) (*spectrum.Session, error) {
	sess, err := scanSession(db.QueryRowContext(ctx, selectSessionSQL, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("session %d: %w", id, ErrNoData)
	case err != nil:
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return sess, nil
}

// Sessions returns every recorded session, oldest first.
func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*spectrum.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		sess, sErr := scanSession(rows)
		if sErr != nil {
			return nil, fmt.Errorf("scanning session: %w", sErr)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// ReadFrames creates a new FrameReader over the frames stored for a session,
// in timestamp order. Filters are applied with WithRadio, WithStartTime,
// WithEndTime, WithTimeRange and WithDetectedOnly.
//
// The returned reader must be closed after use to release database resources.
// Returns ErrNoData when no frame matches.
func (s *SqliteStore) ReadFrames(ctx context.Context, sessionID int64, opts ...ReaderOption) (*SqliteFrameReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteFrameReader(ctx, db, sessionID, opts...)
}

func (s *SqliteStore) StoreFrame(ctx context.Context, record *spectrum.FrameRecord) error {
	return s.StoreFrames(ctx, []*spectrum.FrameRecord{record})
}

// StoreFrames inserts the records with a single multi-row statement inside a
// transaction, so either all of them are stored or none.
func (s *SqliteStore) StoreFrames(ctx context.Context, records []*spectrum.FrameRecord) (err error) {
	if len(records) == 0 {
		return nil
	}

	query, args, err := buildFramesInsert(records)
	if err != nil {
		return err
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("batch inserting %d frames: %w", len(records), err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close builds the query indexes if anything was written and releases both
// connection pools. Any later use of the store returns ErrStoreClosed and
// subsequent calls to Close return the first result.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		s.write.seal()
		s.read.seal()
		if s.write.db != nil {
			_ = runSQLCommand(s.write.db, initIndexesSQL)
		}
		s.closeErr = errors.Join(s.write.close(), s.read.close())
	})
	return s.closeErr
}
