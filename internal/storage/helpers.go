package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

// encodeConfig stores strings and byte slices as they are and anything else as JSON
func encodeConfig(config any) (sql.NullString, error) {
	switch c := config.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: c, Valid: true}, nil
	case []byte:
		return sql.NullString{String: string(c), Valid: true}, nil
	default:
		p, err := json.Marshal(config)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("marshaling config: %w", err)
		}
		return sql.NullString{String: string(p), Valid: true}, nil
	}
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*spectrum.Session, error) {
	var (
		sess   spectrum.Session
		config sql.NullString
	)
	if err := row.Scan(&sess.ID, &sess.StartTime, &sess.Source, &config); err != nil {
		return nil, err
	}
	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}

// buildFramesInsert renders a multi-row INSERT for records and its arguments
func buildFramesInsert(records []*spectrum.FrameRecord) (string, []any, error) {
	args := make([]any, 0, len(records)*8)

	var sb strings.Builder
	sb.WriteString(insertFramesSQL)

	for i, record := range records {
		data, err := toFrameData(record)
		if err != nil {
			return "", nil, fmt.Errorf("frame %s/%d: %w", record.Radio, record.Seq, err)
		}

		args = append(args,
			data.SessionID,
			data.Timestamp,
			data.Radio,
			data.Seq,
			data.Threshold,
			data.Detected,
			data.Readings,
			data.Labels,
		)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(framePlaceholder)
	}

	return sb.String(), args, nil
}

// frameData is the row representation of a spectrum.FrameRecord
type frameData struct {
	SessionID int64
	Timestamp time.Time
	Radio     string
	Seq       int64
	Threshold float64
	Detected  bool
	Readings  string
	Labels    string
}

func toFrameData(r *spectrum.FrameRecord) (*frameData, error) {
	readings, err := json.Marshal(r.Values)
	if err != nil {
		return nil, fmt.Errorf("encoding readings: %w", err)
	}

	labels, err := json.Marshal(r.Labels)
	if err != nil {
		return nil, fmt.Errorf("encoding labels: %w", err)
	}

	return &frameData{
		SessionID: r.SessionID,
		Timestamp: r.Timestamp.UTC(),
		Radio:     string(r.Radio),
		Seq:       int64(r.Seq),
		Threshold: r.Threshold,
		Detected:  r.Detected,
		Readings:  string(readings),
		Labels:    string(labels),
	}, nil
}

func decodeFrame(r *spectrum.FrameRecord, readings, labels string) error {
	var values []int
	if err := json.Unmarshal([]byte(readings), &values); err != nil {
		return fmt.Errorf("decoding readings: %w", err)
	}

	var ls []detector.Label
	if err := json.Unmarshal([]byte(labels), &ls); err != nil {
		return fmt.Errorf("decoding labels: %w", err)
	}

	r.Values = values
	r.Labels = ls
	return nil
}
