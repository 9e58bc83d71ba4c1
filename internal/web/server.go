package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	DefaultListenAddress   = ":8080"
	DefaultRefreshInterval = 500 * time.Millisecond
	shutdownTimeout        = 5 * time.Second
)

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Drone Detector</title>
  <style>
    body { margin: 0; background: #100c2a; }
    iframe { border: 0; width: 100%%; height: 100vh; }
  </style>
</head>
<body>
  <iframe id="chart" src="/chart"></iframe>
  <script>
    const frame = document.getElementById("chart");
    setInterval(() => frame.contentWindow.location.reload(), %d);
  </script>
</body>
</html>
`

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) func(*Server) {
	return func(s *Server) {
		s.logger = logger.With(slog.String("component", "web"))
	}
}

// WithMetricsHandler exposes h under /metrics
func WithMetricsHandler(h http.Handler) func(*Server) {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithRefreshInterval sets how often the browser reloads the charts
func WithRefreshInterval(d time.Duration) func(*Server) {
	return func(s *Server) {
		s.refresh = d
	}
}

// WithYAxisMax sets the fixed upper limit of the magnitude axis
func WithYAxisMax(v int) func(*Server) {
	return func(s *Server) {
		s.yMax = v
	}
}

// Server is the HTTP front-end of a Board
type Server struct {
	board   *Board
	metrics http.Handler
	refresh time.Duration
	yMax    int
	logger  *slog.Logger
}

// NewServer creates a server presenting board
func NewServer(board *Board, options ...func(*Server)) *Server {
	s := Server{
		board:   board,
		refresh: DefaultRefreshInterval,
		yMax:    DefaultYAxisMax,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /chart", s.handleChart)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving live view", slog.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, indexHTML, s.refresh.Milliseconds())
}

func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := renderPage(&buf, s.board.Status(), s.yMax); err != nil {
		s.logger.Error("rendering chart", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.board.Status()); err != nil {
		s.logger.Error("encoding status", slog.Any("error", err))
	}
}
