package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/roman-kulish/drone-detector/internal/acquisition"
	"github.com/roman-kulish/drone-detector/internal/alert"
	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/metrics"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
	"github.com/roman-kulish/drone-detector/internal/storage"
	"github.com/roman-kulish/drone-detector/internal/web"
)

// ErrSourceClosed is returned when the scanner output ends while the detector is running
var ErrSourceClosed = errors.New("scanner source closed")

// sessionConfig is stored with every session
type sessionConfig struct {
	RunID  string  `json:"runID"`
	Config *Config `json:"config"`
}

// source is a running producer of scanner lines
type source struct {
	name   string
	reader io.Reader
	run    func(ctx context.Context) error // nil for passive sources
	close  func() error
}

// Run starts the detector and blocks until ctx is cancelled or a component fails
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	radios := make([]acquisition.RadioSpec, 0, len(config.Radios))
	views := make([]web.RadioView, 0, len(config.Radios))
	detectors := make(map[spectrum.Radio]*detector.Detector, len(config.Radios))
	trackerOpts := []func(*alert.Tracker){}

	for _, rc := range config.Radios {
		name := spectrum.Radio(rc.Name)

		d, dErr := detector.New(rc.NumChannels, config.Detector)
		if dErr != nil {
			return fmt.Errorf("creating detector for radio %s: %w", rc.Name, dErr)
		}

		detectors[name] = d
		radios = append(radios, acquisition.RadioSpec{Name: name, Label: rc.Label, NumChannels: rc.NumChannels})
		views = append(views, web.RadioView{Name: name, FirstChannel: rc.FirstChannel, NumChannels: rc.NumChannels, Color: rc.Color})
		trackerOpts = append(trackerOpts, alert.WithFirstChannel(name, rc.FirstChannel))
	}
	if config.MQTT.ClearAlerts {
		trackerOpts = append(trackerOpts, alert.WithClearAlerts())
	}

	buffer, err := acquisition.NewFrameBuffer(radios...)
	if err != nil {
		return fmt.Errorf("creating frame buffer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mt := metrics.New(registry)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := openSource(ctx, config, radios, logger)
	if err != nil {
		return err
	}
	defer closeWithError(src.close, &err)

	board := web.NewBoard(views...)
	monitorOpts := []func(*Monitor){
		WithInterval(config.Settings.RefreshInterval.Duration()),
		WithBoard(board),
		WithMetrics(mt),
		WithMonitorLogger(logger),
	}

	if config.Storage.Enabled {
		store, sessionID, sErr := createStorage(ctx, &config.Storage, src.name, config)
		if sErr != nil {
			return fmt.Errorf("failed to create storage: %w", sErr)
		}
		defer closeWithError(store.Close, &err)

		logger.Info("recording session", slog.Int64("session", sessionID), slog.String("mode", string(config.Storage.Mode)))
		monitorOpts = append(monitorOpts, WithStore(store, sessionID, config.Storage.Mode))
	}

	publisher, err := createPublisher(&config.MQTT, logger)
	if err != nil {
		return fmt.Errorf("failed to create alert publisher: %w", err)
	}
	defer closeWithError(publisher.Close, &err)
	monitorOpts = append(monitorOpts, WithAlerts(alert.NewTracker(trackerOpts...), publisher))

	monitor, err := NewMonitor(buffer, detectors, monitorOpts...)
	if err != nil {
		return fmt.Errorf("creating monitor: %w", err)
	}

	reader := acquisition.NewReader(src.reader, buffer,
		acquisition.WithLogger(logger),
		acquisition.WithObserver(mt),
		acquisition.WithParseErrorsThreshold(config.Source.ParseErrorsThreshold),
	)

	tasks := map[string]func(context.Context) error{
		"monitor": monitor.Run,
		"reader": func(ctx context.Context) error {
			if rErr := reader.Run(ctx); rErr != nil {
				return rErr
			}
			if ctx.Err() == nil {
				return ErrSourceClosed
			}
			return nil
		},
	}
	if src.run != nil {
		tasks["source"] = src.run
	}
	if config.Web.Enabled {
		server := web.NewServer(board,
			web.WithLogger(logger),
			web.WithMetricsHandler(mt.Handler()),
			web.WithRefreshInterval(config.Web.RefreshInterval.Duration()),
			web.WithYAxisMax(config.Web.YAxisMax),
		)
		tasks["web"] = func(ctx context.Context) error {
			return server.ListenAndServe(ctx, config.Web.Listen)
		}
	}

	return runTasks(ctx, cancel, tasks)
}

// runTasks runs every task until all have returned. The first task to return
// cancels the others.
func runTasks(ctx context.Context, cancel context.CancelFunc, tasks map[string]func(context.Context) error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for name, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()

			if err := task(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return errors.Join(errs...)
}

func openSource(ctx context.Context, config *Config, radios []acquisition.RadioSpec, logger *slog.Logger) (*source, error) {
	switch config.Source.Type {
	case SourceSerial:
		port, err := acquisition.OpenPort(config.Source.Port, config.Source.PortOptions())
		if err != nil {
			return nil, fmt.Errorf("opening scanner: %w", err)
		}

		logger.Info("reading scanner", slog.String("port", config.Source.Port), slog.Int("baudRate", config.Source.BaudRate))
		return &source{
			name:   config.Source.Port,
			reader: acquisition.NewTimeoutReader(ctx, port),
			close:  port.Close,
		}, nil

	case SourceSimulate:
		opts := []func(*acquisition.Simulator){
			acquisition.WithSimulatorInterval(config.Source.SimulatorInterval.Duration()),
			acquisition.WithSimulatorLogger(logger),
		}
		if config.Source.Seed != 0 {
			opts = append(opts, acquisition.WithSeed(config.Source.Seed))
		}
		sim := acquisition.NewSimulator(radios, opts...)

		pr, pw := io.Pipe()
		return &source{
			name:   string(SourceSimulate),
			reader: pr,
			run: func(ctx context.Context) error {
				err := sim.Run(ctx, pw)
				_ = pw.CloseWithError(err)
				return err
			},
			close: pr.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown source type '%s'", config.Source.Type)
	}
}

func createStorage(ctx context.Context, config *StorageConfig, sourceName string, appConfig *Config) (*storage.SqliteStore, int64, error) {
	dir := config.DataDirectory
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
		}
		return nil, 0, fmt.Errorf("checking storage directory: %w", err)
	}
	if !stat.IsDir() {
		return nil, 0, fmt.Errorf("invalid storage directory '%s'", dir)
	}

	dbPath := filepath.Join(dir, fmt.Sprintf("detector_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	store := storage.NewSqliteStore(dbPath)

	sessionID, err := store.CreateSession(ctx, sourceName, sessionConfig{RunID: uuid.NewString(), Config: appConfig})
	if err != nil {
		_ = store.Close()
		return nil, 0, fmt.Errorf("creating session: %w", err)
	}

	return store, sessionID, nil
}

func createPublisher(config *MQTTConfig, logger *slog.Logger) (alert.Publisher, error) {
	if !config.Enabled {
		return alert.NewLogPublisher(logger), nil
	}
	return alert.NewMQTTPublisher(config.MQTTConfig, alert.WithMQTTLogger(logger))
}

func closeWithError(fn func() error, err *error) {
	if cErr := fn(); cErr != nil && *err == nil {
		*err = cErr
	}
}
