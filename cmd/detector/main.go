package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/roman-kulish/drone-detector/cmd/detector/app"
)

func main() {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var (
		configPath string
		simulate   bool
		listen     string
		logLevel   string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	pflag.BoolVar(&simulate, "simulate", false, "Use synthetic scanner output instead of the serial port")
	pflag.StringVar(&listen, "listen", "", "Override the live view listen address")
	pflag.StringVar(&logLevel, "log-level", "", "Override the log level [debug, info, warn, error]")
	pflag.Parse()

	config := app.NewConfig()
	if configPath != "" {
		var err error
		if config, err = app.LoadConfig(configPath); err != nil {
			bootstrap.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
			os.Exit(1)
		}
	}

	if simulate {
		config.Source.Type = app.SourceSimulate
	}
	if listen != "" {
		config.Web.Listen = listen
	}
	if logLevel != "" {
		config.Settings.LogLevel = logLevel
	}
	if err := config.Validate(); err != nil {
		bootstrap.Error(err.Error())
		pflag.Usage()
		os.Exit(1)
	}

	logger, err := app.NewLogger(config.Settings, os.Stderr)
	if err != nil {
		bootstrap.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
