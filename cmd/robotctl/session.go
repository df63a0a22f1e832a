package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gridbots/programmable/internal/config"
	"github.com/gridbots/programmable/internal/influx"
	"github.com/gridbots/programmable/internal/logging"
	intOtel "github.com/gridbots/programmable/internal/otel"
	"github.com/gridbots/programmable/internal/storage"
	"github.com/gridbots/programmable/internal/world"
)

const (
	appName        = "robotctl"
	configFileHint = config.FileName
)

// session holds what every command shares: configuration, loggers and the
// world being run, if any.
type session struct {
	configDir string
	logToFile bool

	start   time.Time
	logs    *logging.SlogManager
	log     *slog.Logger
	zlog    zerolog.Logger
	otel    *intOtel.Provider
	logFile *os.File

	world *world.World
}

func (s *session) open(cmd *cobra.Command) error {
	s.start = time.Now()
	s.logs = logging.NewSlogManager()

	var cfgErr error
	if err := config.Load(s.configDir); err != nil {
		// defaults stay in place
		cfgErr = err
	}

	logCfg := logging.Config{
		Level:       config.GetString("logLevel"),
		Console:     cmd.ErrOrStderr(),
		ServiceName: config.GetOTelConfig().ServiceName,
		Context:     s.logAttrs,
	}

	if s.logToFile {
		path := logging.LogFilePath(config.GetString("logsDir"), appName, s.start)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		s.logFile = f
		logCfg.File = f
	}

	otelCfg := config.GetOTelConfig()
	var otelErr error
	if otelCfg.Enabled {
		cfg := intOtel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		}
		if s.logFile != nil {
			cfg.LogWriter = s.logFile
		}
		s.otel, otelErr = intOtel.New(cfg)
		if s.otel != nil {
			logCfg.Provider = s.otel.LoggerProvider()
		}
	}

	var graylogErr error
	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(config.GetString("graylog.address"))
		if err != nil {
			graylogErr = err
		} else {
			logCfg.Graylog = w
		}
	}

	s.logs.Setup(logCfg)
	s.log = s.logs.Logger()
	s.zlog = newZerolog(cmd, config.GetString("logLevel"))

	if cfgErr != nil {
		s.log.Warn("Using default configuration", "dir", s.configDir, "error", cfgErr)
	}
	if otelErr != nil {
		s.log.Warn("OTel provider not initialized", "error", otelErr)
	}
	if graylogErr != nil {
		s.log.Warn("Graylog output not initialized", "error", graylogErr)
	}
	return nil
}

// newZerolog builds the logger of the storage connection managers.
func newZerolog(cmd *cobra.Command, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).With().Timestamp().Logger().Level(lvl)
}

func (s *session) logAttrs() []slog.Attr {
	if s.world == nil {
		return nil
	}
	return s.world.LogAttrs()
}

// wrap closes the session once fn returns, whether or not it failed.
func (s *session) wrap(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, s.close(cmd.Context()))
		}()
		return fn(cmd, args)
	}
}

func (s *session) close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	if s.logs != nil {
		errs = append(errs, s.logs.Close(ctx))
	}
	if s.otel != nil {
		errs = append(errs, s.otel.Shutdown(ctx))
	}
	if s.logFile != nil {
		errs = append(errs, s.logFile.Close())
		s.logFile = nil
	}
	return errors.Join(errs...)
}

// newWorld creates the world of a command from configuration.
func (s *session) newWorld(telemetry world.Telemetry) (*world.World, error) {
	opts := []world.Option{
		world.WithLogger(s.log),
		world.WithScriptConfig(config.GetScriptConfig()),
		world.WithTraceConfig(config.GetTraceConfig()),
		world.WithQueueLimit(config.GetInt("world.queueLimit")),
	}
	if telemetry != nil {
		opts = append(opts, world.WithTelemetry(telemetry))
	}
	w, err := world.New(opts...)
	if err != nil {
		return nil, err
	}
	s.world = w
	return w, nil
}

// openStorage creates and initializes the configured archive backend.
func (s *session) openStorage() (storage.Backend, error) {
	b, err := storage.NewBackend(config.GetStorageConfig(), s.zlog)
	if err != nil {
		return nil, err
	}
	if err := b.Init(); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return b, nil
}

// closeStorage closes b and reports where an exporting backend wrote its
// archive.
func (s *session) closeStorage(b storage.Backend) error {
	if err := b.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	if e, ok := b.(storage.Exporter); ok && e.ExportedFilePath() != "" {
		s.log.Info("Archive exported", "path", e.ExportedFilePath())
	}
	return nil
}

// openTelemetry connects the influx sink. It returns nil when telemetry is
// disabled.
func (s *session) openTelemetry() (*influx.Manager, error) {
	m := influx.NewManager(s.zlog, config.GetInfluxConfig(), s.start)
	if err := m.Connect(); err != nil {
		if errors.Is(err, influx.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
