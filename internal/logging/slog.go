package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Config selects the outputs of a SlogManager.
type Config struct {
	Level string
	// Console receives text logs when File is nil. Defaults to os.Stderr.
	Console io.Writer
	// File receives text logs instead of the console.
	File io.Writer
	// Provider enables the OTel bridge.
	Provider *sdklog.LoggerProvider
	// Graylog receives one GELF message per record.
	Graylog io.Writer
	// Context adds dynamic attributes to every record.
	Context ContextProvider
	// ServiceName names the OTel instrumentation scope.
	ServiceName string
}

// SlogManager manages slog-based logging with optional OTel and Graylog
// outputs.
type SlogManager struct {
	logger *slog.Logger

	logProvider *sdklog.LoggerProvider
	closers     []io.Closer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the logger from cfg, replacing any previous one.
func (m *SlogManager) Setup(cfg Config) {
	lvl := parseLevel(cfg.Level)
	m.logProvider = cfg.Provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if cfg.File != nil {
		handlers = append(handlers, slog.NewTextHandler(cfg.File, handlerOpts))
	} else {
		console := cfg.Console
		if console == nil {
			console = os.Stderr
		}
		handlers = append(handlers, slog.NewTextHandler(console, handlerOpts))
	}

	if cfg.Graylog != nil {
		handlers = append(handlers, NewGELFHandler(cfg.Graylog, lvl))
		if c, ok := cfg.Graylog.(io.Closer); ok {
			m.closers = append(m.closers, c)
		}
	}

	if cfg.Provider != nil {
		name := cfg.ServiceName
		if name == "" {
			name = "robotctl"
		}
		handlers = append(handlers, otelslog.NewHandler(name, otelslog.WithLoggerProvider(cfg.Provider)))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if cfg.Context != nil {
		handler = NewContextHandler(handler, cfg.Context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", lvl.String())
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Close flushes pending logs and closes the Graylog writer.
func (m *SlogManager) Close(ctx context.Context) error {
	errs := []error{m.Flush(ctx)}
	for _, c := range m.closers {
		errs = append(errs, c.Close())
	}
	m.closers = nil
	return errors.Join(errs...)
}
