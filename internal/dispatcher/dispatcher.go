package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gridbots/programmable/pkg/core"
)

// HandlerFunc processes one event.
type HandlerFunc func(core.Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to the handler registered for their type.
// Handlers run synchronously on the caller's goroutine.
type Dispatcher struct {
	handlers map[core.EventType]HandlerFunc
	logger   Logger

	processed metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[core.EventType]HandlerFunc),
		logger:   logger,
	}

	m := meter()

	var err error

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	d.duration, err = m.Float64Histogram(
		"dispatcher.handler.duration",
		metric.WithDescription("Handler run time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return d, nil
}

// Register sets the handler for an event type, replacing any previous one.
func (d *Dispatcher) Register(t core.EventType, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := d.withMetrics(t, h)

	if cfg.logged {
		handler = d.withLogging(t, handler)
	}

	d.handlers[t] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e core.Event) error {
	h, ok := d.handlers[e.Type]
	if !ok {
		return fmt.Errorf("no handler for event %s", e.Type)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the event type.
func (d *Dispatcher) HasHandler(t core.EventType) bool {
	_, ok := d.handlers[t]
	return ok
}

func (d *Dispatcher) withMetrics(t core.EventType, h HandlerFunc) HandlerFunc {
	attrs := metric.WithAttributes(attribute.String("event", t.String()))
	return func(e core.Event) error {
		start := time.Now()
		err := h(e)
		ctx := context.Background()
		d.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		d.processed.Add(ctx, 1, attrs)
		if err != nil {
			d.failed.Add(ctx, 1, attrs)
		}
		return err
	}
}

func (d *Dispatcher) withLogging(t core.EventType, h HandlerFunc) HandlerFunc {
	return func(e core.Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "event", t.String(), "object", e.ObjectID)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "event", t.String(), "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "event", t.String(), "duration", time.Since(start))
		}

		return err
	}
}
