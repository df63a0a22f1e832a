package programmable

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gridbots/programmable/internal/programmable"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// metrics counts adapter activity on the global OTel meter (no-op when
// no provider is configured).
type metrics struct {
	started metric.Int64Counter
	stopped metric.Int64Counter
	records metric.Int64Counter
}

func newMetrics(log *slog.Logger) *metrics {
	m := meter()
	var (
		out metrics
		err error
	)

	out.started, err = m.Int64Counter(
		"programmable.programs.started",
		metric.WithDescription("Programs started"),
	)
	if err != nil {
		log.Warn("Failed to create counter", "name", "programs.started", "error", err)
	}
	out.stopped, err = m.Int64Counter(
		"programmable.programs.stopped",
		metric.WithDescription("Programs stopped or finished"),
	)
	if err != nil {
		log.Warn("Failed to create counter", "name", "programs.stopped", "error", err)
	}
	out.records, err = m.Int64Counter(
		"programmable.trace.records",
		metric.WithDescription("Trace records appended"),
	)
	if err != nil {
		log.Warn("Failed to create counter", "name", "trace.records", "error", err)
	}
	return &out
}

func (m *metrics) programStarted() {
	if m.started != nil {
		m.started.Add(context.Background(), 1)
	}
}

func (m *metrics) programStopped() {
	if m.stopped != nil {
		m.stopped.Add(context.Background(), 1)
	}
}

func (m *metrics) traceRecorded() {
	if m.records != nil {
		m.records.Add(context.Background(), 1)
	}
}
