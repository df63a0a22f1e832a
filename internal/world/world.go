// Package world owns the robots of a running level and drives their
// adapters from a single event loop.
package world

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gridbots/programmable/internal/dispatcher"
	"github.com/gridbots/programmable/internal/programmable"
	"github.com/gridbots/programmable/internal/queue"
	"github.com/gridbots/programmable/internal/robot"
	"github.com/gridbots/programmable/internal/script"
	"github.com/gridbots/programmable/pkg/core"
)

// Sample is one object's state at the end of a frame.
type Sample struct {
	Frame        int64
	Time         float64
	ObjectID     int
	Name         string
	Position     core.Vector
	Heading      float64
	PenDown      bool
	Program      int
	Recording    bool
	TraceRecords int
}

// Telemetry receives one sample per object per frame.
type Telemetry interface {
	Record(Sample)
}

// Entry pairs a robot with its adapter.
type Entry struct {
	Robot   *robot.Robot
	Adapter *programmable.Adapter
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *World) {
		w.log = l
	}
}

// WithTelemetry sets the sample sink.
func WithTelemetry(t Telemetry) Option {
	return func(w *World) {
		w.telemetry = t
	}
}

// WithScriptConfig sets the executor constants of robots added later.
func WithScriptConfig(cfg script.Config) Option {
	return func(w *World) {
		w.scriptCfg = cfg
	}
}

// WithTraceConfig sets the recording settings of adapters added later.
func WithTraceConfig(cfg programmable.TraceConfig) Option {
	return func(w *World) {
		w.traceCfg = cfg
	}
}

// WithQueueLimit bounds the number of pending events.
func WithQueueLimit(n int) Option {
	return func(w *World) {
		w.queueLimit = n
	}
}

// World is the registry of objects and the event loop feeding them.
type World struct {
	mu      sync.RWMutex
	entries map[int]*Entry
	order   []int

	events     *queue.Queue[core.Event]
	dispatcher *dispatcher.Dispatcher

	log        *slog.Logger
	telemetry  Telemetry
	scriptCfg  script.Config
	traceCfg   programmable.TraceConfig
	queueLimit int

	frame atomic.Int64
	clock float64
}

// New creates an empty world.
func New(opts ...Option) (*World, error) {
	w := &World{
		entries:    make(map[int]*Entry),
		scriptCfg:  script.DefaultConfig(),
		traceCfg:   programmable.DefaultTraceConfig(),
		queueLimit: 4096,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	w.events = queue.New[core.Event](w.queueLimit)

	d, err := dispatcher.New(w.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	d.Register(core.EventFrame, w.handleFrame)
	d.Register(core.EventObjectUpdate, w.handleObjectUpdate)
	d.Register(core.EventNull, func(core.Event) error { return nil })
	w.dispatcher = d
	return w, nil
}

// Add registers r and creates its adapter. Adding an ID twice is an error.
func (w *World) Add(r *robot.Robot) (*programmable.Adapter, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.entries[r.ID()]; ok {
		return nil, fmt.Errorf("object %d already exists", r.ID())
	}
	a := programmable.New(r, script.Factory(r, w.scriptCfg),
		programmable.WithLogger(w.log),
		programmable.WithTraceConfig(w.traceCfg),
	)
	w.entries[r.ID()] = &Entry{Robot: r, Adapter: a}
	w.order = append(w.order, r.ID())
	w.log.Debug("Object added", "object", r.ID(), "name", r.Name())
	return a, nil
}

// Remove stops the object's program and forgets it.
func (w *World) Remove(id int) {
	w.mu.Lock()
	e, ok := w.entries[id]
	if ok {
		delete(w.entries, id)
		w.order = slices.DeleteFunc(w.order, func(v int) bool { return v == id })
	}
	w.mu.Unlock()

	if ok {
		e.Adapter.StopProgram()
	}
}

// Get returns the entry for id.
func (w *World) Get(id int) (*Entry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entries[id]
	return e, ok
}

// IDs returns the object IDs in insertion order.
func (w *World) IDs() []int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.order)
}

// Len returns the number of objects.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.order)
}

// Frame returns the number of frames stepped so far.
func (w *World) Frame() int64 {
	return w.frame.Load()
}

// Clock returns the simulated seconds elapsed.
func (w *World) Clock() float64 {
	return w.clock
}

// LogAttrs reports the current frame for log records.
func (w *World) LogAttrs() []slog.Attr {
	return []slog.Attr{slog.Int64("frame", w.Frame())}
}

// Post queues an event for the next Step. It reports false when the queue is
// full.
func (w *World) Post(ev core.Event) bool {
	if w.events.Push(ev) == 0 {
		w.log.Warn("Event queue full, dropping event", "event", ev.Type.String())
		return false
	}
	return true
}

// Start runs the mission-start program of every object not already
// running one.
func (w *World) Start() {
	for _, e := range w.snapshot() {
		if e.Adapter.IsProgram() {
			continue
		}
		if p := e.Adapter.GetScriptRun(); p != nil {
			if !e.Adapter.RunProgram(p) {
				w.log.Warn("Start program did not run", "object", e.Robot.ID(), "index", e.Adapter.GetProgramIndex(p))
			}
		}
	}
}

// Step posts a frame of dt seconds and dispatches every queued event,
// including those posted by handlers. Handler errors are joined.
func (w *World) Step(dt float64) error {
	w.Post(core.NewFrameEvent(dt))

	var errs []error
	for {
		ev, ok := w.events.Pop()
		if !ok {
			break
		}
		if err := w.dispatcher.Dispatch(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run steps n frames and stops early when no program is running.
func (w *World) Run(n int, dt float64) (int, error) {
	for i := 0; i < n; i++ {
		if err := w.Step(dt); err != nil {
			return i + 1, err
		}
		if !w.Busy() {
			return i + 1, nil
		}
	}
	return n, nil
}

// Busy reports whether any object runs a program.
func (w *World) Busy() bool {
	for _, e := range w.snapshot() {
		if e.Adapter.IsProgram() {
			return true
		}
	}
	return false
}

func (w *World) snapshot() []*Entry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Entry, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.entries[id])
	}
	return out
}

func (w *World) handleFrame(ev core.Event) error {
	w.frame.Add(1)
	w.clock += ev.RTime

	for _, e := range w.snapshot() {
		if ev.ObjectID != 0 && ev.ObjectID != e.Robot.ID() {
			continue
		}
		e.Adapter.EventProcess(ev)
		w.Post(core.Event{Type: core.EventObjectUpdate, RTime: ev.RTime, ObjectID: e.Robot.ID()})
	}
	return nil
}

func (w *World) handleObjectUpdate(ev core.Event) error {
	if w.telemetry == nil {
		return nil
	}
	e, ok := w.Get(ev.ObjectID)
	if !ok {
		return fmt.Errorf("object %d not found", ev.ObjectID)
	}
	w.telemetry.Record(Sample{
		Frame:        w.Frame(),
		Time:         w.clock,
		ObjectID:     e.Robot.ID(),
		Name:         e.Robot.Name(),
		Position:     e.Robot.Position(),
		Heading:      e.Robot.RotationY(),
		PenDown:      e.Robot.TraceDown(),
		Program:      e.Adapter.GetProgram(),
		Recording:    e.Adapter.IsTraceRecord(),
		TraceRecords: len(e.Adapter.TraceRecords()),
	})
	return nil
}
