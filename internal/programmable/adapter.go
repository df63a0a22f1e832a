// Package programmable attaches user programs to a game object.
//
// An Adapter owns the object's programs, tracks which one is running,
// carries the virus flag and the numeric command line, and can record the
// object's movement as a trace that converts back into a program. It is
// driven synchronously from the event loop and does no locking.
package programmable

import (
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/gridbots/programmable/internal/trace"
	"github.com/gridbots/programmable/pkg/core"
)

var (
	// ErrNoProgram is returned when an operation needs a program that is absent.
	ErrNoProgram = errors.New("no such program")
	// ErrRankOutOfRange is returned when a saved stack names a missing program.
	ErrRankOutOfRange = errors.New("program rank out of range")
)

// virusAttempts bounds how many random programs IntroduceVirus tries.
const virusAttempts = 50

// TraceConfig controls movement recording.
type TraceConfig struct {
	MaxRecords int     // capacity of the record buffer
	Unit       float64 // world length of one grid unit in generated programs
	Epsilon    float64 // smallest position or angle change that counts as motion
}

// DefaultTraceConfig returns the recording defaults.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		MaxRecords: 1000,
		Unit:       trace.DefaultUnit,
		Epsilon:    1e-4,
	}
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.log = l
	}
}

// WithTraceConfig overrides the recording settings.
func WithTraceConfig(cfg TraceConfig) Option {
	return func(a *Adapter) {
		a.traceCfg = cfg
	}
}

// WithRand sets the random source used by IntroduceVirus.
func WithRand(r *rand.Rand) Option {
	return func(a *Adapter) {
		a.rng = r
	}
}

// Adapter implements core.Programmable, core.Interactive and core.TraceDrawing
// for a borrowed object.
type Adapter struct {
	object    core.Object
	newScript core.ScriptFactory
	log       *slog.Logger
	rng       *rand.Rand
	metrics   *metrics
	traceCfg  TraceConfig

	activity bool
	cmdLine  []float64

	programs []*core.Program
	current  *core.Program

	activeVirus bool

	scriptRun  *core.Program
	soluceName string

	trace         recorder
	lastRecording *Recording
}

var (
	_ core.Programmable = (*Adapter)(nil)
	_ core.Interactive  = (*Adapter)(nil)
	_ core.TraceDrawing = (*Adapter)(nil)
)

// New creates an adapter for obj. newScript creates the executor of every
// program the adapter adds itself.
func New(obj core.Object, newScript core.ScriptFactory, opts ...Option) *Adapter {
	a := &Adapter{
		object:    obj,
		newScript: newScript,
		traceCfg:  DefaultTraceConfig(),
		activity:  true,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	a.log = a.log.With("object", obj.ID())
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	a.metrics = newMetrics(a.log)
	return a
}

// Object returns the borrowed owner handle.
func (a *Adapter) Object() core.Object {
	return a.object
}

// SetActivity enables or disables frame processing.
func (a *Adapter) SetActivity(active bool) {
	a.activity = active
}

// GetActivity reports whether frames are processed.
func (a *Adapter) GetActivity() bool {
	return a.activity
}

// EventProcess handles one event from the loop. Frames advance the current
// program and the trace recording while the adapter is active.
func (a *Adapter) EventProcess(ev core.Event) bool {
	if ev.Type != core.EventFrame {
		return true
	}

	if d, ok := a.object.(core.Destroyable); ok && d.IsDying() && a.IsProgram() {
		a.log.Debug("Stopping program of dying object")
		a.StopProgram()
	}

	if !a.activity {
		return true
	}

	if a.IsProgram() && a.current.Script.Continue(ev.RTime) {
		a.log.Debug("Program finished", "index", a.GetProgram())
		a.StopProgram()
	}

	if a.trace.active {
		a.traceRecordFrame()
	}
	return true
}

// RunProgram starts p, replacing the current program. It reports whether the
// executor accepted the program.
func (a *Adapter) RunProgram(p *core.Program) bool {
	if p == nil || p.Script == nil {
		return false
	}
	if !p.Script.Run() {
		a.log.Warn("Program failed to start", "index", a.GetProgramIndex(p))
		return false
	}
	if a.current != nil && a.current != p {
		a.current.Script.Stop()
	}
	a.current = p
	a.metrics.programStarted()
	a.log.Info("Program started", "index", a.GetProgramIndex(p))
	a.updateInterface()
	return true
}

// StopProgram stops the current program, if any.
func (a *Adapter) StopProgram() {
	if a.current != nil {
		a.current.Script.Stop()
		a.metrics.programStopped()
		a.log.Info("Program stopped", "index", a.GetProgram())
	}
	a.current = nil
	a.updateInterface()
}

// GetProgram returns the index of the current program or -1.
func (a *Adapter) GetProgram() int {
	if a.current == nil {
		return -1
	}
	return a.GetProgramIndex(a.current)
}

// IsProgram reports whether a program is running.
func (a *Adapter) IsProgram() bool {
	return a.current != nil
}

// IntroduceVirus tries to infect a random program and reports success.
func (a *Adapter) IntroduceVirus() bool {
	if len(a.programs) == 0 {
		return false
	}
	for i := 0; i < virusAttempts; i++ {
		p := a.programs[a.rng.IntN(len(a.programs))]
		if p.Script.IntroduceVirus() {
			a.activeVirus = true
			a.log.Warn("Virus introduced", "index", a.GetProgramIndex(p))
			return true
		}
	}
	return false
}

// SetActiveVirus sets the virus flag.
func (a *Adapter) SetActiveVirus(active bool) {
	a.activeVirus = active
}

// GetActiveVirus reports the virus flag.
func (a *Adapter) GetActiveVirus() bool {
	return a.activeVirus
}

// SetScriptRun sets the program to start when the mission begins.
func (a *Adapter) SetScriptRun(p *core.Program) {
	a.scriptRun = p
}

// GetScriptRun returns the program to start when the mission begins.
func (a *Adapter) GetScriptRun() *core.Program {
	return a.scriptRun
}

// SetSoluceName sets the solution file name.
func (a *Adapter) SetSoluceName(name string) {
	a.soluceName = name
}

// GetSoluceName returns the solution file name.
func (a *Adapter) GetSoluceName() string {
	return a.soluceName
}

func (a *Adapter) updateInterface() {
	if u, ok := a.object.(core.InterfaceUpdater); ok {
		u.UpdateInterface()
	}
}
