// Package script is the reference executor for the robot drawing dialect.
//
// A source declares one program and a list of instructions:
//
//	extern void object::Square()
//	{
//		pendown(Red);
//		move(cmdline(0));
//		turn(90);
//		penup();
//	}
//
// Motion is spread across frames at the configured speeds and applied to a
// Body, so a running program can be observed frame by frame.
package script

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gridbots/programmable/pkg/core"
)

// ErrNotCompiled is returned when an operation needs a compiled source.
var ErrNotCompiled = errors.New("script is not compiled")

// Body is what a running script moves.
type Body interface {
	// Advance moves along the heading; negative distances move backwards.
	Advance(distance float64)
	// Rotate changes the heading by angle radians.
	Rotate(angle float64)
	SetPen(down bool, color core.TraceColor)
}

// Config holds the executor's physical constants.
type Config struct {
	Unit         float64 // world length of one grid unit
	LinearSpeed  float64 // world units per second
	AngularSpeed float64 // radians per second
}

// DefaultConfig returns the constants the robots use.
func DefaultConfig() Config {
	return Config{
		Unit:         4,
		LinearSpeed:  8,
		AngularSpeed: math.Pi / 2,
	}
}

const epsilon = 1e-9

// state is the resumable execution position.
type state struct {
	PC        int     `cbor:"1,keyasint"`
	Remaining float64 `cbor:"2,keyasint"`
	Started   bool    `cbor:"3,keyasint"`
	Running   bool    `cbor:"4,keyasint"`
}

// Script implements core.Script.
type Script struct {
	body  Body
	owner core.CmdLine
	cfg   Config

	source   string
	name     string
	prog     []instruction
	compiled bool
	err      error

	st state
}

// New returns an empty script driving body. owner may be nil, in which case
// every cmdline() argument reads 0.
func New(body Body, owner core.CmdLine, cfg Config) *Script {
	return &Script{body: body, owner: owner, cfg: cfg}
}

// Factory binds body and cfg into a core.ScriptFactory.
func Factory(body Body, cfg Config) core.ScriptFactory {
	return func(owner core.CmdLine) core.Script {
		return New(body, owner, cfg)
	}
}

// Name is the program name declared by the source header.
func (s *Script) Name() string {
	return s.name
}

// Source returns the program text.
func (s *Script) Source() string {
	return s.source
}

// SetSource replaces the program text, stopping any execution, and compiles
// it. The text is kept even when it does not compile.
func (s *Script) SetSource(text string) error {
	s.st = state{}
	s.source = text
	s.invalidate()
	return s.Compile()
}

// Compile parses the source. The result is cached until the source changes.
func (s *Script) Compile() error {
	if s.compiled {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	name, prog, err := compile(s.source)
	if err != nil {
		s.err = err
		return err
	}
	s.name, s.prog, s.compiled = name, prog, true
	return nil
}

func (s *Script) invalidate() {
	s.compiled = false
	s.err = nil
	s.prog = nil
	s.name = ""
}

// Run compiles and starts the program from its first instruction.
func (s *Script) Run() bool {
	if err := s.Compile(); err != nil {
		return false
	}
	s.st = state{Running: true}
	return true
}

// Stop abandons execution.
func (s *Script) Stop() {
	s.st = state{}
}

// IsRunning reports whether a program is executing.
func (s *Script) IsRunning() bool {
	return s.st.Running
}

// Continue spends dt seconds executing instructions and reports whether the
// program has finished.
func (s *Script) Continue(dt float64) bool {
	if !s.st.Running {
		return true
	}

	budget := dt
	for s.st.PC < len(s.prog) {
		ins := s.prog[s.st.PC]
		if !s.st.Started {
			if s.begin(ins) {
				s.st.PC++
				continue
			}
			s.st.Started = true
		}

		switch ins.op {
		case opMove:
			budget = s.spend(budget, s.cfg.LinearSpeed, s.body.Advance)
		case opTurn:
			budget = s.spend(budget, s.cfg.AngularSpeed, s.body.Rotate)
		case opWait:
			budget = s.spend(budget, 1, func(float64) {})
		}

		if math.Abs(s.st.Remaining) > epsilon {
			return false
		}
		s.st.PC++
		s.st.Started = false
		s.st.Remaining = 0
	}

	s.st = state{}
	return true
}

// begin prepares ins and reports whether it completed instantly.
func (s *Script) begin(ins instruction) bool {
	switch ins.op {
	case opPenDown:
		s.body.SetPen(true, ins.arg.color)
		return true
	case opPenUp:
		s.body.SetPen(false, core.TraceColorDefault)
		return true
	case opMove:
		s.st.Remaining = s.value(ins.arg) * s.cfg.Unit
	case opTurn:
		s.st.Remaining = -s.value(ins.arg) * math.Pi / 180
	case opWait:
		s.st.Remaining = math.Max(s.value(ins.arg), 0)
	}
	return false
}

// spend consumes as much of the remaining amount as budget seconds allow at
// speed and returns the budget left. A non-positive speed is instantaneous.
func (s *Script) spend(budget, speed float64, apply func(float64)) float64 {
	rem := s.st.Remaining
	step := math.Abs(rem)
	if speed > 0 {
		step = math.Min(step, math.Max(budget, 0)*speed)
	}
	if rem < 0 {
		step = -step
	}
	if step != 0 {
		apply(step)
	}
	s.st.Remaining -= step
	if speed > 0 {
		budget -= math.Abs(step) / speed
	}
	return budget
}

func (s *Script) value(a argument) float64 {
	if !a.isRank {
		return a.value
	}
	if s.owner == nil {
		return 0
	}
	return s.owner.GetCmdLine(a.rank)
}

// Compare reports whether other carries the same program text.
func (s *Script) Compare(other core.Script) bool {
	if other == nil {
		return false
	}
	return normalize(s.source) == normalize(other.Source())
}

func normalize(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var virusSwaps = []struct{ from, to string }{
	{"move(", "mvoe("},
	{"turn(", "trun("},
	{"pendown(", "pnedown("},
	{"penup(", "pneup("},
	{"wait(", "wiat("},
}

// IntroduceVirus corrupts the first instruction keyword found so the source
// no longer compiles. It reports whether anything was corrupted.
func (s *Script) IntroduceVirus() bool {
	best, bestIdx := -1, -1
	for i, sw := range virusSwaps {
		idx := strings.Index(s.source, sw.from)
		if idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			best, bestIdx = i, idx
		}
	}
	if best < 0 {
		return false
	}
	sw := virusSwaps[best]
	s.source = s.source[:bestIdx] + sw.to + s.source[bestIdx+len(sw.from):]
	s.st = state{}
	s.invalidate()
	return true
}

func (s *Script) String() string {
	if s.name == "" {
		return fmt.Sprintf("script(%d bytes)", len(s.source))
	}
	return s.name
}
