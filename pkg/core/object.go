// pkg/core/object.go
package core

import "io"

// Object is the borrowed handle a programmable adapter reads its owner through.
// The object system owns the value and must keep it alive longer than any
// adapter that refers to it.
type Object interface {
	ID() int
	Position() Vector
	// RotationY is the heading in radians around the up axis.
	RotationY() float64
}

// Pen exposes the drawing state of an object that leaves a trace.
type Pen interface {
	TraceDown() bool
	TraceColor() TraceColor
}

// Destroyable objects stop their programs while dying.
type Destroyable interface {
	IsDying() bool
}

// InterfaceUpdater objects refresh their controls when program state changes.
type InterfaceUpdater interface {
	UpdateInterface()
}

// Programmable is the program management capability of an object.
type Programmable interface {
	RunProgram(p *Program) bool
	StopProgram()
	GetProgram() int
	IsProgram() bool

	IntroduceVirus() bool
	SetActiveVirus(active bool)
	GetActiveVirus() bool

	ReadSoluce(filename string) error
	ReadProgram(p *Program, filename string) error
	GetCompile(p *Program) bool
	WriteProgram(p *Program, filename string) error
	ReadStack(r io.Reader) error
	WriteStack(w io.Writer) error

	AddProgram() *Program
	RemoveProgram(p *Program)
	CloneProgram(p *Program) *Program
	GetPrograms() []*Program
	GetProgramCount() int
	GetProgramAt(index int) *Program
	GetOrAddProgram(index int) *Program
	GetProgramIndex(p *Program) int

	SetCmdLine(rank int, value float64)
	GetCmdLine(rank int) float64
}

// Interactive objects consume events from the event loop.
type Interactive interface {
	EventProcess(ev Event) bool
}

// TraceDrawing objects can record their movement as a replayable trace.
type TraceDrawing interface {
	TraceRecordStart()
	TraceRecordStop() *Program
	IsTraceRecord() bool
}
