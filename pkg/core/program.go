// pkg/core/program.go
package core

import "io"

// Program is a unit of user-authored behavior attached to an object.
type Program struct {
	Script   Script
	ReadOnly bool
	Runnable bool
	Filename string
}

// Script is the executor contract a program is driven through.
// The language, its compiler and the stack format belong to the executor.
type Script interface {
	// Run compiles the source and starts execution. It reports whether the
	// program is now running.
	Run() bool
	// Continue advances execution by dt seconds and reports whether the
	// program has finished.
	Continue(dt float64) bool
	Stop()
	IsRunning() bool

	Compile() error
	Compare(other Script) bool
	IntroduceVirus() bool

	Source() string
	SetSource(text string) error
	ReadScript(filename string) error
	WriteScript(filename string) error

	ReadStack(r io.Reader) error
	WriteStack(w io.Writer) error
}

// CmdLine gives scripts read access to the numeric arguments of their owner.
type CmdLine interface {
	GetCmdLine(rank int) float64
}

// ScriptFactory creates an empty script for a new program of owner.
type ScriptFactory func(owner CmdLine) Script
