package programmable

import (
	"slices"

	"github.com/gridbots/programmable/pkg/core"
)

// AddProgram appends a new empty program and returns it.
func (a *Adapter) AddProgram() *core.Program {
	p := &core.Program{Script: a.newScript(a), Runnable: true}
	a.AppendProgram(p)
	return p
}

// AppendProgram takes ownership of p and appends it. A program without a
// script is refused.
func (a *Adapter) AppendProgram(p *core.Program) bool {
	if p == nil || p.Script == nil {
		a.log.Warn("Refusing program without script")
		return false
	}
	a.programs = append(a.programs, p)
	a.updateInterface()
	return true
}

// RemoveProgram stops p when it is running and removes it. Indices of later
// programs shift down by one.
func (a *Adapter) RemoveProgram(p *core.Program) {
	if a.current == p {
		a.StopProgram()
	}
	if a.scriptRun == p {
		a.scriptRun = nil
	}
	a.programs = slices.DeleteFunc(a.programs, func(q *core.Program) bool {
		return q == p
	})
	a.updateInterface()
}

// CloneProgram adds a program carrying a copy of p's source.
func (a *Adapter) CloneProgram(p *core.Program) *core.Program {
	clone := a.AddProgram()
	if p != nil && p.Script != nil {
		if err := clone.Script.SetSource(p.Script.Source()); err != nil {
			a.log.Debug("Cloned program does not compile", "error", err)
		}
	}
	return clone
}

// GetPrograms returns the owned programs in order. The slice must not be
// modified by the caller.
func (a *Adapter) GetPrograms() []*core.Program {
	return a.programs
}

// GetProgramCount returns the number of programs.
func (a *Adapter) GetProgramCount() int {
	return len(a.programs)
}

// GetProgramAt returns the program at index or nil when out of range.
func (a *Adapter) GetProgramAt(index int) *core.Program {
	if index < 0 || index >= len(a.programs) {
		return nil
	}
	return a.programs[index]
}

// GetOrAddProgram returns the program at index, appending empty programs
// until the index exists. Negative indices give nil.
func (a *Adapter) GetOrAddProgram(index int) *core.Program {
	if index < 0 {
		return nil
	}
	for len(a.programs) <= index {
		a.AddProgram()
	}
	return a.programs[index]
}

// GetProgramIndex returns the index of p or -1.
func (a *Adapter) GetProgramIndex(p *core.Program) int {
	return slices.Index(a.programs, p)
}
