package programmable

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gridbots/programmable/pkg/core"
)

// stack header opcodes
const (
	stackStopped int16 = 0
	stackRunning int16 = 1
)

// ReadSoluce loads a solution file as a read-only program. When an existing
// program already holds the same script, that program becomes read-only and
// no new program is kept.
func (a *Adapter) ReadSoluce(filename string) error {
	prog := a.AddProgram()
	if err := a.ReadProgram(prog, filename); err != nil {
		a.RemoveProgram(prog)
		return fmt.Errorf("failed to read solution: %w", err)
	}
	prog.ReadOnly = true

	for _, p := range a.programs {
		if p == prog {
			continue
		}
		if p.Script.Compare(prog.Script) {
			p.ReadOnly = true
			a.RemoveProgram(prog)
			a.log.Debug("Solution matches existing program", "index", a.GetProgramIndex(p))
			return nil
		}
	}
	return nil
}

// ReadProgram loads filename into p.
func (a *Adapter) ReadProgram(p *core.Program, filename string) error {
	if p == nil || p.Script == nil {
		return ErrNoProgram
	}
	if err := p.Script.ReadScript(filename); err != nil {
		return err
	}
	return nil
}

// GetCompile reports whether p compiles.
func (a *Adapter) GetCompile(p *core.Program) bool {
	if p == nil || p.Script == nil {
		return false
	}
	return p.Script.Compile() == nil
}

// WriteProgram saves p to filename and remembers the file name on success.
func (a *Adapter) WriteProgram(p *core.Program, filename string) error {
	if p == nil || p.Script == nil {
		return ErrNoProgram
	}
	if err := p.Script.WriteScript(filename); err != nil {
		return err
	}
	p.Filename = filename
	return nil
}

// WriteStack saves the execution state: a little-endian int16 flag, then for
// a running program its int16 rank followed by the executor's own stack.
func (a *Adapter) WriteStack(w io.Writer) error {
	if a.current != nil && a.current.Script.IsRunning() {
		rank := a.GetProgram()
		if err := binary.Write(w, binary.LittleEndian, stackRunning); err != nil {
			return fmt.Errorf("failed to write stack flag: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, int16(rank)); err != nil {
			return fmt.Errorf("failed to write program rank: %w", err)
		}
		if err := a.current.Script.WriteStack(w); err != nil {
			return fmt.Errorf("failed to write stack of program %d: %w", rank, err)
		}
		return nil
	}

	if err := binary.Write(w, binary.LittleEndian, stackStopped); err != nil {
		return fmt.Errorf("failed to write stack flag: %w", err)
	}
	return nil
}

// ReadStack restores the state written by WriteStack and makes the saved
// program current.
func (a *Adapter) ReadStack(r io.Reader) error {
	var op int16
	if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
		return fmt.Errorf("failed to read stack flag: %w", err)
	}
	if op != stackRunning {
		return nil
	}

	var rank int16
	if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
		return fmt.Errorf("failed to read program rank: %w", err)
	}
	if rank < 0 {
		return nil
	}
	if int(rank) >= len(a.programs) {
		a.log.Error("Restore state failed", "rank", rank, "programs", len(a.programs))
		return fmt.Errorf("%w: %d of %d", ErrRankOutOfRange, rank, len(a.programs))
	}

	p := a.programs[rank]
	if err := p.Script.ReadStack(r); err != nil {
		a.log.Error("Restore state failed", "rank", rank, "error", err)
		return fmt.Errorf("failed to restore program %d: %w", rank, err)
	}
	a.current = p
	a.updateInterface()
	return nil
}
