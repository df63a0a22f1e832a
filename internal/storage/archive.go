// internal/storage/archive.go
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/gridbots/programmable/internal/programmable"
	"github.com/gridbots/programmable/internal/trace"
	"github.com/gridbots/programmable/pkg/core"
)

type named interface {
	Name() string
}

// Snapshot lists the adapter's programs in archive form.
func Snapshot(a *programmable.Adapter) []core.ProgramSource {
	progs := a.GetPrograms()
	out := make([]core.ProgramSource, 0, len(progs))
	for i, p := range progs {
		src := core.ProgramSource{
			Index:    i,
			ReadOnly: p.ReadOnly,
			Runnable: p.Runnable,
			Filename: p.Filename,
		}
		if p.Script != nil {
			src.Source = p.Script.Source()
			if n, ok := p.Script.(named); ok {
				src.Name = n.Name()
			}
		}
		out = append(out, src)
	}
	return out
}

// SaveObject archives the programs and execution state of an adapter.
func SaveObject(b Backend, objectID int, a *programmable.Adapter) error {
	if err := b.SavePrograms(objectID, Snapshot(a)); err != nil {
		return fmt.Errorf("failed to save programs of object %d: %w", objectID, err)
	}
	var buf bytes.Buffer
	if err := a.WriteStack(&buf); err != nil {
		return fmt.Errorf("failed to encode stack of object %d: %w", objectID, err)
	}
	if err := b.SaveStack(objectID, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to save stack of object %d: %w", objectID, err)
	}
	return nil
}

// RestoreObject loads archived programs into a, placing each at its saved
// index, then restores the execution state when one was saved.
func RestoreObject(b Backend, objectID int, a *programmable.Adapter) error {
	progs, err := b.LoadPrograms(objectID)
	if err != nil {
		return fmt.Errorf("failed to load programs of object %d: %w", objectID, err)
	}
	for _, src := range progs {
		p := a.GetOrAddProgram(src.Index)
		if p == nil {
			continue
		}
		// sources that no longer compile are kept as text
		_ = p.Script.SetSource(src.Source)
		p.ReadOnly = src.ReadOnly
		p.Runnable = src.Runnable
		p.Filename = src.Filename
	}

	data, err := b.LoadStack(objectID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load stack of object %d: %w", objectID, err)
	}
	if err := a.ReadStack(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to restore stack of object %d: %w", objectID, err)
	}
	return nil
}

// NewTraceRecording builds the archive form of a recording and the program
// generated from it. prog may be nil when nothing was generated.
func NewTraceRecording(objectID int, rec programmable.Recording, prog *core.Program) core.TraceRecording {
	path := trace.Path(trace.Replay(rec.Origin, rec.Heading, rec.Records))
	t := core.TraceRecording{
		ObjectID:   objectID,
		Program:    trace.ProgramName,
		Records:    rec.Records,
		Origin:     rec.Origin,
		Heading:    rec.Heading,
		Path:       path.AsText(),
		Length:     path.Length(),
		RecordedAt: time.Now().UTC(),
	}
	if prog != nil && prog.Script != nil {
		t.Source = prog.Script.Source()
	}
	return t
}
