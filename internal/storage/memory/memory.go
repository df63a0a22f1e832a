// internal/storage/memory/memory.go
package memory

import (
	"slices"
	"sync"

	"github.com/gridbots/programmable/internal/config"
	"github.com/gridbots/programmable/pkg/core"
)

// ObjectRecord groups everything archived for one object
type ObjectRecord struct {
	Programs []core.ProgramSource
	Stack    []byte
	Traces   []core.TraceRecording
}

// Backend keeps the archive in memory and exports it to JSON on Close
type Backend struct {
	cfg     config.MemoryConfig
	objects map[int]*ObjectRecord

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		objects: make(map[int]*ObjectRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the archive when an output directory is configured
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

func (b *Backend) object(id int) *ObjectRecord {
	rec, ok := b.objects[id]
	if !ok {
		rec = &ObjectRecord{}
		b.objects[id] = rec
	}
	return rec
}

// SavePrograms replaces the programs of an object
func (b *Backend) SavePrograms(objectID int, progs []core.ProgramSource) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.object(objectID).Programs = slices.Clone(progs)
	return nil
}

// LoadPrograms returns the programs of an object
func (b *Backend) LoadPrograms(objectID int) ([]core.ProgramSource, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.objects[objectID]
	if !ok || rec.Programs == nil {
		return nil, core.ErrNotFound
	}
	return slices.Clone(rec.Programs), nil
}

// SaveStack replaces the execution state of an object
func (b *Backend) SaveStack(objectID int, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.object(objectID).Stack = slices.Clone(data)
	return nil
}

// LoadStack returns the execution state of an object
func (b *Backend) LoadStack(objectID int) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.objects[objectID]
	if !ok || rec.Stack == nil {
		return nil, core.ErrNotFound
	}
	return slices.Clone(rec.Stack), nil
}

// RecordTrace appends a recording and assigns its ID
func (b *Backend) RecordTrace(t *core.TraceRecording) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	t.ID = b.idCounter

	rec := b.object(t.ObjectID)
	rec.Traces = append(rec.Traces, *t)
	return nil
}

// Traces returns the recordings of an object, oldest first
func (b *Backend) Traces(objectID int) ([]core.TraceRecording, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.objects[objectID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(rec.Traces), nil
}
