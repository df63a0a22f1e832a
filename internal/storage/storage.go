// internal/storage/storage.go
package storage

import "github.com/gridbots/programmable/pkg/core"

// ErrNotFound is returned when an object has nothing archived under a key.
var ErrNotFound = core.ErrNotFound

// Backend is the interface all archive implementations must satisfy.
// Programs and stacks are replaced on save; traces accumulate.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Programs of one object, in index order
	SavePrograms(objectID int, progs []core.ProgramSource) error
	LoadPrograms(objectID int) ([]core.ProgramSource, error)

	// Execution state as written by the adapter's WriteStack
	SaveStack(objectID int, data []byte) error
	LoadStack(objectID int) ([]byte, error)

	// Trace recordings (assigns ID to the passed pointer)
	RecordTrace(t *core.TraceRecording) error
	Traces(objectID int) ([]core.TraceRecording, error)
}

// Exporter is an optional interface for backends that write an archive
// file on Close.
type Exporter interface {
	ExportedFilePath() string
}
