// internal/storage/storage_test.go
package storage_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbots/programmable/internal/config"
	"github.com/gridbots/programmable/internal/programmable"
	"github.com/gridbots/programmable/internal/robot"
	"github.com/gridbots/programmable/internal/script"
	"github.com/gridbots/programmable/internal/storage"
	"github.com/gridbots/programmable/internal/storage/gormstore"
	"github.com/gridbots/programmable/internal/storage/memory"
	"github.com/gridbots/programmable/internal/storage/redisstore"
	"github.com/gridbots/programmable/pkg/core"
)

// Compile-time interface checks
var (
	_ storage.Backend  = (*memory.Backend)(nil)
	_ storage.Exporter = (*memory.Backend)(nil)
	_ storage.Backend  = (*gormstore.Backend)(nil)
	_ storage.Backend  = (*redisstore.Backend)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAdapter(id int) (*programmable.Adapter, *robot.Robot) {
	r := robot.New(id, "bot", core.Vector{}, 0)
	a := programmable.New(r, script.Factory(r, script.DefaultConfig()),
		programmable.WithLogger(discardLogger()),
	)
	return a, r
}

func TestNewBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.StorageConfig
		want any
	}{
		{"memory", config.StorageConfig{Type: "memory"}, &memory.Backend{}},
		{"sqlite", config.StorageConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "a.db")},
		}, &gormstore.Backend{}},
		{"redis", config.StorageConfig{
			Type:  "redis",
			Redis: config.RedisConfig{Addr: mr.Addr()},
		}, &redisstore.Backend{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := storage.NewBackend(tt.cfg, zerolog.Nop())
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
			require.NoError(t, b.Init())
			assert.NoError(t, b.Close())
		})
	}
}

func TestNewBackend_UnknownType(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "tape"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tape")
}

func TestSnapshot(t *testing.T) {
	a, _ := newAdapter(1)
	p := a.AddProgram()
	require.NoError(t, p.Script.SetSource("extern void object::Square()\n{\n\tmove(1);\n}\n"))
	p.ReadOnly = true
	p.Filename = "square.txt"
	a.AddProgram()

	snap := storage.Snapshot(a)
	require.Len(t, snap, 2)
	assert.Equal(t, 0, snap[0].Index)
	assert.Equal(t, "Square", snap[0].Name)
	assert.True(t, snap[0].ReadOnly)
	assert.Equal(t, "square.txt", snap[0].Filename)
	assert.Equal(t, 1, snap[1].Index)
}

func TestSaveRestoreObject(t *testing.T) {
	b := memory.New(config.MemoryConfig{})

	src, r := newAdapter(1)
	p := src.AddProgram()
	require.NoError(t, p.Script.SetSource("{ move(1); move(1); move(1); }"))
	p.Runnable = true
	require.True(t, src.RunProgram(p))
	src.EventProcess(core.Event{Type: core.EventFrame, RTime: 0.25})
	require.True(t, src.IsProgram())

	require.NoError(t, storage.SaveObject(b, 1, src))

	dst, r2 := newAdapter(1)
	r2.SetPosition(r.Position())
	require.NoError(t, storage.RestoreObject(b, 1, dst))

	require.Equal(t, 1, dst.GetProgramCount())
	assert.Equal(t, 0, dst.GetProgram())
	assert.True(t, dst.GetPrograms()[0].Runnable)

	for i := 0; i < 20 && dst.IsProgram(); i++ {
		dst.EventProcess(core.Event{Type: core.EventFrame, RTime: 0.25})
	}
	for i := 0; i < 20 && src.IsProgram(); i++ {
		src.EventProcess(core.Event{Type: core.EventFrame, RTime: 0.25})
	}
	assert.InDelta(t, r.Position().X, r2.Position().X, 1e-9)
}

func TestRestoreObject_NothingSaved(t *testing.T) {
	b := memory.New(config.MemoryConfig{})
	a, _ := newAdapter(1)

	err := storage.RestoreObject(b, 1, a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRestoreObject_ProgramsWithoutStack(t *testing.T) {
	b := memory.New(config.MemoryConfig{})
	require.NoError(t, b.SavePrograms(1, []core.ProgramSource{
		{Index: 2, Source: "{ turn(90); }", ReadOnly: true},
	}))

	a, _ := newAdapter(1)
	require.NoError(t, storage.RestoreObject(b, 1, a))

	assert.Equal(t, 3, a.GetProgramCount())
	assert.True(t, a.GetProgramAt(2).ReadOnly)
	assert.Equal(t, "{ turn(90); }", a.GetProgramAt(2).Script.Source())
	assert.False(t, a.IsProgram())
}

func TestNewTraceRecording(t *testing.T) {
	rec := programmable.Recording{
		Origin:  core.Vector{X: 1, Z: 1},
		Heading: 0,
		Records: []core.TraceRecord{
			{Oper: core.TraceAdvance, Param: 4},
			{Oper: core.TraceTurn, Param: math.Pi / 2},
			{Oper: core.TraceAdvance, Param: 3},
		},
	}

	tr := storage.NewTraceRecording(7, rec, nil)

	assert.Equal(t, 7, tr.ObjectID)
	assert.Equal(t, "AutoDraw", tr.Program)
	assert.Empty(t, tr.Source)
	assert.InDelta(t, 7.0, tr.Length, 1e-9)
	assert.Contains(t, tr.Path, "LINESTRING")
	assert.False(t, tr.RecordedAt.IsZero())
}

func TestWriteStackBytesArchived(t *testing.T) {
	b := memory.New(config.MemoryConfig{})
	a, _ := newAdapter(2)

	require.NoError(t, storage.SaveObject(b, 2, a))

	data, err := b.LoadStack(2)
	require.NoError(t, err)
	var want bytes.Buffer
	require.NoError(t, a.WriteStack(&want))
	assert.Equal(t, want.Bytes(), data)
}
