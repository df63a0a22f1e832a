package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gridbots/programmable/internal/level"
	"github.com/gridbots/programmable/internal/storage"
	"github.com/gridbots/programmable/internal/world"
	"github.com/gridbots/programmable/pkg/core"
)

// runOptions configure one level run.
type runOptions struct {
	frames  int
	dt      float64
	record  []int
	restore bool
}

// runResult is what a level run leaves behind.
type runResult struct {
	world  *world.World
	frames int
	traces map[int]*core.TraceRecording
	autos  map[int]*core.Program
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().IntVar(&opts.frames, "frames", 600, "Maximum number of frames to step")
	cmd.Flags().Float64Var(&opts.dt, "dt", 1.0/30, "Seconds per frame")
	cmd.Flags().BoolVar(&opts.restore, "restore", false, "Restore archived programs and execution state before starting")
}

func newRunCmd(s *session) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run LEVEL",
		Short: "Run a level until its programs finish",
		Args:  cobra.ExactArgs(1),
		RunE: s.wrap(func(cmd *cobra.Command, args []string) error {
			res, err := s.runLevel(args[0], *opts)
			if err != nil {
				return err
			}
			printSummary(cmd, res)
			return nil
		}),
	}
	addRunFlags(cmd, opts)
	cmd.Flags().IntSliceVar(&opts.record, "record", nil, "Record the trace of these object IDs")
	return cmd
}

// runLevel loads the level, runs it and archives every object, along with
// the traces recorded while running.
func (s *session) runLevel(path string, opts runOptions) (res *runResult, err error) {
	if opts.dt <= 0 {
		return nil, fmt.Errorf("invalid frame duration %v", opts.dt)
	}
	m, err := level.Load(path)
	if err != nil {
		return nil, err
	}

	tm, err := s.openTelemetry()
	if err != nil {
		return nil, fmt.Errorf("failed to connect telemetry: %w", err)
	}
	var telemetry world.Telemetry
	if tm != nil {
		telemetry = tm
		defer func() {
			err = errors.Join(err, tm.Close())
		}()
	}

	backend, err := s.openStorage()
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, s.closeStorage(backend))
	}()

	w, err := s.newWorld(telemetry)
	if err != nil {
		return nil, err
	}
	if err := level.Apply(w, m); err != nil {
		return nil, err
	}

	for _, id := range w.IDs() {
		e, _ := w.Get(id)
		if opts.restore {
			if err := storage.RestoreObject(backend, id, e.Adapter); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return nil, err
			}
		}
		if slices.Contains(opts.record, id) && !e.Adapter.IsTraceRecord() {
			e.Adapter.TraceRecordStart()
		}
	}
	for _, id := range opts.record {
		if _, ok := w.Get(id); !ok {
			return nil, fmt.Errorf("object %d not in level", id)
		}
	}

	s.log.Info("Level started", "level", m.Name, "objects", w.Len())
	w.Start()
	n, err := w.Run(opts.frames, opts.dt)
	if err != nil {
		return nil, fmt.Errorf("run stopped after %d frames: %w", n, err)
	}
	s.log.Info("Level finished", "frames", n, "clock", w.Clock())

	res = &runResult{
		world:  w,
		frames: n,
		traces: make(map[int]*core.TraceRecording),
		autos:  make(map[int]*core.Program),
	}
	for _, id := range w.IDs() {
		e, _ := w.Get(id)
		if e.Adapter.IsTraceRecord() {
			prog := e.Adapter.TraceRecordStop()
			if rec, ok := e.Adapter.LastRecording(); ok && prog != nil {
				tr := storage.NewTraceRecording(id, rec, prog)
				if err := backend.RecordTrace(&tr); err != nil {
					return nil, fmt.Errorf("failed to archive trace of object %d: %w", id, err)
				}
				res.traces[id] = &tr
				res.autos[id] = prog
			}
		}
		if err := storage.SaveObject(backend, id, e.Adapter); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func printSummary(cmd *cobra.Command, res *runResult) {
	printf(cmd, "frames: %d (%.2fs)\n", res.frames, res.world.Clock())
	for _, id := range res.world.IDs() {
		e, _ := res.world.Get(id)
		pos := e.Robot.Position()
		printf(cmd, "object %d %-12s pos=(%.2f, %.2f, %.2f) segments=%d programs=%d\n",
			id, e.Robot.Name(), pos.X, pos.Y, pos.Z, len(e.Robot.Segments()), e.Adapter.GetProgramCount())
		if tr, ok := res.traces[id]; ok {
			printf(cmd, "  trace %d: %d records, length %.2f\n", tr.ID, len(tr.Records), tr.Length)
		}
	}
}
