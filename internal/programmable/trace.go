package programmable

import (
	"math"

	"github.com/gridbots/programmable/internal/trace"
	"github.com/gridbots/programmable/pkg/core"
)

// Recording is a finished movement recording.
type Recording struct {
	Origin  core.Vector
	Heading float64
	Records []core.TraceRecord
}

// recorder is the movement recording state.
type recorder struct {
	active bool

	origin      core.Vector
	originAngle float64

	// pending operation and the pose it started from
	oper  core.TraceOper
	pos   core.Vector
	angle float64
	color core.TraceColor

	// pose observed on the previous frame
	lastPos   core.Vector
	lastAngle float64

	records  []core.TraceRecord
	overflow bool
}

// TraceRecordStart begins recording, converting any recording in progress
// first.
func (a *Adapter) TraceRecordStart() {
	if a.trace.active {
		a.TraceRecordStop()
	}

	pos, angle := a.object.Position(), a.object.RotationY()
	a.trace = recorder{
		active:      true,
		origin:      pos,
		originAngle: angle,
		oper:        core.TraceStop,
		pos:         pos,
		angle:       angle,
		color:       a.penColor(),
		lastPos:     pos,
		lastAngle:   angle,
		records:     make([]core.TraceRecord, 0, a.traceCfg.MaxRecords),
	}
	a.log.Debug("Trace recording started", "position", pos.String())
}

// TraceRecordStop ends recording and adds a program replaying the trace.
// It returns nil when nothing was recorded.
func (a *Adapter) TraceRecordStop() *core.Program {
	if !a.trace.active {
		return nil
	}

	a.traceRecordFrame()
	a.flushTraceOper(a.trace.lastPos, a.trace.lastAngle)
	records := a.trace.records
	a.lastRecording = &Recording{
		Origin:  a.trace.origin,
		Heading: a.trace.originAngle,
		Records: records,
	}
	a.trace = recorder{}

	text := trace.Script(records, a.traceCfg.Unit)
	if text == "" {
		a.log.Debug("Trace recording stopped without movement")
		return nil
	}

	prog := a.AddProgram()
	if err := prog.Script.SetSource(text); err != nil {
		a.log.Error("Recorded trace does not compile", "error", err)
	}
	a.log.Info("Trace recording converted", "records", len(records), "index", a.GetProgramIndex(prog))
	return prog
}

// IsTraceRecord reports whether recording is active.
func (a *Adapter) IsTraceRecord() bool {
	return a.trace.active
}

// LastRecording returns the most recently stopped recording.
func (a *Adapter) LastRecording() (Recording, bool) {
	if a.lastRecording == nil {
		return Recording{}, false
	}
	rec := *a.lastRecording
	rec.Records = append([]core.TraceRecord(nil), rec.Records...)
	return rec, true
}

// TraceRecords returns a copy of the records buffered so far.
func (a *Adapter) TraceRecords() []core.TraceRecord {
	out := make([]core.TraceRecord, len(a.trace.records))
	copy(out, a.trace.records)
	return out
}

// traceRecordFrame classifies the motion since the previous frame and records
// the pending operation when the operation or the pen colour changes. A frame
// that both moves and turns is split at the pose where one operation handed
// over to the other.
func (a *Adapter) traceRecordFrame() {
	t := &a.trace
	pos, angle := a.object.Position(), a.object.RotationY()
	eps := a.traceCfg.Epsilon

	moved := trace.ProjectedDistance(t.lastPos, pos) > eps
	turned := math.Abs(angle-t.lastAngle) > eps

	if color := a.penColor(); color != t.color {
		continues := (isMoveOper(t.oper) && moved && !turned) || (t.oper == core.TraceTurn && turned && !moved)
		if continues {
			// the pending operation ran up to the pen change
			a.flushTraceOper(pos, angle)
			moved, turned = false, false
		} else {
			a.flushTraceOper(t.lastPos, t.lastAngle)
		}
		a.traceRecordOper(core.TracePen, float64(color))
		t.color = color
	}

	switch {
	case moved && turned && t.oper == core.TraceTurn:
		// turn finished, move started
		a.switchTraceOper(traceMoveOper(t.lastPos, pos, angle), t.lastPos, angle)
	case moved && turned:
		// move finished, turn started
		a.switchTraceOper(traceMoveOper(t.lastPos, pos, t.lastAngle), t.lastPos, t.lastAngle)
		a.switchTraceOper(core.TraceTurn, pos, t.lastAngle)
	case turned:
		a.switchTraceOper(core.TraceTurn, t.lastPos, t.lastAngle)
	case moved:
		a.switchTraceOper(traceMoveOper(t.lastPos, pos, t.lastAngle), t.lastPos, t.lastAngle)
	default:
		a.switchTraceOper(core.TraceStop, pos, angle)
	}

	t.lastPos = pos
	t.lastAngle = angle
}

// switchTraceOper makes oper the pending operation, closing the previous one
// at pos and angle. It does nothing while oper is already pending.
func (a *Adapter) switchTraceOper(oper core.TraceOper, pos core.Vector, angle float64) {
	if a.trace.oper == oper {
		return
	}
	a.flushTraceOper(pos, angle)
	a.trace.oper = oper
}

func isMoveOper(oper core.TraceOper) bool {
	return oper == core.TraceAdvance || oper == core.TraceRecede
}

// traceMoveOper tells advance from recede by the motion along heading.
func traceMoveOper(from, to core.Vector, heading float64) core.TraceOper {
	hx, hz := trace.Heading(heading)
	if (to.X-from.X)*hx+(to.Z-from.Z)*hz >= 0 {
		return core.TraceAdvance
	}
	return core.TraceRecede
}

// flushTraceOper records the pending motion as ending at pos and angle.
func (a *Adapter) flushTraceOper(pos core.Vector, angle float64) {
	t := &a.trace
	switch t.oper {
	case core.TraceAdvance, core.TraceRecede:
		a.traceRecordOper(t.oper, trace.ProjectedDistance(t.pos, pos))
	case core.TraceTurn:
		a.traceRecordOper(t.oper, angle-t.angle)
	}
	t.oper = core.TraceStop
	t.pos = pos
	t.angle = angle
}

// traceRecordOper appends a record and reports false once the buffer is full.
func (a *Adapter) traceRecordOper(oper core.TraceOper, param float64) bool {
	t := &a.trace
	if len(t.records) >= a.traceCfg.MaxRecords {
		if !t.overflow {
			t.overflow = true
			a.log.Warn("Trace buffer full, dropping records", "capacity", a.traceCfg.MaxRecords)
		}
		return false
	}
	t.records = append(t.records, core.TraceRecord{Oper: oper, Param: param})
	a.metrics.traceRecorded()
	return true
}

func (a *Adapter) penColor() core.TraceColor {
	if pen, ok := a.object.(core.Pen); ok && pen.TraceDown() {
		return pen.TraceColor()
	}
	return core.TraceColorDefault
}
