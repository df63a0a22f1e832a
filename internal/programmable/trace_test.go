package programmable

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbots/programmable/internal/robot"
	"github.com/gridbots/programmable/internal/script"
	"github.com/gridbots/programmable/pkg/core"
)

func TestTrace_NoMovement(t *testing.T) {
	a, _ := newTestAdapter(t)

	a.TraceRecordStart()
	assert.True(t, a.IsTraceRecord())
	frame(a)
	frame(a)

	assert.Nil(t, a.TraceRecordStop())
	assert.False(t, a.IsTraceRecord())
	assert.Equal(t, 0, a.GetProgramCount())
}

func TestTrace_StopWithoutStart(t *testing.T) {
	a, _ := newTestAdapter(t)

	assert.Nil(t, a.TraceRecordStop())
}

func TestTrace_SingleAdvance(t *testing.T) {
	a, r := newTestAdapter(t)

	a.TraceRecordStart()
	r.SetPosition(core.Vector{X: 8})

	prog := a.TraceRecordStop()

	require.NotNil(t, prog)
	assert.Equal(t, 1, a.GetProgramCount())
	assert.Equal(t, "extern void object::AutoDraw()\n{\n\tmove(2.0);\n}\n", prog.Script.Source())
	assert.True(t, a.GetCompile(prog))
}

func TestTrace_Recede(t *testing.T) {
	a, r := newTestAdapter(t)

	a.TraceRecordStart()
	r.Advance(-4)
	frame(a)
	records := a.TraceRecords()
	prog := a.TraceRecordStop()

	assert.Empty(t, records)
	require.NotNil(t, prog)
	assert.Contains(t, prog.Script.Source(), "move(-1.0);")
}

func TestTrace_RecordsRunningProgram(t *testing.T) {
	a, r := newTestAdapter(t)
	p := addSource(t, a, drawing)

	a.TraceRecordStart()
	require.True(t, a.RunProgram(p))
	for i := 0; i < 40 && a.IsProgram(); i++ {
		frame(a)
	}
	require.False(t, a.IsProgram())

	records := a.TraceRecords()
	require.Len(t, records, 5)
	assert.Equal(t, core.TraceRecord{Oper: core.TracePen, Param: float64(core.TraceColorRed)}, records[0])
	assert.Equal(t, core.TraceAdvance, records[1].Oper)
	assert.InDelta(t, 8.0, records[1].Param, 1e-9)
	assert.Equal(t, core.TraceTurn, records[2].Oper)
	assert.InDelta(t, -math.Pi/2, records[2].Param, 1e-9)
	assert.Equal(t, core.TraceAdvance, records[3].Oper)
	assert.InDelta(t, 4.0, records[3].Param, 1e-9)
	assert.Equal(t, core.TraceRecord{Oper: core.TracePen, Param: float64(core.TraceColorDefault)}, records[4])

	auto := a.TraceRecordStop()
	require.NotNil(t, auto)
	assert.Equal(t, "extern void object::AutoDraw()\n{\n"+
		"\tpendown(Red);\n"+
		"\tmove(2.0);\n"+
		"\tturn(90);\n"+
		"\tmove(1.0);\n"+
		"\tpenup();\n"+
		"}\n", auto.Script.Source())

	// replaying the generated program draws the same figure
	replay := robot.New(2, "copy", core.Vector{}, 0)
	b := New(replay, script.Factory(replay, script.DefaultConfig()), WithLogger(quietLogger()))
	prog := b.AddProgram()
	require.NoError(t, prog.Script.SetSource(auto.Script.Source()))
	require.True(t, b.RunProgram(prog))
	for i := 0; i < 40 && b.IsProgram(); i++ {
		frame(b)
	}

	assert.InDelta(t, r.Position().X, replay.Position().X, 1e-9)
	assert.InDelta(t, r.Position().Z, replay.Position().Z, 1e-9)
	assert.Len(t, replay.Segments(), len(r.Segments()))
}

func TestTrace_FrameSplitsMoveAndTurn(t *testing.T) {
	// 0.15 s frames end neither motion on a frame boundary
	for _, dt := range []float64{0.15, 0.25, 0.1, 1.0 / 30} {
		a, r := newTestAdapter(t)
		p := addSource(t, a, "{ move(2); turn(90); move(2); }")

		a.TraceRecordStart()
		require.True(t, a.RunProgram(p))
		for i := 0; i < 200 && a.IsProgram(); i++ {
			a.EventProcess(core.NewFrameEvent(dt))
		}
		require.False(t, a.IsProgram())

		auto := a.TraceRecordStop()
		require.NotNil(t, auto, "dt=%v", dt)
		rec, ok := a.LastRecording()
		require.True(t, ok)
		require.Len(t, rec.Records, 3, "dt=%v", dt)
		assert.InDelta(t, 8.0, rec.Records[0].Param, 1e-6, "dt=%v", dt)
		assert.InDelta(t, -math.Pi/2, rec.Records[1].Param, 1e-6, "dt=%v", dt)
		assert.InDelta(t, 8.0, rec.Records[2].Param, 1e-6, "dt=%v", dt)
		assert.Equal(t, "extern void object::AutoDraw()\n{\n"+
			"\tmove(2.0);\n"+
			"\tturn(90);\n"+
			"\tmove(2.0);\n"+
			"}\n", auto.Script.Source(), "dt=%v", dt)
		assert.InDelta(t, 8.0, r.Position().X, 1e-6)
		assert.InDelta(t, 8.0, r.Position().Z, 1e-6)
	}
}

func TestTrace_BufferLimit(t *testing.T) {
	r := robot.New(1, "bot", core.Vector{}, 0)
	cfg := DefaultTraceConfig()
	cfg.MaxRecords = 2
	a := New(r, script.Factory(r, script.DefaultConfig()),
		WithLogger(quietLogger()),
		WithTraceConfig(cfg),
	)

	a.TraceRecordStart()
	for i := 0; i < 3; i++ {
		r.Advance(4)
		frame(a)
		r.Rotate(math.Pi / 2)
		frame(a)
	}
	prog := a.TraceRecordStop()

	require.NotNil(t, prog)
	assert.Equal(t, "extern void object::AutoDraw()\n{\n\tmove(1.0);\n\tturn(-90);\n}\n", prog.Script.Source())
}

func TestTrace_RestartConvertsPreviousRecording(t *testing.T) {
	a, r := newTestAdapter(t)

	a.TraceRecordStart()
	r.Advance(4)
	frame(a)
	a.TraceRecordStart()

	assert.True(t, a.IsTraceRecord())
	assert.Equal(t, 1, a.GetProgramCount())
	assert.Nil(t, a.TraceRecordStop())
}
