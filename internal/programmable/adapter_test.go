package programmable

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbots/programmable/internal/robot"
	"github.com/gridbots/programmable/internal/script"
	"github.com/gridbots/programmable/pkg/core"
)

const drawing = `extern void object::Draw()
{
	pendown(Red);
	move(2);
	turn(90);
	move(1);
	wait(0.5);
	penup();
}
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAdapter(t *testing.T) (*Adapter, *robot.Robot) {
	t.Helper()
	r := robot.New(1, "bot", core.Vector{}, 0)
	a := New(r, script.Factory(r, script.DefaultConfig()),
		WithLogger(quietLogger()),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	)
	return a, r
}

func addSource(t *testing.T, a *Adapter, src string) *core.Program {
	t.Helper()
	p := a.AddProgram()
	require.NoError(t, p.Script.SetSource(src))
	return p
}

func frame(a *Adapter) {
	a.EventProcess(core.NewFrameEvent(0.25))
}

// stubScript is a controllable core.Script.
type stubScript struct {
	runOK    bool
	running  bool
	virus    bool
	source   string
	stackErr error
}

func (s *stubScript) Run() bool {
	s.running = s.runOK
	return s.runOK
}

func (s *stubScript) Continue(float64) bool { return false }
func (s *stubScript) Stop() { s.running = false }
func (s *stubScript) IsRunning() bool { return s.running }
func (s *stubScript) Compile() error { return nil }
func (s *stubScript) Compare(o core.Script) bool { return s.source == o.Source() }
func (s *stubScript) IntroduceVirus() bool { return s.virus }
func (s *stubScript) Source() string { return s.source }
func (s *stubScript) SetSource(text string) error {
	s.source = text
	return nil
}

func (s *stubScript) ReadScript(string) error { return errors.New("no files") }
func (s *stubScript) WriteScript(string) error { return errors.New("no files") }
func (s *stubScript) ReadStack(io.Reader) error { return s.stackErr }
func (s *stubScript) WriteStack(io.Writer) error { return nil }

func TestAdapter_AddProgram(t *testing.T) {
	a, _ := newTestAdapter(t)

	var progs []*core.Program
	for i := 0; i < 5; i++ {
		p := a.AddProgram()
		progs = append(progs, p)
		assert.Equal(t, i, a.GetProgramIndex(p))
	}

	assert.Equal(t, 5, a.GetProgramCount())
	assert.Equal(t, progs, a.GetPrograms())
	assert.Same(t, progs[3], a.GetProgramAt(3))
	assert.Nil(t, a.GetProgramAt(5))
	assert.Nil(t, a.GetProgramAt(-1))
	assert.Equal(t, -1, a.GetProgramIndex(&core.Program{}))
}

func TestAdapter_AppendProgram(t *testing.T) {
	a, _ := newTestAdapter(t)
	p := &core.Program{Script: &stubScript{}}

	assert.True(t, a.AppendProgram(p))

	assert.Equal(t, 0, a.GetProgramIndex(p))
}

func TestAdapter_AppendProgramWithoutScript(t *testing.T) {
	a, _ := newTestAdapter(t)

	assert.False(t, a.AppendProgram(&core.Program{}))
	assert.False(t, a.AppendProgram(nil))
	assert.Equal(t, 0, a.GetProgramCount())

	// nothing left behind for the loops over every program
	assert.False(t, a.IntroduceVirus())
	soluce := filepath.Join(t.TempDir(), "soluce.txt")
	require.NoError(t, os.WriteFile(soluce, []byte(drawing), 0644))
	assert.NoError(t, a.ReadSoluce(soluce))
	assert.Equal(t, 1, a.GetProgramCount())
}

func TestAdapter_RemoveProgram(t *testing.T) {
	a, _ := newTestAdapter(t)
	first := addSource(t, a, drawing)
	second := addSource(t, a, drawing)
	a.SetScriptRun(first)

	require.True(t, a.RunProgram(first))
	a.RemoveProgram(first)

	assert.False(t, a.IsProgram())
	assert.Equal(t, -1, a.GetProgram())
	assert.Nil(t, a.GetScriptRun())
	assert.Equal(t, 1, a.GetProgramCount())
	assert.Equal(t, 0, a.GetProgramIndex(second))
}

func TestAdapter_RunProgramReplacesCurrent(t *testing.T) {
	a, _ := newTestAdapter(t)
	first := addSource(t, a, drawing)
	second := addSource(t, a, drawing)

	require.True(t, a.RunProgram(first))
	require.True(t, a.RunProgram(second))

	assert.Equal(t, 1, a.GetProgram())
	assert.False(t, first.Script.IsRunning())
	assert.True(t, second.Script.IsRunning())

	a.StopProgram()
	assert.False(t, a.IsProgram())
	assert.False(t, second.Script.IsRunning())
}

func TestAdapter_RunProgramRejected(t *testing.T) {
	a, _ := newTestAdapter(t)
	bad := a.AddProgram()
	require.Error(t, bad.Script.SetSource("{ jump(); }"))
	bad2 := &core.Program{Script: &stubScript{runOK: false}}

	assert.False(t, a.RunProgram(bad))
	assert.False(t, a.RunProgram(bad2))
	assert.False(t, a.RunProgram(nil))
	assert.False(t, a.IsProgram())
}

func TestAdapter_GetOrAddProgram(t *testing.T) {
	a, _ := newTestAdapter(t)

	p := a.GetOrAddProgram(3)

	require.NotNil(t, p)
	assert.Equal(t, 4, a.GetProgramCount())
	assert.Equal(t, 3, a.GetProgramIndex(p))
	assert.Same(t, p, a.GetOrAddProgram(3))
	assert.Same(t, a.GetProgramAt(1), a.GetOrAddProgram(1))
	assert.Equal(t, 4, a.GetProgramCount())
	assert.Nil(t, a.GetOrAddProgram(-1))
}

func TestAdapter_CloneProgram(t *testing.T) {
	a, _ := newTestAdapter(t)
	orig := addSource(t, a, drawing)

	clone := a.CloneProgram(orig)

	assert.NotSame(t, orig, clone)
	assert.Equal(t, 1, a.GetProgramIndex(clone))
	assert.Equal(t, drawing, clone.Script.Source())
	assert.True(t, a.GetCompile(clone))
}

func TestAdapter_CmdLine(t *testing.T) {
	a, _ := newTestAdapter(t)

	a.SetCmdLine(5, 3.0)

	line := a.CmdLine()
	require.Len(t, line, 6)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 3}, line)
	assert.Equal(t, 3.0, a.GetCmdLine(5))
	assert.Equal(t, 0.0, a.GetCmdLine(2))
	assert.Equal(t, 0.0, a.GetCmdLine(10))
	assert.Equal(t, 0.0, a.GetCmdLine(-1))

	a.SetCmdLine(1, 7)
	a.SetCmdLine(-3, 1)
	assert.Equal(t, 7.0, a.GetCmdLine(1))
	assert.Len(t, a.CmdLine(), 6)
}

func TestAdapter_CmdLineFeedsPrograms(t *testing.T) {
	a, r := newTestAdapter(t)
	a.SetCmdLine(0, 1)
	p := addSource(t, a, "{ move(cmdline(0)); }")

	require.True(t, a.RunProgram(p))
	for i := 0; i < 4 && a.IsProgram(); i++ {
		frame(a)
	}

	assert.False(t, a.IsProgram())
	assert.InDelta(t, 4.0, r.Position().X, 1e-9)
}

func TestAdapter_VirusFlag(t *testing.T) {
	a, _ := newTestAdapter(t)

	a.SetActiveVirus(true)
	assert.True(t, a.GetActiveVirus())
	a.SetActiveVirus(false)
	assert.False(t, a.GetActiveVirus())
}

func TestAdapter_IntroduceVirus(t *testing.T) {
	a, _ := newTestAdapter(t)
	assert.False(t, a.IntroduceVirus())

	a.AppendProgram(&core.Program{Script: &stubScript{}})
	assert.False(t, a.IntroduceVirus())
	assert.False(t, a.GetActiveVirus())

	p := addSource(t, a, drawing)
	assert.True(t, a.IntroduceVirus())
	assert.True(t, a.GetActiveVirus())
	assert.False(t, a.GetCompile(p))
}

func TestAdapter_MissionBookkeeping(t *testing.T) {
	a, _ := newTestAdapter(t)
	p := a.AddProgram()

	a.SetScriptRun(p)
	a.SetSoluceName("soluce.txt")

	assert.Same(t, p, a.GetScriptRun())
	assert.Equal(t, "soluce.txt", a.GetSoluceName())
}

func TestAdapter_EventProcessRunsToCompletion(t *testing.T) {
	a, r := newTestAdapter(t)
	p := addSource(t, a, drawing)
	require.True(t, a.RunProgram(p))

	for i := 0; i < 40 && a.IsProgram(); i++ {
		assert.True(t, a.EventProcess(core.NewFrameEvent(0.25)))
	}

	assert.False(t, a.IsProgram())
	pos := r.Position()
	assert.InDelta(t, 8.0, pos.X, 1e-9)
	assert.InDelta(t, 4.0, pos.Z, 1e-9)
	assert.Len(t, r.Segments(), 6)
}

func TestAdapter_EventProcessIgnoresOtherEvents(t *testing.T) {
	a, r := newTestAdapter(t)
	p := addSource(t, a, drawing)
	require.True(t, a.RunProgram(p))

	assert.True(t, a.EventProcess(core.Event{Type: core.EventObjectUpdate, RTime: 1}))

	assert.Equal(t, core.Vector{}, r.Position())
}

func TestAdapter_Inactive(t *testing.T) {
	a, r := newTestAdapter(t)
	p := addSource(t, a, drawing)
	require.True(t, a.RunProgram(p))

	a.SetActivity(false)
	assert.False(t, a.GetActivity())
	frame(a)

	assert.True(t, a.IsProgram())
	assert.Equal(t, core.Vector{}, r.Position())
}

func TestAdapter_DyingObjectStopsProgram(t *testing.T) {
	a, r := newTestAdapter(t)
	p := addSource(t, a, drawing)
	require.True(t, a.RunProgram(p))

	r.Destroy()
	frame(a)

	assert.False(t, a.IsProgram())
}

func TestAdapter_InterfaceUpdates(t *testing.T) {
	a, r := newTestAdapter(t)
	updates := 0
	r.OnUpdate(func(*robot.Robot) { updates++ })

	p := addSource(t, a, drawing)
	require.True(t, a.RunProgram(p))
	a.StopProgram()

	assert.Equal(t, 3, updates)
}

func TestAdapter_ReadWriteProgram(t *testing.T) {
	a, _ := newTestAdapter(t)
	path := filepath.Join(t.TempDir(), "draw.txt")

	p := addSource(t, a, drawing)
	require.NoError(t, a.WriteProgram(p, path))
	assert.Equal(t, path, p.Filename)

	loaded := a.AddProgram()
	require.NoError(t, a.ReadProgram(loaded, path))
	assert.True(t, a.GetCompile(loaded))
	assert.Equal(t, drawing, loaded.Script.Source())

	assert.Error(t, a.ReadProgram(loaded, filepath.Join(t.TempDir(), "missing.txt")))
	assert.ErrorIs(t, a.ReadProgram(nil, path), ErrNoProgram)
	assert.ErrorIs(t, a.WriteProgram(nil, path), ErrNoProgram)
	assert.False(t, a.GetCompile(nil))
}

func TestAdapter_WriteProgramFailureKeepsFilename(t *testing.T) {
	a, _ := newTestAdapter(t)
	p := &core.Program{Script: &stubScript{}, Filename: "old.txt"}

	assert.Error(t, a.WriteProgram(p, "new.txt"))
	assert.Equal(t, "old.txt", p.Filename)
}

func TestAdapter_ReadSoluce(t *testing.T) {
	dir := t.TempDir()
	soluce := filepath.Join(dir, "soluce.txt")
	require.NoError(t, os.WriteFile(soluce, []byte(drawing), 0644))

	t.Run("new solution", func(t *testing.T) {
		a, _ := newTestAdapter(t)
		addSource(t, a, "{ move(1); }")

		require.NoError(t, a.ReadSoluce(soluce))

		require.Equal(t, 2, a.GetProgramCount())
		assert.True(t, a.GetProgramAt(1).ReadOnly)
		assert.False(t, a.GetProgramAt(0).ReadOnly)
	})

	t.Run("duplicate of existing program", func(t *testing.T) {
		a, _ := newTestAdapter(t)
		existing := addSource(t, a, drawing)

		require.NoError(t, a.ReadSoluce(soluce))

		assert.Equal(t, 1, a.GetProgramCount())
		assert.True(t, existing.ReadOnly)
	})

	t.Run("missing file", func(t *testing.T) {
		a, _ := newTestAdapter(t)

		assert.Error(t, a.ReadSoluce(filepath.Join(dir, "missing.txt")))
		assert.Equal(t, 0, a.GetProgramCount())
	})
}

func TestAdapter_StackRoundTrip(t *testing.T) {
	a, _ := newTestAdapter(t)
	addSource(t, a, "{ move(1); }")
	p := addSource(t, a, drawing)
	require.True(t, a.RunProgram(p))
	frame(a)

	var buf bytes.Buffer
	require.NoError(t, a.WriteStack(&buf))

	b, r := newTestAdapter(t)
	addSource(t, b, "{ move(1); }")
	addSource(t, b, drawing)
	require.NoError(t, b.ReadStack(&buf))

	assert.True(t, b.IsProgram())
	assert.Equal(t, 1, b.GetProgram())

	// the first frame already moved 2 of 8 units
	for i := 0; i < 3; i++ {
		frame(b)
	}
	assert.InDelta(t, 6.0, r.Position().X, 1e-9)
}

func TestAdapter_WriteStackStopped(t *testing.T) {
	a, _ := newTestAdapter(t)
	addSource(t, a, drawing)

	var buf bytes.Buffer
	require.NoError(t, a.WriteStack(&buf))
	assert.Equal(t, []byte{0, 0}, buf.Bytes())

	require.NoError(t, a.ReadStack(&buf))
	assert.False(t, a.IsProgram())
}

func TestAdapter_ReadStackErrors(t *testing.T) {
	a, _ := newTestAdapter(t)
	addSource(t, a, drawing)

	err := a.ReadStack(bytes.NewReader([]byte{1, 0, 5, 0}))
	assert.ErrorIs(t, err, ErrRankOutOfRange)

	assert.Error(t, a.ReadStack(bytes.NewReader(nil)))
	assert.Error(t, a.ReadStack(bytes.NewReader([]byte{1, 0})))

	stub := &core.Program{Script: &stubScript{stackErr: errors.New("corrupt")}}
	a.AppendProgram(stub)
	err = a.ReadStack(bytes.NewReader([]byte{1, 0, 1, 0}))
	assert.ErrorContains(t, err, "program 1")
	assert.False(t, a.IsProgram())
}
