package script

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbots/programmable/pkg/core"
)

type fakeBody struct {
	distance float64
	angle    float64
	down     bool
	color    core.TraceColor
	penCalls int
}

func (b *fakeBody) Advance(d float64) { b.distance += d }
func (b *fakeBody) Rotate(a float64)  { b.angle += a }
func (b *fakeBody) SetPen(down bool, c core.TraceColor) {
	b.down, b.color = down, c
	b.penCalls++
}

type fakeCmdLine []float64

func (c fakeCmdLine) GetCmdLine(rank int) float64 {
	if rank < 0 || rank >= len(c) {
		return 0
	}
	return c[rank]
}

const square = `extern void object::Square()
{
	pendown(Red);
	move(2);   // two grid units
	turn(90);
	penup();
}
`

func newTestScript(t *testing.T, src string) (*Script, *fakeBody) {
	t.Helper()
	body := &fakeBody{}
	s := New(body, nil, DefaultConfig())
	require.NoError(t, s.SetSource(src))
	return s, body
}

func TestCompile_Valid(t *testing.T) {
	name, prog, err := compile(square)

	require.NoError(t, err)
	assert.Equal(t, "Square", name)
	require.Len(t, prog, 4)
	assert.Equal(t, opPenDown, prog[0].op)
	assert.Equal(t, core.TraceColorRed, prog[0].arg.color)
	assert.Equal(t, opMove, prog[1].op)
	assert.Equal(t, 2.0, prog[1].arg.value)
	assert.Equal(t, 4, prog[1].line)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"missing semicolon", "{\n\tmove(1)\n}", 2},
		{"unknown instruction", "{\n\tjump(1);\n}", 2},
		{"bad number", "{\n\tmove(far);\n}", 2},
		{"bad colour", "{\n\tpendown(Plaid);\n}", 2},
		{"penup argument", "{\n\tpenup(1);\n}", 2},
		{"missing argument", "{\n\tturn();\n}", 2},
		{"unbalanced", "{\n\tmove(1);\n", 3},
		{"stray brace", "}\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compile(tt.src)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.line, ce.Line)
		})
	}
}

func TestCompile_SeveralStatementsPerLine(t *testing.T) {
	_, prog, err := compile("{ move(1); turn(-45); }")

	require.NoError(t, err)
	require.Len(t, prog, 2)
	assert.Equal(t, -45.0, prog[1].arg.value)
}

func TestScript_RunRequiresCompile(t *testing.T) {
	s := New(&fakeBody{}, nil, DefaultConfig())
	err := s.SetSource("{ move(1) }")

	require.Error(t, err)
	assert.False(t, s.Run())
	assert.False(t, s.IsRunning())
	assert.Equal(t, "{ move(1) }", s.Source())
}

func TestScript_ContinueSpreadsMotionOverFrames(t *testing.T) {
	s, body := newTestScript(t, square)
	require.True(t, s.Run())

	// 8 units of motion at 8 units/s: half a second moves half the way
	assert.False(t, s.Continue(0.5))
	assert.True(t, body.down)
	assert.Equal(t, core.TraceColorRed, body.color)
	assert.InDelta(t, 4.0, body.distance, 1e-9)

	assert.False(t, s.Continue(0.5))
	assert.InDelta(t, 8.0, body.distance, 1e-9)

	// turn(90) takes one second at π/2 rad/s
	assert.True(t, s.Continue(1.0))
	assert.InDelta(t, -math.Pi/2, body.angle, 1e-9)
	assert.False(t, body.down)
	assert.False(t, s.IsRunning())
}

func TestScript_ContinueWhenStopped(t *testing.T) {
	s, body := newTestScript(t, square)

	assert.True(t, s.Continue(1))
	assert.Zero(t, body.penCalls)
}

func TestScript_CmdLineArguments(t *testing.T) {
	body := &fakeBody{}
	s := New(body, fakeCmdLine{0, 3}, Config{Unit: 1})
	require.NoError(t, s.SetSource("{ move(cmdline(1)); move(cmdline(7)); }"))

	require.True(t, s.Run())
	assert.True(t, s.Continue(0))
	assert.Equal(t, 3.0, body.distance)
}

func TestScript_Wait(t *testing.T) {
	s, _ := newTestScript(t, "{ wait(2); }")
	require.True(t, s.Run())

	assert.False(t, s.Continue(1.5))
	assert.True(t, s.Continue(0.5))
}

func TestScript_IntroduceVirus(t *testing.T) {
	s, _ := newTestScript(t, square)

	require.True(t, s.IntroduceVirus())

	assert.Contains(t, s.Source(), "pnedown(Red)")
	assert.Error(t, s.Compile())
	assert.False(t, s.Run())
}

func TestScript_IntroduceVirus_NothingToInfect(t *testing.T) {
	s, _ := newTestScript(t, "{\n}\n")

	assert.False(t, s.IntroduceVirus())
	assert.NoError(t, s.Compile())
}

func TestScript_Compare(t *testing.T) {
	a, _ := newTestScript(t, square)
	b, _ := newTestScript(t, "  "+square+"\r\n")
	c, _ := newTestScript(t, "{ move(1); }")

	assert.True(t, a.Compare(b))
	assert.False(t, a.Compare(c))
	assert.False(t, a.Compare(nil))
}

func TestScript_StackRoundTrip(t *testing.T) {
	s, _ := newTestScript(t, square)
	require.True(t, s.Run())
	require.False(t, s.Continue(0.25))

	var buf bytes.Buffer
	require.NoError(t, s.WriteStack(&buf))

	body := &fakeBody{}
	restored := New(body, nil, DefaultConfig())
	require.NoError(t, restored.SetSource(square))
	require.NoError(t, restored.ReadStack(&buf))

	assert.True(t, restored.IsRunning())
	assert.Equal(t, s.st, restored.st)

	// the remaining 6 units finish in 0.75s
	assert.False(t, restored.Continue(0.75))
	assert.InDelta(t, 6.0, body.distance, 1e-9)
}

func TestScript_ReadStack_Errors(t *testing.T) {
	s, _ := newTestScript(t, square)

	err := s.ReadStack(bytes.NewReader(nil))
	assert.Error(t, err)

	other, _ := newTestScript(t, "{ move(1); move(1); move(1); move(1); move(1); move(1); }")
	require.True(t, other.Run())
	other.st.PC = 6
	var buf bytes.Buffer
	require.NoError(t, other.WriteStack(&buf))

	err = s.ReadStack(&buf)
	assert.ErrorContains(t, err, "outside program")
}

func TestScript_ReadStack_NotCompiled(t *testing.T) {
	good, _ := newTestScript(t, square)
	var buf bytes.Buffer
	require.NoError(t, good.WriteStack(&buf))

	bad := New(&fakeBody{}, nil, DefaultConfig())
	_ = bad.SetSource("{ jump(); }")

	assert.ErrorIs(t, bad.ReadStack(&buf), ErrNotCompiled)
}

func TestScript_ReadWriteScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "programs", "square.txt")

	s, _ := newTestScript(t, square)
	require.NoError(t, s.WriteScript(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, square, string(data))

	loaded := New(&fakeBody{}, nil, DefaultConfig())
	require.NoError(t, loaded.ReadScript(path))
	assert.Equal(t, "Square", loaded.Name())
	assert.True(t, loaded.Compare(s))

	assert.Error(t, loaded.ReadScript(filepath.Join(dir, "missing.txt")))
}

func TestFactory(t *testing.T) {
	body := &fakeBody{}
	f := Factory(body, Config{Unit: 2})

	sc := f(fakeCmdLine{5})
	require.NoError(t, sc.SetSource("{ move(cmdline(0)); }"))
	require.True(t, sc.Run())
	sc.Continue(0)

	assert.Equal(t, 10.0, body.distance)
}
