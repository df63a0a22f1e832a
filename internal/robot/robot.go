// Package robot is a kinematic game object that programs can drive.
package robot

import (
	"sync"

	"github.com/gridbots/programmable/internal/trace"
	"github.com/gridbots/programmable/pkg/core"
)

// Segment is a stretch of ground drawn while the pen was down.
type Segment struct {
	From  core.Vector
	To    core.Vector
	Color core.TraceColor
}

// Robot implements core.Object, core.Pen, core.Destroyable,
// core.InterfaceUpdater and script.Body.
type Robot struct {
	mu sync.RWMutex

	id       int
	name     string
	position core.Vector
	heading  float64

	penDown  bool
	penColor core.TraceColor
	segments []Segment

	dying    bool
	onUpdate func(*Robot)
}

// New creates a robot at position facing heading radians.
func New(id int, name string, position core.Vector, heading float64) *Robot {
	return &Robot{
		id:       id,
		name:     name,
		position: position,
		heading:  heading,
		penColor: core.TraceColorDefault,
	}
}

// ID returns the object identifier (immutable).
func (r *Robot) ID() int {
	return r.id
}

// Name returns the robot name (immutable).
func (r *Robot) Name() string {
	return r.name
}

// Position returns a copy of the current position.
func (r *Robot) Position() core.Vector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.position
}

// SetPosition teleports the robot without drawing.
func (r *Robot) SetPosition(p core.Vector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = p
}

// RotationY returns the heading in radians.
func (r *Robot) RotationY() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.heading
}

// SetRotationY sets the heading in radians.
func (r *Robot) SetRotationY(angle float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heading = angle
}

// Advance moves along the heading on the ground plane, drawing when the pen
// is down.
func (r *Robot) Advance(distance float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dx, dz := trace.Heading(r.heading)
	from := r.position
	r.position.X += dx * distance
	r.position.Z += dz * distance

	if r.penDown && distance != 0 {
		r.segments = append(r.segments, Segment{From: from, To: r.position, Color: r.penColor})
	}
}

// Rotate turns the robot by angle radians.
func (r *Robot) Rotate(angle float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heading += angle
}

// SetPen raises or lowers the pen.
func (r *Robot) SetPen(down bool, color core.TraceColor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.penDown = down
	if down {
		r.penColor = color
	} else {
		r.penColor = core.TraceColorDefault
	}
}

// TraceDown reports whether the pen is down.
func (r *Robot) TraceDown() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.penDown
}

// TraceColor returns the pen colour.
func (r *Robot) TraceColor() core.TraceColor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.penColor
}

// Segments returns a copy of everything drawn so far.
func (r *Robot) Segments() []Segment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Segment, len(r.segments))
	copy(out, r.segments)
	return out
}

// Destroy marks the robot as dying.
func (r *Robot) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dying = true
}

// IsDying reports whether the robot is being destroyed.
func (r *Robot) IsDying() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dying
}

// OnUpdate registers fn to run when the robot's controls need refreshing.
func (r *Robot) OnUpdate(fn func(*Robot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdate = fn
}

// UpdateInterface notifies the registered listener, if any.
func (r *Robot) UpdateInterface() {
	r.mu.RLock()
	fn := r.onUpdate
	r.mu.RUnlock()
	if fn != nil {
		fn(r)
	}
}
