package trace

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/gridbots/programmable/pkg/core"
)

// Path projects points onto the ground plane and joins them into a line.
// Fewer than two points, or points geom refuses to join, give an empty line
// string.
func Path(points []core.Vector) geom.LineString {
	if len(points) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Z)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}
	}
	return ls
}

// ProjectedDistance is the distance between a and b on the ground plane.
func ProjectedDistance(a, b core.Vector) float64 {
	return Path([]core.Vector{a, b}).Length()
}

// Heading is the unit forward vector on the ground plane for a rotation
// around Y. The forward axis is +X.
func Heading(angle float64) (x, z float64) {
	return math.Cos(angle), -math.Sin(angle)
}

// Replay walks records from origin facing heading and returns the visited
// positions, starting with origin. Only moves add points.
func Replay(origin core.Vector, heading float64, records []core.TraceRecord) []core.Vector {
	points := []core.Vector{origin}
	pos := origin
	for _, r := range records {
		switch r.Oper {
		case core.TraceTurn:
			heading += r.Param
		case core.TraceAdvance, core.TraceRecede:
			d := r.Param
			if r.Oper == core.TraceRecede {
				d = -d
			}
			hx, hz := Heading(heading)
			pos.X += hx * d
			pos.Z += hz * d
			points = append(points, pos)
		}
	}
	return points
}
