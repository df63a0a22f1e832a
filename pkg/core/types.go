// pkg/core/types.go
package core

import (
	"fmt"
	"strings"
)

// Vector is a position in world space. Y is up; the ground plane is X/Z.
type Vector struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
	Z float64 `json:"z" yaml:"z" toml:"z"`
}

func (v Vector) String() string {
	return fmt.Sprintf("%.2f,%.2f,%.2f", v.X, v.Y, v.Z)
}

// TraceOper is a discretized movement operation captured while recording.
type TraceOper int

const (
	TraceStop    TraceOper = 0
	TraceAdvance TraceOper = 1
	TraceRecede  TraceOper = 2
	TraceTurn    TraceOper = 3
	TracePen     TraceOper = 4
)

func (o TraceOper) String() string {
	switch o {
	case TraceStop:
		return "stop"
	case TraceAdvance:
		return "advance"
	case TraceRecede:
		return "recede"
	case TraceTurn:
		return "turn"
	case TracePen:
		return "pen"
	default:
		return fmt.Sprintf("oper(%d)", int(o))
	}
}

// TraceRecord is one entry of a movement trace.
// Param is a distance for advance/recede, a signed angle in radians for
// turn and a TraceColor for pen.
type TraceRecord struct {
	Oper  TraceOper `json:"oper"`
	Param float64   `json:"param"`
}

// TraceColor is the colour of the pen an object draws with.
type TraceColor int

const (
	TraceColorDefault TraceColor = iota - 1
	TraceColorWhite
	TraceColorBlack
	TraceColorGray
	TraceColorLightGray
	TraceColorRed
	TraceColorPink
	TraceColorPurple
	TraceColorOrange
	TraceColorYellow
	TraceColorBeige
	TraceColorBrown
	TraceColorSkin
	TraceColorGreen
	TraceColorLightGreen
	TraceColorBlue
	TraceColorLightBlue
	TraceColorBlackArrow
	TraceColorRedArrow
	traceColorMax
)

var traceColorNames = [...]string{
	"White",
	"Black",
	"Gray",
	"LightGray",
	"Red",
	"Pink",
	"Purple",
	"Orange",
	"Yellow",
	"Beige",
	"Brown",
	"Skin",
	"Green",
	"LightGreen",
	"Blue",
	"LightBlue",
	"BlackArrow",
	"RedArrow",
}

// String returns the script constant naming the colour.
func (c TraceColor) String() string {
	if c >= TraceColorWhite && c < traceColorMax {
		return traceColorNames[c]
	}
	return "Default"
}

// ParseTraceColor resolves a script colour constant, ignoring case.
func ParseTraceColor(name string) (TraceColor, bool) {
	if strings.EqualFold(name, "Default") {
		return TraceColorDefault, true
	}
	for i, n := range traceColorNames {
		if strings.EqualFold(n, name) {
			return TraceColor(i), true
		}
	}
	return TraceColorDefault, false
}
