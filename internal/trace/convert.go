// Package trace turns recorded movement into script text and path geometry.
package trace

import (
	"fmt"
	"math"
	"strings"

	"github.com/gridbots/programmable/pkg/core"
)

// DefaultUnit is the length of one grid unit in world space.
const DefaultUnit = 4.0

// ProgramName is the entry point generated programs are declared with.
const ProgramName = "AutoDraw"

// Script converts records into a drawing program. Consecutive motions of the
// same kind are merged; consecutive pen changes keep the last colour.
// An empty trace converts to "".
func Script(records []core.TraceRecord, unit float64) string {
	if len(records) == 0 {
		return ""
	}
	if unit <= 0 {
		unit = DefaultUnit
	}

	var b strings.Builder
	fmt.Fprintf(&b, "extern void object::%s()\n{\n", ProgramName)

	last := core.TraceRecord{Oper: core.TraceStop}
	for _, r := range records {
		if r.Oper == last.Oper {
			if r.Oper == core.TracePen {
				last.Param = r.Param
			} else {
				last.Param += r.Param
			}
			continue
		}
		put(&b, last, unit)
		last = r
	}
	put(&b, last, unit)

	b.WriteString("}\n")
	return b.String()
}

func put(b *strings.Builder, r core.TraceRecord, unit float64) {
	switch r.Oper {
	case core.TraceAdvance:
		fmt.Fprintf(b, "\tmove(%.1f);\n", r.Param/unit)
	case core.TraceRecede:
		fmt.Fprintf(b, "\tmove(-%.1f);\n", r.Param/unit)
	case core.TraceTurn:
		fmt.Fprintf(b, "\tturn(%d);\n", int(math.Round(-r.Param*180/math.Pi)))
	case core.TracePen:
		color := core.TraceColor(int(r.Param))
		if color == core.TraceColorDefault {
			b.WriteString("\tpenup();\n")
		} else {
			fmt.Fprintf(b, "\tpendown(%s);\n", color)
		}
	}
}
