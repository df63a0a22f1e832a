package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gridbots/programmable/pkg/core"
)

type opcode int

const (
	opMove opcode = iota
	opTurn
	opPenDown
	opPenUp
	opWait
)

var keywords = map[string]opcode{
	"move":    opMove,
	"turn":    opTurn,
	"pendown": opPenDown,
	"penup":   opPenUp,
	"wait":    opWait,
}

// argument is a literal number, a colour constant or a command-line rank.
type argument struct {
	value  float64
	color  core.TraceColor
	rank   int
	isRank bool
}

type instruction struct {
	op   opcode
	arg  argument
	line int
}

// CompileError reports the first syntax error of a source.
type CompileError struct {
	Line int
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var (
	headerRe    = regexp.MustCompile(`^extern\s+void\s+object::(\w+)\s*\(\s*\)$`)
	statementRe = regexp.MustCompile(`^(\w+)\s*\(\s*(.*?)\s*\)$`)
	cmdLineRe   = regexp.MustCompile(`^cmdline\s*\(\s*(\d+)\s*\)$`)
)

// compile parses source into instructions and returns the declared name.
func compile(source string) (string, []instruction, error) {
	var (
		name  string
		prog  []instruction
		depth int
	)

	for i, raw := range strings.Split(source, "\n") {
		line := i + 1
		text := raw
		if idx := strings.Index(text, "//"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if m := headerRe.FindStringSubmatch(text); m != nil {
			if name != "" || len(prog) > 0 {
				return "", nil, &CompileError{Line: line, Msg: "only one program per source"}
			}
			name = m[1]
			continue
		}

		for text != "" {
			switch {
			case strings.HasPrefix(text, "{"):
				depth++
				text = strings.TrimSpace(text[1:])
				continue
			case strings.HasPrefix(text, "}"):
				depth--
				if depth < 0 {
					return "", nil, &CompileError{Line: line, Msg: "unexpected '}'"}
				}
				text = strings.TrimSpace(text[1:])
				continue
			}

			end := strings.IndexByte(text, ';')
			if end < 0 {
				return "", nil, &CompileError{Line: line, Msg: "missing ';'"}
			}
			ins, err := parseStatement(strings.TrimSpace(text[:end]), line)
			if err != nil {
				return "", nil, err
			}
			prog = append(prog, ins)
			text = strings.TrimSpace(text[end+1:])
		}
	}

	if depth != 0 {
		return "", nil, &CompileError{Line: strings.Count(source, "\n") + 1, Msg: "unbalanced braces"}
	}
	return name, prog, nil
}

func parseStatement(stmt string, line int) (instruction, error) {
	m := statementRe.FindStringSubmatch(stmt)
	if m == nil {
		return instruction{}, &CompileError{Line: line, Msg: fmt.Sprintf("invalid statement %q", stmt)}
	}
	op, ok := keywords[m[1]]
	if !ok {
		return instruction{}, &CompileError{Line: line, Msg: fmt.Sprintf("unknown instruction %q", m[1])}
	}
	ins := instruction{op: op, line: line}
	raw := m[2]

	switch op {
	case opPenUp:
		if raw != "" {
			return instruction{}, &CompileError{Line: line, Msg: "penup takes no argument"}
		}
	case opPenDown:
		ins.arg.color = core.TraceColorBlack
		if raw != "" {
			c, ok := core.ParseTraceColor(raw)
			if !ok || c == core.TraceColorDefault {
				return instruction{}, &CompileError{Line: line, Msg: fmt.Sprintf("unknown colour %q", raw)}
			}
			ins.arg.color = c
		}
	default:
		if raw == "" {
			return instruction{}, &CompileError{Line: line, Msg: fmt.Sprintf("%s needs an argument", m[1])}
		}
		arg, err := parseNumber(raw)
		if err != nil {
			return instruction{}, &CompileError{Line: line, Msg: err.Error()}
		}
		ins.arg = arg
	}
	return ins, nil
}

func parseNumber(raw string) (argument, error) {
	if m := cmdLineRe.FindStringSubmatch(raw); m != nil {
		rank, err := strconv.Atoi(m[1])
		if err != nil {
			return argument{}, fmt.Errorf("invalid rank %q", m[1])
		}
		return argument{rank: rank, isRank: true}, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return argument{}, fmt.Errorf("invalid number %q", raw)
	}
	return argument{value: v}, nil
}
