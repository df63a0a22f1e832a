// Package level loads level manifests and populates a world from them.
//
// A manifest is TOML or YAML, chosen by file extension, and lists the
// objects of the level with their pose, pen, command line and programs.
// Relative file names inside a manifest resolve against its directory.
package level

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gridbots/programmable/internal/robot"
	"github.com/gridbots/programmable/internal/world"
	"github.com/gridbots/programmable/pkg/core"
)

// Manifest describes a level.
type Manifest struct {
	Name    string   `toml:"name" yaml:"name"`
	Objects []Object `toml:"objects" yaml:"objects"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-" yaml:"-"`
}

// Object is one programmable robot of the level.
type Object struct {
	ID       int         `toml:"id" yaml:"id"`
	Name     string      `toml:"name" yaml:"name"`
	Position core.Vector `toml:"position" yaml:"position"`
	Heading  float64     `toml:"heading" yaml:"heading"` // degrees
	Pen      Pen         `toml:"pen" yaml:"pen"`
	CmdLine  []float64   `toml:"cmdline" yaml:"cmdline"`
	Programs []Program   `toml:"programs" yaml:"programs"`
	Soluce   string      `toml:"soluce" yaml:"soluce"`
	Run      *int        `toml:"run" yaml:"run"`       // program started with the mission
	Record   bool        `toml:"record" yaml:"record"` // record the trace from the start
}

// Pen is the initial pen state.
type Pen struct {
	Down  bool   `toml:"down" yaml:"down"`
	Color string `toml:"color" yaml:"color"`
}

// Program is either a file or inline source.
type Program struct {
	File     string `toml:"file" yaml:"file"`
	Source   string `toml:"source" yaml:"source"`
	ReadOnly bool   `toml:"readonly" yaml:"readonly"`
	Hidden   bool   `toml:"hidden" yaml:"hidden"` // not runnable by the player
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest extension %q", ext)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks object IDs, pen colours and program references.
func (m *Manifest) Validate() error {
	var errs []error
	seen := make(map[int]bool, len(m.Objects))
	for _, o := range m.Objects {
		if seen[o.ID] {
			errs = append(errs, fmt.Errorf("object %d: duplicate id", o.ID))
		}
		seen[o.ID] = true

		if o.Pen.Color != "" {
			if _, ok := core.ParseTraceColor(o.Pen.Color); !ok {
				errs = append(errs, fmt.Errorf("object %d: unknown pen color %q", o.ID, o.Pen.Color))
			}
		}
		for i, p := range o.Programs {
			if p.File == "" && p.Source == "" {
				errs = append(errs, fmt.Errorf("object %d: program %d has neither file nor source", o.ID, i))
			}
		}
		if o.Run != nil && (*o.Run < 0 || *o.Run >= len(o.Programs)) {
			errs = append(errs, fmt.Errorf("object %d: run index %d out of range", o.ID, *o.Run))
		}
	}
	return errors.Join(errs...)
}

// Path resolves a file name from the manifest.
func (m *Manifest) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.Dir, name)
}

// Apply adds every object of m to w. Programs that do not compile are kept
// and reported through the world's logger by the adapter.
func Apply(w *world.World, m *Manifest) error {
	for _, o := range m.Objects {
		if err := m.applyObject(w, o); err != nil {
			return fmt.Errorf("object %d: %w", o.ID, err)
		}
	}
	return nil
}

func (m *Manifest) applyObject(w *world.World, o Object) error {
	name := o.Name
	if name == "" {
		name = fmt.Sprintf("robot%d", o.ID)
	}
	r := robot.New(o.ID, name, o.Position, o.Heading*math.Pi/180)
	if o.Pen.Color != "" || o.Pen.Down {
		color, _ := core.ParseTraceColor(o.Pen.Color)
		if o.Pen.Color == "" {
			color = core.TraceColorBlack
		}
		r.SetPen(o.Pen.Down, color)
	}

	a, err := w.Add(r)
	if err != nil {
		return err
	}
	for i, v := range o.CmdLine {
		a.SetCmdLine(i, v)
	}

	for i, spec := range o.Programs {
		p := a.AddProgram()
		if spec.File != "" {
			if err := a.ReadProgram(p, m.Path(spec.File)); err != nil {
				return fmt.Errorf("program %d: %w", i, err)
			}
			p.Filename = spec.File
		} else {
			_ = p.Script.SetSource(spec.Source)
		}
		p.ReadOnly = spec.ReadOnly
		p.Runnable = !spec.Hidden
	}

	if o.Soluce != "" {
		a.SetSoluceName(o.Soluce)
		if err := a.ReadSoluce(m.Path(o.Soluce)); err != nil {
			return err
		}
	}
	if o.Run != nil {
		a.SetScriptRun(a.GetProgramAt(*o.Run))
	}
	if o.Record {
		a.TraceRecordStart()
	}
	return nil
}
