package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridbots/programmable/internal/config"
	"github.com/gridbots/programmable/internal/level"
	"github.com/gridbots/programmable/internal/robot"
	"github.com/gridbots/programmable/internal/script"
	"github.com/gridbots/programmable/pkg/core"
)

func newCheckCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Compile program files and level manifests",
		Long:  `Compiles every program file given, or every program referenced by a level manifest (.toml, .yaml), and reports the result per file.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: s.wrap(func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				var err error
				if isManifest(path) {
					err = checkLevel(cmd, path)
				} else {
					err = checkProgram(cmd, path)
				}
				if err != nil {
					failed++
					s.log.Debug("Check failed", "file", path, "error", err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		}),
	}
}

func isManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".yaml", ".yml":
		return true
	}
	return false
}

// compileFile reads and compiles one program with a detached body.
func compileFile(path string) (string, error) {
	body := robot.New(0, "check", core.Vector{}, 0)
	sc := script.New(body, nil, config.GetScriptConfig())
	if err := sc.ReadScript(path); err != nil {
		return "", err
	}
	if err := sc.Compile(); err != nil {
		return "", err
	}
	return sc.Name(), nil
}

func checkProgram(cmd *cobra.Command, path string) error {
	name, err := compileFile(path)
	if err != nil {
		printf(cmd, "FAIL %s: %v\n", path, err)
		return err
	}
	if name == "" {
		name = "-"
	}
	printf(cmd, "ok   %s (%s)\n", path, name)
	return nil
}

func checkLevel(cmd *cobra.Command, path string) error {
	m, err := level.Load(path)
	if err != nil {
		printf(cmd, "FAIL %s: %v\n", path, err)
		return err
	}

	var errs []error
	for _, o := range m.Objects {
		for i, p := range o.Programs {
			label := fmt.Sprintf("%s: object %d program %d", path, o.ID, i)
			if p.File != "" {
				if _, err := compileFile(m.Path(p.File)); err != nil {
					printf(cmd, "FAIL %s: %v\n", label, err)
					errs = append(errs, err)
				}
				continue
			}
			sc := script.New(robot.New(o.ID, "check", core.Vector{}, 0), nil, config.GetScriptConfig())
			if err := sc.SetSource(p.Source); err != nil {
				printf(cmd, "FAIL %s: %v\n", label, err)
				errs = append(errs, err)
			}
		}
		if o.Soluce != "" {
			if _, err := compileFile(m.Path(o.Soluce)); err != nil {
				printf(cmd, "FAIL %s: object %d solution: %v\n", path, o.ID, err)
				errs = append(errs, err)
			}
		}
	}
	if len(errs) == 0 {
		printf(cmd, "ok   %s (%d objects)\n", path, len(m.Objects))
	}
	return errors.Join(errs...)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
