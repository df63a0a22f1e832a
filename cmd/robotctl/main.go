// Command robotctl checks robot programs and runs levels of programmable
// robots, archiving their programs and drawn traces.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	s := &session{}

	rootCmd := &cobra.Command{
		Use:           "robotctl",
		Short:         "Run and inspect programmable robots",
		Long:          `robotctl compiles robot programs, runs levels frame by frame and converts recorded movement back into programs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.open(cmd)
		},
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&s.configDir, "config", ".", "Directory containing "+configFileHint)
	rootCmd.PersistentFlags().BoolVar(&s.logToFile, "log-file", false, "Write logs to the logs directory instead of stderr")

	rootCmd.AddCommand(
		newCheckCmd(s),
		newRunCmd(s),
		newDrawCmd(s),
	)
	return rootCmd
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
