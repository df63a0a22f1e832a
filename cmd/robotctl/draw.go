package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDrawCmd(s *session) *cobra.Command {
	opts := &runOptions{}
	var objectID int
	cmd := &cobra.Command{
		Use:   "draw LEVEL",
		Short: "Record one object while the level runs and print the program replaying it",
		Args:  cobra.ExactArgs(1),
		RunE: s.wrap(func(cmd *cobra.Command, args []string) error {
			opts.record = []int{objectID}
			res, err := s.runLevel(args[0], *opts)
			if err != nil {
				return err
			}
			prog, ok := res.autos[objectID]
			if !ok {
				return fmt.Errorf("object %d did not move", objectID)
			}
			fmt.Fprint(cmd.OutOrStdout(), prog.Script.Source())
			return nil
		}),
	}
	addRunFlags(cmd, opts)
	cmd.Flags().IntVar(&objectID, "object", 0, "ID of the object to record")
	_ = cmd.MarkFlagRequired("object")
	return cmd
}
