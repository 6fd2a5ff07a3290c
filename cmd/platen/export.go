package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file] [output.3mf]",
		Short: "Write the visible parts of a scene to a 3MF file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.open(args[0])
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.Export(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d parts to %s\n", len(ws.Meshes()), args[1])
			return nil
		},
	}
}
