package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/platen/pkg/scene"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check the structure of an evaluated scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.open(args[0])
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			findings := ws.Validate()
			failed := 0
			for _, f := range findings {
				fmt.Fprintln(out, f)
				if f.Severity == scene.SeverityError {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%s: %d validation errors", args[0], failed)
			}
			fmt.Fprintf(out, "%s: ok (%d warnings)\n", args[0], len(findings))
			return nil
		},
	}
}
