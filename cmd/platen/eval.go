package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chazu/platen/pkg/scene"
)

func newEvalCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "eval [file]",
		Short: "Evaluate a scene and list its visible parts",
		Long:  "Evaluate a scene script, run its difference groups, and print every visible part with its triangle count, volume and bounds.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.open(args[0])
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PART\tOUTPUT\tTRIANGLES\tVOLUME\tSIZE")
			var total float64
			parts := 0
			for item := range scene.VisibleMeshes(ws.Root()) {
				if item.Mesh.IsEmpty() {
					continue
				}
				// Volume scales with the determinant of the placement.
				vol := item.Mesh.Volume() * math.Abs(item.World.Det())
				size := item.Mesh.Bounds().Transform(item.World).Size()
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%.2f x %.2f x %.2f\n",
					item.Node.Name, item.Node.OutputType, item.Mesh.TriangleCount(), vol, size[0], size[1], size[2])
				total += vol
				parts++
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d parts, total volume %.3f\n", parts, total)

			for _, dg := range ws.Differences() {
				stats, _ := dg.Task().Stats()
				fmt.Fprintf(out, "difference %q: %s, %d keeps, %d holes, %d subtractions\n",
					dg.Node.Name, dg.Task().State(), stats.Keeps, stats.Holes, stats.Pairs)
			}
			return nil
		},
	}
}
