package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chazu/platen/pkg/pick"
	"github.com/chazu/platen/pkg/props"
)

func newPickCmd(opts *options) *cobra.Command {
	var eye, target, up string
	cmd := &cobra.Command{
		Use:   "pick [file] [x] [y]",
		Short: "Report the part under a window position",
		Long:  "Evaluate a scene, place a look-at camera, and cast the ray under window pixel (x, y) measured from the top-left corner.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("x: %w", err)
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("y: %w", err)
			}
			var vecs [3]props.Vector
			for i, s := range []string{eye, target, up} {
				if vecs[i], err = props.ParseVector(s, nil); err != nil {
					return err
				}
			}

			ws, err := opts.open(args[0])
			if err != nil {
				return err
			}
			defer ws.Close()

			v := opts.cfg.Viewport
			ws.SetCamera(pick.NewPerspectiveCamera(vecs[0].V, vecs[1].V, vecs[2].V, v.FOVDegrees, v.Width, v.Height))
			res, ok, err := ws.Pick(x, y)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "no hit")
				return nil
			}
			p := res.Hit.Point
			fmt.Fprintf(out, "%s (%s) at %.3f, %.3f, %.3f distance %.3f\n", res.Node.Name, res.Node.ID, p[0], p[1], p[2], res.Hit.T)
			return nil
		},
	}
	cmd.Flags().StringVar(&eye, "eye", "100, -100, 100", "camera position")
	cmd.Flags().StringVar(&target, "target", "0, 0, 0", "point the camera looks at")
	cmd.Flags().StringVar(&up, "up", "0, 0, 1", "camera up direction")
	return cmd
}
