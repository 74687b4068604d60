package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ersonp/realmforge/internal/application/handlers"
	"github.com/ersonp/realmforge/internal/domain/entities"
)

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Inspect maps of the active world",
	}
	cmd.AddCommand(newMapHitCmd())
	return cmd
}

func newMapHitCmd() *cobra.Command {
	var (
		req    handlers.HitRequest
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "hit MAP_ID X Y",
		Short: "Resolve a click at canvas position X,Y to a marker or region",
		Long: "Opens the map on a canvas of --width x --height pixels with the given view " +
			"and reports which marker or region a click at X,Y would select.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := parseCoordinate("X", args[1])
			if err != nil {
				return err
			}
			y, err := parseCoordinate("Y", args[2])
			if err != nil {
				return err
			}
			if err := checkFinite(map[string]float64{
				"--zoom": req.Zoom, "--rotation": req.Rotation, "--width": req.Width, "--height": req.Height,
			}); err != nil {
				return err
			}
			req.MapID = args[0]
			req.Canvas = entities.Point{X: x, Y: y}

			return withDeps(cmd.Context(), func(d *Deps) error {
				if req.Width <= 0 {
					req.Width = d.Config.Map.CanvasWidth
				}
				if req.Height <= 0 {
					req.Height = d.Config.Map.CanvasHeight
				}

				result, err := d.Maps.HandleHit(cmd.Context(), req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(os.Stdout, result)
				}
				printHit(os.Stdout, result)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&req.Zoom, "zoom", 0, "Zoom level (default: fit)")
	cmd.Flags().Float64Var(&req.Rotation, "rotation", 0, "Rotation in degrees")
	cmd.Flags().StringVar(&req.Layer, "layer", "", "Only hit elements on this layer (default: all)")
	cmd.Flags().BoolVar(&req.HideMarkers, "hide-markers", false, "Hide markers so only regions are hit")
	cmd.Flags().Float64Var(&req.Width, "width", 0, "Canvas width in pixels (default from config)")
	cmd.Flags().Float64Var(&req.Height, "height", 0, "Canvas height in pixels (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

// parseCoordinate parses a canvas coordinate, rejecting NaN and infinities.
func parseCoordinate(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q: must be a finite number", name, s)
	}
	return v, nil
}

func checkFinite(values map[string]float64) error {
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number", name)
		}
	}
	return nil
}

func printHit(w io.Writer, r *handlers.HitResult) {
	fmt.Fprintf(w, "Map %q at world (%.1f, %.1f), zoom %.2f\n", r.MapName, r.World.X, r.World.Y, r.Zoom)
	switch {
	case r.Marker != nil:
		fmt.Fprintf(w, "Marker: %s (%s)\n", r.Marker.Name, r.Marker.ID)
	case r.Region != nil:
		fmt.Fprintf(w, "Region: %s [%s] (%s)\n", r.Region.Name, r.Region.Type, r.Region.ID)
	default:
		fmt.Fprintln(w, "Nothing here.")
	}
}
