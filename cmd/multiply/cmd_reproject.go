package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/multiply-org/multiply-core/internal/gdal"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/reproject"
)

type reprojectOptions struct {
	bounds     string
	boundsSRS  string
	dstSRS     string
	xRes       float64
	yRes       float64
	like       string
	resampling string
	out        string
	planOnly   bool
}

func newReprojectCmd(opts *rootOptions) *cobra.Command {
	ro := &reprojectOptions{}

	cmd := &cobra.Command{
		Use:   "reproject SRC",
		Short: "Reproject a raster onto a target grid",
		Long: `Warps SRC onto a target grid given either by --bounds, --xres, --yres and
--dst-srs or by the grid of the raster named with --like. The resampling
method is chosen from the source and target resolutions unless --resampling
or the configuration forces one.

Example:
  multiply reproject lai.tif --bounds 9,45,11,47 --bounds-srs 4326 \
    --dst-srs 32632 --xres 20 --yres 20 --out lai_utm.tif`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReproject(cmd, opts.app, ro, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&ro.bounds, "bounds", "", "Target bounds as minx,miny,maxx,maxy")
	f.StringVar(&ro.boundsSRS, "bounds-srs", "", "Reference system of --bounds (default: --dst-srs)")
	f.StringVar(&ro.dstSRS, "dst-srs", "", "Target reference system (EPSG code or WKT)")
	f.Float64Var(&ro.xRes, "xres", 0, "Target pixel width in target units")
	f.Float64Var(&ro.yRes, "yres", 0, "Target pixel height in target units")
	f.StringVar(&ro.like, "like", "", "Raster whose grid and reference system are matched")
	f.StringVar(&ro.resampling, "resampling", "", "Resampling method (default: chosen per raster)")
	f.StringVarP(&ro.out, "out", "o", "", "Output GeoTIFF")
	f.BoolVar(&ro.planOnly, "plan", false, "Print the planned warp without running it")
	return cmd
}

func runReproject(cmd *cobra.Command, app *application, ro *reprojectOptions, src string) error {
	if !ro.planOnly && ro.out == "" {
		return errors.NewError(errors.ErrCodeInvalidConfig, "--out is required").WithComponent("cli")
	}

	mode := ro.resampling
	if mode == "" {
		mode = app.cfg.Reprojection.Resampling
	}
	resampling, err := reproject.ParseResampling(mode)
	if err != nil {
		return err
	}

	backend := gdal.NewBackend(app.logger)
	rOpts := []reproject.Option{
		reproject.WithLogger(app.logger),
		reproject.WithRecorder(app.collector),
		reproject.WithResampling(resampling),
	}

	var r *reproject.Reprojection
	if ro.like != "" {
		if err := provide(app, ro.like); err != nil {
			return err
		}
		target, err := backend.Open(ro.like)
		if err != nil {
			return err
		}
		defer target.Close()
		r, err = reproject.NewReprojectionToMatch(backend, target, rOpts...)
		if err != nil {
			return err
		}
	} else {
		bounds, err := parseBounds(ro.bounds)
		if err != nil {
			return err
		}
		if ro.dstSRS == "" {
			return errors.NewError(errors.ErrCodeInvalidConfig, "--dst-srs or --like is required").WithComponent("cli")
		}
		if ro.boundsSRS != "" {
			rOpts = append(rOpts, reproject.WithBoundsSRS(parseSRS(ro.boundsSRS)))
		}
		r, err = reproject.NewReprojection(backend, bounds, ro.xRes, ro.yRes, parseSRS(ro.dstSRS), rOpts...)
		if err != nil {
			return err
		}
	}

	if err := provide(app, src); err != nil {
		return err
	}
	if ro.planOnly {
		raster, err := backend.Open(src)
		if err != nil {
			return err
		}
		defer raster.Close()
		plan, err := r.Plan(raster)
		if err != nil {
			return err
		}
		printPlan(cmd, plan)
		return nil
	}

	out, err := r.ReprojectFile(src, ro.out)
	if err != nil {
		return err
	}
	defer out.Close()
	width, height := out.Size()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d\n", ro.out, width, height)
	return nil
}

// provide makes path available locally through the aux data provider.
func provide(app *application, path string) error {
	if app.provider.AssureElementProvided(path) {
		return nil
	}
	return errors.Newf(errors.ErrCodeDataAccess, "%s is not available from aux data provider %s", path, app.provider.Name()).
		WithComponent("cli").
		WithContext("path", path)
}

func printPlan(cmd *cobra.Command, plan reproject.Plan) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "source srs:  %s\n", abbreviate(string(plan.SrcSRS)))
	fmt.Fprintf(w, "target srs:  %s\n", abbreviate(string(plan.DstSRS)))
	fmt.Fprintf(w, "resampling:  %s\n", plan.Resampling)
	fmt.Fprintf(w, "bounds:      %s\n", formatBounds(plan.Grid.Bounds))
	fmt.Fprintf(w, "resolution:  %s x %s\n", ftoa(plan.Grid.XRes), ftoa(plan.Grid.YRes))
	fmt.Fprintf(w, "size:        %dx%d\n", plan.Grid.Width, plan.Grid.Height)
}

// parseSRS accepts a bare EPSG code, an authority code such as "EPSG:4326"
// or WKT.
func parseSRS(value string) reproject.SRS {
	value = strings.TrimSpace(value)
	if code, err := strconv.Atoi(value); err == nil {
		return reproject.EPSG(code)
	}
	if strings.HasPrefix(strings.ToLower(value), "epsg:") {
		return reproject.SRS("EPSG:" + value[len("epsg:"):])
	}
	return reproject.SRS(value)
}

// parseBounds parses "minx,miny,maxx,maxy".
func parseBounds(value string) ([4]float64, error) {
	var bounds [4]float64
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return bounds, errors.Newf(errors.ErrCodeInvalidGrid, "bounds need four values minx,miny,maxx,maxy, got %q", value).
			WithComponent("cli")
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return bounds, errors.Wrap(err, errors.ErrCodeInvalidGrid, "invalid bounds value").
				WithComponent("cli").
				WithContext("value", part)
		}
		bounds[i] = v
	}
	if bounds[0] >= bounds[2] || bounds[1] >= bounds[3] {
		return bounds, errors.Newf(errors.ErrCodeInvalidGrid, "empty bounds %q", value).WithComponent("cli")
	}
	return bounds, nil
}

func formatBounds(b [4]float64) string {
	return strings.Join([]string{ftoa(b[0]), ftoa(b[1]), ftoa(b[2]), ftoa(b[3])}, ",")
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func abbreviate(s string) string {
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
