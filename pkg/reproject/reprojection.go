package reproject

import (
	"log/slog"
	"time"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/utils"
)

// Recorder receives resampling decisions and warp timings.
type Recorder interface {
	RecordResampling(mode string)
	ObserveReprojection(duration time.Duration, err error)
}

// Option configures a Reprojection.
type Option func(*Reprojection)

// WithBoundsSRS declares the reference system the bounds are given in. By
// default bounds are in the destination reference system.
func WithBoundsSRS(srs SRS) Option {
	return func(r *Reprojection) { r.boundsSRS = srs }
}

// WithResampling fixes the resampling mode instead of choosing it per raster.
func WithResampling(mode Resampling) Option {
	return func(r *Reprojection) { r.resampling = mode }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reprojection) { r.logger = utils.OrDefault(logger).With("component", "reproject") }
}

// WithRecorder reports decisions and timings to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Reprojection) { r.recorder = rec }
}

// Reprojection warps rasters onto one destination grid. It holds no per
// raster state and can be applied to any number of rasters.
type Reprojection struct {
	backend    Backend
	bounds     [4]float64
	xRes       float64
	yRes       float64
	dstSRS     SRS
	boundsSRS  SRS
	resampling Resampling
	logger     *slog.Logger
	recorder   Recorder
}

// NewReprojection creates a reprojection onto bounds (xmin, ymin, xmax, ymax)
// at xRes by yRes in dstSRS.
func NewReprojection(backend Backend, bounds [4]float64, xRes, yRes float64, dstSRS SRS, opts ...Option) (*Reprojection, error) {
	if backend == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "reprojection needs a raster backend").
			WithComponent("reproject")
	}
	if dstSRS == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "destination reference system is required").
			WithComponent("reproject")
	}
	if err := checkRequest(bounds, xRes, yRes); err != nil {
		return nil, err
	}

	r := &Reprojection{
		backend: backend,
		bounds:  bounds,
		xRes:    xRes,
		yRes:    yRes,
		dstSRS:  dstSRS,
		logger:  slog.Default().With("component", "reproject"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.boundsSRS == "" {
		r.boundsSRS = dstSRS
	}
	return r, nil
}

// NewReprojectionToMatch creates a reprojection onto the grid and reference
// system of target.
func NewReprojectionToMatch(backend Backend, target Raster, opts ...Option) (*Reprojection, error) {
	srs, err := GetSpatialReferenceSystem(target)
	if err != nil {
		return nil, err
	}
	grid, err := GridOf(target)
	if err != nil {
		return nil, err
	}
	return NewReprojection(backend, grid.Bounds, grid.XRes, grid.YRes, srs, opts...)
}

// Plan is the warp that Reproject would run for one raster.
type Plan struct {
	SrcSRS     SRS
	DstSRS     SRS
	Resampling Resampling
	Grid       Grid
}

// Plan decides the resampling mode and output grid for src without warping.
func (r *Reprojection) Plan(src Raster) (Plan, error) {
	srcSRS, err := GetSpatialReferenceSystem(src)
	if err != nil {
		return Plan{}, err
	}
	grid, err := PlanGrid(r.backend, r.bounds, r.boundsSRS, r.dstSRS, r.xRes, r.yRes)
	if err != nil {
		return Plan{}, err
	}

	mode := r.resampling
	if mode == "" {
		mode, err = SelectResampling(r.backend, src, r.bounds, r.xRes, r.yRes, r.boundsSRS, r.dstSRS)
		if err != nil {
			return Plan{}, err
		}
	}
	return Plan{SrcSRS: srcSRS, DstSRS: r.dstSRS, Resampling: mode, Grid: grid}, nil
}

// Reproject warps src into an in-memory raster.
func (r *Reprojection) Reproject(src Raster) (Raster, error) {
	return r.ReprojectTo(src, "")
}

// ReprojectTo warps src and writes the result to output. An empty output
// keeps the result in memory.
func (r *Reprojection) ReprojectTo(src Raster, output string) (out Raster, err error) {
	started := time.Now()
	defer func() {
		if r.recorder != nil {
			r.recorder.ObserveReprojection(time.Since(started), err)
		}
	}()

	plan, err := r.Plan(src)
	if err != nil {
		return nil, err
	}
	if r.recorder != nil {
		r.recorder.RecordResampling(string(plan.Resampling))
	}
	r.logger.Debug("warping raster",
		"src_srs", plan.SrcSRS, "dst_srs", plan.DstSRS,
		"resampling", plan.Resampling,
		"width", plan.Grid.Width, "height", plan.Grid.Height)

	out, err = r.backend.Warp(src, WarpOptions{
		DstSRS:     plan.DstSRS,
		Bounds:     plan.Grid.Bounds,
		XRes:       plan.Grid.XRes,
		YRes:       plan.Grid.YRes,
		Resampling: plan.Resampling,
		Output:     output,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeWarpFailed, "warp failed").
			WithComponent("reproject").
			WithOperation("Reproject").
			WithContext("dst_srs", string(plan.DstSRS))
	}
	return out, nil
}

// ReprojectPath opens the raster at path and warps it into memory.
func (r *Reprojection) ReprojectPath(path string) (Raster, error) {
	return r.ReprojectFile(path, "")
}

// ReprojectFile opens the raster at path and warps it to output. The source
// raster is closed before returning.
func (r *Reprojection) ReprojectFile(path, output string) (Raster, error) {
	src, err := r.backend.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataAccess, "failed to open raster").
			WithComponent("reproject").
			WithOperation("ReprojectPath").
			WithContext("path", path)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			r.logger.Warn("failed to close source raster", "path", path, "error", cerr)
		}
	}()
	return r.ReprojectTo(src, output)
}
