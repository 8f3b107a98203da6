package reproject

import (
	"fmt"
	"time"
)

// Test reference systems. Metric coordinates are degrees scaled by 100 km.
const (
	degrees SRS = "EPSG:4326"
	metres  SRS = "TEST:METRES"
	broken  SRS = "TEST:BROKEN"
)

const metresPerDegree = 100000.0

type fakeTransformer struct {
	calls int
}

func (f *fakeTransformer) Transform(src, dst SRS, coords []float64) ([]float64, error) {
	f.calls++
	if src == broken || dst == broken {
		return nil, fmt.Errorf("cannot transform between %s and %s", src, dst)
	}
	scale := 1.0
	switch {
	case src == dst:
	case src == degrees && dst == metres:
		scale = metresPerDegree
	case src == metres && dst == degrees:
		scale = 1 / metresPerDegree
	default:
		return nil, fmt.Errorf("unknown pair %s -> %s", src, dst)
	}
	out := make([]float64, len(coords))
	for i, c := range coords {
		out[i] = c * scale
	}
	return out, nil
}

type fakeRaster struct {
	srs    SRS
	gt     [6]float64
	width  int
	height int
	closed bool
	srsErr error
}

func (r *fakeRaster) SpatialReference() (SRS, error) { return r.srs, r.srsErr }
func (r *fakeRaster) GeoTransform() ([6]float64, error) { return r.gt, nil }
func (r *fakeRaster) Size() (int, int)                 { return r.width, r.height }
func (r *fakeRaster) Close() error                     { r.closed = true; return nil }

type fakeBackend struct {
	fakeTransformer
	rasters map[string]*fakeRaster
	warps   []WarpOptions
	warpErr error
}

func (b *fakeBackend) Open(path string) (Raster, error) {
	r, ok := b.rasters[path]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", path)
	}
	return r, nil
}

func (b *fakeBackend) Warp(src Raster, opts WarpOptions) (Raster, error) {
	if b.warpErr != nil {
		return nil, b.warpErr
	}
	b.warps = append(b.warps, opts)
	w := int((opts.Bounds[2]-opts.Bounds[0])/opts.XRes + 0.5)
	h := int((opts.Bounds[3]-opts.Bounds[1])/opts.YRes + 0.5)
	return &fakeRaster{
		srs:    opts.DstSRS,
		gt:     [6]float64{opts.Bounds[0], opts.XRes, 0, opts.Bounds[3], 0, -opts.YRes},
		width:  w,
		height: h,
	}, nil
}

// degreeRaster is a one degree raster at 0.01° resolution, 100x100 pixels.
func degreeRaster() *fakeRaster {
	return &fakeRaster{srs: degrees, gt: [6]float64{0, 0.01, 0, 1, 0, -0.01}, width: 100, height: 100}
}

type fakeRecorder struct {
	modes     []string
	durations []time.Duration
	errs      []error
}

func (f *fakeRecorder) RecordResampling(mode string) { f.modes = append(f.modes, mode) }
func (f *fakeRecorder) ObserveReprojection(d time.Duration, err error) {
	f.durations = append(f.durations, d)
	f.errs = append(f.errs, err)
}
