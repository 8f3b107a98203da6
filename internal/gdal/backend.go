package gdal

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/reproject"
	"github.com/multiply-org/multiply-core/pkg/utils"
)

var registerOnce sync.Once

// Register registers all GDAL drivers. It is safe to call more than once.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

// Backend opens, transforms and warps rasters with GDAL.
type Backend struct {
	logger *slog.Logger
}

// NewBackend creates a Backend and registers the GDAL drivers.
func NewBackend(logger *slog.Logger) *Backend {
	Register()
	return &Backend{logger: utils.OrDefault(logger).With("component", "gdal")}
}

var _ reproject.Backend = (*Backend)(nil)

// Raster wraps a GDAL dataset.
type Raster struct {
	ds *godal.Dataset
}

// Wrap returns ds as a Raster. Closing the Raster closes ds.
func Wrap(ds *godal.Dataset) *Raster { return &Raster{ds: ds} }

// Dataset returns the underlying GDAL dataset.
func (r *Raster) Dataset() *godal.Dataset { return r.ds }

// SpatialReference returns the dataset's reference system as WKT, or "" when
// it has none.
func (r *Raster) SpatialReference() (reproject.SRS, error) {
	sr := r.ds.SpatialRef()
	if sr == nil {
		return "", nil
	}
	defer sr.Close()
	wkt, err := sr.WKT()
	if err != nil {
		return "", err
	}
	return reproject.SRS(wkt), nil
}

// GeoTransform returns the dataset's geotransform.
func (r *Raster) GeoTransform() ([6]float64, error) {
	return r.ds.GeoTransform()
}

// Size returns the raster width and height in pixels.
func (r *Raster) Size() (int, int) {
	st := r.ds.Structure()
	return st.SizeX, st.SizeY
}

// Bands returns the number of bands.
func (r *Raster) Bands() int {
	return r.ds.Structure().NBands
}

// Close closes the dataset.
func (r *Raster) Close() error {
	return r.ds.Close()
}

// Open opens the raster at path read-only.
func (b *Backend) Open(path string) (reproject.Raster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataAccess, "failed to open raster").
			WithComponent("gdal").
			WithContext("path", path)
	}
	return &Raster{ds: ds}, nil
}

// Transform transforms coords from src to dst. Geographic reference systems
// take longitude first.
func (b *Backend) Transform(src, dst reproject.SRS, coords []float64) ([]float64, error) {
	srcRef, err := SpatialRef(src)
	if err != nil {
		return nil, err
	}
	defer srcRef.Close()
	dstRef, err := SpatialRef(dst)
	if err != nil {
		return nil, err
	}
	defer dstRef.Close()

	trn, err := godal.NewTransform(srcRef, dstRef)
	if err != nil {
		return nil, fmt.Errorf("create transform: %w", err)
	}
	defer trn.Close()

	n := len(coords) / 2
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range n {
		xs[i], ys[i] = coords[2*i], coords[2*i+1]
	}
	ok := make([]bool, n)
	if err := trn.TransformEx(xs, ys, nil, ok); err != nil {
		return nil, fmt.Errorf("transform points: %w", err)
	}

	out := make([]float64, 2*n)
	for i := range n {
		if !ok[i] {
			return nil, fmt.Errorf("point %d (%g, %g) could not be transformed", i, coords[2*i], coords[2*i+1])
		}
		out[2*i], out[2*i+1] = xs[i], ys[i]
	}
	return out, nil
}

// Warp warps src, which must have been opened by a Backend, according to
// opts. An empty output produces an in-memory dataset, anything else a
// GeoTIFF.
func (b *Backend) Warp(src reproject.Raster, opts reproject.WarpOptions) (reproject.Raster, error) {
	r, ok := src.(*Raster)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInternalError, "cannot warp %T with GDAL", src).
			WithComponent("gdal")
	}

	dstRef, err := SpatialRef(opts.DstSRS)
	if err != nil {
		return nil, err
	}
	defer dstRef.Close()
	dstWKT, err := dstRef.WKT()
	if err != nil {
		return nil, fmt.Errorf("export destination reference system: %w", err)
	}

	out, err := r.ds.Warp(opts.Output, warpSwitches(opts, dstWKT))
	if err != nil {
		return nil, err
	}
	b.logger.Debug("warped raster", "output", opts.Output, "resampling", opts.Resampling)
	return &Raster{ds: out}, nil
}

func warpSwitches(opts reproject.WarpOptions, dstWKT string) []string {
	format := "MEM"
	if opts.Output != "" {
		format = "GTiff"
	}
	switches := []string{
		"-of", format,
		"-t_srs", dstWKT,
		"-te", ftoa(opts.Bounds[0]), ftoa(opts.Bounds[1]), ftoa(opts.Bounds[2]), ftoa(opts.Bounds[3]),
		"-tr", ftoa(opts.XRes), ftoa(opts.YRes),
	}
	if opts.Resampling != "" {
		switches = append(switches, "-r", string(opts.Resampling))
	}
	return switches
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SpatialRef builds a GDAL spatial reference from an EPSG code or WKT. The
// caller closes it.
func SpatialRef(srs reproject.SRS) (*godal.SpatialRef, error) {
	if srs.IsEPSG() {
		code, err := strconv.Atoi(strings.TrimSpace(string(srs)[len("EPSG:"):]))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid EPSG code").
				WithComponent("gdal").
				WithContext("srs", string(srs))
		}
		sr, err := godal.NewSpatialRefFromEPSG(code)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "unknown EPSG code").
				WithComponent("gdal").
				WithContext("srs", string(srs))
		}
		return sr, nil
	}
	sr, err := godal.NewSpatialRefFromWKT(string(srs))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid reference system").
			WithComponent("gdal")
	}
	return sr, nil
}

// ReprojectToWGS84 reprojects a WKT geometry given in srs to longitude and
// latitude.
func ReprojectToWGS84(wkt string, srs reproject.SRS) (string, error) {
	Register()

	srcRef, err := SpatialRef(srs)
	if err != nil {
		return "", err
	}
	defer srcRef.Close()
	wgs84, err := SpatialRef(reproject.EPSG(4326))
	if err != nil {
		return "", err
	}
	defer wgs84.Close()

	g, err := godal.NewGeometryFromWKT(wkt, srcRef)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidRegion, "invalid region geometry").
			WithComponent("gdal")
	}
	defer g.Close()
	if err := g.Reproject(wgs84); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeTransformFailed, "failed to reproject region").
			WithComponent("gdal").
			WithContext("srs", string(srs))
	}
	return g.WKT()
}
