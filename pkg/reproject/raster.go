package reproject

import (
	"fmt"
	"strings"

	"github.com/multiply-org/multiply-core/pkg/errors"
)

// SRS is a spatial reference system given as an authority code such as
// "EPSG:4326" or as WKT.
type SRS string

// EPSG returns the SRS for an EPSG code.
func EPSG(code int) SRS {
	return SRS(fmt.Sprintf("EPSG:%d", code))
}

// IsEPSG reports whether s is an EPSG authority code.
func (s SRS) IsEPSG() bool {
	return strings.HasPrefix(strings.ToUpper(string(s)), "EPSG:")
}

func (s SRS) String() string { return string(s) }

// Resampling names a warp resampling algorithm.
type Resampling string

// Resampling algorithms understood by the warp backend.
const (
	Nearest     Resampling = "near"
	Bilinear    Resampling = "bilinear"
	Cubic       Resampling = "cubic"
	CubicSpline Resampling = "cubicspline"
	Lanczos     Resampling = "lanczos"
	Average     Resampling = "average"
	Mode        Resampling = "mode"
	Max         Resampling = "max"
	Min         Resampling = "min"
	Median      Resampling = "med"
	Q1          Resampling = "q1"
	Q3          Resampling = "q3"
)

var knownResampling = map[Resampling]bool{
	Nearest: true, Bilinear: true, Cubic: true, CubicSpline: true, Lanczos: true, Average: true,
	Mode: true, Max: true, Min: true, Median: true, Q1: true, Q3: true,
}

// ParseResampling validates a resampling name. An empty name selects the
// mode automatically and is returned as "".
func ParseResampling(name string) (Resampling, error) {
	r := Resampling(strings.ToLower(strings.TrimSpace(name)))
	if r == "" || knownResampling[r] {
		return r, nil
	}
	return "", errors.Newf(errors.ErrCodeInvalidConfig, "unknown resampling mode %q", name).
		WithComponent("reproject")
}

// Raster is an opened raster dataset.
type Raster interface {
	SpatialReference() (SRS, error)
	GeoTransform() ([6]float64, error)
	Size() (width, height int)
	Close() error
}

// Transformer transforms flat [x1, y1, x2, y2, ...] coordinate sequences
// between reference systems.
type Transformer interface {
	Transform(src, dst SRS, coords []float64) ([]float64, error)
}

// WarpOptions describes one warp. Bounds are xmin, ymin, xmax, ymax in DstSRS.
// An empty Output keeps the result in memory.
type WarpOptions struct {
	DstSRS     SRS
	Bounds     [4]float64
	XRes       float64
	YRes       float64
	Resampling Resampling
	Output     string
}

// Backend opens and warps rasters.
type Backend interface {
	Transformer
	Open(path string) (Raster, error)
	Warp(src Raster, opts WarpOptions) (Raster, error)
}
