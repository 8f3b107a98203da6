package reproject

import (
	"math"

	"github.com/multiply-org/multiply-core/pkg/errors"
)

// densifyPoints is the number of points sampled along each bounds edge.
const densifyPoints = 21

// Grid is an axis aligned output grid. Bounds are xmin, ymin, xmax, ymax; the
// origin is the upper left corner.
type Grid struct {
	Bounds [4]float64
	XRes   float64
	YRes   float64
	Width  int
	Height int
}

// GeoTransform returns the north-up geotransform of g.
func (g Grid) GeoTransform() [6]float64 {
	return [6]float64{g.Bounds[0], g.XRes, 0, g.Bounds[3], 0, -g.YRes}
}

// PlanGrid computes the destination grid for bounds given in boundsSRS. The
// bounds edges are densified and transformed into dstSRS, their envelope is
// covered with pixels of xRes by yRes and the pixel counts rounded. The grid
// keeps the upper left corner of the envelope; it is not snapped to any
// global grid.
func PlanGrid(t Transformer, bounds [4]float64, boundsSRS, dstSRS SRS, xRes, yRes float64) (Grid, error) {
	if err := checkRequest(bounds, xRes, yRes); err != nil {
		return Grid{}, err
	}

	pts, err := TransformCoordinates(t, boundsSRS, dstSRS, edgePoints(bounds))
	if err != nil {
		return Grid{}, err
	}

	xMin, yMin := math.Inf(1), math.Inf(1)
	xMax, yMax := math.Inf(-1), math.Inf(-1)
	for i := 0; i < len(pts); i += 2 {
		xMin, xMax = math.Min(xMin, pts[i]), math.Max(xMax, pts[i])
		yMin, yMax = math.Min(yMin, pts[i+1]), math.Max(yMax, pts[i+1])
	}

	width := int(math.Floor((xMax-xMin)/xRes + 0.5))
	height := int(math.Floor((yMax-yMin)/yRes + 0.5))
	if width <= 0 || height <= 0 {
		return Grid{}, errors.Newf(errors.ErrCodeInvalidGrid,
			"bounds cover %dx%d pixels at the requested resolution", width, height).
			WithComponent("reproject").
			WithOperation("PlanGrid")
	}

	return Grid{
		Bounds: [4]float64{xMin, yMax - float64(height)*yRes, xMin + float64(width)*xRes, yMax},
		XRes:   xRes,
		YRes:   yRes,
		Width:  width,
		Height: height,
	}, nil
}

// GridOf returns the grid r is laid out on.
func GridOf(r Raster) (Grid, error) {
	gt, err := r.GeoTransform()
	if err != nil {
		return Grid{}, errors.Wrap(err, errors.ErrCodeDataAccess, "failed to read geotransform").
			WithComponent("reproject")
	}
	width, height := r.Size()
	x0, x1 := gt[0], gt[0]+float64(width)*gt[1]
	y0, y1 := gt[3], gt[3]+float64(height)*gt[5]
	return Grid{
		Bounds: [4]float64{math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)},
		XRes:   math.Abs(gt[1]),
		YRes:   math.Abs(gt[5]),
		Width:  width,
		Height: height,
	}, nil
}

func checkRequest(bounds [4]float64, xRes, yRes float64) error {
	if !(xRes > 0) || !(yRes > 0) {
		return errors.Newf(errors.ErrCodeInvalidGrid, "resolution must be positive, got %g x %g", xRes, yRes).
			WithComponent("reproject")
	}
	if !(bounds[0] < bounds[2]) || !(bounds[1] < bounds[3]) {
		return errors.Newf(errors.ErrCodeInvalidGrid, "invalid bounds %v", bounds).
			WithComponent("reproject")
	}
	return nil
}

// edgePoints samples densifyPoints points along each edge of bounds, corners
// included once.
func edgePoints(b [4]float64) []float64 {
	n := densifyPoints - 1
	pts := make([]float64, 0, 8*n)
	for i := 0; i < n; i++ {
		f := float64(i) / float64(n)
		x := b[0] + f*(b[2]-b[0])
		y := b[1] + f*(b[3]-b[1])
		pts = append(pts,
			x, b[1], // bottom, west to east
			b[2], y, // right, south to north
			b[2]-f*(b[2]-b[0]), b[3], // top, east to west
			b[0], b[3]-f*(b[3]-b[1]), // left, north to south
		)
	}
	return pts
}
