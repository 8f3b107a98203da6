package reproject

import (
	"math"

	"github.com/multiply-org/multiply-core/pkg/errors"
)

// TransformCoordinates transforms a flat [x1, y1, ..., xn, yn] sequence from
// src to dst, keeping order and count. A failing transform is an error; the
// input is never passed through unchanged.
func TransformCoordinates(t Transformer, src, dst SRS, coords []float64) ([]float64, error) {
	if len(coords)%2 != 0 {
		return nil, errors.Newf(errors.ErrCodeTransformFailed, "odd coordinate count %d", len(coords)).
			WithComponent("reproject").
			WithOperation("TransformCoordinates")
	}
	out, err := t.Transform(src, dst, coords)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransformFailed, "coordinate transformation failed").
			WithComponent("reproject").
			WithOperation("TransformCoordinates").
			WithContext("src", string(src)).
			WithContext("dst", string(dst))
	}
	if len(out) != len(coords) {
		return nil, errors.Newf(errors.ErrCodeTransformFailed,
			"transform returned %d values for %d", len(out), len(coords)).
			WithComponent("reproject").
			WithOperation("TransformCoordinates")
	}
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewError(errors.ErrCodeTransformFailed, "transform produced non-finite coordinates").
				WithComponent("reproject").
				WithOperation("TransformCoordinates").
				WithContext("src", string(src)).
				WithContext("dst", string(dst))
		}
	}
	return out, nil
}

// GetSpatialReferenceSystem returns the reference system of r.
func GetSpatialReferenceSystem(r Raster) (SRS, error) {
	srs, err := r.SpatialReference()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeDataAccess, "failed to read spatial reference").
			WithComponent("reproject")
	}
	if srs == "" {
		return "", errors.NewError(errors.ErrCodeDataAccess, "raster has no spatial reference").
			WithComponent("reproject")
	}
	return srs, nil
}

// GetTargetResolutions returns the x and y pixel size of r, both positive for
// north-up rasters.
func GetTargetResolutions(r Raster) (float64, float64, error) {
	gt, err := r.GeoTransform()
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeDataAccess, "failed to read geotransform").
			WithComponent("reproject")
	}
	return gt[1], -gt[5], nil
}

// distMeasure is the number of pixels of size xRes by yRes spanned by the
// box between the first two points of coords.
func distMeasure(coords []float64, xRes, yRes float64) float64 {
	xDist := math.Abs(coords[0] - coords[2])
	yDist := math.Abs(coords[1] - coords[3])
	return (xDist / xRes) * (yDist / yRes)
}

// SelectResampling picks bilinear when the destination grid has more pixels
// over bounds than the source grid of r, and average otherwise.
func SelectResampling(t Transformer, r Raster, bounds [4]float64, xRes, yRes float64, boundsSRS, dstSRS SRS) (Resampling, error) {
	srcSRS, err := GetSpatialReferenceSystem(r)
	if err != nil {
		return "", err
	}
	srcXRes, srcYRes, err := GetTargetResolutions(r)
	if err != nil {
		return "", err
	}
	if srcXRes == 0 || srcYRes == 0 {
		return "", errors.NewError(errors.ErrCodeInvalidGrid, "source raster has zero resolution").
			WithComponent("reproject")
	}

	inSource, err := TransformCoordinates(t, boundsSRS, srcSRS, bounds[:])
	if err != nil {
		return "", err
	}
	inDest, err := TransformCoordinates(t, boundsSRS, dstSRS, bounds[:])
	if err != nil {
		return "", err
	}

	if distMeasure(inDest, xRes, yRes) > distMeasure(inSource, math.Abs(srcXRes), math.Abs(srcYRes)) {
		return Bilinear, nil
	}
	return Average, nil
}
