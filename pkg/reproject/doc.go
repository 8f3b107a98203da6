/*
Package reproject warps rasters onto a requested grid.

A Reprojection is built once from destination bounds, pixel resolution and
reference system, and applied to any number of source rasters. When no
resampling method is fixed, it is chosen per source: if the destination grid
has more pixels over the bounds than the source has, the source is upsampled
with bilinear interpolation, otherwise it is aggregated with average.

	r, err := reproject.NewReprojection(backend, [4]float64{9, 45, 11.5, 47},
		0.01, 0.01, reproject.EPSG(4326))
	if err != nil {
		return err
	}
	out, err := r.ReprojectFile("MCD43A1.A2017250.h18v04.006.tif", "albedo_4326.tif")

Plan reports the chosen resampling and the destination grid without
warping. The raster library is reached through Backend; internal/gdal
provides the GDAL implementation.
*/
package reproject
