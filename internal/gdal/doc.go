// Package gdal implements the raster backend of package reproject on top of
// GDAL through godal. All drivers are registered on first use.
package gdal
