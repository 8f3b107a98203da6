package validation

import (
	"math"
	"strings"

	"github.com/twpayne/go-geom"
)

// MODIS sinusoidal grid parameters.
const (
	modisTileSize = 1111950.5197665233
	modisRadius   = 6371007.181
	modisX0       = -20015109.354
	modisY0       = 10007554.677
)

const degPerRad = 180 / math.Pi

// modisTileBounds returns the lon/lat envelope of sinusoidal tile (h, v).
func modisTileBounds(h, v int) *geom.Bounds {
	xMin := modisX0 + float64(h)*modisTileSize
	xMax := xMin + modisTileSize
	yMax := modisY0 - float64(v)*modisTileSize
	yMin := yMax - modisTileSize

	latMin := yMin / modisRadius * degPerRad
	latMax := yMax / modisRadius * degPerRad

	// lon = x / (R cos(lat)) is monotone in cos(lat), whose extremes lie on
	// the latitude edges or on the equator.
	lats := []float64{latMin, latMax}
	if latMin < 0 && latMax > 0 {
		lats = append(lats, 0)
	}

	lonMin, lonMax := math.Inf(1), math.Inf(-1)
	for _, lat := range lats {
		c := math.Cos(lat / degPerRad)
		if c < 1e-9 {
			lonMin, lonMax = -180, 180
			continue
		}
		for _, x := range []float64{xMin, xMax} {
			lon := x / (modisRadius * c) * degPerRad
			lonMin = math.Min(lonMin, lon)
			lonMax = math.Max(lonMax, lon)
		}
	}

	return geom.NewBounds(geom.XY).Set(
		clamp(lonMin, -180, 180), clamp(latMin, -90, 90),
		clamp(lonMax, -180, 180), clamp(latMax, -90, 90),
	)
}

// degreeTileBounds returns the 1°x1° tile whose south-west corner is named by
// hemisphere letters and whole degrees.
func degreeTileBounds(ns string, lat int, ew string, lon int) *geom.Bounds {
	south := float64(lat)
	if ns == "S" {
		south = -south
	}
	west := float64(lon)
	if ew == "W" {
		west = -west
	}
	return geom.NewBounds(geom.XY).Set(west, south, west+1, south+1)
}

const latitudeBands = "CDEFGHJKLMNPQRSTUVWX"

// gridZonePadding covers tiles reaching past their grid zone edges.
const gridZonePadding = 0.5

// gridZoneBounds returns the lon/lat envelope of an MGRS grid zone such as
// 29S, padded to include tiles overlapping its edges. Norway and Svalbard
// zone exceptions are not modelled.
func gridZoneBounds(zone int, band string) (*geom.Bounds, bool) {
	i := strings.Index(latitudeBands, band)
	if zone < 1 || zone > 60 || i < 0 || len(band) != 1 {
		return nil, false
	}
	west := float64((zone-1)*6 - 180)
	south := float64(-80 + 8*i)
	north := south + 8
	if band == "X" {
		north = 84
	}
	return geom.NewBounds(geom.XY).Set(
		west-gridZonePadding, south-gridZonePadding,
		west+6+gridZonePadding, north+gridZonePadding,
	), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
