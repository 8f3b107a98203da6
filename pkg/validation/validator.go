package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/multiply-org/multiply-core/pkg/auxdata"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/utils"
)

// Family is the structural family a data type belongs to.
type Family int

const (
	// FixedGridTile products carry a sinusoidal grid tile index and a
	// day-of-year acquisition date in their name.
	FixedGridTile Family = iota + 1
	// TimestampedSwath products carry start and stop timestamps.
	TimestampedSwath
	// CompanionDirectory products are directories holding a manifest and
	// one file per band group.
	CompanionDirectory
	// DateBundle products are named by their calendar date.
	DateBundle
	// GeocodedTile products name the south-west corner of a 1° tile.
	GeocodedTile
	// VariableRaster products are retrieved variables named by short name
	// and date token.
	VariableRaster
	// StaticPattern products have no time or location, only a name.
	StaticPattern
)

var familyNames = map[Family]string{
	FixedGridTile:      "fixed-grid-tile",
	TimestampedSwath:   "timestamped-swath",
	CompanionDirectory: "companion-directory",
	DateBundle:         "date-bundle",
	GeocodedTile:       "geocoded-tile",
	VariableRaster:     "variable-raster",
	StaticPattern:      "static-pattern",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// SpatialRule selects how the footprint of an item is derived from its name.
type SpatialRule int

const (
	// NoSpatialRule means the name carries no footprint; every region matches.
	NoSpatialRule SpatialRule = iota
	// ModisTile reads the h and v groups as sinusoidal tile indices.
	ModisTile
	// DegreeTile reads the ns, lat, ew and lon groups as a 1° tile corner.
	DegreeTile
	// GridZone reads the zone and band groups as an MGRS grid zone.
	GridZone
)

// CompanionGroup lists alternative glob patterns of which at least one must
// exist inside a product directory.
type CompanionGroup []string

// Definition describes a data type as data. Pattern is matched against the
// whole slash-separated path and may use the named groups start, end (time
// tokens), stop (end of acquisition, not used for filtering), h, v, ns, lat,
// ew, lon, zone and band (footprint).
type Definition struct {
	Name          string
	Family        Family
	Pattern       string
	Companions    []CompanionGroup
	TimeLayout    string
	Spatial       SpatialRule
	RelativePath  string
	DiffersByName bool
}

// Validator decides whether paths belong to one data type.
type Validator struct {
	def      Definition
	re       *regexp.Regexp
	relative *regexp.Regexp
	groups   map[string]int
	provider auxdata.Provider
}

// New compiles def. Companion files are looked up through provider; a nil
// provider uses the local file system.
func New(def Definition, provider auxdata.Provider) (*Validator, error) {
	if def.Name == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidPattern, "data type name must not be empty").
			WithComponent("validation")
	}
	re, err := regexp.Compile("^(?:" + def.Pattern + ")$")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidPattern, "invalid file pattern").
			WithComponent("validation").
			WithContext("type", def.Name)
	}

	v := &Validator{def: def, re: re, groups: make(map[string]int), provider: provider}
	for i, name := range re.SubexpNames() {
		if name != "" {
			v.groups[name] = i
		}
	}

	if def.RelativePath != "" {
		v.relative, err = regexp.Compile("(?:^|/)(" + def.RelativePath + ")$")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidPattern, "invalid relative path pattern").
				WithComponent("validation").
				WithContext("type", def.Name)
		}
	}

	if def.TimeLayout != "" {
		if _, ok := v.groups["start"]; !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidPattern,
				"type %s declares a time layout but its pattern has no start group", def.Name).
				WithComponent("validation")
		}
	}
	if v.provider == nil {
		v.provider = auxdata.NewLocalProvider(nil)
	}
	return v, nil
}

// MustNew is like New but panics on error. It is meant for built-in
// definitions.
func MustNew(def Definition, provider auxdata.Provider) *Validator {
	v, err := New(def, provider)
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns the data type name.
func (v *Validator) Name() string { return v.def.Name }

// Family returns the structural family.
func (v *Validator) Family() Family { return v.def.Family }

// FilePattern returns the pattern paths of this type match.
func (v *Validator) FilePattern() string { return v.def.Pattern }

// DiffersByName reports whether differently named items are always distinct
// products.
func (v *Validator) DiffersByName() bool { return v.def.DiffersByName }

// SupportsSpatioTemporalFilter reports whether IsValidFor is implemented.
func (v *Validator) SupportsSpatioTemporalFilter() bool {
	return v.def.Family != StaticPattern
}

// HasTime reports whether items of this type carry an acquisition time.
func (v *Validator) HasTime() bool { return v.def.TimeLayout != "" }

// TimeLayout returns the layout of the embedded time tokens.
func (v *Validator) TimeLayout() string { return v.def.TimeLayout }

// IsValid reports whether path names an item of this type. For directory
// products every companion group must be satisfied, and one element per
// group is provided locally.
func (v *Validator) IsValid(p string) bool {
	p = utils.ToSlash(p)
	if !v.re.MatchString(p) {
		return false
	}
	for _, group := range v.def.Companions {
		if !v.hasCompanion(p, group) {
			return false
		}
	}
	return true
}

// hasCompanion provides the first element satisfying group.
func (v *Validator) hasCompanion(dir string, group CompanionGroup) bool {
	for _, pattern := range group {
		if _, ok := auxdata.ProvideAny(v.provider, dir, pattern); ok {
			return true
		}
	}
	return false
}

// IsValidFor reports whether path is valid and falls into the region and time
// window. Types without spatio-temporal information return an error carrying
// ErrCodeFilterUnsupported. A malformed time token yields false.
func (v *Validator) IsValidFor(p string, roi geom.T, start, end time.Time) (bool, error) {
	if !v.SupportsSpatioTemporalFilter() {
		return false, errors.Newf(errors.ErrCodeFilterUnsupported,
			"type %s does not support spatio-temporal filtering", v.def.Name).
			WithComponent("validation").
			WithOperation("IsValidFor")
	}
	if !v.IsValid(p) {
		return false, nil
	}

	m := v.re.FindStringSubmatch(utils.ToSlash(p))
	if v.HasTime() {
		itemStart, itemEnd, err := v.times(m)
		if err != nil {
			return false, nil
		}
		if !withinWindow(start, end, itemStart, itemEnd) {
			return false, nil
		}
	}

	footprint, ok := v.footprint(m)
	if !ok {
		return true, nil
	}
	return intersectsRegion(footprint, roi), nil
}

// Times extracts the item's start and end time from its name. Items with a
// single time token have start == end.
func (v *Validator) Times(p string) (time.Time, time.Time, error) {
	if !v.HasTime() {
		return time.Time{}, time.Time{}, errors.Newf(errors.ErrCodeMetadataMissing,
			"type %s carries no acquisition time", v.def.Name).
			WithComponent("validation")
	}
	m := v.re.FindStringSubmatch(utils.ToSlash(p))
	if m == nil {
		return time.Time{}, time.Time{}, errors.Newf(errors.ErrCodeUnknownType,
			"path is not of type %s", v.def.Name).
			WithComponent("validation").
			WithContext("path", p)
	}
	return v.times(m)
}

// Extent is like Times but ends at the acquisition stop time for types that
// record one.
func (v *Validator) Extent(p string) (time.Time, time.Time, error) {
	start, end, err := v.Times(p)
	if err != nil {
		return start, end, err
	}
	i, ok := v.groups["stop"]
	if !ok {
		return start, end, nil
	}
	m := v.re.FindStringSubmatch(utils.ToSlash(p))
	stop, err := time.Parse(v.def.TimeLayout, m[i])
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, errors.ErrCodeMetadataMalformed, "malformed stop time token").
			WithComponent("validation").
			WithContext("type", v.def.Name)
	}
	if stop.Before(start) {
		return time.Time{}, time.Time{}, errors.NewError(errors.ErrCodeMetadataMalformed, "stop time before start time").
			WithComponent("validation").
			WithContext("type", v.def.Name)
	}
	return start, stop, nil
}

func (v *Validator) times(m []string) (time.Time, time.Time, error) {
	start, err := time.Parse(v.def.TimeLayout, m[v.groups["start"]])
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, errors.ErrCodeMetadataMalformed, "malformed time token").
			WithComponent("validation").
			WithContext("type", v.def.Name)
	}
	end := start
	if i, ok := v.groups["end"]; ok && m[i] != "" {
		end, err = time.Parse(v.def.TimeLayout, m[i])
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, errors.ErrCodeMetadataMalformed, "malformed end time token").
				WithComponent("validation").
				WithContext("type", v.def.Name)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.NewError(errors.ErrCodeMetadataMalformed, "end time before start time").
			WithComponent("validation").
			WithContext("type", v.def.Name)
	}
	return start, end, nil
}

// footprint derives the lon/lat bounds of the item from the matched groups.
func (v *Validator) footprint(m []string) (*geom.Bounds, bool) {
	switch v.def.Spatial {
	case ModisTile:
		h, errH := strconv.Atoi(m[v.groups["h"]])
		vt, errV := strconv.Atoi(m[v.groups["v"]])
		if errH != nil || errV != nil {
			return nil, false
		}
		return modisTileBounds(h, vt), true
	case DegreeTile:
		lat, errLat := strconv.Atoi(m[v.groups["lat"]])
		lon, errLon := strconv.Atoi(m[v.groups["lon"]])
		if errLat != nil || errLon != nil {
			return nil, false
		}
		return degreeTileBounds(m[v.groups["ns"]], lat, m[v.groups["ew"]], lon), true
	case GridZone:
		zone, err := strconv.Atoi(m[v.groups["zone"]])
		if err != nil {
			return nil, false
		}
		return gridZoneBounds(zone, m[v.groups["band"]])
	}
	return nil, false
}

// RelativePath returns the sub-path identifying the product instance, or ""
// when the type defines none or path does not contain one.
func (v *Validator) RelativePath(p string) string {
	if v.relative == nil {
		return ""
	}
	m := v.relative.FindStringSubmatch(utils.ToSlash(p))
	if m == nil {
		return ""
	}
	return m[1]
}
