package validation

import (
	"regexp"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/types"
	"github.com/multiply-org/multiply-core/pkg/variables"
)

// Pattern building blocks. Range limits live in the expressions so that out
// of range values simply fail to match.
const (
	yearPattern      = `20[0-9]{2}`
	dayOfYearPattern = `(?:00[1-9]|0[1-9][0-9]|[12][0-9][0-9]|3[0-5][0-9]|36[0-6])`
	monthPattern     = `(?:0[1-9]|1[0-2])`
	dayPattern       = `(?:0[1-9]|[12][0-9]|3[01])`
	compactDate      = yearPattern + monthPattern + dayPattern
	compactTimestamp = compactDate + `T(?:[01][0-9]|2[0-3])[0-5][0-9][0-5][0-9]`

	awsTilePath = `[0-9]{1,2}/[C-HJ-NP-X]/[A-Z]{2}/20[0-9]{2}/(?:[1-9]|1[0-2])/(?:[1-9]|[12][0-9]|3[01])/[0-9]+`
)

var (
	s2L1CBands = []string{"B01", "B02", "B03", "B04", "B05", "B06", "B07", "B08", "B8A", "B09", "B10", "B11", "B12"}
	camsBands  = []string{"aod550", "bcaod550", "duaod550", "gtco3", "omaod550", "suaod550"}
)

func l1cCompanions() []CompanionGroup {
	groups := []CompanionGroup{{"metadata.xml"}}
	for _, band := range s2L1CBands {
		groups = append(groups, CompanionGroup{band + ".jp2"})
	}
	return groups
}

// l2Companions lists the surface reflectance files of an atmospherically
// corrected S2 product below one of the given manifests.
func l2Companions(manifests ...string) []CompanionGroup {
	groups := []CompanionGroup{manifests}
	for _, band := range s2L1CBands {
		groups = append(groups, CompanionGroup{band + "_sur.tif", band + "_sur.tiff"})
	}
	return append(groups, CompanionGroup{"cloud.tif", "cloud.tiff"})
}

func camsCompanions() []CompanionGroup {
	groups := make([]CompanionGroup, 0, len(camsBands))
	for _, band := range camsBands {
		groups = append(groups, CompanionGroup{"*_" + band + ".tif"})
	}
	return groups
}

// BuiltinDefinitions returns the statically known data types in their
// registration order.
func BuiltinDefinitions() []Definition {
	return []Definition{
		{
			Name:         types.AWSS2L1C,
			Family:       CompanionDirectory,
			Pattern:      `(?:.*/)?(?P<zone>[0-9]{1,2})/(?P<band>[C-HJ-NP-X])/[A-Z]{2}/(?P<start>20[0-9]{2}/(?:[1-9]|1[0-2])/(?:[1-9]|[12][0-9]|3[01]))/[0-9]+`,
			Companions:   l1cCompanions(),
			TimeLayout:   "2006/1/2",
			Spatial:      GridZone,
			RelativePath: awsTilePath,
		},
		{
			Name:         types.AWSS2L2,
			Family:       CompanionDirectory,
			Pattern:      `(?:.*/)?(?P<zone>[0-9]{1,2})/(?P<band>[C-HJ-NP-X])/[A-Z]{2}/(?P<start>20[0-9]{2}/(?:[1-9]|1[0-2])/(?:[1-9]|[12][0-9]|3[01]))/[0-9]+`,
			Companions:   l2Companions("metadata.xml"),
			TimeLayout:   "2006/1/2",
			Spatial:      GridZone,
			RelativePath: awsTilePath,
		},
		{
			Name:          types.ModisMCD43,
			Family:        FixedGridTile,
			Pattern:       `.*MCD43A1\.A(?P<start>` + yearPattern + dayOfYearPattern + `)\.h(?P<h>[0-3][0-9])v(?P<v>[01][0-9])\.006\..*\.hdf`,
			TimeLayout:    "2006002",
			Spatial:       ModisTile,
			DiffersByName: true,
		},
		{
			Name:          types.CAMS,
			Family:        DateBundle,
			Pattern:       `.*(?P<start>` + yearPattern + `-` + monthPattern + `-` + dayPattern + `)\.nc`,
			TimeLayout:    "2006-01-02",
			DiffersByName: true,
		},
		{
			Name:          types.ISOMSIAEmu,
			Family:        StaticPattern,
			Pattern:       `.*isotropic_MSI_emulators_(?:correction|optimization)_x[abc]p_S2A\.pkl`,
			DiffersByName: true,
		},
		{
			Name:          types.ISOMSIBEmu,
			Family:        StaticPattern,
			Pattern:       `.*isotropic_MSI_emulators_(?:correction|optimization)_x[abc]p_S2B\.pkl`,
			DiffersByName: true,
		},
		{
			Name:          types.WVEmu,
			Family:        StaticPattern,
			Pattern:       `.*wv_MSI_retrieval_S2A\.pkl`,
			DiffersByName: true,
		},
		{
			Name:          types.AsterDEM,
			Family:        GeocodedTile,
			Pattern:       `.*ASTGTM2_(?P<ns>[NS])(?P<lat>[0-8][0-9])(?P<ew>[EW])(?P<lon>[01][0-9][0-9])_dem\.tif`,
			Spatial:       DegreeTile,
			DiffersByName: true,
		},
		{
			Name:          types.S2L2,
			Family:        CompanionDirectory,
			Pattern:       `(?:.*/)?L2A_T(?P<zone>[0-9]{2})(?P<band>[C-HJ-NP-X])[A-Z]{2}_A[0-9]{6}_(?P<start>` + compactTimestamp + `)`,
			Companions:    l2Companions("MTD_TL.xml", "metadata.xml"),
			TimeLayout:    "20060102T150405",
			Spatial:       GridZone,
			DiffersByName: true,
		},
		{
			Name:          types.S1SLC,
			Family:        TimestampedSwath,
			Pattern:       `(?:.*/)?S1[AB]_(?:IW|EW|SM|WV)_SLC__1S(?:SV|DV|SH|DH)_(?P<start>` + compactTimestamp + `)_(?P<stop>` + compactTimestamp + `)_[0-9]{6}_[0-9A-F]{6}_[0-9A-F]{4}(?:\.zip|\.SAFE)?`,
			TimeLayout:    "20060102T150405",
			DiffersByName: true,
		},
		{
			Name:          types.S1Speckled,
			Family:        TimestampedSwath,
			Pattern:       `(?:.*/)?S1[AB]_(?:IW|EW|SM|WV)_SLC__1S(?:SV|DV|SH|DH)_(?P<start>` + compactTimestamp + `)_(?P<stop>` + compactTimestamp + `)_[0-9]{6}_[0-9A-F]{6}_[0-9A-F]{4}_GC_RC_No_Su_Co_speckle\.nc`,
			TimeLayout:    "20060102T150405",
			DiffersByName: true,
		},
		{
			Name:          types.CAMSTiff,
			Family:        DateBundle,
			Pattern:       `(?:.*/)?(?P<start>` + yearPattern + `_` + monthPattern + `_` + dayPattern + `)`,
			Companions:    camsCompanions(),
			TimeLayout:    "2006_01_02",
			DiffersByName: true,
		},
	}
}

// VariableDefinition builds the data type of a retrieved variable. The date
// token of its files follows the variable's date format.
func VariableDefinition(v variables.Variable) (Definition, error) {
	name := regexp.QuoteMeta(v.ShortName)
	def := Definition{
		Name:          v.ShortName,
		Family:        VariableRaster,
		DiffersByName: true,
	}

	switch v.DateFormat {
	case variables.DayOfYear, "":
		def.Pattern = `(?:.*/)?` + name + `_A(?P<start>` + yearPattern + dayOfYearPattern + `)\.tif`
		def.TimeLayout = "2006002"
	case variables.SingleDate:
		def.Pattern = `(?:.*/)?` + name + `_(?P<start>` + compactDate + `)\.tif`
		def.TimeLayout = "20060102"
	case variables.DateRange:
		def.Pattern = `(?:.*/)?` + name + `_(?P<start>` + compactDate + `)_(?P<end>` + compactDate + `)\.tif`
		def.TimeLayout = "20060102"
	default:
		return Definition{}, errors.Newf(errors.ErrCodeConfigValidation,
			"unknown date format %q for variable %s", v.DateFormat, v.ShortName).
			WithComponent("validation")
	}
	return def, nil
}
