package fileref

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/types"
	"github.com/multiply-org/multiply-core/pkg/utils"
	"github.com/multiply-org/multiply-core/pkg/validation"
	"github.com/multiply-org/multiply-core/pkg/variables"
)

const tileManifest = `<?xml version="1.0" encoding="UTF-8"?>
<n1:Level-1C_Tile_ID xmlns:n1="https://psd-14.sentinel2.eo.esa.int/PSD/S2_PDI_Level-1C_Tile_Metadata.xsd">
  <n1:General_Info>
    <TILE_ID metadataLevel="Brief">S2A_OPER_MSI_L1C_TL_SGS__20170605T105303_A010209_T30SWJ_N02.05</TILE_ID>
    <SENSING_TIME metadataLevel="Standard">2017-06-05T10:50:31.456Z</SENSING_TIME>
  </n1:General_Info>
</n1:Level-1C_Tile_ID>
`

func productDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "S2A_MSIL1C_20170605T105031_N0205_R051_T30SWJ_20170605T105303-ac")
	require.NoError(t, os.MkdirAll(dir, 0750))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}

func TestSensingTimeCreator(t *testing.T) {
	dir := productDir(t, map[string]string{"MTD_TL.xml": tileManifest})
	c := NewSensingTimeCreator(types.S2L2, nil, "MTD_TL.xml", "metadata.xml")
	assert.Equal(t, types.S2L2, c.Name())

	ref, err := c.CreateFileRef(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, ref.URL)
	assert.Equal(t, "2017-06-05T10:50:31", ref.StartTime)
	assert.Equal(t, "2017-06-05T10:50:31", ref.EndTime)
	assert.Equal(t, types.MimeDirectory, ref.MimeType)
}

func TestSensingTimeCreator_ManifestFallback(t *testing.T) {
	dir := productDir(t, map[string]string{"metadata.xml": tileManifest})

	ref, err := NewSensingTimeCreator(types.S2L2, nil, "MTD_TL.xml", "metadata.xml").CreateFileRef(dir)
	require.NoError(t, err)
	assert.Equal(t, "2017-06-05T10:50:31", ref.StartTime)

	onlyTile := productDir(t, map[string]string{"MTD_TL.xml": tileManifest})
	_, err = NewSensingTimeCreator(types.AWSS2L2, nil, "metadata.xml").CreateFileRef(onlyTile)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMetadataMissing))
}

// downloadingProvider writes elements from remote on demand.
type downloadingProvider struct {
	remote   map[string]string
	provided []string
}

func (p *downloadingProvider) Name() string { return "fake" }

func (p *downloadingProvider) ListElements(string, string) ([]string, error) { return nil, nil }

func (p *downloadingProvider) AssureElementProvided(name string) bool {
	p.provided = append(p.provided, filepath.Base(name))
	content, ok := p.remote[filepath.Base(name)]
	if !ok {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(name), 0750); err != nil {
		return false
	}
	return os.WriteFile(name, []byte(content), 0600) == nil
}

func TestSensingTimeCreator_ProvidesManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "29", "S", "QB", "2017", "6", "5", "0")
	provider := &downloadingProvider{remote: map[string]string{"metadata.xml": tileManifest}}

	ref, err := NewSensingTimeCreator(types.S2L2, provider, "MTD_TL.xml", "metadata.xml").CreateFileRef(dir)
	require.NoError(t, err)
	assert.Equal(t, "2017-06-05T10:50:31", ref.StartTime)
	assert.Equal(t, []string{"MTD_TL.xml", "metadata.xml"}, provider.provided)

	provider = &downloadingProvider{}
	_, err = NewSensingTimeCreator(types.AWSS2L2, provider, "metadata.xml").CreateFileRef(t.TempDir())
	assert.True(t, errors.HasCode(err, errors.ErrCodeMetadataMissing))
	assert.Equal(t, []string{"metadata.xml"}, provider.provided)
}

func TestNewDefaultCreation_UsesProvider(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "29", "S", "QB", "2017", "6", "5", "0")
	provider := &downloadingProvider{remote: map[string]string{"metadata.xml": tileManifest}}

	c := NewDefaultCreation(nil, nil, WithProvider(provider), WithLogger(utils.DiscardLogger()))
	ref, err := c.GetFileRef(types.AWSS2L2, dir)
	require.NoError(t, err)
	assert.Equal(t, "2017-06-05T10:50:31", ref.StartTime)
}

func TestSensingTimeCreator_BadManifests(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		code     errors.ErrorCode
	}{
		{"no element", `<Tile><General_Info><TILE_ID>x</TILE_ID></General_Info></Tile>`, errors.ErrCodeMetadataMissing},
		{"bad time", `<Tile><General_Info><SENSING_TIME>2017-13-45T10:50:31Z</SENSING_TIME></General_Info></Tile>`, errors.ErrCodeMetadataMalformed},
		{"bad xml", `<Tile><General_Info></Tile>`, errors.ErrCodeMetadataMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := productDir(t, map[string]string{"metadata.xml": tt.manifest})
			ref, err := NewSensingTimeCreator(types.AWSS2L2, nil, "metadata.xml").CreateFileRef(dir)
			assert.Nil(t, ref)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestParseSensingTime(t *testing.T) {
	for _, value := range []string{"2017-06-05T10:50:31.999Z", "2017-06-05T10:50:31.1", " 2017-06-05T10:50:31 "} {
		got, err := parseSensingTime(value)
		require.NoError(t, err, value)
		assert.Equal(t, "2017-06-05T10:50:31", got.Format(types.TimestampLayout))
	}
}

func TestVariableCreator(t *testing.T) {
	c := NewVariableCreator(variables.Variable{ShortName: "dzfgj"})
	assert.Equal(t, "dzfgj", c.Name())

	ref, err := c.CreateFileRef("something/dzfgj_A2000001.tif")
	require.NoError(t, err)
	assert.Equal(t, types.FileRef{
		URL:       "something/dzfgj_A2000001.tif",
		StartTime: "2000-01-01",
		EndTime:   "2000-01-01",
		MimeType:  types.MimeTIFF,
	}, *ref)

	ref, err = NewVariableCreator(variables.Variable{ShortName: "cab", DateFormat: variables.SingleDate}).
		CreateFileRef("/out/cab_20170305.tif")
	require.NoError(t, err)
	assert.Equal(t, "2017-03-05", ref.StartTime)
	assert.Equal(t, "2017-03-05", ref.EndTime)

	ref, err = NewVariableCreator(variables.Variable{ShortName: "cb", DateFormat: variables.DateRange}).
		CreateFileRef("/out/cb_20170301_20170310.tif")
	require.NoError(t, err)
	assert.Equal(t, "2017-03-01", ref.StartTime)
	assert.Equal(t, "2017-03-10", ref.EndTime)
}

func TestVariableCreator_Malformed(t *testing.T) {
	tests := []struct {
		format variables.DateFormat
		path   string
	}{
		{variables.DayOfYear, "lai_Axyz.tif"},
		{variables.SingleDate, "lai_2017.tif"},
		{variables.DateRange, "lai_20170301.tif"},
		{variables.DateRange, "lai_20170310_20170301.tif"},
	}
	for _, tt := range tests {
		c := NewVariableCreator(variables.Variable{ShortName: "lai", DateFormat: tt.format})
		_, err := c.CreateFileRef(tt.path)
		assert.True(t, errors.HasCode(err, errors.ErrCodeMetadataMalformed), tt.path)
	}
}

func TestDetectMimeType(t *testing.T) {
	dir := t.TempDir()
	tiff := filepath.Join(dir, "lai_A2017001.tif")
	require.NoError(t, os.WriteFile(tiff, []byte("II*\x00\x08\x00\x00\x00"), 0600))
	text := filepath.Join(dir, "2018-10-23.nc")
	require.NoError(t, os.WriteFile(text, []byte("not really netcdf"), 0600))

	assert.Equal(t, types.MimeTIFF, DetectMimeType(tiff))
	assert.Equal(t, types.MimeNetCDF, DetectMimeType(text))
	assert.Equal(t, types.MimeDirectory, DetectMimeType(dir))
	assert.Equal(t, types.MimeHDF, DetectMimeType("/remote/MCD43A1.A2017250.h17v05.006.2017261201257.hdf"))
	assert.Equal(t, types.MimeDirectory, DetectMimeType("/remote/S1A_IW_SLC.SAFE"))
	assert.Equal(t, types.MimeBinary, DetectMimeType("/remote/unknown"))
}

func newCreation(t *testing.T) *Creation {
	t.Helper()
	registry, err := validation.NewDefaultRegistry(nil, variables.Default(), validation.WithLogger(utils.DiscardLogger()))
	require.NoError(t, err)
	return NewDefaultCreation(registry, variables.Default(), WithLogger(utils.DiscardLogger()))
}

func TestCreation_DataTypes(t *testing.T) {
	c := newCreation(t)
	dataTypes := c.DataTypes()

	require.Greater(t, len(dataTypes), 2+len(timedTypes))
	assert.Equal(t, []string{types.AWSS2L2, types.S2L2}, dataTypes[:2])
	assert.Contains(t, dataTypes, "lai")
	assert.Equal(t, timedTypes, dataTypes[len(dataTypes)-len(timedTypes):])

	assert.False(t, c.Register(NewVariableCreator(variables.Variable{ShortName: "lai"})))
	assert.Len(t, c.DataTypes(), len(dataTypes))
}

func TestCreation_GetFileRef(t *testing.T) {
	c := newCreation(t)

	ref, err := c.GetFileRef("NOT_A_TYPE", "/data/x.tif")
	assert.NoError(t, err)
	assert.Nil(t, ref)

	dir := productDir(t, map[string]string{"MTD_TL.xml": tileManifest})
	ref, err = c.GetFileRef(types.S2L2, dir)
	require.NoError(t, err)
	assert.Equal(t, "2017-06-05T10:50:31", ref.StartTime)

	ref, err = c.GetFileRef("lai", "something/lai_A2000001.tif")
	require.NoError(t, err)
	assert.Equal(t, "2000-01-01", ref.StartTime)

	_, err = c.GetFileRef(types.AWSS2L2, dir)
	assert.Error(t, err)
}

func TestCreation_TimedTypes(t *testing.T) {
	c := newCreation(t)

	tests := []struct {
		dataType string
		path     string
		want     types.FileRef
	}{
		{
			types.ModisMCD43,
			"/remote/MCD43A1.A2017250.h17v05.006.2017261201257.hdf",
			types.FileRef{StartTime: "2017-09-07", EndTime: "2017-09-07", MimeType: types.MimeHDF},
		},
		{
			types.CAMS,
			"/remote/2018-10-23.nc",
			types.FileRef{StartTime: "2018-10-23", EndTime: "2018-10-23", MimeType: types.MimeNetCDF},
		},
		{
			types.S1SLC,
			"/remote/S1A_IW_SLC__1SDV_20170613T053026_20170613T053053_017010_01C5D2_4ED1.zip",
			types.FileRef{StartTime: "2017-06-13T05:30:26", EndTime: "2017-06-13T05:30:53", MimeType: types.MimeZip},
		},
		{
			types.S1Speckled,
			"/remote/S1A_IW_SLC__1SDV_20170613T053026_20170613T053053_017010_01C5D2_4ED1_GC_RC_No_Su_Co_speckle.nc",
			types.FileRef{StartTime: "2017-06-13T05:30:26", EndTime: "2017-06-13T05:30:53", MimeType: types.MimeNetCDF},
		},
	}
	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			ref, err := c.GetFileRef(tt.dataType, tt.path)
			require.NoError(t, err)
			tt.want.URL = tt.path
			assert.Equal(t, tt.want, *ref)
		})
	}

	_, err := c.GetFileRef(types.CAMS, "/remote/MCD43A1.A2017250.h17v05.006.2017261201257.hdf")
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownType))
}

func TestCreation_CamsTiffDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2018_10_23")
	require.NoError(t, os.MkdirAll(dir, 0750))

	ref, err := newCreation(t).GetFileRef(types.CAMSTiff, dir)
	require.NoError(t, err)
	assert.Equal(t, "2018-10-23", ref.StartTime)
	assert.Equal(t, types.MimeDirectory, ref.MimeType)
	assert.True(t, strings.HasSuffix(ref.URL, "2018_10_23"))
}
