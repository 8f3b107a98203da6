package validation

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiply-org/multiply-core/pkg/auxdata"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/types"
	"github.com/multiply-org/multiply-core/pkg/utils"
	"github.com/multiply-org/multiply-core/pkg/variables"
)

type countingRecorder struct {
	mu              sync.Mutex
	classifications map[string]int
	validations     map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{classifications: map[string]int{}, validations: map[string]int{}}
}

func (c *countingRecorder) RecordClassification(dataType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classifications[dataType]++
}

func (c *countingRecorder) RecordValidation(dataType, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validations[dataType+"/"+outcome]++
}

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	vars := []variables.Variable{
		{ShortName: "lai"},
		{ShortName: "cab", DateFormat: variables.SingleDate},
		{ShortName: "cb", DateFormat: variables.DateRange},
	}
	opts = append([]Option{WithLogger(utils.DiscardLogger())}, opts...)
	r, err := NewDefaultRegistry(auxdata.NewLocalProvider(utils.DiscardLogger()), vars, opts...)
	require.NoError(t, err)
	return r
}

func TestRegistry_GetValidTypes(t *testing.T) {
	r := newTestRegistry(t)

	assert.Equal(t, []string{
		"AWS_S2_L1C", "AWS_S2_L2", "MCD43A1.006", "CAMS",
		"ISO_MSI_A_EMU", "ISO_MSI_B_EMU", "WV_EMU", "ASTER",
		"S2_L2", "S1_SLC", "S1_Speckled", "CAMS_TIFF",
		"lai", "cab", "cb",
	}, r.GetValidTypes())
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	before := r.GetValidTypes()

	added, err := r.RegisterDefinition(Definition{Name: types.CAMS, Family: StaticPattern, Pattern: ".*"})
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, before, r.GetValidTypes())
	assert.True(t, r.IsValid(camsFixture, types.CAMS))
	assert.False(t, r.IsValid("anything", types.CAMS))

	n, err := r.RegisterVariables([]variables.Variable{{ShortName: "lai"}, {ShortName: "fapar"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.RegisterVariables([]variables.Variable{{ShortName: "lai"}, {ShortName: "fapar"}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, append(before, "fapar"), r.GetValidTypes())

	_, err = r.RegisterVariables([]variables.Variable{{ShortName: "bad", DateFormat: "weekly"}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigValidation))
}

func TestRegistry_Classification(t *testing.T) {
	root := t.TempDir()
	fixtures := map[string]string{
		modisFixture:                          types.ModisMCD43,
		camsFixture:                           types.CAMS,
		emuAFixture:                           types.ISOMSIAEmu,
		emuBFixture:                           types.ISOMSIBEmu,
		wvFixture:                             types.WVEmu,
		asterFixture:                          types.AsterDEM,
		slcFixture:                            types.S1SLC,
		speckledFixture:                       types.S1Speckled,
		laiFixture:                            "lai",
		"cab_20170907.tif":                    "cab",
		"cb_20170907_20170910.tif":            "cb",
		awsL2Dir(t, filepath.Join(root, "a")): types.AWSS2L2,
		awsL1CDir(t, filepath.Join(root, "b")): types.AWSS2L1C,
		s2L2Dir(t, filepath.Join(root, "c"), "MTD_TL.xml"): types.S2L2,
		camsTiffDir(t, filepath.Join(root, "d")):           types.CAMSTiff,
	}

	r := newTestRegistry(t)
	for path, want := range fixtures {
		assert.Equal(t, want, r.GetValidType(path), path)
		assert.Equal(t, []string{want}, r.MatchingTypes(path), path)
	}

	assert.Equal(t, "", r.GetValidType("fcsfzvdbt/chvs/201"))
	assert.Empty(t, r.MatchingTypes("fcsfzvdbt/chvs/201"))
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	r := NewRegistry(nil, WithLogger(utils.DiscardLogger()))
	_, err := r.RegisterDefinition(Definition{Name: "first", Family: StaticPattern, Pattern: `.*\.pkl`})
	require.NoError(t, err)
	_, err = r.RegisterDefinition(Definition{Name: "second", Family: StaticPattern, Pattern: `.*wv_.*\.pkl`})
	require.NoError(t, err)

	assert.Equal(t, "first", r.GetValidType(wvFixture))
	assert.Equal(t, []string{"first", "second"}, r.MatchingTypes(wvFixture))
}

func TestRegistry_UnknownType(t *testing.T) {
	r := newTestRegistry(t)

	assert.False(t, r.IsValid(camsFixture, "NOPE"))
	ok, err := r.IsValidFor(camsFixture, "NOPE", nil, time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, r.SupportsSpatioTemporalFilter("NOPE"))
	assert.Equal(t, "", r.GetFilePattern("NOPE"))
	assert.Equal(t, "", r.GetRelativePath("/29/S/QB/2017/9/4/0", "NOPE"))
	assert.False(t, r.DiffersByName("NOPE"))
}

func TestRegistry_Queries(t *testing.T) {
	r := newTestRegistry(t)

	assert.Equal(t, `.*wv_MSI_retrieval_S2A\.pkl`, r.GetFilePattern(types.WVEmu))
	assert.Equal(t, "29/S/QB/2017/9/4/0", r.GetRelativePath("/the/non/relative/part/29/S/QB/2017/9/4/0", types.AWSS2L2))
	assert.Equal(t, "", r.GetRelativePath(modisFixture, types.ModisMCD43))

	assert.False(t, r.DiffersByName(types.AWSS2L1C))
	assert.True(t, r.DiffersByName(types.ModisMCD43))
	assert.True(t, r.DiffersByName("lai"))

	for _, dataType := range r.GetValidTypes() {
		unsupported := dataType == types.ISOMSIAEmu || dataType == types.ISOMSIBEmu || dataType == types.WVEmu
		assert.Equal(t, !unsupported, r.SupportsSpatioTemporalFilter(dataType), dataType)
	}
}

func TestRegistry_RelativePathProperties(t *testing.T) {
	r := newTestRegistry(t)
	paths := []string{
		"/the/non/relative/part/29/S/QB/2017/9/4/0",
		"/data/15/F/ZX/2016/12/31/1/",
		"29/S/QB/2017/9/4/0",
	}
	for _, p := range paths {
		rel := r.GetRelativePath(p, types.AWSS2L1C)
		require.NotEmpty(t, rel, p)
		assert.Contains(t, p, rel)
		assert.Equal(t, rel, r.GetRelativePath(rel, types.AWSS2L1C))
	}
	assert.Equal(t, "15/F/ZX/2016/12/31/1", r.GetRelativePath("/data/15/F/ZX/2016/12/31/1/", types.AWSS2L1C))
}

func TestRegistry_EndToEndAwsDirectory(t *testing.T) {
	dir := awsL2Dir(t, t.TempDir())
	r := newTestRegistry(t)

	assert.True(t, r.IsValid(dir, types.AWSS2L2))
	assert.Equal(t, types.AWSS2L2, r.GetValidType(dir))
	assert.Equal(t, "15/F/ZX/2016/12/31/1", r.GetRelativePath(dir, types.AWSS2L2))
}

func TestRegistry_IsValidFor(t *testing.T) {
	rec := newCountingRecorder()
	r := newTestRegistry(t, WithRecorder(rec))

	ok, err := r.IsValidFor(camsFixture, types.CAMS, nil, day(2017, 9, 13), day(2017, 9, 15))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsValidFor(camsFixture, types.CAMS, nil, day(2017, 9, 10), day(2017, 9, 12))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.IsValidFor(wvFixture, types.WVEmu, nil, day(2017, 9, 10), day(2017, 9, 12))
	assert.False(t, ok)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFilterUnsupported))

	r.GetValidType(camsFixture)
	r.GetValidType("nothing")

	assert.Equal(t, 1, rec.validations["CAMS/valid"])
	assert.Equal(t, 1, rec.validations["CAMS/invalid"])
	assert.Equal(t, 1, rec.validations["WV_EMU/unsupported"])
	assert.Equal(t, 1, rec.classifications["CAMS"])
	assert.Equal(t, 1, rec.classifications[""])
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, types.ModisMCD43, r.GetValidType(modisFixture))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.RegisterVariables([]variables.Variable{{ShortName: "ala"}, {ShortName: "h"}})
	}()
	wg.Wait()

	assert.Contains(t, r.GetValidTypes(), "h")
}
