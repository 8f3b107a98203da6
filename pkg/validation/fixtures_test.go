package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

const (
	modisFixture    = "MCD43A1.A2017250.h17v05.006.2017261201257.hdf"
	camsFixture     = "2017-09-14.nc"
	emuAFixture     = "isotropic_MSI_emulators_correction_xap_S2A.pkl"
	emuBFixture     = "isotropic_MSI_emulators_optimization_xcp_S2B.pkl"
	wvFixture       = "wv_MSI_retrieval_S2A.pkl"
	asterFixture    = "ASTGTM2_N12E134_dem.tif"
	slcFixture      = "S1A_IW_SLC__1SDV_20170613T053026_20170613T053053_017010_01C5D2_4ED1.zip"
	speckledFixture = "S1A_IW_SLC__1SDV_20170613T053026_20170613T053053_017010_01C5D2_4ED1_GC_RC_No_Su_Co_speckle.nc"
	laiFixture      = "lai_A2017250.tif"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0750))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}
}

func l1cFiles() []string {
	files := []string{"metadata.xml", "productInfo.json"}
	for _, band := range s2L1CBands {
		files = append(files, band+".jp2")
	}
	return files
}

func l2Files(manifest string) []string {
	files := []string{manifest, "cloud.tif"}
	for _, band := range s2L1CBands {
		files = append(files, band+"_sur.tif")
	}
	return files
}

func camsTiffFiles(date string) []string {
	files := make([]string, 0, len(camsBands))
	for _, band := range camsBands {
		files = append(files, date+"_"+band+".tif")
	}
	return files
}

// awsL2Dir creates an AWS style S2 L2 product below root.
func awsL2Dir(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "15", "F", "ZX", "2016", "12", "31", "1")
	touch(t, dir, l2Files("metadata.xml")...)
	return dir
}

func awsL1CDir(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "29", "S", "QB", "2017", "9", "4", "0")
	touch(t, dir, l1cFiles()...)
	return dir
}

func s2L2Dir(t *testing.T, root, manifest string) string {
	t.Helper()
	dir := filepath.Join(root, "L2A_T32UMD_A015768_20180617T103418")
	touch(t, dir, l2Files(manifest)...)
	return dir
}

func camsTiffDir(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "2018_10_23")
	touch(t, dir, camsTiffFiles("2018_10_23")...)
	return dir
}

func polygon(t *testing.T, s string) geom.T {
	t.Helper()
	g, err := wkt.Unmarshal(s)
	require.NoError(t, err)
	return g
}
