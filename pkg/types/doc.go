/*
Package types defines the data model shared by the validation registry, the
file-reference factory and their consumers.

# Data Types

A DataType names a family of data products with a distinct file or directory
naming convention. The built-in families are declared as constants:

	AWS_S2_L1C     Sentinel-2 L1C tiles laid out as on the AWS open-data bucket
	AWS_S2_L2      atmospherically corrected AWS tiles
	S2_L2          atmospherically corrected SAFE-style products
	S1_SLC         Sentinel-1 single look complex scenes
	S1_Speckled    speckle-filtered Sentinel-1 netCDF products
	MCD43A1.006    MODIS BRDF/albedo tiles
	CAMS           CAMS reanalysis, one netCDF file per day
	CAMS_TIFF      CAMS reanalysis, one directory of GeoTIFFs per day
	ISO_MSI_A_EMU  isotropic MSI emulators for Sentinel-2A
	ISO_MSI_B_EMU  isotropic MSI emulators for Sentinel-2B
	WV_EMU         water vapour retrieval emulator
	ASTER          ASTER GDEM elevation tiles

Every declared variable (see package variables) adds one more data type named
by its short name.

# File References

A FileRef is an immutable description of where a data item lives and which
period it covers. Times are strings, either a calendar date (2006-01-02) or a
timestamp truncated to whole seconds (2006-01-02T15:04:05).
*/
package types
