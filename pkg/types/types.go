package types

import (
	"fmt"
	"sort"
	"time"
)

// DataType names a product family.
type DataType = string

// Built-in data types.
const (
	AWSS2L1C    DataType = "AWS_S2_L1C"
	AWSS2L2     DataType = "AWS_S2_L2"
	S2L2        DataType = "S2_L2"
	S1SLC       DataType = "S1_SLC"
	S1Speckled  DataType = "S1_Speckled"
	ModisMCD43  DataType = "MCD43A1.006"
	CAMS        DataType = "CAMS"
	CAMSTiff    DataType = "CAMS_TIFF"
	ISOMSIAEmu  DataType = "ISO_MSI_A_EMU"
	ISOMSIBEmu  DataType = "ISO_MSI_B_EMU"
	WVEmu       DataType = "WV_EMU"
	AsterDEM    DataType = "ASTER"
	UnknownType DataType = ""
)

// Mime types used in file references.
const (
	MimeDirectory = "application/x-directory"
	MimeTIFF      = "image/tiff"
	MimeNetCDF    = "application/x-netcdf"
	MimeHDF       = "application/x-hdf"
	MimeZip       = "application/zip"
	MimeBinary    = "application/octet-stream"
)

// Time layouts used in file references.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05"
)

// FileRef describes where a data item lives and its temporal coverage.
type FileRef struct {
	URL       string `json:"url" yaml:"url"`
	StartTime string `json:"start_time" yaml:"start_time"`
	EndTime   string `json:"end_time" yaml:"end_time"`
	MimeType  string `json:"mime_type" yaml:"mime_type"`
}

// NewFileRef creates a FileRef covering [start, end]. A zero end is replaced by start.
func NewFileRef(url string, start, end time.Time, dateOnly bool, mimeType string) FileRef {
	if end.IsZero() {
		end = start
	}
	layout := TimestampLayout
	if dateOnly {
		layout = DateLayout
	}
	return FileRef{
		URL:       url,
		StartTime: start.Format(layout),
		EndTime:   end.Format(layout),
		MimeType:  mimeType,
	}
}

// Start parses StartTime.
func (f FileRef) Start() (time.Time, error) {
	return ParseRefTime(f.StartTime)
}

// End parses EndTime.
func (f FileRef) End() (time.Time, error) {
	return ParseRefTime(f.EndTime)
}

// String returns a compact representation for logging.
func (f FileRef) String() string {
	return fmt.Sprintf("%s [%s, %s] (%s)", f.URL, f.StartTime, f.EndTime, f.MimeType)
}

// ParseRefTime parses a FileRef time in either the timestamp or the date layout.
func ParseRefTime(value string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid file ref time %q", value)
	}
	return t, nil
}

// SortByStartTime orders refs by start time, keeping the input order for equal
// or unparseable times.
func SortByStartTime(refs []FileRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		ti, errI := refs[i].Start()
		tj, errJ := refs[j].Start()
		if errI != nil || errJ != nil {
			return false
		}
		return ti.Before(tj)
	})
}
