package fileref

import (
	"path"
	"strings"
	"time"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/types"
	"github.com/multiply-org/multiply-core/pkg/utils"
	"github.com/multiply-org/multiply-core/pkg/variables"
)

// VariableCreator creates references to retrieved variable rasters. The
// date token at the end of the file name is read per the variable's date
// format.
type VariableCreator struct {
	variable variables.Variable
}

// NewVariableCreator creates a creator for v.
func NewVariableCreator(v variables.Variable) *VariableCreator {
	return &VariableCreator{variable: v}
}

// Name returns the variable's short name.
func (c *VariableCreator) Name() string { return c.variable.ShortName }

// CreateFileRef returns a date-only reference to the raster at p.
func (c *VariableCreator) CreateFileRef(p string) (*types.FileRef, error) {
	stem := strings.TrimSuffix(path.Base(utils.ToSlash(p)), ".tif")
	tokens := strings.Split(stem, "_")
	last := tokens[len(tokens)-1]

	var start, end time.Time
	var err error
	switch c.variable.DateFormat {
	case variables.DayOfYear, "":
		start, err = time.Parse("A2006002", last)
		end = start
	case variables.SingleDate:
		start, err = time.Parse("20060102", last)
		end = start
	case variables.DateRange:
		if len(tokens) < 3 {
			return nil, c.malformed(p, "expected a start and an end date token")
		}
		start, err = time.Parse("20060102", tokens[len(tokens)-2])
		if err == nil {
			end, err = time.Parse("20060102", last)
		}
		if err == nil && end.Before(start) {
			return nil, c.malformed(p, "end date before start date")
		}
	default:
		return nil, errors.Newf(errors.ErrCodeConfigValidation, "unknown date format %q", c.variable.DateFormat).
			WithComponent("fileref").
			WithContext("variable", c.variable.ShortName)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMetadataMalformed, "malformed date token").
			WithComponent("fileref").
			WithContext("variable", c.variable.ShortName).
			WithContext("path", p)
	}

	ref := types.NewFileRef(p, start, end, true, types.MimeTIFF)
	return &ref, nil
}

func (c *VariableCreator) malformed(p, msg string) error {
	return errors.NewError(errors.ErrCodeMetadataMalformed, msg).
		WithComponent("fileref").
		WithContext("variable", c.variable.ShortName).
		WithContext("path", p)
}
