package fileref

import (
	"strings"

	"github.com/multiply-org/multiply-core/pkg/types"
	"github.com/multiply-org/multiply-core/pkg/validation"
)

// ValidatorCreator creates references for data types whose names carry their
// acquisition time, using the type's validator to read it.
type ValidatorCreator struct {
	validator *validation.Validator
}

// NewValidatorCreator creates a creator for the type of v.
func NewValidatorCreator(v *validation.Validator) *ValidatorCreator {
	return &ValidatorCreator{validator: v}
}

// Name returns the data type.
func (c *ValidatorCreator) Name() string { return c.validator.Name() }

// CreateFileRef returns a reference to p covering the time embedded in its
// name. Types named by date alone get date-only times.
func (c *ValidatorCreator) CreateFileRef(p string) (*types.FileRef, error) {
	start, end, err := c.validator.Extent(p)
	if err != nil {
		return nil, err
	}
	dateOnly := !strings.Contains(c.validator.TimeLayout(), "15")
	ref := types.NewFileRef(p, start, end, dateOnly, DetectMimeType(p))
	return &ref, nil
}
