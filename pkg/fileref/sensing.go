package fileref

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/multiply-org/multiply-core/pkg/auxdata"
	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/types"
)

const sensingTimeElement = "SENSING_TIME"

var sensingTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// SensingTimeCreator reads the acquisition time of a product directory from
// the SENSING_TIME element of its tile manifest.
type SensingTimeCreator struct {
	dataType  string
	provider  auxdata.Provider
	manifests []string
}

// NewSensingTimeCreator creates a creator for dataType. Manifests are tried
// in order and the first one provider can provide is used. A nil provider
// reads the local file system.
func NewSensingTimeCreator(dataType string, provider auxdata.Provider, manifests ...string) *SensingTimeCreator {
	if provider == nil {
		provider = auxdata.NewLocalProvider(nil)
	}
	return &SensingTimeCreator{dataType: dataType, provider: provider, manifests: manifests}
}

// Name returns the data type.
func (c *SensingTimeCreator) Name() string { return c.dataType }

// CreateFileRef returns a reference to the directory at path whose start and
// end are the sensing time, truncated to whole seconds.
func (c *SensingTimeCreator) CreateFileRef(path string) (*types.FileRef, error) {
	for _, name := range c.manifests {
		manifest := filepath.Join(path, name)
		if !c.provider.AssureElementProvided(manifest) {
			continue
		}
		f, err := os.Open(manifest)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataAccess, "failed to open manifest").
				WithComponent("fileref").
				WithContext("path", path).
				WithContext("manifest", name)
		}
		sensed, err := readSensingTime(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeOf(err), "failed to read sensing time").
				WithComponent("fileref").
				WithContext("path", path).
				WithContext("manifest", name)
		}
		ref := types.NewFileRef(path, sensed, sensed, false, types.MimeDirectory)
		return &ref, nil
	}
	return nil, errors.Newf(errors.ErrCodeMetadataMissing, "none of %s found", strings.Join(c.manifests, ", ")).
		WithComponent("fileref").
		WithContext("path", path)
}

// readSensingTime returns the first SENSING_TIME value in an XML document.
func readSensingTime(r io.Reader) (time.Time, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return time.Time{}, errors.NewError(errors.ErrCodeMetadataMissing, "no SENSING_TIME element")
		}
		if err != nil {
			return time.Time{}, errors.Wrap(err, errors.ErrCodeMetadataMalformed, "invalid XML")
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != sensingTimeElement {
			continue
		}
		var value string
		if err := dec.DecodeElement(&value, &start); err != nil {
			return time.Time{}, errors.Wrap(err, errors.ErrCodeMetadataMalformed, "invalid SENSING_TIME element")
		}
		return parseSensingTime(value)
	}
}

func parseSensingTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range sensingTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, errors.Newf(errors.ErrCodeMetadataMalformed, "unparseable sensing time %q", value)
}
