package fileref

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/multiply-org/multiply-core/pkg/types"
)

var extensionTypes = map[string]string{
	".tif":  types.MimeTIFF,
	".tiff": types.MimeTIFF,
	".nc":   types.MimeNetCDF,
	".hdf":  types.MimeHDF,
	".zip":  types.MimeZip,
	".safe": types.MimeDirectory,
}

// DetectMimeType returns the mime type of the item at p. Directories are
// application/x-directory; files are sniffed by content. Items that do not
// exist locally, or whose content is not recognised, are typed by extension.
func DetectMimeType(p string) string {
	if info, err := os.Stat(p); err == nil {
		if info.IsDir() {
			return types.MimeDirectory
		}
		if m, err := mimetype.DetectFile(p); err == nil && m != nil {
			if detected := mediaType(m.String()); !generic(detected) {
				return detected
			}
		}
	}
	if mimeType, ok := extensionTypes[strings.ToLower(filepath.Ext(p))]; ok {
		return mimeType
	}
	return types.MimeBinary
}

func mediaType(s string) string {
	if i := strings.Index(s, ";"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func generic(mimeType string) bool {
	return mimeType == "" || mimeType == types.MimeBinary || mimeType == "text/plain"
}
