package media

import (
	"path/filepath"
	"strings"
)

var supportedUploadExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".tif": true, ".tiff": true, ".webp": true,
}

// IsSupportedUpload checks if the filename has an accepted raster image
// extension. HEIC/HEIF are not accepted: no decoder is available.
func IsSupportedUpload(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedUploadExtensions[ext]
}
