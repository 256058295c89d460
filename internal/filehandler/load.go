package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// SupportedImageExtensions defines the file extensions accepted as
// generation inputs (source, reference, and conditioning images).
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// MaxInputImageBytes caps the size of a single input image. Nova Canvas
// rejects oversized payloads, so refuse them before assembling a request.
const MaxInputImageBytes = 25 << 20

// IsImage returns true if the extension (with dot, any case) is a
// supported image format.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// LoadImageFile reads a local image for use as a generation input and
// returns its bytes and MIME type.
func LoadImageFile(path string) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := SupportedImageExtensions[ext]
	if !ok {
		return nil, "", fmt.Errorf("unsupported image format: %s", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxInputImageBytes {
		return nil, "", fmt.Errorf("image %s is %d bytes, limit is %d", path, info.Size(), MaxInputImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Str("mime_type", mime).
		Int("bytes", len(data)).
		Msg("Loaded input image")

	return data, mime, nil
}
