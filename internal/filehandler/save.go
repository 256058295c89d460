package filehandler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Magic prefixes for the formats Nova Canvas returns or accepts.
var (
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	gifMagic  = []byte("GIF8")
	riffMagic = []byte("RIFF")
)

// SniffImageExt returns the file extension (with dot) for raw image bytes,
// or ".bin" when the format is not recognized.
func SniffImageExt(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return ".png"
	case bytes.HasPrefix(data, jpegMagic):
		return ".jpg"
	case bytes.HasPrefix(data, gifMagic):
		return ".gif"
	case len(data) >= 12 && bytes.HasPrefix(data, riffMagic) && bytes.Equal(data[8:12], []byte("WEBP")):
		return ".webp"
	default:
		return ".bin"
	}
}

// SaveImages writes each image to dir as {prefix}_{n}{ext} with n starting
// at 1, in the order given. The directory is created if absent. Returns the
// written file paths in the same order.
func SaveImages(images [][]byte, dir, prefix string) ([]string, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(images))
	for i, data := range images {
		name := fmt.Sprintf("%s_%d%s", prefix, i+1, SniffImageExt(data))
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	log.Info().
		Str("dir", dir).
		Str("prefix", prefix).
		Int("count", len(paths)).
		Msg("Saved generated images")

	return paths, nil
}
