package filehandler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageMetadata contains EXIF metadata extracted from a user-supplied input
// image (source, reference, or conditioning). Generated outputs carry no
// EXIF, so this is only consulted on the input side.
type ImageMetadata struct {
	Latitude  float64
	Longitude float64
	HasGPS    bool

	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// ExtractImageMetadata extracts EXIF metadata from an image file. The
// imagemeta library reads only the metadata bytes, not the whole file,
// and auto-detects JPEG/TIFF/HEIC containers from the header.
func ExtractImageMetadata(filePath string) (*ImageMetadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode EXIF metadata: %w", err)
	}

	meta := &ImageMetadata{}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		meta.Latitude = gps.Latitude()
		meta.Longitude = gps.Longitude()
		meta.HasGPS = true
	}

	// Date fallback chain: DateTimeOriginal > CreateDate > ModifyDate.
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		meta.DateTaken = exifData.DateTimeOriginal()
		meta.HasDate = true
	case !exifData.CreateDate().IsZero():
		meta.DateTaken = exifData.CreateDate()
		meta.HasDate = true
	case !exifData.ModifyDate().IsZero():
		meta.DateTaken = exifData.ModifyDate()
		meta.HasDate = true
	}

	meta.CameraMake = strings.TrimSpace(exifData.Make)
	meta.CameraModel = strings.TrimSpace(exifData.Model)

	log.Debug().
		Str("path", filePath).
		Bool("has_gps", meta.HasGPS).
		Bool("has_date", meta.HasDate).
		Msg("Image metadata extraction complete")

	return meta, nil
}

// Summary formats the metadata as a short human-readable line for display
// next to a picked input image.
func (m *ImageMetadata) Summary() string {
	var parts []string
	if m.CameraMake != "" || m.CameraModel != "" {
		parts = append(parts, strings.TrimSpace(m.CameraMake+" "+m.CameraModel))
	}
	if m.HasDate {
		parts = append(parts, m.DateTaken.Format("Jan 2, 2006 3:04 PM"))
	}
	if m.HasGPS {
		parts = append(parts, fmt.Sprintf("%.4f, %.4f", m.Latitude, m.Longitude))
	}
	if len(parts) == 0 {
		return "No metadata available"
	}
	return strings.Join(parts, " · ")
}
