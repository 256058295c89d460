package filehandler

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultThumbnailMaxDimension is the maximum dimension (width or height)
// for gallery thumbnails.
const DefaultThumbnailMaxDimension = 512

// Thumbnail scales raw image bytes down so the longest side is at most
// maxDimension and re-encodes as JPEG. Images already within bounds are
// still re-encoded, which keeps the gallery payload predictable.
func Thumbnail(data []byte, maxDimension int) ([]byte, string, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	newW, newH := w, h
	if w > maxDimension || h > maxDimension {
		if w >= h {
			newW = maxDimension
			newH = h * maxDimension / w
		} else {
			newH = maxDimension
			newW = w * maxDimension / h
		}
		if newW < 1 {
			newW = 1
		}
		if newH < 1 {
			newH = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}

	log.Debug().
		Str("source_format", format).
		Int("source_width", w).
		Int("source_height", h).
		Int("thumb_width", newW).
		Int("thumb_height", newH).
		Int("bytes", buf.Len()).
		Msg("Thumbnail generated")

	return buf.Bytes(), "image/jpeg", nil
}
