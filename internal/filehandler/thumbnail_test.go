package filehandler

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestThumbnailDownscales(t *testing.T) {
	data := encodePNG(t, 800, 400)

	thumb, mime, err := Thumbnail(data, 200)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", mime)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("thumbnail = %dx%d, want 200x100", b.Dx(), b.Dy())
	}
}

func TestThumbnailKeepsSmallDimensions(t *testing.T) {
	data := encodePNG(t, 64, 48)

	thumb, _, err := Thumbnail(data, 512)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("thumbnail = %dx%d, want 64x48", b.Dx(), b.Dy())
	}
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	if _, _, err := Thumbnail([]byte("not an image"), 200); err == nil {
		t.Error("Thumbnail() on garbage succeeded, want error")
	}
}
