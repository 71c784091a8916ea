package media

import (
	"image"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"

	// decode registration for stored WebP primaries; AVIF registers itself
	// via the gen2brain import above
	_ "golang.org/x/image/webp"
)

// Codec is the encoding capability the converter is built on: turn a
// decoded image into one container format at a given quality level
type Codec interface {
	Ext() string
	MIME() string
	Encode(w io.Writer, img image.Image, quality int) error
}

// WebPCodec encodes the canonical primary representation
type WebPCodec struct{}

func (WebPCodec) Ext() string  { return ".webp" }
func (WebPCodec) MIME() string { return "image/webp" }

func (WebPCodec) Encode(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
}

// AVIFCodec encodes the best-effort secondary representation
type AVIFCodec struct{}

func (AVIFCodec) Ext() string  { return ".avif" }
func (AVIFCodec) MIME() string { return "image/avif" }

func (AVIFCodec) Encode(w io.Writer, img image.Image, quality int) error {
	return avif.Encode(w, img, avif.Options{Quality: quality, Speed: 8})
}

// JPEGCodec encodes the plain interchange download format
type JPEGCodec struct{}

func (JPEGCodec) Ext() string  { return ".jpg" }
func (JPEGCodec) MIME() string { return "image/jpeg" }

func (JPEGCodec) Encode(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}
