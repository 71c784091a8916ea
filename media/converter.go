package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

const (
	// encoded primaries and secondaries are capped at 1MiB
	representationMaxBytes = 1024 * 1024

	primaryStartQuality       = 70
	secondaryStartQuality     = 80
	representationMinQuality  = 50
	representationQualityStep = 5

	thumbStartSide    = 640
	thumbMinSide      = 240
	thumbStartQuality = 76
	thumbQualityStep  = 8
	thumbMinQuality   = 40

	jpegDownloadQuality = 92
	avifDownloadQuality = 80
)

type downloadSpec struct {
	codec   Codec
	quality int
}

// Converter turns a decoded upload into the stored representations and,
// on demand, into derived artifacts. All entry points honour context
// cancellation between encode attempts so a pathological input cannot
// outlive its request.
type Converter struct {
	primary        Codec
	secondary      Codec // may be nil when no secondary capability exists
	downloads      map[string]downloadSpec
	maxUploadBytes int64
	thumbMaxBytes  int
}

// NewConverter builds the production converter: WebP primary, best-effort
// AVIF secondary, JPEG and AVIF download conversions.
func NewConverter(maxUploadBytes int64, thumbMaxBytes int) *Converter {
	c := NewConverterWithCodecs(WebPCodec{}, AVIFCodec{}, maxUploadBytes, thumbMaxBytes)
	c.RegisterDownload("jpg", JPEGCodec{}, jpegDownloadQuality)
	c.RegisterDownload("avif", AVIFCodec{}, avifDownloadQuality)
	return c
}

// NewConverterWithCodecs wires explicit codecs; secondary may be nil
func NewConverterWithCodecs(primary, secondary Codec, maxUploadBytes int64, thumbMaxBytes int) *Converter {
	return &Converter{
		primary:        primary,
		secondary:      secondary,
		downloads:      map[string]downloadSpec{},
		maxUploadBytes: maxUploadBytes,
		thumbMaxBytes:  thumbMaxBytes,
	}
}

// RegisterDownload adds a download conversion capability for a format
func (c *Converter) RegisterDownload(format string, codec Codec, quality int) {
	c.downloads[format] = downloadSpec{codec: codec, quality: quality}
}

func (c *Converter) PrimaryExt() string { return c.primary.Ext() }

func (c *Converter) SecondaryExt() string {
	if c.secondary == nil {
		return ""
	}
	return c.secondary.Ext()
}

// DownloadExt resolves a requested interchange format to its file
// extension, failing with ErrUnsupportedFormat for unknown formats
func (c *Converter) DownloadExt(format string) (string, error) {
	spec, ok := c.downloads[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return spec.codec.Ext(), nil
}

// DownloadMIME returns the Content-Type for a requested download format
func (c *Converter) DownloadMIME(format string) (string, error) {
	spec, ok := c.downloads[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return spec.codec.MIME(), nil
}

// Validate rejects oversized and undecodable payloads before any file is
// written. It only inspects the header, the full decode happens later.
func (c *Converter) Validate(raw []byte) error {
	if int64(len(raw)) > c.maxUploadBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, len(raw), c.maxUploadBytes)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}

// EncodePrimary produces the canonical stored representation. Failure here
// is fatal for the upload.
func (c *Converter) EncodePrimary(ctx context.Context, img image.Image) ([]byte, error) {
	data, err := c.encodeUnderCap(ctx, c.primary, flatten(img), primaryStartQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: primary encode: %v", ErrConversionFailed, err)
	}
	return data, nil
}

// EncodeSecondary produces the optional modern-format representation.
// Errors are reported so the caller can log them, but absence of a
// secondary is a valid permanent state, never an upload failure.
func (c *Converter) EncodeSecondary(ctx context.Context, img image.Image) ([]byte, error) {
	if c.secondary == nil {
		return nil, fmt.Errorf("no secondary codec configured")
	}
	return c.encodeUnderCap(ctx, c.secondary, flatten(img), secondaryStartQuality)
}

// EncodeThumbnail re-encodes the primary representation into a small grid
// preview, iteratively lowering quality and then dimensions until the
// result fits the byte ceiling. At the floor the best achievable bytes are
// returned rather than an error.
func (c *Converter) EncodeThumbnail(ctx context.Context, primary []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(primary))
	if err != nil {
		return nil, fmt.Errorf("%w: decode primary: %v", ErrConversionFailed, err)
	}
	img = flatten(img)

	side := thumbStartSide
	quality := thumbStartQuality
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		trial := imaging.Fit(img, side, side, imaging.Lanczos)
		var buf bytes.Buffer
		if err := c.primary.Encode(&buf, trial, quality); err != nil {
			return nil, fmt.Errorf("%w: thumbnail encode: %v", ErrConversionFailed, err)
		}
		if buf.Len() <= c.thumbMaxBytes {
			return buf.Bytes(), nil
		}

		if quality > thumbMinQuality {
			quality -= thumbQualityStep
			continue
		}
		if side <= thumbMinSide {
			// floor reached, accept the best we have
			return buf.Bytes(), nil
		}
		side = maxInt(thumbMinSide, side*85/100)
		quality = thumbStartQuality
	}
}

// EncodeDownload re-encodes the primary representation into the requested
// interchange format
func (c *Converter) EncodeDownload(ctx context.Context, primary []byte, format string) ([]byte, error) {
	spec, ok := c.downloads[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(primary))
	if err != nil {
		return nil, fmt.Errorf("%w: decode primary: %v", ErrConversionFailed, err)
	}

	var buf bytes.Buffer
	if err := spec.codec.Encode(&buf, flatten(img), spec.quality); err != nil {
		return nil, fmt.Errorf("%w: %s encode: %v", ErrConversionFailed, format, err)
	}
	return buf.Bytes(), nil
}

// encodeUnderCap walks the quality ladder down until the encoded size fits
// representationMaxBytes or the quality floor is hit
func (c *Converter) encodeUnderCap(ctx context.Context, codec Codec, img image.Image, startQuality int) ([]byte, error) {
	quality := startQuality
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := codec.Encode(&buf, img, quality); err != nil {
			return nil, err
		}
		if buf.Len() <= representationMaxBytes || quality <= representationMinQuality {
			return buf.Bytes(), nil
		}
		quality -= representationQualityStep
	}
}

// flatten composites transparent images onto a white background; opaque
// images pass through untouched
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	bounds := img.Bounds()
	flat := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, bounds.Min, draw.Over)
	return flat
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
