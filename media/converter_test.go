package media

import (
	"bytes"
	"context"
	"image"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// test converter built on JPEG only, so tests don't depend on the
// WebP/AVIF encoders
func newTestConverter(maxUploadBytes int64, thumbMaxBytes int) *Converter {
	c := NewConverterWithCodecs(JPEGCodec{}, nil, maxUploadBytes, thumbMaxBytes)
	c.RegisterDownload("jpg", JPEGCodec{}, jpegDownloadQuality)
	return c
}

// noiseJPEG resists compression, forcing the thumbnail ladder to work
func noiseJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)))
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	c := newTestConverter(1024*1024, 50*1024)

	assert.NoError(t, c.Validate(jpegBytes(t, 100, 100)))

	err := c.Validate(make([]byte, 2*1024*1024))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	err = c.Validate([]byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestEncodePrimary(t *testing.T) {
	c := newTestConverter(50*1024*1024, 50*1024)
	img, err := DecodeUpload(jpegBytes(t, 800, 600))
	require.NoError(t, err)

	primary, err := c.EncodePrimary(context.Background(), img)
	require.NoError(t, err)
	require.NotEmpty(t, primary)
	assert.LessOrEqual(t, len(primary), representationMaxBytes)

	decoded, err := imaging.Decode(bytes.NewReader(primary))
	require.NoError(t, err)
	assert.Equal(t, 800, decoded.Bounds().Dx())
}

func TestEncodeSecondaryWithoutCodec(t *testing.T) {
	c := newTestConverter(50*1024*1024, 50*1024)
	img, err := DecodeUpload(jpegBytes(t, 100, 100))
	require.NoError(t, err)

	_, err = c.EncodeSecondary(context.Background(), img)
	assert.Error(t, err, "no secondary codec means a reported (and swallowed upstream) error")
}

func TestEncodeThumbnailHonoursCeiling(t *testing.T) {
	const ceiling = 50 * 1024
	c := newTestConverter(50*1024*1024, ceiling)

	thumb, err := c.EncodeThumbnail(context.Background(), noiseJPEG(t, 1200, 800))
	require.NoError(t, err)
	require.NotEmpty(t, thumb)
	assert.LessOrEqual(t, len(thumb), ceiling)

	decoded, err := imaging.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.LessOrEqual(t, decoded.Bounds().Dx(), thumbStartSide)
}

func TestEncodeThumbnailSmallImagePassesThrough(t *testing.T) {
	c := newTestConverter(50*1024*1024, 50*1024)
	thumb, err := c.EncodeThumbnail(context.Background(), jpegBytes(t, 32, 32))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(thumb), 50*1024)
}

func TestEncodeThumbnailCancellation(t *testing.T) {
	c := newTestConverter(50*1024*1024, 50*1024)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.EncodeThumbnail(ctx, jpegBytes(t, 100, 100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeDownload(t *testing.T) {
	c := newTestConverter(50*1024*1024, 50*1024)
	primary := jpegBytes(t, 300, 200)

	out, err := c.EncodeDownload(context.Background(), primary, "jpg")
	require.NoError(t, err)
	decoded, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 300, decoded.Bounds().Dx())

	_, err = c.EncodeDownload(context.Background(), primary, "tiff")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = c.DownloadExt("bmp")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	ext, err := c.DownloadExt("jpg")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", ext)
}
