package media

import (
	"bytes"
	"image"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(x * 255 / width)
			img.Pix[i+1] = uint8(y * 255 / height)
			img.Pix[i+2] = uint8((x + y) % 256)
			img.Pix[i+3] = 255
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)))
	return buf.Bytes()
}

func TestAssignIdentityShape(t *testing.T) {
	capturedAt := time.Date(2023, 6, 1, 10, 0, 0, 0, time.Local)
	identity := AssignIdentity(jpegBytes(t, 120, 80), capturedAt)

	assert.True(t, ValidID(identity.ID), "id %q should match the generated shape", identity.ID)
	assert.Equal(t, "20230601_100000_", identity.ID[:16])
	assert.Equal(t, Partition{Year: 2023, Month: time.June}, identity.Partition)
	assert.Equal(t, "2023/06", identity.Partition.String())
	assert.True(t, identity.CapturedAt.Equal(capturedAt))
}

func TestAssignIdentityDisambiguatesContent(t *testing.T) {
	capturedAt := time.Date(2023, 6, 1, 10, 0, 0, 0, time.Local)

	a := AssignIdentity(jpegBytes(t, 120, 80), capturedAt)
	b := AssignIdentity(jpegBytes(t, 80, 120), capturedAt)
	assert.NotEqual(t, a.ID, b.ID, "distinct content in the same second must get distinct ids")

	// identical bytes are deterministic
	raw := jpegBytes(t, 60, 60)
	assert.Equal(t, AssignIdentity(raw, capturedAt).ID, AssignIdentity(raw, capturedAt).ID)
}

func TestCaptureTimeFallsBackWithoutEXIF(t *testing.T) {
	fallback := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	got := CaptureTime(jpegBytes(t, 40, 40), fallback)
	assert.True(t, got.Equal(fallback))
}

func TestDecodeUploadRejectsGarbage(t *testing.T) {
	_, err := DecodeUpload([]byte("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestPartitionFromID(t *testing.T) {
	part, err := PartitionFromID("20230601_100000_1a2b3c4d5e6f")
	require.NoError(t, err)
	assert.Equal(t, Partition{Year: 2023, Month: time.June}, part)

	for _, bad := range []string{
		"",
		"not-an-id",
		"20230601_100000",
		"20230601_100000_..",
		"../../etc/passwd",
		"20230601_100000_UPPERCASE12",
	} {
		_, err := PartitionFromID(bad)
		assert.ErrorIs(t, err, ErrNotFound, "id %q should be rejected", bad)
		assert.False(t, ValidID(bad))
	}
}
