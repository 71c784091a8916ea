package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"regexp"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

const (
	idTimeLayout = "20060102_150405"
	idHashLen    = 12
)

// ids look like 20230601_100000_1a2b3c4d5e6f
var idPattern = regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{12}$`)

// Partition is the year/month storage bucket derived from capture time
type Partition struct {
	Year  int
	Month time.Month
}

// String returns the relative directory, e.g. "2023/06"
func (p Partition) String() string {
	return fmt.Sprintf("%04d/%02d", p.Year, int(p.Month))
}

// Identity is the immutable identity assigned to an upload
type Identity struct {
	ID         string
	Partition  Partition
	CapturedAt time.Time
}

// DecodeUpload decodes raw upload bytes, applying EXIF orientation.
// undecodable payloads fail with ErrInvalidImage
func DecodeUpload(raw []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// CaptureTime returns the EXIF capture time of the upload, falling back to
// the supplied time when no usable EXIF data is present. It never fails.
func CaptureTime(raw []byte, fallback time.Time) time.Time {
	exifData, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return fallback
	}
	dt, err := exifData.DateTime()
	if err != nil {
		return fallback
	}
	return dt
}

// AssignIdentity derives the stable asset id from capture time plus a
// content digest. The digest fragment keeps byte-distinct uploads within
// the same second from colliding.
func AssignIdentity(raw []byte, capturedAt time.Time) Identity {
	sum := sha256.Sum256(raw)
	fragment := hex.EncodeToString(sum[:])[:idHashLen]
	return Identity{
		ID:         capturedAt.Format(idTimeLayout) + "_" + fragment,
		Partition:  PartitionOf(capturedAt),
		CapturedAt: capturedAt,
	}
}

// PartitionOf returns the storage bucket for a capture time
func PartitionOf(t time.Time) Partition {
	return Partition{Year: t.Year(), Month: t.Month()}
}

// ValidID reports whether id has the generated shape. Handlers use this to
// reject ids that could not have been assigned (and anything path-like).
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// PartitionFromID recovers the storage bucket encoded in an asset id
func PartitionFromID(id string) (Partition, error) {
	if !ValidID(id) {
		return Partition{}, fmt.Errorf("%w: malformed id %q", ErrNotFound, id)
	}
	t, err := time.Parse(idTimeLayout, id[:len(idTimeLayout)])
	if err != nil {
		return Partition{}, fmt.Errorf("%w: malformed id %q", ErrNotFound, id)
	}
	return PartitionOf(t), nil
}
