package media

import "errors"

// Error taxonomy for the ingestion and artifact pipeline. Callers classify
// with errors.Is; wrapped causes carry the detail.
var (
	// ErrInvalidImage means the payload could not be decoded as an image
	ErrInvalidImage = errors.New("invalid image")

	// ErrPayloadTooLarge means the upload exceeds the configured byte limit
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrConversionFailed means the required primary encode failed; the
	// upload as a whole is aborted
	ErrConversionFailed = errors.New("conversion failed")

	// ErrUnsupportedFormat means a download conversion was requested in a
	// format no codec is registered for
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNotFound means the asset has no primary stored representation
	ErrNotFound = errors.New("asset not found")
)
