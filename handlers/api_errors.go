package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Purestreams/Mio-Gallery/media"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// WriteCatalogError maps pipeline errors onto the API error envelope
func WriteCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrNotFound):
		WriteAPIError(w, http.StatusNotFound, "not_found", "Image not found")
	case errors.Is(err, media.ErrInvalidImage):
		WriteAPIError(w, http.StatusBadRequest, "invalid_image", "Payload is not a decodable image")
	case errors.Is(err, media.ErrPayloadTooLarge):
		WriteAPIError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Uploaded file exceeds the size limit")
	case errors.Is(err, media.ErrUnsupportedFormat):
		WriteAPIError(w, http.StatusBadRequest, "unsupported_format", "Invalid format. Use avif|jpg")
	case errors.Is(err, media.ErrConversionFailed):
		WriteAPIError(w, http.StatusInternalServerError, "conversion_failed", "Image conversion failed")
	default:
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Server error")
	}
}

func writeJSON(w http.ResponseWriter, httpStatus int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(payload)
}
