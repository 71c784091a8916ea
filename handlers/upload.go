package handlers

import (
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/Purestreams/Mio-Gallery/catalog"
	"github.com/Purestreams/Mio-Gallery/media"
	"github.com/Purestreams/Mio-Gallery/workers"
)

const multipartMemoryLimit = 32 * 1024 * 1024

// UploadHandler ingests one or many images per request. Each file gets its
// own verdict; one bad file never blocks its siblings.
type UploadHandler struct {
	Catalog   *catalog.Service
	Prewarmer *workers.ThumbnailPrewarmer
}

type uploadResult struct {
	OriginalFilename string  `json:"original_filename"`
	ID               string  `json:"id"`
	Date             string  `json:"date"`
	Datetime         string  `json:"datetime"`
	WebP             string  `json:"webp"`
	AVIF             *string `json:"avif"`
}

type uploadError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Upload handles POST /api/upload (multipart field "image" or "images")
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Expected multipart form data")
		return
	}

	var files []*multipart.FileHeader
	if headers := r.MultipartForm.File["images"]; len(headers) > 0 {
		files = headers
	} else if headers := r.MultipartForm.File["image"]; len(headers) > 0 {
		files = headers
	}
	if len(files) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "no_image", "No image file provided")
		return
	}

	results := make([]uploadResult, 0, len(files))
	uploadErrors := make([]uploadError, 0)

	for _, header := range files {
		if header.Filename == "" {
			uploadErrors = append(uploadErrors, uploadError{Filename: "empty", Error: "No selected file"})
			continue
		}
		if !media.IsSupportedUpload(header.Filename) {
			uploadErrors = append(uploadErrors, uploadError{Filename: header.Filename, Error: "File type not allowed"})
			continue
		}

		raw, err := readMultipartFile(header)
		if err != nil {
			log.Printf("upload: failed to read %s: %v", header.Filename, err)
			uploadErrors = append(uploadErrors, uploadError{Filename: header.Filename, Error: "Failed to read file"})
			continue
		}

		asset, err := h.Catalog.Upload(r.Context(), raw)
		if err != nil {
			log.Printf("upload: %s rejected: %v", header.Filename, err)
			uploadErrors = append(uploadErrors, uploadError{Filename: header.Filename, Error: err.Error()})
			continue
		}

		if h.Prewarmer != nil {
			h.Prewarmer.QueueJob(workers.PrewarmJob{ID: asset.ID})
		}

		payload := toPayload(asset)
		results = append(results, uploadResult{
			OriginalFilename: header.Filename,
			ID:               asset.ID,
			Date:             payload.Date,
			Datetime:         payload.Datetime,
			WebP:             payload.WebP,
			AVIF:             payload.AVIF,
		})
	}

	response := map[string]interface{}{"uploaded": results}
	if len(uploadErrors) > 0 {
		response["errors"] = uploadErrors
	}

	status := http.StatusOK
	if len(results) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, response)
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
