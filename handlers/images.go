package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Purestreams/Mio-Gallery/catalog"
	"github.com/Purestreams/Mio-Gallery/media"
)

const dateLayout = "2006-01-02"

// GalleryHandler serves the image catalog API: listings, single-asset
// payloads, pin and description mutations, deletion and downloads.
type GalleryHandler struct {
	Catalog *catalog.Service
}

type imagePayload struct {
	ID             string  `json:"id"`
	Date           string  `json:"date"`
	Datetime       string  `json:"datetime"`
	Thumb          string  `json:"thumb"`
	WebP           string  `json:"webp"`
	AVIF           *string `json:"avif"`
	Pinned         bool    `json:"pinned"`
	Description    string  `json:"description"`
	HasDescription bool    `json:"has_description"`
}

func toPayload(a catalog.Asset) imagePayload {
	p := imagePayload{
		ID:             a.ID,
		Date:           a.CapturedAt.Format(dateLayout),
		Datetime:       a.CapturedAt.Format("2006-01-02 15:04:05"),
		Thumb:          "/api/thumb/" + a.ID + media.PrimaryExt,
		WebP:           "/api/images/" + a.PrimaryRel,
		Pinned:         a.Pinned,
		Description:    a.Description,
		HasDescription: a.HasDescription,
	}
	if a.HasSecondary {
		avif := "/api/images/" + a.SecondaryRel
		p.AVIF = &avif
	}
	return p
}

// ListImages handles GET /api/images?start_date&end_date
func (h *GalleryHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	startParam := r.URL.Query().Get("start_date")
	endParam := r.URL.Query().Get("end_date")

	var start, end *time.Time
	if startParam != "" {
		t, err := time.ParseInLocation(dateLayout, startParam, time.Local)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_date", "Invalid date format. Use YYYY-MM-DD")
			return
		}
		start = &t
	}
	if endParam != "" {
		t, err := time.ParseInLocation(dateLayout, endParam, time.Local)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_date", "Invalid date format. Use YYYY-MM-DD")
			return
		}
		// inclusive day bound
		t = t.Add(24*time.Hour - time.Second)
		end = &t
	}

	assets := h.Catalog.List(start, end)
	images := make([]imagePayload, 0, len(assets))
	for _, a := range assets {
		images = append(images, toPayload(a))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":  len(images),
		"images": images,
		"filters": map[string]string{
			"start_date": startParam,
			"end_date":   endParam,
		},
	})
}

// GetImage handles GET /api/images/{image_id}
func (h *GalleryHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "image_id")
	asset, err := h.Catalog.Get(id)
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(asset))
}

// PinImage handles PUT /api/images/{image_id}/pin. Body {"pinned": bool}
// sets the state; an omitted value toggles the current one.
func (h *GalleryHandler) PinImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "image_id")

	var body struct {
		Pinned *bool `json:"pinned"`
	}
	// an empty body is a valid toggle request
	_ = json.NewDecoder(r.Body).Decode(&body)

	change := catalog.PinChange{Toggle: body.Pinned == nil}
	if body.Pinned != nil {
		change.Value = *body.Pinned
	}

	pinned, err := h.Catalog.SetPinned(id, change)
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "pinned": pinned})
}

// GetDescription handles GET /api/images/{image_id}/description
func (h *GalleryHandler) GetDescription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "image_id")
	text, err := h.Catalog.Description(id)
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "description": text})
}

// PutDescription handles PUT /api/images/{image_id}/description
func (h *GalleryHandler) PutDescription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "image_id")

	var body struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}

	if err := h.Catalog.SetDescription(id, body.Description); err != nil {
		WriteCatalogError(w, err)
		return
	}

	text, err := h.Catalog.Description(id)
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "description": text})
}

// DeleteImage handles DELETE /api/images/{image_id}. Unknown ids get 404;
// the removal itself is idempotent, so retries over partial leftovers
// succeed.
func (h *GalleryHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "image_id")
	if !media.ValidID(id) || !h.Catalog.Exists(id) {
		WriteAPIError(w, http.StatusNotFound, "not_found", "Image not found")
		return
	}
	if err := h.Catalog.Delete(id); err != nil {
		WriteCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
}

// DownloadImage handles GET /api/images/{image_id}/download?format=avif|jpg
func (h *GalleryHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "image_id")
	if !media.ValidID(id) || !h.Catalog.Exists(id) {
		WriteAPIError(w, http.StatusNotFound, "not_found", "Image not found")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "avif"
	}

	path, err := h.Catalog.Download(r.Context(), id, format)
	if err != nil {
		WriteCatalogError(w, err)
		return
	}

	mime, err := h.Catalog.DownloadMIME(format)
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	ext, _ := h.Catalog.DownloadExt(format)

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+ext))
	http.ServeFile(w, r, path)
}
