package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Purestreams/Mio-Gallery/catalog"
	"github.com/Purestreams/Mio-Gallery/media"
)

// ThumbnailHandler serves (and lazily generates) the small WebP previews
// used by the grid view
type ThumbnailHandler struct {
	Catalog *catalog.Service
}

// ServeThumbnail handles GET /api/thumb/{thumb_name}, where thumb_name is
// "<id>.webp"
func (h *ThumbnailHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "thumb_name")
	id := strings.TrimSuffix(name, media.PrimaryExt)
	if id == name || !media.ValidID(id) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_thumbnail", "Invalid thumbnail path")
		return
	}

	path, err := h.Catalog.Thumbnail(r.Context(), id)
	if err != nil {
		WriteCatalogError(w, err)
		return
	}

	cacheDuration := 24 * time.Hour
	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(cacheDuration.Seconds())))
	w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

	http.ServeFile(w, r, path)
}
