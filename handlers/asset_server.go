package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Purestreams/Mio-Gallery/media"
)

// OriginalServer creates a handler serving the stored encodes straight
// from the partitioned photo tree, e.g. GET /api/images/2023/06/<id>.webp.
// Dotted path components are refused so the metadata file stays private.
func OriginalServer(store *media.PhotoStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := chi.URLParam(r, "*")
		if relativePath == "" || strings.Contains(relativePath, "..") {
			http.Error(w, "Invalid asset path", http.StatusBadRequest)
			return
		}
		for _, part := range strings.Split(relativePath, "/") {
			if strings.HasPrefix(part, ".") {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}

		fullPath, err := store.ResolveOriginal(relativePath)
		if err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			log.Printf("SECURITY: attempted access outside photo directory: Request='%s': %v", r.URL.Path, err)
			return
		}

		if info, err := os.Stat(fullPath); os.IsNotExist(err) || (err == nil && info.IsDir()) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("Error stating asset file %s: %v", fullPath, err)
			return
		}

		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

		http.ServeFile(w, r, fullPath)
	}
}
