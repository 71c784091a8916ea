package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Purestreams/Mio-Gallery/catalog"
	"github.com/Purestreams/Mio-Gallery/media"
	"github.com/Purestreams/Mio-Gallery/metadata"
)

const testAdminPassword = "test-secret"

func newTestRouter(t *testing.T) (*chi.Mux, *catalog.Service) {
	t.Helper()
	base := t.TempDir()

	store, err := media.NewPhotoStore(base, filepath.Join(base, "thumb"), filepath.Join(base, "download"))
	require.NoError(t, err)

	converter := media.NewConverterWithCodecs(media.JPEGCodec{}, nil, 50*1024*1024, 50*1024)
	converter.RegisterDownload("jpg", media.JPEGCodec{}, 92)

	meta, err := metadata.Load(filepath.Join(base, ".meta.json"))
	require.NoError(t, err)
	descriptions, err := metadata.NewDescriptionStore(filepath.Join(base, "description"))
	require.NoError(t, err)

	svc := catalog.NewService(store, converter, media.NewArtifactCache(store, converter), meta, descriptions)

	adminAuth, err := NewAdminAuth(testAdminPassword)
	require.NoError(t, err)

	galleryHandler := &GalleryHandler{Catalog: svc}
	thumbnailHandler := &ThumbnailHandler{Catalog: svc}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/images", func(r chi.Router) {
			r.Get("/", galleryHandler.ListImages)
			r.Route("/{image_id}", func(r chi.Router) {
				r.Get("/", galleryHandler.GetImage)
				r.With(adminAuth.RequireAdmin).Delete("/", galleryHandler.DeleteImage)
				r.With(adminAuth.RequireAdmin).Put("/pin", galleryHandler.PinImage)
				r.Get("/description", galleryHandler.GetDescription)
				r.Get("/download", galleryHandler.DownloadImage)
			})
			r.Get("/*", OriginalServer(store))
		})
		r.Get("/thumb/{thumb_name}", thumbnailHandler.ServeThumbnail)
	})
	return r, svc
}

func uploadFixture(t *testing.T, svc *catalog.Service) catalog.Asset {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)))

	asset, err := svc.Upload(context.Background(), buf.Bytes())
	require.NoError(t, err)
	return asset
}

func TestListImagesEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	asset := uploadFixture(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total  int `json:"total"`
		Images []struct {
			ID     string `json:"id"`
			Thumb  string `json:"thumb"`
			Pinned bool   `json:"pinned"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, asset.ID, body.Images[0].ID)
	assert.Equal(t, "/api/thumb/"+asset.ID+".webp", body.Images[0].Thumb)

	// malformed date filter
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images?start_date=junk", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPinEndpointAuthAndToggle(t *testing.T) {
	router, svc := newTestRouter(t)
	asset := uploadFixture(t, svc)

	// no credentials
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/images/"+asset.ID+"/pin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// empty body toggles
	req := httptest.NewRequest(http.MethodPut, "/api/images/"+asset.ID+"/pin", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminPassword)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Pinned bool `json:"pinned"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Pinned)

	// explicit value wins over toggle
	req = httptest.NewRequest(http.MethodPut, "/api/images/"+asset.ID+"/pin", strings.NewReader(`{"pinned": true}`))
	req.Header.Set("Authorization", "Bearer "+testAdminPassword)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Pinned)
}

func TestDeleteEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	asset := uploadFixture(t, svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/images/"+asset.ID, nil)
	req.Header.Set("Authorization", "Bearer "+testAdminPassword)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// gone now
	req = httptest.NewRequest(http.MethodDelete, "/api/images/"+asset.ID, nil)
	req.Header.Set("Authorization", "Bearer "+testAdminPassword)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestThumbnailEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	asset := uploadFixture(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/thumb/"+asset.ID+".webp", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, rec.Body.Len())

	// unknown id
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/thumb/20230601_100000_000000000000.webp", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// path-shaped names are rejected outright
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/thumb/notanid.webp", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	asset := uploadFixture(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/"+asset.ID+"/download?format=jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), asset.ID+".jpg")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/"+asset.ID+"/download?format=bmp", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOriginalServerGuards(t *testing.T) {
	router, svc := newTestRouter(t)
	asset := uploadFixture(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/"+asset.PrimaryRel, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// the metadata file must never be served
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/2023/06/.meta.json", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
