package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/Purestreams/Mio-Gallery/catalog"
	"github.com/Purestreams/Mio-Gallery/config"
	"github.com/Purestreams/Mio-Gallery/handlers"
	"github.com/Purestreams/Mio-Gallery/media"
	"github.com/Purestreams/Mio-Gallery/metadata"
	"github.com/Purestreams/Mio-Gallery/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	photoStore, err := media.NewPhotoStore(cfg.PhotoDirectory, cfg.ThumbPath, cfg.DownloadPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize photo store: %v", err)
	}

	// a corrupt metadata file aborts startup; serving guessed state would
	// silently lose pin state and capture times
	metaStore, err := metadata.Load(cfg.MetaFilePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load metadata store: %v", err)
	}

	descriptions, err := metadata.NewDescriptionStore(cfg.DescriptionPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize description store: %v", err)
	}

	converter := media.NewConverter(cfg.MaxUploadBytes, cfg.ThumbMaxBytes)
	artifactCache := media.NewArtifactCache(photoStore, converter)
	catalogService := catalog.NewService(photoStore, converter, artifactCache, metaStore, descriptions)

	log.Printf("Initializing thumbnail prewarm pool (Workers: %d, Queue Size: %d)...", cfg.NumPrewarmWorkers, cfg.PrewarmQueueSize)
	prewarmer := workers.NewThumbnailPrewarmer(artifactCache, cfg.PrewarmQueueSize, cfg.NumPrewarmWorkers)
	defer prewarmer.Stop()

	adminAuth, err := handlers.NewAdminAuth(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize admin auth: %v", err)
	}

	log.Printf("Serving photos from: %s", cfg.PhotoDirectory)
	log.Printf("Metadata file: %s", cfg.MetaFilePath)
	log.Printf("Thumbnail byte ceiling: %d", cfg.ThumbMaxBytes)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	galleryHandler := &handlers.GalleryHandler{Catalog: catalogService}
	uploadHandler := &handlers.UploadHandler{Catalog: catalogService, Prewarmer: prewarmer}
	thumbnailHandler := &handlers.ThumbnailHandler{Catalog: catalogService}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok","message":"Mio Gallery API is running"}`))
		})

		r.With(adminAuth.RequireAdmin).Post("/upload", uploadHandler.Upload)

		r.Route("/images", func(r chi.Router) {
			r.Get("/", galleryHandler.ListImages)
			r.Route("/{image_id}", func(r chi.Router) {
				r.Get("/", galleryHandler.GetImage)
				r.With(adminAuth.RequireAdmin).Delete("/", galleryHandler.DeleteImage)
				r.With(adminAuth.RequireAdmin).Put("/pin", galleryHandler.PinImage)
				r.Get("/description", galleryHandler.GetDescription)
				r.With(adminAuth.RequireAdmin).Put("/description", galleryHandler.PutDescription)
				r.Get("/download", galleryHandler.DownloadImage)
			})
			r.Get("/*", handlers.OriginalServer(photoStore))
		})

		r.Get("/thumb/{thumb_name}", thumbnailHandler.ServeThumbnail)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "5088"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
