package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultThumbSubDir       = "thumb"
	DefaultDownloadSubDir    = "download"
	DefaultDescriptionSubDir = "description"

	// MetaFileName is the structured metadata file at the root of the photo
	// directory; existing galleries already carry it under this name
	MetaFileName = ".meta.json"
)

const (
	defaultMaxUploadBytes    = 50 * 1024 * 1024
	defaultThumbMaxBytes     = 50 * 1024
	defaultPrewarmQueueSize  = 200
	defaultNumPrewarmWorkers = 2
	defaultAdminPassword     = "Admin123"
)

type Config struct {
	// photo storage root (partitioned originals plus derived subdirs)
	PhotoDirectory string

	// calculated paths under PhotoDirectory
	ThumbPath       string
	DownloadPath    string
	DescriptionPath string
	MetaFilePath    string

	// upload and thumbnail limits
	MaxUploadBytes int64
	ThumbMaxBytes  int

	// thumbnail prewarm worker settings
	PrewarmQueueSize  int
	NumPrewarmWorkers int

	// shared admin secret for mutating endpoints
	AdminPassword string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	photoDir := getEnvOrDefault("PHOTO_DIRECTORY", filepath.Join(".", "photo"))
	absPhotoDir, err := filepath.Abs(photoDir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for photo directory '%s': %w", photoDir, err)
	}

	cfg := Config{
		PhotoDirectory:    absPhotoDir,
		ThumbPath:         filepath.Join(absPhotoDir, getEnvOrDefault("THUMB_SUBDIR", DefaultThumbSubDir)),
		DownloadPath:      filepath.Join(absPhotoDir, getEnvOrDefault("DOWNLOAD_SUBDIR", DefaultDownloadSubDir)),
		DescriptionPath:   filepath.Join(absPhotoDir, getEnvOrDefault("DESCRIPTION_SUBDIR", DefaultDescriptionSubDir)),
		MetaFilePath:      filepath.Join(absPhotoDir, MetaFileName),
		MaxUploadBytes:    int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		ThumbMaxBytes:     getEnvIntOrDefault("THUMB_MAX_BYTES", defaultThumbMaxBytes),
		PrewarmQueueSize:  getEnvIntOrDefault("PREWARM_QUEUE_SIZE", defaultPrewarmQueueSize),
		NumPrewarmWorkers: getEnvIntOrDefault("NUM_PREWARM_WORKERS", defaultNumPrewarmWorkers),
		AdminPassword:     getEnvOrDefault("MIO_GALLERY_PASSWORD", defaultAdminPassword),
	}

	return cfg, nil
}
