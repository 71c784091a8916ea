package media

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"
)

// ArtifactCache serves derived artifacts (thumbnails, download
// conversions) with cache-aside semantics: a present cache file is served
// unchanged, a miss loads the primary representation, converts, atomically
// publishes and serves. Concurrent misses for one key collapse into a
// single generation; the other callers wait for its result.
type ArtifactCache struct {
	store     *PhotoStore
	converter *Converter
	group     singleflight.Group

	// generated, when set, is invoked once per actual cache fill
	generated func(key string)
}

func NewArtifactCache(store *PhotoStore, converter *Converter) *ArtifactCache {
	return &ArtifactCache{store: store, converter: converter}
}

// Thumbnail resolves the cached thumbnail path for id, generating it on
// first request
func (ac *ArtifactCache) Thumbnail(ctx context.Context, id string) (string, error) {
	path := ac.store.ThumbPath(id)
	return ac.resolve(ctx, id, "thumb|"+id, path, func(primary []byte) ([]byte, error) {
		return ac.converter.EncodeThumbnail(ctx, primary)
	})
}

// Download resolves the cached download conversion for (id, format). A
// request for the secondary format is served straight from the stored
// secondary representation when one exists; otherwise it is re-encoded
// from the primary like any other format.
func (ac *ArtifactCache) Download(ctx context.Context, id, format string) (string, error) {
	ext, err := ac.converter.DownloadExt(format)
	if err != nil {
		return "", err
	}

	if ext == ac.converter.SecondaryExt() && ac.store.HasPrimary(id) {
		if secondary, err := ac.store.SecondaryPath(id); err == nil && fileExists(secondary) {
			return secondary, nil
		}
	}

	path := ac.store.DownloadPath(id, ext)
	return ac.resolve(ctx, id, "download|"+format+"|"+id, path, func(primary []byte) ([]byte, error) {
		return ac.converter.EncodeDownload(ctx, primary, format)
	})
}

func (ac *ArtifactCache) resolve(ctx context.Context, id, key, path string, fill func(primary []byte) ([]byte, error)) (string, error) {
	// a cached artifact whose primary is gone is a stale leftover from a
	// partial delete, not a hit
	if !ac.store.HasPrimary(id) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if fileExists(path) {
		return path, nil
	}

	_, err, _ := ac.group.Do(key, func() (interface{}, error) {
		// a concurrent waiter may have published while we queued
		if fileExists(path) {
			return nil, nil
		}

		primary, err := ac.store.ReadPrimary(id)
		if err != nil {
			return nil, err
		}
		data, err := fill(primary)
		if err != nil {
			return nil, err
		}
		if err := ac.store.WriteAtomic(path, data); err != nil {
			return nil, err
		}
		if ac.generated != nil {
			ac.generated(key)
		}
		log.Printf("media.cache: Generated %s (%d bytes)", path, len(data))
		return nil, nil
	})
	if err != nil {
		return "", fmt.Errorf("artifact %s: %w", key, err)
	}
	return path, nil
}
