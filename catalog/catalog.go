package catalog

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/Purestreams/Mio-Gallery/media"
	"github.com/Purestreams/Mio-Gallery/metadata"
)

// Asset is the composed read view of one stored photo: filesystem truth
// (which representations exist) merged with metadata truth (capture time,
// pin state, description).
type Asset struct {
	ID             string
	CapturedAt     time.Time
	Pinned         bool
	Description    string
	HasDescription bool
	HasSecondary   bool

	// partition-relative paths of the stored representations, e.g.
	// "2023/06/20230601_100000_1a2b3c4d5e6f.webp"; SecondaryRel is empty
	// when no secondary encode exists
	PrimaryRel   string
	SecondaryRel string
}

// PinChange is the explicit pin mutation variant: either set a concrete
// value or toggle whatever is current
type PinChange struct {
	Toggle bool
	Value  bool
}

// Service orchestrates uploads, listings, mutations and deletion across
// the photo store, converter, artifact cache and metadata stores. It holds
// no state of its own.
type Service struct {
	store        *media.PhotoStore
	converter    *media.Converter
	cache        *media.ArtifactCache
	meta         *metadata.Store
	descriptions *metadata.DescriptionStore

	now func() time.Time
}

func NewService(store *media.PhotoStore, converter *media.Converter, cache *media.ArtifactCache, meta *metadata.Store, descriptions *metadata.DescriptionStore) *Service {
	return &Service{
		store:        store,
		converter:    converter,
		cache:        cache,
		meta:         meta,
		descriptions: descriptions,
		now:          time.Now,
	}
}

// Upload validates the payload, assigns identity, writes the stored
// representations and records metadata. The metadata write is the
// visibility commit point: on any earlier failure the partially written
// files are cleaned up best-effort and no asset becomes visible.
func (s *Service) Upload(ctx context.Context, raw []byte) (Asset, error) {
	if err := s.converter.Validate(raw); err != nil {
		return Asset{}, err
	}
	img, err := media.DecodeUpload(raw)
	if err != nil {
		return Asset{}, err
	}

	// ids and the persisted metadata carry second resolution, so the
	// in-memory record must too or it drifts from a reload
	capturedAt := media.CaptureTime(raw, s.now()).Truncate(time.Second)
	identity := media.AssignIdentity(raw, capturedAt)

	primary, err := s.converter.EncodePrimary(ctx, img)
	if err != nil {
		return Asset{}, err
	}

	if _, err := s.store.EnsurePartition(identity.Partition); err != nil {
		return Asset{}, err
	}
	primaryPath, err := s.store.PrimaryPath(identity.ID)
	if err != nil {
		return Asset{}, err
	}
	if err := s.store.WriteAtomic(primaryPath, primary); err != nil {
		return Asset{}, err
	}

	// secondary is best-effort: encode or write failure leaves the asset
	// permanently without one, which is a valid state
	if secondary, err := s.converter.EncodeSecondary(ctx, img); err != nil {
		log.Printf("catalog: secondary encode unavailable for %s: %v", identity.ID, err)
	} else if secondaryPath, perr := s.store.SecondaryPath(identity.ID); perr == nil {
		if werr := s.store.WriteAtomic(secondaryPath, secondary); werr != nil {
			log.Printf("catalog: failed to store secondary for %s: %v", identity.ID, werr)
		}
	}

	record := metadata.Record{CapturedAt: capturedAt}
	if err := s.meta.Set(identity.ID, record); err != nil {
		// not visible yet; reclaim the files we just wrote
		if rerr := s.store.Remove(primaryPath); rerr != nil {
			log.Printf("catalog: cleanup after failed commit of %s: %v", identity.ID, rerr)
		}
		if secondaryPath, perr := s.store.SecondaryPath(identity.ID); perr == nil {
			_ = s.store.Remove(secondaryPath)
		}
		return Asset{}, fmt.Errorf("failed to commit metadata for %s: %w", identity.ID, err)
	}

	return s.assetView(identity.ID, record), nil
}

// List returns the assets whose capture time falls within the inclusive
// bounds, pinned assets first and newest first within each group. Records
// whose primary file has gone missing (e.g. a crash mid-delete) are
// skipped: an asset without its primary representation does not exist.
func (s *Service) List(start, end *time.Time) []Asset {
	entries := s.meta.List(start, end, true)
	assets := make([]Asset, 0, len(entries))
	for _, entry := range entries {
		if !s.store.HasPrimary(entry.ID) {
			continue
		}
		assets = append(assets, s.assetView(entry.ID, entry.Record))
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].Pinned && !assets[j].Pinned
	})
	return assets
}

// Get returns the composed view of one asset
func (s *Service) Get(id string) (Asset, error) {
	rec, ok := s.meta.Get(id)
	if !ok || !s.store.HasPrimary(id) {
		return Asset{}, fmt.Errorf("%w: %s", media.ErrNotFound, id)
	}
	return s.assetView(id, rec), nil
}

// Exists reports whether anything is known about id, metadata record or
// stored files; delete uses it to distinguish NotFound from retry
func (s *Service) Exists(id string) bool {
	if _, ok := s.meta.Get(id); ok {
		return true
	}
	return s.store.HasPrimary(id)
}

// SetPinned applies an explicit pin change and returns the new state
func (s *Service) SetPinned(id string, change PinChange) (bool, error) {
	rec, ok := s.meta.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", media.ErrNotFound, id)
	}
	value := change.Value
	if change.Toggle {
		value = !rec.Pinned
	}
	rec.Pinned = value
	if err := s.meta.Set(id, rec); err != nil {
		return false, err
	}
	return value, nil
}

// Description returns the asset's description text ("" when absent)
func (s *Service) Description(id string) (string, error) {
	if !s.Exists(id) {
		return "", fmt.Errorf("%w: %s", media.ErrNotFound, id)
	}
	text, _, err := s.descriptions.Get(id)
	return text, err
}

// SetDescription stores the description text; blank removes it
func (s *Service) SetDescription(id, text string) error {
	if _, ok := s.meta.Get(id); !ok {
		return fmt.Errorf("%w: %s", media.ErrNotFound, id)
	}
	return s.descriptions.Set(id, text)
}

// Delete removes the asset: metadata record first, so the asset drops out
// of listings immediately, then description, cached artifacts and stored
// representations. Every file removal tolerates absence, so Delete is
// idempotent and safe to retry over partial leftovers.
func (s *Service) Delete(id string) error {
	if err := s.meta.Remove(id); err != nil {
		return err
	}
	if err := s.descriptions.Remove(id); err != nil {
		return err
	}

	paths := []string{s.store.ThumbPath(id)}
	paths = append(paths, s.store.DownloadGlob(id)...)
	if p, err := s.store.SecondaryPath(id); err == nil {
		paths = append(paths, p)
	}
	if p, err := s.store.PrimaryPath(id); err == nil {
		paths = append(paths, p)
	}

	for _, path := range paths {
		if err := s.store.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// Thumbnail resolves (lazily generating) the cached thumbnail path
func (s *Service) Thumbnail(ctx context.Context, id string) (string, error) {
	return s.cache.Thumbnail(ctx, id)
}

// Download resolves (lazily generating) the cached download conversion
// path for the requested format
func (s *Service) Download(ctx context.Context, id, format string) (string, error) {
	return s.cache.Download(ctx, id, format)
}

// DownloadMIME exposes the converter's Content-Type for a download format
func (s *Service) DownloadMIME(format string) (string, error) {
	return s.converter.DownloadMIME(format)
}

// DownloadExt exposes the converter's file extension for a download format
func (s *Service) DownloadExt(format string) (string, error) {
	return s.converter.DownloadExt(format)
}

func (s *Service) assetView(id string, rec metadata.Record) Asset {
	description, hasDescription, err := s.descriptions.Get(id)
	if err != nil {
		log.Printf("catalog: failed to read description for %s: %v", id, err)
	}

	asset := Asset{
		ID:             id,
		CapturedAt:     rec.CapturedAt,
		Pinned:         rec.Pinned,
		Description:    description,
		HasDescription: hasDescription,
	}

	if part, err := media.PartitionFromID(id); err == nil {
		asset.PrimaryRel = part.String() + "/" + id + media.PrimaryExt
		if s.store.HasSecondary(id) {
			asset.HasSecondary = true
			asset.SecondaryRel = part.String() + "/" + id + media.SecondaryExt
		}
	}
	return asset
}
