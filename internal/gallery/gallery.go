// Package gallery stores generated images and serves the shared gallery.
package gallery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/cache"
	"github.com/TheSinghX/AiImageCraft/internal/database"
	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/store"
	"gorm.io/gorm"
)

// RecentLimit is the size of the recent images strip on the home page.
const RecentLimit = 10

const recentKey = "recent"

// ErrNotFound is returned for an unknown image id.
var ErrNotFound = errors.New("image not found")

// Store is the gallery of generated images.
type Store struct {
	db       database.DB
	cache    *cache.PrefixedCache[[]database.Image]
	cacheTTL time.Duration
}

// New creates a gallery store. A nil cache disables caching of the recent list.
func New(db database.DB, recentCache *cache.PrefixedCache[[]database.Image], ttl time.Duration) *Store {
	return &Store{
		db:       db,
		cache:    recentCache,
		cacheTTL: ttl,
	}
}

// Save persists a new image. owner is nil for guest images.
func (s *Store) Save(ctx context.Context, prompt, imageData string, owner *uint) (*database.Image, error) {
	image := &database.Image{
		Prompt:    prompt,
		ImageData: imageData,
		UserID:    owner,
	}
	if err := s.db.CreateImage(ctx, image); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return image, nil
}

// ListRecent returns the newest images first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]database.Image, error) {
	if limit <= 0 {
		limit = RecentLimit
	}

	if s.cache != nil && limit <= RecentLimit {
		if images, err := s.cache.Get(ctx, recentKey); err == nil {
			log.Debug("Cache hit for recent images")
			return truncate(images, limit), nil
		}
	}

	images, err := s.db.GetImages(ctx, database.ImageQuery{
		Order: database.SortNewest,
		Limit: max(limit, RecentLimit),
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, recentKey, images, store.WithExpiration(s.cacheTTL)); err != nil {
			log.Warn("Failed to cache recent images", "error", err)
		}
	}

	return truncate(images, limit), nil
}

// ListFiltered returns all images whose prompt contains search (case-insensitive)
// in the requested order. An empty search matches everything.
func (s *Store) ListFiltered(ctx context.Context, search string, order database.SortOrder) ([]database.Image, error) {
	return s.db.GetImages(ctx, database.ImageQuery{
		Search: strings.TrimSpace(search),
		Order:  order,
	})
}

// ListByOwner returns a user's images, newest first.
func (s *Store) ListByOwner(ctx context.Context, userID uint) ([]database.Image, error) {
	return s.db.GetImages(ctx, database.ImageQuery{
		Order:  database.SortNewest,
		UserID: &userID,
	})
}

// Get returns a single image.
func (s *Store) Get(ctx context.Context, id uint) (*database.Image, error) {
	image, err := s.db.GetImageByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return image, err
}

// Delete removes an image. Any caller may delete any image.
func (s *Store) Delete(ctx context.Context, id uint) error {
	err := s.db.DeleteImage(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, recentKey); err != nil {
		log.Debug("Failed to invalidate recent images cache", "error", err)
	}
}

// ParseSortOrder maps the sort query parameter. Anything but "oldest" is newest.
func ParseSortOrder(value string) database.SortOrder {
	if value == string(database.SortOldest) {
		return database.SortOldest
	}
	return database.SortNewest
}

func truncate(images []database.Image, limit int) []database.Image {
	if len(images) > limit {
		return images[:limit]
	}
	return images
}
