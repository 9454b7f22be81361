package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// SortOrder is the creation time ordering of an image listing.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// Image is a generated picture. UserID is nil for images created by guests.
type Image struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	Prompt    string    `gorm:"type:text;not null"`
	// ImageData is the base64 encoded PNG returned by the provider.
	ImageData string `gorm:"type:text;not null"`
	UserID    *uint  `gorm:"index"`
	// PromptSearch is the lowercased prompt. sqlite's LOWER only folds ASCII.
	PromptSearch string `gorm:"type:text;not null;default:''"`
}

// BeforeSave keeps PromptSearch in sync with Prompt.
func (i *Image) BeforeSave(*gorm.DB) error {
	i.PromptSearch = foldPrompt(i.Prompt)
	return nil
}

func foldPrompt(prompt string) string {
	return strings.ToLower(prompt)
}

// ImageQuery filters and orders an image listing.
type ImageQuery struct {
	// Search is matched case-insensitively against the prompt.
	Search string
	Order  SortOrder
	// Limit caps the number of rows, zero means no limit.
	Limit  int
	UserID *uint
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (c *Client) CreateImage(ctx context.Context, image *Image) error {
	if err := c.db.WithContext(ctx).Create(image).Error; err != nil {
		log.Error("failed to create image", "error", err)
		return err
	}
	return nil
}

func (c *Client) GetImageByID(ctx context.Context, id uint) (*Image, error) {
	var image Image
	if err := c.db.WithContext(ctx).First(&image, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get image by ID", "error", err)
		}
		return nil, err
	}
	return &image, nil
}

func (c *Client) GetImages(ctx context.Context, query ImageQuery) ([]Image, error) {
	tx := c.db.WithContext(ctx).Model(&Image{})

	if query.Search != "" {
		if c.postgres {
			tx = tx.Where(`prompt ILIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(query.Search)+"%")
		} else {
			tx = tx.Where(`prompt_search LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(foldPrompt(query.Search))+"%")
		}
	}

	if query.UserID != nil {
		tx = tx.Where("user_id = ?", *query.UserID)
	}

	if query.Order == SortOldest {
		tx = tx.Order("created_at ASC").Order("id ASC")
	} else {
		tx = tx.Order("created_at DESC").Order("id DESC")
	}

	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}

	var images []Image
	if err := tx.Find(&images).Error; err != nil {
		log.Error("failed to get images", "error", err)
		return nil, err
	}
	return images, nil
}

// backfillPromptSearch fills PromptSearch for rows written before the column existed.
func (c *Client) backfillPromptSearch() error {
	var images []Image
	return c.db.Model(&Image{}).
		Select("id", "prompt").
		Where("prompt_search = '' AND prompt <> ''").
		FindInBatches(&images, 100, func(tx *gorm.DB, _ int) error {
			for _, image := range images {
				if err := c.db.Model(&Image{}).Where("id = ?", image.ID).
					UpdateColumn("prompt_search", foldPrompt(image.Prompt)).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// DeleteImage permanently removes an image. It returns gorm.ErrRecordNotFound
// if no image with that id exists.
func (c *Client) DeleteImage(ctx context.Context, id uint) error {
	result := c.db.WithContext(ctx).Delete(&Image{}, id)
	if result.Error != nil {
		log.Error("failed to delete image", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (c *Client) CountImages(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&Image{}).Count(&count).Error; err != nil {
		log.Error("failed to count images", "error", err)
		return 0, err
	}
	return count, nil
}
