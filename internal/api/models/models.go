package models

import (
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/database"
	"github.com/samber/lo"
)

// Image is the JSON form of a stored image.
type Image struct {
	ID        uint   `json:"id"`
	Prompt    string `json:"prompt"`
	ImageData string `json:"image_data"`
	CreatedAt string `json:"created_at"`
}

// ImagesResponse wraps a list of images.
type ImagesResponse struct {
	Images []Image `json:"images"`
}

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse is returned after a successful generation.
// GuestGenerations is null for signed-in users.
type GenerateResponse struct {
	Image            string `json:"image"`
	ImageID          uint   `json:"image_id"`
	IsAuthenticated  bool   `json:"is_authenticated"`
	GuestGenerations *int   `json:"guest_generations"`
	GuestLimit       int    `json:"guest_limit"`
}

// ToImage converts a database.Image to its JSON form.
func ToImage(img database.Image) Image {
	return Image{
		ID:        img.ID,
		Prompt:    img.Prompt,
		ImageData: img.ImageData,
		CreatedAt: img.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToImages converts a slice of database.Image. It never returns nil.
func ToImages(images []database.Image) []Image {
	return lo.Map(images, func(img database.Image, _ int) Image {
		return ToImage(img)
	})
}
