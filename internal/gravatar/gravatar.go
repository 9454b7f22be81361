// Package gravatar builds avatar URLs for the profile page.
package gravatar

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/charmbracelet/log"
	"github.com/samber/lo"
)

const baseURL = "https://www.gravatar.com/avatar/"

var (
	defaultImages = []string{"404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"}
	ratings       = []string{"g", "pg", "r", "x"}
)

// Avatars resolves avatar URLs for user emails.
type Avatars struct {
	enabled      bool
	defaultImage string
	rating       string
	size         int
}

// New creates an avatar resolver. Invalid options are dropped with a warning
// so that gravatar falls back to its own defaults.
func New(cfg *config.GravatarConfig) *Avatars {
	if cfg == nil || !cfg.Enabled {
		return &Avatars{}
	}

	a := &Avatars{enabled: true}

	switch {
	case cfg.DefaultImage == "":
	case lo.Contains(defaultImages, cfg.DefaultImage):
		a.defaultImage = cfg.DefaultImage
	default:
		log.Warn("Ignoring invalid gravatar default image", "value", cfg.DefaultImage)
	}

	switch {
	case cfg.Rating == "":
	case lo.Contains(ratings, cfg.Rating):
		a.rating = cfg.Rating
	default:
		log.Warn("Ignoring invalid gravatar rating", "value", cfg.Rating)
	}

	switch {
	case cfg.Size == 0:
	case cfg.Size >= 1 && cfg.Size <= 2048:
		a.size = cfg.Size
	default:
		log.Warn("Ignoring invalid gravatar size", "value", cfg.Size)
	}

	return a
}

// URL returns the avatar URL for email, or "" when disabled or email is empty.
func (a *Avatars) URL(email string) string {
	if a == nil || !a.enabled {
		return ""
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(email))
	avatar := baseURL + hex.EncodeToString(hash[:])

	params := url.Values{}
	if a.defaultImage != "" {
		params.Set("d", a.defaultImage)
	}
	if a.rating != "" {
		params.Set("r", a.rating)
	}
	if a.size > 0 {
		params.Set("s", strconv.Itoa(a.size))
	}
	if len(params) > 0 {
		avatar += "?" + params.Encode()
	}
	return avatar
}
