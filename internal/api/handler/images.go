package handler

import (
	"errors"
	"net/http"

	"github.com/TheSinghX/AiImageCraft/internal/api/auth"
	"github.com/TheSinghX/AiImageCraft/internal/api/models"
	"github.com/TheSinghX/AiImageCraft/internal/gallery"
	"github.com/TheSinghX/AiImageCraft/internal/quota"
	"github.com/TheSinghX/AiImageCraft/internal/stability"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// Generate creates an image from the JSON prompt.
func (h *Handler) Generate(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("Invalid generate request body", "error", err)
	}

	identity := auth.CurrentIdentity(c)

	var state *quota.GuestState
	if identity == nil {
		guest := auth.GuestState(c)
		state = &guest
	}
	before := guestCount(state)

	result, err := h.engine.Generate(c.Request.Context(), identity, state, req.Prompt)

	if state != nil && state.Generations != before {
		auth.SetGuestState(c, *state)
		auth.Save(c)
	}

	if err != nil {
		writeGenerateError(c, err)
		return
	}

	resp := models.GenerateResponse{
		Image:           result.Image.ImageData,
		ImageID:         result.Image.ID,
		IsAuthenticated: result.Authenticated,
		GuestLimit:      result.GuestLimit,
	}
	if !result.Authenticated {
		generations := result.GuestGenerations
		resp.GuestGenerations = &generations
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) RecentImages(c *gin.Context) {
	images, err := h.engine.RecentImages(c.Request.Context())
	if err != nil {
		log.Error("Failed to fetch recent images", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.ImagesResponse{Images: models.ToImages(images)})
}

func (h *Handler) GalleryImages(c *gin.Context) {
	order := gallery.ParseSortOrder(c.DefaultQuery("sort", "newest"))

	images, err := h.engine.GalleryImages(c.Request.Context(), c.Query("search"), order)
	if err != nil {
		log.Error("Failed to fetch gallery images", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.ImagesResponse{Images: models.ToImages(images)})
}

func (h *Handler) GetImage(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	image, err := h.engine.GetImage(c.Request.Context(), id)
	if err != nil {
		writeImageError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToImage(*image))
}

// DeleteImage removes any image; there is no ownership check.
func (h *Handler) DeleteImage(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	if err := h.engine.DeleteImage(c.Request.Context(), id); err != nil {
		writeImageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Image deleted successfully",
	})
}

func writeImageError(c *gin.Context, err error) {
	if errors.Is(err, gallery.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	log.Error("Error in image operations", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func writeGenerateError(c *gin.Context, err error) {
	var providerErr *stability.ProviderError
	switch {
	case errors.Is(err, stability.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
	case errors.Is(err, quota.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{
			"error":        "Guest Limit Reached",
			"details":      "You have reached the limit for free image generations. Please sign up or log in to continue.",
			"require_auth": true,
		})
	case errors.Is(err, stability.ErrMissingAPIKey):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "API Key Missing",
			"details": "Please provide a valid Stability AI API key to use this service.",
		})
	case errors.As(err, &providerErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate image",
			"details": providerErr.Message,
		})
	case errors.Is(err, stability.ErrEmptyResult):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No image was generated"})
	case errors.Is(err, stability.ErrConnection):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Connection Error",
			"details": "Could not connect to Stability AI API. Please check your internet connection.",
		})
	case errors.Is(err, stability.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":   "Request Timeout",
			"details": "Stability AI API took too long to respond. Try a simpler prompt.",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Unexpected Error",
			"details": err.Error(),
		})
	}
}

func guestCount(state *quota.GuestState) int {
	if state == nil {
		return 0
	}
	return state.Generations
}
