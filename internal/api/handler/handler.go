package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/TheSinghX/AiImageCraft/internal/api/auth"
	"github.com/TheSinghX/AiImageCraft/internal/engine"
	"github.com/TheSinghX/AiImageCraft/internal/gravatar"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	engine  *engine.Engine
	auth    *auth.Manager
	avatars *gravatar.Avatars
}

func New(eng *engine.Engine, authManager *auth.Manager, avatars *gravatar.Avatars) *Handler {
	return &Handler{
		engine:  eng,
		auth:    authManager,
		avatars: avatars,
	}
}

// render fills in the layout data, pops flashes and writes the page.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["Active"]; !ok {
		data["Active"] = ""
	}
	data["User"] = auth.CurrentIdentity(c)
	data["Flashes"] = auth.Flashes(c)
	auth.Save(c)

	c.HTML(status, name, data)
}

func (h *Handler) Home(c *gin.Context) {
	data := gin.H{
		"Title":            "Create",
		"Active":           "home",
		"GuestLimit":       h.engine.GuestLimit(),
		"GuestGenerations": 0,
		"GuestRemaining":   0,
		"Scripts":          []string{"generate.js"},
	}

	if auth.CurrentIdentity(c) == nil {
		auth.InitGuestState(c)
		state := auth.GuestState(c)
		data["GuestGenerations"] = state.Generations
		data["GuestRemaining"] = h.engine.GuestRemaining(state)
	}

	h.render(c, http.StatusOK, "index.html", data)
}

func (h *Handler) Gallery(c *gin.Context) {
	h.render(c, http.StatusOK, "gallery.html", gin.H{
		"Title":   "Gallery",
		"Active":  "gallery",
		"Scripts": []string{"gallery.js"},
	})
}

func (h *Handler) About(c *gin.Context) {
	h.render(c, http.StatusOK, "about.html", gin.H{
		"Title":      "About",
		"Active":     "about",
		"GuestLimit": h.engine.GuestLimit(),
	})
}

func (h *Handler) Profile(c *gin.Context) {
	identity := auth.CurrentIdentity(c)
	ctx := c.Request.Context()

	user, err := h.engine.GetUser(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// account is gone, drop the stale session
			h.auth.SignOut(c)
			auth.Save(c)
			c.Redirect(http.StatusFound, "/login")
			return
		}
		log.Error("Failed to get user", "user_id", identity.UserID, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	images, err := h.engine.UserImages(ctx, user.ID)
	if err != nil {
		log.Error("Failed to get user images", "user_id", user.ID, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	h.render(c, http.StatusOK, "profile.html", gin.H{
		"Title":   user.Username,
		"Active":  "profile",
		"Account": user,
		"Avatar":  h.avatars.URL(user.Email),
		"Images":  images,
	})
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseUintParam(param string) (uint, error) {
	var id uint64
	var err error
	if id, err = strconv.ParseUint(param, 10, 0); err != nil {
		return 0, err
	}
	return uint(id), nil
}
