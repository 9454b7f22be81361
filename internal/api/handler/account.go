package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/TheSinghX/AiImageCraft/internal/account"
	"github.com/TheSinghX/AiImageCraft/internal/api/auth"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const genericFormError = "Something went wrong, please try again."

func (h *Handler) LoginPage(c *gin.Context) {
	if auth.CurrentIdentity(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	h.render(c, http.StatusOK, "login.html", gin.H{
		"Title":  "Log in",
		"Active": "login",
		"Next":   c.Query("next"),
		"Email":  "",
	})
}

func (h *Handler) Login(c *gin.Context) {
	if auth.CurrentIdentity(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	_, remember := c.GetPostForm("remember")
	next := c.Query("next")

	page := gin.H{
		"Title":  "Log in",
		"Active": "login",
		"Next":   next,
		"Email":  email,
	}

	if email == "" || password == "" {
		page["Errors"] = []string{"Please enter both email and password"}
		h.render(c, http.StatusBadRequest, "login.html", page)
		return
	}

	user, err := h.engine.Login(c.Request.Context(), email, password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			page["Errors"] = []string{"Invalid email or password"}
			h.render(c, http.StatusUnauthorized, "login.html", page)
			return
		}
		log.Error("Failed to log in", "error", err)
		page["Errors"] = []string{genericFormError}
		h.render(c, http.StatusInternalServerError, "login.html", page)
		return
	}

	h.auth.SignIn(c, user, remember)
	if !auth.Save(c) {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	log.Info("User logged in", "user_id", user.ID, "remember", remember)
	c.Redirect(http.StatusFound, auth.SafeNext(next))
}

func (h *Handler) RegisterPage(c *gin.Context) {
	if auth.CurrentIdentity(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	h.render(c, http.StatusOK, "register.html", gin.H{
		"Title":    "Sign up",
		"Active":   "register",
		"Username": "",
		"Email":    "",
	})
}

func (h *Handler) Register(c *gin.Context) {
	if auth.CurrentIdentity(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	req := account.RegisterRequest{
		Username:        c.PostForm("username"),
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirm_password"),
	}

	page := gin.H{
		"Title":    "Sign up",
		"Active":   "register",
		"Username": req.Username,
		"Email":    req.Email,
	}

	user, err := h.engine.Register(c.Request.Context(), req)
	if err != nil {
		var verrs account.ValidationErrors
		if errors.As(err, &verrs) {
			page["Errors"] = []string(verrs)
			h.render(c, http.StatusBadRequest, "register.html", page)
			return
		}
		log.Error("Failed to register user", "error", err)
		page["Errors"] = []string{genericFormError}
		h.render(c, http.StatusInternalServerError, "register.html", page)
		return
	}

	h.auth.SignIn(c, user, false)
	auth.AddFlash(c, auth.FlashSuccess, "Account created successfully! Welcome to DreamPixel!")
	if !auth.Save(c) {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	h.auth.SignOut(c)
	auth.AddFlash(c, auth.FlashInfo, "You have been logged out.")
	if !auth.Save(c) {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Redirect(http.StatusFound, "/")
}
