package auth

import (
	"encoding/gob"
	"net/http"
	"net/url"
	"strings"

	"github.com/TheSinghX/AiImageCraft/internal/database"
	"github.com/TheSinghX/AiImageCraft/internal/engine"
	"github.com/TheSinghX/AiImageCraft/internal/quota"
	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionName is the name of the session cookie.
const SessionName = "dreampixel_session"

const (
	keyUserID           = "user_id"
	keyUsername         = "user_username"
	keyEmail            = "user_email"
	keyGuestGenerations = "guest_generations"

	contextUserKey = "user"
)

// Flash categories.
const (
	FlashError   = "error"
	FlashSuccess = "success"
	FlashInfo    = "info"
)

var flashCategories = []string{FlashError, FlashSuccess, FlashInfo}

func init() {
	// flashes are stored as []any in the cookie
	gob.Register([]any{})
}

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// Manager signs visitors in and out of their session.
type Manager struct {
	rememberMaxAge int
}

// New creates a session manager. rememberMaxAge is the cookie lifetime in
// seconds for "remember me" logins.
func New(rememberMaxAge int) *Manager {
	return &Manager{rememberMaxAge: rememberMaxAge}
}

// Options returns the cookie options. A zero maxAge makes it a browser session cookie.
func Options(maxAge int) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// LoadIdentity puts the signed-in user, if any, into the gin context.
func (m *Manager) LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity := identityFromSession(sessions.Default(c)); identity != nil {
			c.Set(contextUserKey, identity)
		}
		c.Next()
	}
}

// RequireAuth redirects guests to the login page and remembers where they were going.
func (m *Manager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentIdentity(c) != nil {
			c.Next()
			return
		}

		AddFlash(c, FlashInfo, "Please log in to access this page.")
		Save(c)
		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// SignIn stores the user in the session and drops the guest counter.
func (m *Manager) SignIn(c *gin.Context, user *database.User, remember bool) {
	session := sessions.Default(c)
	session.Set(keyUserID, user.ID)
	session.Set(keyUsername, user.Username)
	session.Set(keyEmail, user.Email)
	session.Delete(keyGuestGenerations)

	if remember {
		session.Options(Options(m.rememberMaxAge))
	}

	c.Set(contextUserKey, &engine.Identity{UserID: user.ID, Username: user.Username, Email: user.Email})
}

// SignOut clears the whole session.
func (m *Manager) SignOut(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(Options(0))
	c.Set(contextUserKey, nil)
}

// CurrentIdentity returns the signed-in user or nil for a guest.
func CurrentIdentity(c *gin.Context) *engine.Identity {
	if val, ok := c.Get(contextUserKey); ok {
		if identity, ok := val.(*engine.Identity); ok && identity != nil {
			return identity
		}
	}
	return nil
}

// GuestState reads the guest counter from the session.
func GuestState(c *gin.Context) quota.GuestState {
	return quota.GuestState{Generations: getSessionInt(sessions.Default(c), keyGuestGenerations)}
}

// SetGuestState writes the guest counter to the session.
func SetGuestState(c *gin.Context, state quota.GuestState) {
	sessions.Default(c).Set(keyGuestGenerations, state.Generations)
}

// InitGuestState sets the counter to zero for a fresh guest session.
// It reports whether the session changed.
func InitGuestState(c *gin.Context) bool {
	session := sessions.Default(c)
	if session.Get(keyGuestGenerations) != nil {
		return false
	}
	session.Set(keyGuestGenerations, 0)
	return true
}

// AddFlash queues a message for the next rendered page.
func AddFlash(c *gin.Context, category, message string) {
	sessions.Default(c).AddFlash(message, category)
}

// Flashes pops all queued messages. The caller must save the session.
func Flashes(c *gin.Context) []Flash {
	session := sessions.Default(c)
	var flashes []Flash
	for _, category := range flashCategories {
		for _, msg := range session.Flashes(category) {
			if str, ok := msg.(string); ok {
				flashes = append(flashes, Flash{Category: category, Message: str})
			}
		}
	}
	return flashes
}

// Save persists the session and logs failures.
func Save(c *gin.Context) bool {
	if err := sessions.Default(c).Save(); err != nil {
		log.Error("Failed to save session", "error", err)
		return false
	}
	return true
}

// SafeNext returns next when it is a local path, otherwise "/".
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func identityFromSession(session sessions.Session) *engine.Identity {
	userID := getSessionUint(session, keyUserID)
	if userID == 0 {
		return nil
	}
	return &engine.Identity{
		UserID:   userID,
		Username: getSessionString(session, keyUsername),
		Email:    getSessionString(session, keyEmail),
	}
}

// Helper functions to safely get session values.
func getSessionString(session sessions.Session, key string) string {
	if val := session.Get(key); val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getSessionUint(session sessions.Session, key string) uint {
	if val := session.Get(key); val != nil {
		if id, ok := val.(uint); ok {
			return id
		}
	}
	return 0
}

func getSessionInt(session sessions.Session, key string) int {
	if val := session.Get(key); val != nil {
		if n, ok := val.(int); ok {
			return n
		}
	}
	return 0
}
