package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/api/auth"
	"github.com/TheSinghX/AiImageCraft/internal/api/handler"
	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/TheSinghX/AiImageCraft/internal/engine"
	"github.com/TheSinghX/AiImageCraft/internal/gravatar"
	"github.com/TheSinghX/AiImageCraft/internal/metrics"
	"github.com/TheSinghX/AiImageCraft/internal/static"
	"github.com/TheSinghX/AiImageCraft/web"
	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	engine    *engine.Engine
	auth      *auth.Manager
	metrics   *metrics.Metrics
}

// New creates the HTTP server and registers all routes. m may be nil when metrics are disabled.
func New(cfg *config.Config, eng *engine.Engine, m *metrics.Metrics, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery(), requestID(), requestLogger())
	ginEngine.SetHTMLTemplate(tmpl)

	s := &Server{
		cfg:       cfg,
		ginEngine: ginEngine,
		engine:    eng,
		auth:      auth.New(cfg.SessionMaxAge),
		metrics:   m,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(auth.Options(0))
	s.ginEngine.Use(sessions.Sessions(auth.SessionName, store))
}

func (s *Server) setupRoutes() {
	h := handler.New(s.engine, s.auth, gravatar.New(s.cfg.Gravatar))

	if s.metrics != nil {
		s.ginEngine.Use(s.metrics.Middleware())
		s.ginEngine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.ginEngine.GET("/healthz", h.Healthz)

	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	s.ginEngine.StaticFS("/static", static.FileSystem())

	s.setupSession()
	s.ginEngine.Use(s.auth.LoadIdentity())

	s.ginEngine.GET("/", h.Home)
	s.ginEngine.GET("/gallery", h.Gallery)
	s.ginEngine.GET("/about", h.About)

	s.ginEngine.GET("/login", h.LoginPage)
	s.ginEngine.POST("/login", h.Login)
	s.ginEngine.GET("/register", h.RegisterPage)
	s.ginEngine.POST("/register", h.Register)

	protected := s.ginEngine.Group("/")
	protected.Use(s.auth.RequireAuth())
	protected.GET("/logout", h.Logout)
	protected.GET("/profile", h.Profile)

	s.ginEngine.POST("/generate", h.Generate)
	s.ginEngine.GET("/recent-images", h.RecentImages)
	s.ginEngine.GET("/gallery-images", h.GalleryImages)
	s.ginEngine.GET("/image/:id", h.GetImage)
	s.ginEngine.DELETE("/image/:id", h.DeleteImage)
}

// Handler returns the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// generation requests can take up to the provider timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}
