package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/account"
	"github.com/TheSinghX/AiImageCraft/internal/cache"
	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/TheSinghX/AiImageCraft/internal/database"
	"github.com/TheSinghX/AiImageCraft/internal/gallery"
	"github.com/TheSinghX/AiImageCraft/internal/metrics"
	"github.com/TheSinghX/AiImageCraft/internal/notify/email"
	"github.com/TheSinghX/AiImageCraft/internal/quota"
	"github.com/TheSinghX/AiImageCraft/internal/stability"
	"github.com/charmbracelet/log"
)

// Generator turns a prompt into an image artifact.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*stability.Artifact, error)
}

// Notifier sends the registration emails.
type Notifier interface {
	SendWelcome(ctx context.Context, reg email.Registration) error
}

// Identity is the authenticated caller. A nil *Identity is a guest.
type Identity struct {
	UserID   uint
	Username string
	Email    string
}

// GenerateResult is a successful generation.
type GenerateResult struct {
	Image            *database.Image
	Authenticated    bool
	GuestGenerations int
	GuestLimit       int
}

// Engine wires the generation workflow and the registration flow together.
type Engine struct {
	cfg       *config.Config
	quota     *quota.Tracker
	generator Generator
	gallery   *gallery.Store
	accounts  *account.Service
	notifier  Notifier
	metrics   *metrics.Metrics

	// in-flight welcome emails
	wg sync.WaitGroup
}

// New creates a new Engine with the stability client, the email service and
// a gallery cache built from cfg.
func New(cfg *config.Config, db database.DB, m *metrics.Metrics) *Engine {
	recentCache := cache.New[[]database.Image](cfg.Cache, "dreampixel:gallery:")
	return NewWithDeps(
		cfg,
		quota.New(cfg.GetGuestLimit()),
		stability.New(cfg.Stability),
		gallery.New(db, recentCache, cfg.Cache.TTL),
		account.New(db),
		email.New(cfg.Email, cfg.ServerURL),
		m,
	)
}

// NewWithDeps creates an Engine from explicit collaborators.
func NewWithDeps(
	cfg *config.Config,
	tracker *quota.Tracker,
	generator Generator,
	store *gallery.Store,
	accounts *account.Service,
	notifier Notifier,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		cfg:       cfg,
		quota:     tracker,
		generator: generator,
		gallery:   store,
		accounts:  accounts,
		notifier:  notifier,
		metrics:   m,
	}
}

// Generate runs the generation workflow: prompt check, guest quota, provider
// call and persistence. The guest counter is consumed once the request is
// admitted, even if the provider call later fails.
func (e *Engine) Generate(ctx context.Context, identity *Identity, state *quota.GuestState, prompt string) (*GenerateResult, error) {
	authenticated := identity != nil

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		e.metrics.RecordGeneration(metrics.OutcomeInvalidPrompt, authenticated)
		return nil, stability.ErrEmptyPrompt
	}

	if err := e.quota.CheckAndConsume(authenticated, state); err != nil {
		log.Debug("Guest generation rejected", "generations", guestGenerations(state), "limit", e.quota.Limit())
		e.metrics.RecordGeneration(metrics.OutcomeQuotaExceeded, authenticated)
		return nil, err
	}

	log.Debug("Sending generation request", "prompt", prompt, "authenticated", authenticated)

	start := time.Now()
	artifact, err := e.generator.Generate(ctx, prompt)
	outcome := generationOutcome(err)
	if !errors.Is(err, stability.ErrMissingAPIKey) {
		e.metrics.ObserveProvider(outcome, time.Since(start))
	}
	if err != nil {
		log.Error("Image generation failed", "outcome", outcome, "error", err)
		e.metrics.RecordGeneration(outcome, authenticated)
		return nil, err
	}

	var owner *uint
	if authenticated {
		owner = &identity.UserID
	}

	image, err := e.gallery.Save(ctx, prompt, artifact.Base64, owner)
	if err != nil {
		e.metrics.RecordGeneration(metrics.OutcomeStorageError, authenticated)
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	e.metrics.RecordGeneration(metrics.OutcomeSuccess, authenticated)

	result := &GenerateResult{
		Image:         image,
		Authenticated: authenticated,
		GuestLimit:    e.quota.Limit(),
	}
	if !authenticated {
		result.GuestGenerations = guestGenerations(state)
	}
	return result, nil
}

// Register creates the account and sends the welcome emails in the background.
// Email failures are logged and never reach the caller.
func (e *Engine) Register(ctx context.Context, req account.RegisterRequest) (*database.User, error) {
	user, err := e.accounts.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordRegistration()

	reg := email.Registration{
		Username:     user.Username,
		Email:        user.Email,
		RegisteredAt: user.CreatedAt,
	}

	e.wg.Add(1)
	go func(ctx context.Context) {
		defer e.wg.Done()
		if err := e.notifier.SendWelcome(ctx, reg); err != nil {
			log.Error("Failed to send welcome email", "user", reg.Username, "error", err)
		}
	}(context.WithoutCancel(ctx))

	return user, nil
}

// Login verifies the credentials.
func (e *Engine) Login(ctx context.Context, emailAddr, password string) (*database.User, error) {
	return e.accounts.Authenticate(ctx, emailAddr, password)
}

// GetUser returns a user by id.
func (e *Engine) GetUser(ctx context.Context, id uint) (*database.User, error) {
	return e.accounts.Get(ctx, id)
}

// RecentImages returns the newest images for the home page.
func (e *Engine) RecentImages(ctx context.Context) ([]database.Image, error) {
	return e.gallery.ListRecent(ctx, gallery.RecentLimit)
}

// GalleryImages returns the filtered and sorted gallery.
func (e *Engine) GalleryImages(ctx context.Context, search string, order database.SortOrder) ([]database.Image, error) {
	return e.gallery.ListFiltered(ctx, search, order)
}

// UserImages returns the images owned by a user, newest first.
func (e *Engine) UserImages(ctx context.Context, userID uint) ([]database.Image, error) {
	return e.gallery.ListByOwner(ctx, userID)
}

// GetImage returns a single image.
func (e *Engine) GetImage(ctx context.Context, id uint) (*database.Image, error) {
	return e.gallery.Get(ctx, id)
}

// DeleteImage removes an image.
func (e *Engine) DeleteImage(ctx context.Context, id uint) error {
	if err := e.gallery.Delete(ctx, id); err != nil {
		return err
	}
	log.Info("Image deleted", "image_id", id)
	return nil
}

// GuestLimit returns the configured guest limit.
func (e *Engine) GuestLimit() int {
	return e.quota.Limit()
}

// GuestRemaining returns how many generations a guest has left.
func (e *Engine) GuestRemaining(state quota.GuestState) int {
	return e.quota.Remaining(state)
}

// ResetGuest clears the guest counter once the session is authenticated.
func (e *Engine) ResetGuest(state *quota.GuestState) {
	e.quota.Reset(state)
}

// Stop waits for in-flight welcome emails, bounded by ctx.
func (e *Engine) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("Timed out waiting for pending emails")
	}
}

func generationOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, stability.ErrMissingAPIKey):
		return metrics.OutcomeMissingKey
	case errors.Is(err, stability.ErrEmptyPrompt):
		return metrics.OutcomeInvalidPrompt
	case errors.Is(err, stability.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, stability.ErrConnection):
		return metrics.OutcomeConnection
	case errors.Is(err, stability.ErrEmptyResult):
		return metrics.OutcomeEmptyResult
	default:
		return metrics.OutcomeProviderError
	}
}

func guestGenerations(state *quota.GuestState) int {
	if state == nil {
		return 0
	}
	return state.Generations
}
