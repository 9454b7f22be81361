package email

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type recorder struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error
}

func (r *recorder) send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[to]; err != nil {
		return err
	}
	r.sent = append(r.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (r *recorder) bySubject(subject string) (sentMail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.sent {
		if m.subject == subject {
			return m, true
		}
	}
	return sentMail{}, false
}

func newTestService(cfg *config.EmailConfig) (*NotificationService, *recorder) {
	rec := &recorder{fail: map[string]error{}}
	n := New(cfg, "https://dreampixel.example.com")
	n.send = rec.send
	return n, rec
}

func enabledConfig() *config.EmailConfig {
	return &config.EmailConfig{
		Enabled:    true,
		SMTPHost:   "smtp.example.com",
		SMTPPort:   587,
		Username:   "noreply@example.com",
		Password:   "app-password",
		FromEmail:  "noreply@example.com",
		FromName:   "DreamPixel",
		AdminEmail: "admin@example.com",
		UseTLS:     true,
	}
}

func registration() Registration {
	return Registration{
		Username:     "alice",
		Email:        "alice@example.com",
		RegisteredAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestSendWelcome_SendsBothMessages(t *testing.T) {
	n, rec := newTestService(enabledConfig())

	require.NoError(t, n.SendWelcome(context.Background(), registration()))
	require.Len(t, rec.sent, 2)

	welcome, ok := rec.bySubject("Welcome to DreamPixel!")
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", welcome.to)
	assert.Contains(t, welcome.body, "Hello alice,")
	assert.Contains(t, welcome.body, "https://dreampixel.example.com")

	admin, ok := rec.bySubject("New User Registration")
	require.True(t, ok)
	assert.Equal(t, "admin@example.com", admin.to)
	assert.Contains(t, admin.body, "alice@example.com")
	assert.Contains(t, admin.body, "2024-05-01 12:30:00 UTC")
}

func TestSendWelcome_Skipped(t *testing.T) {
	tests := []struct {
		name   string
		config *config.EmailConfig
	}{
		{name: "nil config", config: nil},
		{name: "disabled", config: &config.EmailConfig{Enabled: false, Password: "x"}},
		{name: "no password", config: func() *config.EmailConfig {
			cfg := enabledConfig()
			cfg.Password = ""
			return cfg
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, rec := newTestService(tt.config)
			assert.NoError(t, n.SendWelcome(context.Background(), registration()))
			assert.Empty(t, rec.sent)
		})
	}
}

func TestSendWelcome_PartialFailure(t *testing.T) {
	n, rec := newTestService(enabledConfig())
	rec.fail["admin@example.com"] = errors.New("mailbox unavailable")

	err := n.SendWelcome(context.Background(), registration())
	assert.Error(t, err)
}

func TestSendWelcome_NoAdminAddress(t *testing.T) {
	cfg := enabledConfig()
	cfg.AdminEmail = ""
	n, rec := newTestService(cfg)

	require.NoError(t, n.SendWelcome(context.Background(), registration()))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "alice@example.com", rec.sent[0].to)
}

func TestRender_EscapesHTML(t *testing.T) {
	n := New(enabledConfig(), "")
	body, err := n.render("welcome.html", Registration{Username: "<b>bob</b>"})
	require.NoError(t, err)
	assert.NotContains(t, body, "<b>bob</b>")
	assert.Contains(t, body, "&lt;b&gt;bob&lt;/b&gt;")
}
