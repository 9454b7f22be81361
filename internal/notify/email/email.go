package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/charmbracelet/log"
	mail "github.com/xhit/go-simple-mail/v2"
	"golang.org/x/sync/errgroup"
)

const (
	welcomeSubject = "Welcome to DreamPixel!"
	adminSubject   = "New User Registration"
)

// NotificationService sends registration emails.
type NotificationService struct {
	config    *config.EmailConfig
	serverURL string
	send      func(ctx context.Context, to, subject, body string) error
}

// Registration contains the data for the welcome and admin emails.
type Registration struct {
	Username     string
	Email        string
	RegisteredAt time.Time
	ServerURL    string
}

// New creates a new email notification service.
func New(cfg *config.EmailConfig, serverURL string) *NotificationService {
	n := &NotificationService{
		config:    cfg,
		serverURL: serverURL,
	}
	n.send = n.sendEmail
	return n
}

// SendWelcome sends the welcome email to the new user and a notice to the admin address.
// Both are sent independently; the first failure is returned.
func (n *NotificationService) SendWelcome(ctx context.Context, reg Registration) error {
	if n.config == nil || !n.config.Enabled {
		log.Debug("Email notifications are disabled, skipping welcome email")
		return nil
	}

	if n.config.Password == "" {
		log.Warn("SMTP password not set, skipping welcome email", "user", reg.Username)
		return nil
	}

	if reg.ServerURL == "" {
		reg.ServerURL = n.serverURL
	}

	welcomeBody, err := n.render("welcome.html", reg)
	if err != nil {
		return fmt.Errorf("failed to generate welcome email body: %w", err)
	}
	adminBody, err := n.render("admin.html", reg)
	if err != nil {
		return fmt.Errorf("failed to generate admin email body: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return n.send(gctx, reg.Email, welcomeSubject, welcomeBody)
	})

	if n.config.AdminEmail != "" {
		g.Go(func() error {
			return n.send(gctx, n.config.AdminEmail, adminSubject, adminBody)
		})
	}

	return g.Wait()
}

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

func (n *NotificationService) render(name string, data Registration) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sendEmail sends an email using go-simple-mail library.
func (n *NotificationService) sendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	server := mail.NewSMTPClient()
	server.Host = n.config.SMTPHost
	server.Port = n.config.SMTPPort
	server.Username = n.config.Username
	server.Password = n.config.Password

	if n.config.UseSSL {
		server.Encryption = mail.EncryptionSSLTLS
	} else if n.config.UseTLS {
		server.Encryption = mail.EncryptionSTARTTLS
	} else {
		server.Encryption = mail.EncryptionNone
	}

	if n.config.InsecureSkipVerify {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	smtpClient, err := server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if closeErr := smtpClient.Close(); closeErr != nil {
			log.Warn("Failed to close SMTP client", "error", closeErr)
		}
	}()

	email := mail.NewMSG()

	fromName := n.config.FromName
	if fromName == "" {
		fromName = "DreamPixel"
	}
	email.SetFrom(fmt.Sprintf("%s <%s>", fromName, n.config.FromEmail))
	email.AddTo(to)
	email.SetSubject(subject)
	email.SetBody(mail.TextHTML, body)

	if email.Error != nil {
		return fmt.Errorf("failed to build email: %w", email.Error)
	}

	if err := email.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info("Email sent successfully", "to", to, "subject", subject)
	return nil
}
