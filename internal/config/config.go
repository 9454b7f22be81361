package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

// DefaultStabilityURL is the Stability AI SDXL text-to-image endpoint.
const DefaultStabilityURL = "https://api.stability.ai/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"

// Config holds the configuration for the DreamPixel server and its dependencies.
type Config struct {
	// Listen is the address the server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// ServerURL is the public base URL of the server, used in emails.
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	// LogLevel is the default log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// SessionKey is the key used to sign session cookies.
	SessionKey string `yaml:"session_key" mapstructure:"session_key"`
	// SessionMaxAge is the maximum age in seconds of a "remember me" session.
	SessionMaxAge int `yaml:"session_max_age" mapstructure:"session_max_age"`
	// GuestLimit is the number of generations a guest may run before signing up.
	GuestLimit int `yaml:"guest_limit" mapstructure:"guest_limit"`
	// Database holds the database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Stability holds the configuration for the Stability AI API.
	Stability *StabilityConfig `yaml:"stability" mapstructure:"stability"`
	// Email holds the welcome email configuration.
	Email *EmailConfig `yaml:"email" mapstructure:"email"`
	// Cache holds the cache engine configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Gravatar holds the configuration for Gravatar profile pictures.
	Gravatar *GravatarConfig `yaml:"gravatar" mapstructure:"gravatar"`
	// Metrics holds the prometheus configuration.
	Metrics *MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Path is the path to the sqlite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// URL is an optional connection string. A postgres:// URL selects the postgres driver.
	URL string `yaml:"url" mapstructure:"url"`
}

// IsPostgres reports whether the connection string points at a postgres server.
func (d *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(d.URL, "postgres://") || strings.HasPrefix(d.URL, "postgresql://")
}

// StabilityConfig holds the configuration for the Stability AI API.
type StabilityConfig struct {
	// APIKey is the Stability AI API key. An empty key disables generation.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// URL is the text-to-image endpoint.
	URL string `yaml:"url" mapstructure:"url"`
	// Timeout bounds a single generation request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// EmailConfig holds the email notification configuration.
type EmailConfig struct {
	// Enabled indicates whether welcome emails are sent.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// SMTPHost is the SMTP server host.
	SMTPHost string `yaml:"smtp_host" mapstructure:"smtp_host"`
	// SMTPPort is the SMTP server port.
	SMTPPort int `yaml:"smtp_port" mapstructure:"smtp_port"`
	// Username is the SMTP username.
	Username string `yaml:"username" mapstructure:"username"`
	// Password is the SMTP password.
	Password string `yaml:"password" mapstructure:"password"`
	// FromEmail is the email address from which notifications are sent.
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
	// FromName is the name from which notifications are sent.
	FromName string `yaml:"from_name" mapstructure:"from_name"`
	// AdminEmail receives a notice for every new registration.
	AdminEmail string `yaml:"admin_email" mapstructure:"admin_email"`
	// UseTLS indicates whether to use STARTTLS for the SMTP connection.
	UseTLS bool `yaml:"use_tls" mapstructure:"use_tls"`
	// UseSSL indicates whether to use SSL for the SMTP connection.
	UseSSL bool `yaml:"use_ssl" mapstructure:"use_ssl"`
	// InsecureSkipVerify indicates whether to skip TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// CacheConfig holds the configuration for the cache engine.
type CacheConfig struct {
	// Type is the type of cache engine to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the address of the redis server if using redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// TTL is how long the recent images list is cached.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// GravatarConfig holds the configuration for Gravatar profile pictures.
type GravatarConfig struct {
	// Enabled indicates whether Gravatar support is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// DefaultImage is the default image to use when no Gravatar is found.
	// Valid values: "404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"
	DefaultImage string `yaml:"default_image" mapstructure:"default_image"`
	// Rating is the maximum rating for Gravatar images.
	// Valid values: "g", "pg", "r", "x"
	Rating string `yaml:"rating" mapstructure:"rating"`
	// Size is the size of the Gravatar image in pixels (1-2048).
	Size int `yaml:"size" mapstructure:"size"`
}

// MetricsConfig holds the prometheus configuration.
type MetricsConfig struct {
	// Enabled exposes /metrics.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
// A missing config file is fine as long as the environment provides the required values.
func Load(path string) (*Config, error) {
	v := viper.New()

	bindLegacyEnv(v)

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("DREAMPIXEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.dreampixel")
		v.AddConfigPath("/etc/dreampixel")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debug("No config file found, using defaults and environment")
	} else {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)
	enableEmailFromPassword(v, &c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:5000")
	v.SetDefault("server_url", "http://localhost:5000")
	v.SetDefault("log_level", "info")
	v.SetDefault("session_key", "")
	v.SetDefault("session_max_age", 2592000) // 30 days
	v.SetDefault("guest_limit", 1)

	// Database defaults
	v.SetDefault("database.path", "./data/dreampixel.db")
	v.SetDefault("database.url", "")

	// Stability defaults
	v.SetDefault("stability.api_key", "")
	v.SetDefault("stability.url", DefaultStabilityURL)
	v.SetDefault("stability.timeout", 120*time.Second)

	// Email defaults
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from_email", "")
	v.SetDefault("email.from_name", "DreamPixel")
	v.SetDefault("email.admin_email", "")
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.use_ssl", false)
	v.SetDefault("email.insecure_skip_verify", false)

	// Cache defaults
	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", time.Minute)

	// Gravatar defaults
	v.SetDefault("gravatar.enabled", true)
	v.SetDefault("gravatar.default_image", "identicon")
	v.SetDefault("gravatar.rating", "g")
	v.SetDefault("gravatar.size", 96)

	v.SetDefault("metrics.enabled", false)
}

// bindLegacyEnv binds the plain environment variables older deployments use
// alongside the prefixed ones.
func bindLegacyEnv(v *viper.Viper) {
	v.MustBindEnv("database.url", "DREAMPIXEL_DATABASE_URL", "DATABASE_URL")
	v.MustBindEnv("session_key", "DREAMPIXEL_SESSION_KEY", "SESSION_SECRET")
	v.MustBindEnv("stability.api_key", "DREAMPIXEL_STABILITY_API_KEY", "STABILITY_API_KEY")
	v.MustBindEnv("email.password", "DREAMPIXEL_EMAIL_PASSWORD", "GMAIL_APP_PASSWORD")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing dreampixel config")
	}

	if c.SessionKey == "" {
		return fmt.Errorf("session key is required")
	}

	if c.GuestLimit < 0 {
		return fmt.Errorf("guest limit must not be negative")
	}

	if c.Database == nil || (c.Database.Path == "" && c.Database.URL == "") {
		return fmt.Errorf("database path or url is required")
	}

	if c.Stability == nil {
		c.Stability = &StabilityConfig{URL: DefaultStabilityURL, Timeout: 120 * time.Second}
	}
	if c.Stability.Timeout <= 0 {
		return fmt.Errorf("stability timeout must be positive")
	}
	if c.Stability.APIKey == "" {
		log.Warn("No Stability AI API key configured, image generation will be unavailable")
	}

	if c.Cache != nil {
		if c.Cache.Type == "" {
			return fmt.Errorf("cache type is required when cache is enabled")
		}
		if c.Cache.Type == CacheTypeRedis && c.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when Redis cache is enabled") //nolint:staticcheck
		}
	} else {
		c.Cache = &CacheConfig{
			Type: CacheTypeMemory,
			TTL:  time.Minute,
		}
	}

	if c.Email != nil && c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("smtp host is required when email is enabled")
		}
		if c.Email.FromEmail == "" {
			return fmt.Errorf("from email is required when email is enabled")
		}
	}

	return nil
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = urlSanitize(c.Listen)

	if c.ServerURL != "" {
		c.ServerURL = urlSanitize(c.ServerURL)
	}

	if c.Stability != nil {
		c.Stability.URL = urlSanitize(c.Stability.URL)
		c.Stability.APIKey = strings.TrimSpace(c.Stability.APIKey)
	}

	if c.Email != nil {
		// the gmail app password is usually copied with spaces
		c.Email.Password = strings.ReplaceAll(c.Email.Password, " ", "")
		if c.Email.FromEmail == "" {
			c.Email.FromEmail = c.Email.Username
		}
		if c.Email.AdminEmail == "" {
			c.Email.AdminEmail = c.Email.FromEmail
		}
	}
}

// enableEmailFromPassword turns email on when an SMTP password is provided
// but email.enabled was never set, which is how older deployments configure mail.
func enableEmailFromPassword(v *viper.Viper, c *Config) {
	if c.Email == nil || c.Email.Enabled || c.Email.Password == "" || v.IsSet("email.enabled") {
		return
	}
	if c.Email.FromEmail == "" {
		log.Warn("SMTP password is set but no sender address is configured, welcome emails stay disabled")
		return
	}
	c.Email.Enabled = true
	log.Info("Email notifications enabled by SMTP password", "from", c.Email.FromEmail)
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}

// GetGuestLimit returns the guest limit with proper defaults.
func (c *Config) GetGuestLimit() int {
	if c == nil || c.GuestLimit < 0 {
		return 1
	}
	return c.GuestLimit
}
