package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is the persistence interface used by the rest of the application.
type DB interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CountUsers(ctx context.Context) (int64, error)

	CreateImage(ctx context.Context, image *Image) error
	GetImageByID(ctx context.Context, id uint) (*Image, error)
	GetImages(ctx context.Context, query ImageQuery) ([]Image, error)
	DeleteImage(ctx context.Context, id uint) error
	CountImages(ctx context.Context) (int64, error)

	Close() error
}

var _ DB = (*Client)(nil) // Ensure Client implements DB

// Client wraps the gorm.DB instance.
type Client struct {
	db       *gorm.DB
	postgres bool
}

// New creates a new database connection and performs migrations.
// A postgres connection string selects the postgres driver, everything else is sqlite.
func New(cfg *config.DatabaseConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	var dialector gorm.Dialector
	if cfg.IsPostgres() {
		dialector = postgres.Open(cfg.URL)
	} else {
		path := cfg.Path
		if cfg.URL != "" {
			path = cfg.URL
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(path + "?_pragma=foreign_keys(1)")
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// recycle connections so a restarted database server is picked up again
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(
		&User{},
		&Image{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	client := &Client{db: db, postgres: cfg.IsPostgres()}
	if err := client.backfillPromptSearch(); err != nil {
		return nil, fmt.Errorf("failed to backfill prompt search: %w", err)
	}

	return client, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
