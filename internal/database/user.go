package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// User represents a registered account.
// The password is only ever stored as a salted bcrypt hash.
type User struct {
	gorm.Model
	Username     string  `gorm:"uniqueIndex;not null"`
	Email        string  `gorm:"uniqueIndex;not null"`
	PasswordHash string  `gorm:"not null"`
	Images       []Image `gorm:"constraint:OnDelete:SET NULL;"`
}

func (c *Client) CreateUser(ctx context.Context, user *User) error {
	if err := c.db.WithContext(ctx).Create(user).Error; err != nil {
		log.Error("failed to create user", "error", err)
		return err
	}
	return nil
}

func (c *Client) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by ID", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by email", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) UsernameExists(ctx context.Context, username string) (bool, error) {
	return c.exists(ctx, "username = ?", username)
}

func (c *Client) EmailExists(ctx context.Context, email string) (bool, error) {
	return c.exists(ctx, "email = ?", email)
}

func (c *Client) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&User{}).Where(query, args...).Count(&count).Error; err != nil {
		log.Error("failed to check user existence", "error", err)
		return false, err
	}
	return count > 0, nil
}

func (c *Client) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		log.Error("failed to count users", "error", err)
		return 0, err
	}
	return count, nil
}
