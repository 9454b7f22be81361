package mock

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/database"
	"gorm.io/gorm"
)

var _ database.DB = (*MockDB)(nil)

// ErrDuplicate is returned when a unique user field is already taken.
var ErrDuplicate = errors.New("duplicate key")

// MockDB is a mock implementation of database.DB for testing.
type MockDB struct {
	mu sync.RWMutex

	users      map[uint]*database.User
	nextUserID uint

	images      map[uint]*database.Image
	nextImageID uint

	// Error simulation
	CreateUserError  error
	GetUserError     error
	ExistsError      error
	CreateImageError error
	GetImageError    error
	GetImagesError   error
	DeleteImageError error
	CountError       error
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	return &MockDB{
		users:       make(map[uint]*database.User),
		nextUserID:  1,
		images:      make(map[uint]*database.Image),
		nextImageID: 1,
	}
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[uint]*database.User)
	m.nextUserID = 1
	m.images = make(map[uint]*database.Image)
	m.nextImageID = 1

	m.CreateUserError = nil
	m.GetUserError = nil
	m.ExistsError = nil
	m.CreateImageError = nil
	m.GetImageError = nil
	m.GetImagesError = nil
	m.DeleteImageError = nil
	m.CountError = nil
}

// User operations

func (m *MockDB) CreateUser(ctx context.Context, user *database.User) error {
	if m.CreateUserError != nil {
		return m.CreateUserError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicate
		}
	}

	user.ID = m.nextUserID
	m.nextUserID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MockDB) GetUserByID(ctx context.Context, id uint) (*database.User, error) {
	if m.GetUserError != nil {
		return nil, m.GetUserError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *user
	return &found, nil
}

func (m *MockDB) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	if m.GetUserError != nil {
		return nil, m.GetUserError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			found := *user
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockDB) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDB) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDB) CountUsers(ctx context.Context) (int64, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

// Image operations

func (m *MockDB) CreateImage(ctx context.Context, image *database.Image) error {
	if m.CreateImageError != nil {
		return m.CreateImageError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	image.ID = m.nextImageID
	m.nextImageID++
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now()
	}
	stored := *image
	m.images[image.ID] = &stored
	return nil
}

func (m *MockDB) GetImageByID(ctx context.Context, id uint) (*database.Image, error) {
	if m.GetImageError != nil {
		return nil, m.GetImageError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	image, ok := m.images[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *image
	return &found, nil
}

func (m *MockDB) GetImages(ctx context.Context, query database.ImageQuery) ([]database.Image, error) {
	if m.GetImagesError != nil {
		return nil, m.GetImagesError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(query.Search)
	var images []database.Image
	for _, image := range m.images {
		if search != "" && !strings.Contains(strings.ToLower(image.Prompt), search) {
			continue
		}
		if query.UserID != nil && (image.UserID == nil || *image.UserID != *query.UserID) {
			continue
		}
		images = append(images, *image)
	}

	sort.Slice(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if query.Order == database.SortOldest {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if query.Limit > 0 && len(images) > query.Limit {
		images = images[:query.Limit]
	}
	return images, nil
}

func (m *MockDB) DeleteImage(ctx context.Context, id uint) error {
	if m.DeleteImageError != nil {
		return m.DeleteImageError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.images[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.images, id)
	return nil
}

func (m *MockDB) CountImages(ctx context.Context) (int64, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.images)), nil
}

func (m *MockDB) Close() error {
	return nil
}

// ImageCount returns the number of stored images without error injection.
func (m *MockDB) ImageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}
