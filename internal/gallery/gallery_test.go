package gallery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TheSinghX/AiImageCraft/internal/cache"
	"github.com/TheSinghX/AiImageCraft/internal/config"
	"github.com/TheSinghX/AiImageCraft/internal/database"
	dbmock "github.com/TheSinghX/AiImageCraft/internal/database/mock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *dbmock.MockDB) {
	t.Helper()
	db := dbmock.NewMockDB()
	recent := cache.New[[]database.Image](&config.CacheConfig{Type: config.CacheTypeMemory}, "gallery-test:")
	return New(db, recent, time.Minute), db
}

func seed(t *testing.T, db *dbmock.MockDB, prompts ...string) []database.Image {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	images := make([]database.Image, 0, len(prompts))
	for i, prompt := range prompts {
		image := &database.Image{Prompt: prompt, ImageData: "ZGF0YQ==", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, db.CreateImage(context.Background(), image))
		images = append(images, *image)
	}
	return images
}

func prompts(images []database.Image) []string {
	return lo.Map(images, func(image database.Image, _ int) string { return image.Prompt })
}

func TestListFiltered_Search(t *testing.T) {
	store, db := newStore(t)
	seed(t, db, "a red fox", "blue sky", "red balloon")

	tests := []struct {
		name   string
		search string
		order  database.SortOrder
		want   []string
	}{
		{name: "newest first", search: "red", order: database.SortNewest, want: []string{"red balloon", "a red fox"}},
		{name: "oldest first", search: "red", order: database.SortOldest, want: []string{"a red fox", "red balloon"}},
		{name: "case insensitive", search: "RED", order: database.SortOldest, want: []string{"a red fox", "red balloon"}},
		{name: "no search", search: "  ", order: database.SortOldest, want: []string{"a red fox", "blue sky", "red balloon"}},
		{name: "no match", search: "green", order: database.SortNewest, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images, err := store.ListFiltered(context.Background(), tt.search, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, prompts(images))
		})
	}
}

func TestListRecent_LimitAndCache(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t)
	seed(t, db, "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12")

	images, err := store.ListRecent(ctx, RecentLimit)
	require.NoError(t, err)
	require.Len(t, images, RecentLimit)
	assert.Equal(t, "12", images[0].Prompt)

	// served from cache even if the database fails
	db.GetImagesError = errors.New("db down")
	cached, err := store.ListRecent(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "11", "10"}, prompts(cached))
	db.GetImagesError = nil

	// saving invalidates the cache
	_, err = store.Save(ctx, "13", "ZGF0YQ==", nil)
	require.NoError(t, err)
	images, err = store.ListRecent(ctx, RecentLimit)
	require.NoError(t, err)
	assert.Equal(t, "13", images[0].Prompt)
}

func TestSave_Owner(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	owner := uint(7)

	guest, err := store.Save(ctx, "guest prompt", "ZGF0YQ==", nil)
	require.NoError(t, err)
	assert.Nil(t, guest.UserID)

	owned, err := store.Save(ctx, "user prompt", "ZGF0YQ==", &owner)
	require.NoError(t, err)
	require.NotNil(t, owned.UserID)
	assert.Equal(t, owner, *owned.UserID)

	mine, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"user prompt"}, prompts(mine))
}

func TestGetAndDelete(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t)
	images := seed(t, db, "a red fox", "blue sky")

	got, err := store.Get(ctx, images[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "a red fox", got.Prompt)

	// warm the cache so delete has to invalidate it
	_, err = store.ListRecent(ctx, RecentLimit)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, images[0].ID))

	_, err = store.Get(ctx, images[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, 999), ErrNotFound)

	recent, err := store.ListRecent(ctx, RecentLimit)
	require.NoError(t, err)
	assert.Equal(t, []string{"blue sky"}, prompts(recent))

	all, err := store.ListFiltered(ctx, "", database.SortNewest)
	require.NoError(t, err)
	assert.Equal(t, []string{"blue sky"}, prompts(all))
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, database.SortOldest, ParseSortOrder("oldest"))
	assert.Equal(t, database.SortNewest, ParseSortOrder("newest"))
	assert.Equal(t, database.SortNewest, ParseSortOrder(""))
	assert.Equal(t, database.SortNewest, ParseSortOrder("random"))
}
