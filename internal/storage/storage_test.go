package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toppicks/bestseller-scraper/internal/models"
)

func TestCategoryStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.json")
	store := NewCategoryStore(path)

	categories := []models.Category{
		{
			Name:           "Fiction",
			Slug:           "fiction",
			URL:            "https://www.amazon.com/zgbs/books/fiction",
			DepartmentName: "Books",
			DepartmentSlug: "books",
			FullSlug:       "books/fiction",
			Level:          2,
		},
	}

	require.NoError(t, store.Save(categories))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, categories, loaded)
}

func TestCategoryStoreOverwritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.json")
	store := NewCategoryStore(path)

	first := []models.Category{
		{FullSlug: "books/fiction"},
		{FullSlug: "books/mystery"},
	}
	require.NoError(t, store.Save(first))

	second := []models.Category{{FullSlug: "electronics/headphones"}}
	require.NoError(t, store.Save(second))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "electronics/headphones", loaded[0].FullSlug)
}

func TestCategoryStoreMissingFile(t *testing.T) {
	store := NewCategoryStore(filepath.Join(t.TempDir(), "missing.json"))

	_, err := store.Load()
	assert.Error(t, err)
}

func TestStateStoreDefaultsWhenAbsent(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "state.json"))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, state.LastCategoryIndex)
	assert.Equal(t, 0, state.CategoriesProcessed)
	assert.Empty(t, state.Errors)
}

func TestStateStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStateStore(path)

	state := &models.ScraperState{
		RunID:               "run-1",
		LastRun:             time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		CategoriesProcessed: 37,
		ProductsSubmitted:   35,
		LastCategoryIndex:   37,
		Errors: []models.ScrapeError{
			{FullSlug: "books/fiction", Message: "no product found"},
		},
	}
	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 37, loaded.LastCategoryIndex)
	assert.Equal(t, 35, loaded.ProductsSubmitted)
	require.Len(t, loaded.Errors, 1)
	assert.Equal(t, "books/fiction", loaded.Errors[0].FullSlug)
}
