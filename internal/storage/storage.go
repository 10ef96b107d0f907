package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/toppicks/bestseller-scraper/internal/models"
)

// CategoryStore persists the discovered category list as a flat JSON array.
// Each discovery run overwrites the list wholesale; there is no merge.
type CategoryStore struct {
	path string
}

func NewCategoryStore(path string) *CategoryStore {
	return &CategoryStore{path: path}
}

// Save replaces the stored category list.
func (cs *CategoryStore) Save(categories []models.Category) error {
	return writeJSON(cs.path, categories)
}

// Load reads the stored category list. A missing file is an error: scraping
// cannot start before a discovery run has produced categories.
func (cs *CategoryStore) Load() ([]models.Category, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category list: %w", err)
	}

	var categories []models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to parse category list: %w", err)
	}
	return categories, nil
}

// StateStore persists the singleton ScraperState checkpoint. It is rewritten
// after every processed category, so the file is the sole durable cursor
// into a long-running batch.
type StateStore struct {
	path string
}

func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Load reads the checkpoint, returning a zero state when none exists yet.
func (ss *StateStore) Load() (*models.ScraperState, error) {
	data, err := os.ReadFile(ss.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.ScraperState{}, nil
		}
		return nil, fmt.Errorf("failed to read scraper state: %w", err)
	}

	var state models.ScraperState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse scraper state: %w", err)
	}
	return &state, nil
}

// Save rewrites the checkpoint.
func (ss *StateStore) Save(state *models.ScraperState) error {
	return writeJSON(ss.path, state)
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	// Write to a temp file first so a crash mid-write never corrupts the
	// previous checkpoint.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
