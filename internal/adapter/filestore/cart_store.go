package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
)

const cartFileName = "cart.json"

type cartStore struct {
	path string
}

// NewCartStore returns a LocalCartStore persisted as a single JSON file
// under dir, mirroring a browser's per-origin "cart" storage entry.
func NewCartStore(dir string) (repository.LocalCartStore, error) {
	if dir == "" {
		return nil, errors.New("cart store directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cart store directory %s: %w", dir, err)
	}
	return &cartStore{path: filepath.Join(dir, cartFileName)}, nil
}

func (s *cartStore) Load(_ context.Context) ([]entity.CartItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cart file %s: %w", s.path, err)
	}

	var items []entity.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart file %s: %w", s.path, repository.ErrCorruptData)
	}
	return items, nil
}

func (s *cartStore) Save(_ context.Context, items []entity.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cart file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace cart file %s: %w", s.path, err)
	}
	return nil
}

func (s *cartStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cart file %s: %w", s.path, err)
	}
	return nil
}
