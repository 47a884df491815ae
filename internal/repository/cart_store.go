package repository

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
)

// LocalCartStore is the locally persisted cart snapshot used during
// anonymous sessions. It holds a single namespaced "cart" entry; the server
// cart is never written through it.
type LocalCartStore interface {
	// Load returns the persisted item list. ErrNotFound when no snapshot
	// exists, ErrCorruptData when the payload cannot be decoded.
	Load(ctx context.Context) ([]entity.CartItem, error)
	Save(ctx context.Context, items []entity.CartItem) error
	Clear(ctx context.Context) error
}
