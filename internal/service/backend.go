package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
)

// CartAPI is the external server-side cart collaborator. Every mutation
// returns the server's canonical item list, which replaces the local copy
// wholesale on success.
type CartAPI interface {
	SetSessionToken(token string)
	Fetch(ctx context.Context) ([]entity.CartItem, error)
	Add(ctx context.Context, productID string, quantity int, specifications string) ([]entity.CartItem, error)
	Remove(ctx context.Context, serverItemID string) ([]entity.CartItem, error)
	Update(ctx context.Context, serverItemID string, quantity int) ([]entity.CartItem, error)
	Clear(ctx context.Context) error
	Merge(ctx context.Context, items []entity.CartItem) ([]entity.CartItem, error)
}

// errUnsyncedItem signals a mutation targeting a line the server never
// confirmed, e.g. one added during a degraded fallback.
var errUnsyncedItem = errors.New("item has no server identifier")

// cartBackend is the canonical-side strategy: exactly one variant is active
// at a time, selected on each authentication-state transition. A nil item
// list with a non-nil error means the mutation did not take effect.
type cartBackend interface {
	Load(ctx context.Context) ([]entity.CartItem, error)
	Add(ctx context.Context, cart *entity.Cart, product entity.ProductSnapshot, quantity int, specifications string) ([]entity.CartItem, error)
	Remove(ctx context.Context, cart *entity.Cart, item entity.CartItem) ([]entity.CartItem, error)
	Update(ctx context.Context, cart *entity.Cart, item entity.CartItem, quantity int) ([]entity.CartItem, error)
	Clear(ctx context.Context) error
}

// localBackend mutates the in-memory aggregate and writes through to the
// local persisted store after every change. Persistence failures are
// reported alongside the mutated list; the mutation itself stands.
type localBackend struct {
	store repository.LocalCartStore
}

func (b *localBackend) Load(ctx context.Context) ([]entity.CartItem, error) {
	return b.store.Load(ctx)
}

func (b *localBackend) Add(ctx context.Context, cart *entity.Cart, product entity.ProductSnapshot, quantity int, specifications string) ([]entity.CartItem, error) {
	if err := cart.AddItem(product, quantity, specifications, entity.SyncStatusLocalOnly); err != nil {
		return nil, err
	}
	return cart.Items, b.persist(ctx, cart)
}

func (b *localBackend) Remove(ctx context.Context, cart *entity.Cart, item entity.CartItem) ([]entity.CartItem, error) {
	if err := cart.RemoveItem(item.ID); err != nil {
		return nil, err
	}
	return cart.Items, b.persist(ctx, cart)
}

func (b *localBackend) Update(ctx context.Context, cart *entity.Cart, item entity.CartItem, quantity int) ([]entity.CartItem, error) {
	if err := cart.UpdateItemQuantity(item.ID, quantity); err != nil {
		return nil, err
	}
	return cart.Items, b.persist(ctx, cart)
}

func (b *localBackend) Clear(ctx context.Context) error {
	return b.store.Clear(ctx)
}

func (b *localBackend) persist(ctx context.Context, cart *entity.Cart) error {
	if err := b.store.Save(ctx, cart.Items); err != nil {
		return fmt.Errorf("failed to persist local cart: %w", err)
	}
	return nil
}

// serverBackend issues requests against the external cart API and returns
// whatever canonical list the server responds with.
type serverBackend struct {
	api CartAPI
}

func (b *serverBackend) Load(ctx context.Context) ([]entity.CartItem, error) {
	return b.api.Fetch(ctx)
}

func (b *serverBackend) Add(ctx context.Context, _ *entity.Cart, product entity.ProductSnapshot, quantity int, specifications string) ([]entity.CartItem, error) {
	return b.api.Add(ctx, product.ID, quantity, specifications)
}

func (b *serverBackend) Remove(ctx context.Context, _ *entity.Cart, item entity.CartItem) ([]entity.CartItem, error) {
	if item.ServerID == "" {
		return nil, errUnsyncedItem
	}
	return b.api.Remove(ctx, item.ServerID)
}

func (b *serverBackend) Update(ctx context.Context, _ *entity.Cart, item entity.CartItem, quantity int) ([]entity.CartItem, error) {
	if item.ServerID == "" {
		return nil, errUnsyncedItem
	}
	return b.api.Update(ctx, item.ServerID, quantity)
}

func (b *serverBackend) Clear(ctx context.Context) error {
	return b.api.Clear(ctx)
}
