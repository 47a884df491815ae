package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/nats"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
)

const (
	natsSubjectCartUpdated = "cart.updated"
	natsSubjectCartMerged  = "cart.merged"
	natsSubjectCartCleared = "cart.cleared"
)

var (
	ErrItemNotFound   = errors.New("item not found in cart")
	ErrNotInitialized = errors.New("cart is not initialized: authentication status unknown")
)

// AuthState is the externally supplied authentication signal. The manager
// never decides it, only reacts to transitions.
type AuthState string

const (
	AuthStateUninitialized AuthState = "uninitialized"
	AuthStateAnonymous     AuthState = "anonymous"
	AuthStateAuthenticated AuthState = "authenticated"
)

type CartManager interface {
	SetAuthStatus(ctx context.Context, state AuthState, userID, token string) error
	MergeCartOnLogin(ctx context.Context) error
	AddToCart(ctx context.Context, product entity.ProductSnapshot, quantity int, specifications string) error
	RemoveFromCart(ctx context.Context, itemID string) error
	UpdateQuantity(ctx context.Context, itemID string, quantity int) error
	ClearCart(ctx context.Context) error
	AuthState() AuthState
	GetItems() []entity.CartItem
	GetItemsCount() int
	GetCartTotal() float64
	IsProductInCart(productID string) bool
	GetProductQuantity(productID string) int
	GetShippingCost() float64
	GetFinalTotal() float64
	GetSummary() entity.CartSummary
	Subscribe(fn func(entity.CartSummary)) func()
}

type cartManager struct {
	store     repository.LocalCartStore
	api       CartAPI
	publisher nats.MessagePublisher
	log       logger.Logger
	shipping  entity.ShippingRule

	mu           sync.RWMutex
	state        AuthState
	userID       string
	cart         *entity.Cart
	backend      cartBackend
	pendingMerge []entity.CartItem

	subMu       sync.Mutex
	subscribers map[int]func(entity.CartSummary)
	nextSubID   int
}

type CartManagerConfig struct {
	ShippingRule entity.ShippingRule
}

// NewCartManager builds a manager in the uninitialized state. The publisher
// may be nil; change notifications are then delivered to local subscribers only.
func NewCartManager(
	store repository.LocalCartStore,
	api CartAPI,
	publisher nats.MessagePublisher,
	log logger.Logger,
	cfg CartManagerConfig,
) CartManager {
	rule := cfg.ShippingRule
	if rule.FreeThreshold <= 0 && rule.Fee <= 0 {
		rule = entity.DefaultShippingRule()
	}

	return &cartManager{
		store:       store,
		api:         api,
		publisher:   publisher,
		log:         log,
		shipping:    rule,
		state:       AuthStateUninitialized,
		cart:        entity.NewCart(),
		subscribers: make(map[int]func(entity.CartSummary)),
	}
}

func (m *cartManager) SetAuthStatus(ctx context.Context, state AuthState, userID, token string) error {
	switch state {
	case AuthStateUninitialized:
		// Auth status still unknown, do nothing yet.
		return nil
	case AuthStateAnonymous:
		return m.enterAnonymous(ctx)
	case AuthStateAuthenticated:
		return m.enterAuthenticated(ctx, userID, token)
	default:
		return fmt.Errorf("unknown auth state %q", state)
	}
}

func (m *cartManager) enterAnonymous(ctx context.Context) error {
	m.mu.Lock()
	m.state = AuthStateAnonymous
	m.userID = ""
	m.pendingMerge = nil
	m.api.SetSessionToken("")
	m.backend = &localBackend{store: m.store}

	items, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrCorruptData) {
			m.log.Warnf("Local cart snapshot is corrupt, starting empty: %v", err)
		} else if !errors.Is(err, repository.ErrNotFound) {
			m.log.Errorf("Failed to load local cart, starting empty: %v", err)
		}
		items = nil
	}
	m.cart = entity.NewCart()
	m.cart.Replace(items)
	summary := m.summaryLocked()
	m.mu.Unlock()

	m.log.Infof("Cart manager entered anonymous state with %d lines", len(summary.Items))
	m.notify(ctx, natsSubjectCartUpdated, summary)
	return nil
}

func (m *cartManager) enterAuthenticated(ctx context.Context, userID, token string) error {
	m.mu.Lock()
	if m.state == AuthStateAuthenticated && m.userID == userID {
		// Repeated signal for the same session must not re-fire the merge.
		m.mu.Unlock()
		return nil
	}

	// Snapshot the anonymous cart before the server becomes canonical.
	var snapshot []entity.CartItem
	if items, err := m.store.Load(ctx); err == nil && len(items) > 0 {
		snapshot = items
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		m.log.Warnf("Could not read local cart snapshot before login merge: %v", err)
	}

	m.state = AuthStateAuthenticated
	m.userID = userID
	m.api.SetSessionToken(token)
	m.backend = &serverBackend{api: m.api}
	m.pendingMerge = snapshot

	items, err := m.api.Fetch(ctx)
	if err != nil {
		m.log.Errorf("Failed to fetch server cart for user %s: %v", userID, err)
	} else {
		m.cart.Replace(items)
	}
	summary := m.summaryLocked()
	m.mu.Unlock()

	m.log.Infof("Cart manager entered authenticated state for user %s", userID)
	m.notify(ctx, natsSubjectCartUpdated, summary)

	if len(snapshot) > 0 {
		return m.MergeCartOnLogin(ctx)
	}
	return nil
}

// MergeCartOnLogin folds the anonymous cart snapshot captured at the login
// transition into the server cart. It runs at most once per transition: the
// snapshot is consumed on success and kept for retry on failure.
func (m *cartManager) MergeCartOnLogin(ctx context.Context) error {
	m.mu.Lock()
	if m.state != AuthStateAuthenticated || len(m.pendingMerge) == 0 {
		m.mu.Unlock()
		return nil
	}
	snapshot := m.pendingMerge
	userID := m.userID

	merged, err := m.api.Merge(ctx, snapshot)
	if err != nil {
		// Local storage and pending snapshot stay intact so the merge can
		// safely retry on the next login detection.
		m.mu.Unlock()
		m.log.Errorf("Cart merge failed for user %s, keeping local snapshot: %v", userID, err)
		return fmt.Errorf("could not merge cart: %w", err)
	}

	m.pendingMerge = nil
	m.cart.Replace(merged)
	if errClear := m.store.Clear(ctx); errClear != nil {
		m.log.Warnf("Failed to clear local cart snapshot after merge: %v", errClear)
	}
	summary := m.summaryLocked()
	m.mu.Unlock()

	m.log.Infof("Merged %d local cart lines for user %s", len(snapshot), userID)
	m.notify(ctx, natsSubjectCartMerged, summary)
	return nil
}

func (m *cartManager) AddToCart(ctx context.Context, product entity.ProductSnapshot, quantity int, specifications string) error {
	if err := product.Validate(); err != nil {
		return err
	}
	if quantity < 1 {
		return errors.New("quantity must be at least 1")
	}

	m.mu.Lock()
	if m.state == AuthStateUninitialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}

	items, err := m.backend.Add(ctx, m.cart, product, quantity, specifications)
	if err != nil && items == nil {
		if !m.degradeLocked(err) {
			m.mu.Unlock()
			return err
		}
		m.log.Errorf("Server add failed for product %s, applying local fallback: %v", product.ID, err)
		if fallbackErr := m.cart.AddItem(product, quantity, specifications, entity.SyncStatusLocalOnly); fallbackErr != nil {
			m.mu.Unlock()
			return fallbackErr
		}
	} else {
		if err != nil {
			m.log.Warnf("Cart add applied but not fully persisted: %v", err)
		}
		m.cart.Replace(items)
	}
	summary := m.summaryLocked()
	m.mu.Unlock()

	m.notify(ctx, natsSubjectCartUpdated, summary)
	return nil
}

func (m *cartManager) RemoveFromCart(ctx context.Context, itemID string) error {
	m.mu.Lock()
	if m.state == AuthStateUninitialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}

	item, _ := m.cart.GetItem(itemID)
	if item == nil {
		m.mu.Unlock()
		return ErrItemNotFound
	}

	items, err := m.backend.Remove(ctx, m.cart, *item)
	if err != nil && items == nil {
		if !m.degradeLocked(err) {
			m.mu.Unlock()
			return err
		}
		m.log.Errorf("Server remove failed for item %s, removing locally: %v", itemID, err)
		_ = m.cart.RemoveItem(itemID)
	} else {
		if err != nil {
			m.log.Warnf("Cart remove applied but not fully persisted: %v", err)
		}
		m.cart.Replace(items)
	}
	summary := m.summaryLocked()
	m.mu.Unlock()

	m.notify(ctx, natsSubjectCartUpdated, summary)
	return nil
}

func (m *cartManager) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return m.RemoveFromCart(ctx, itemID)
	}

	m.mu.Lock()
	if m.state == AuthStateUninitialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}

	item, _ := m.cart.GetItem(itemID)
	if item == nil {
		m.mu.Unlock()
		return ErrItemNotFound
	}

	items, err := m.backend.Update(ctx, m.cart, *item, quantity)
	if err != nil && items == nil {
		if !m.degradeLocked(err) {
			m.mu.Unlock()
			return err
		}
		m.log.Errorf("Server update failed for item %s, updating locally: %v", itemID, err)
		_ = m.cart.UpdateItemQuantity(itemID, quantity)
		if line, _ := m.cart.GetItem(itemID); line != nil {
			line.SyncStatus = entity.SyncStatusLocalOnly
		}
	} else {
		if err != nil {
			m.log.Warnf("Cart update applied but not fully persisted: %v", err)
		}
		m.cart.Replace(items)
	}
	summary := m.summaryLocked()
	m.mu.Unlock()

	m.notify(ctx, natsSubjectCartUpdated, summary)
	return nil
}

// ClearCart always ends with an empty cart: a stale non-empty cart is a
// worse outcome than a spuriously cleared one.
func (m *cartManager) ClearCart(ctx context.Context) error {
	m.mu.Lock()
	if m.backend != nil {
		if err := m.backend.Clear(ctx); err != nil {
			m.log.Errorf("Backend clear failed, clearing locally anyway: %v", err)
		}
	}
	m.cart.Clear()
	summary := m.summaryLocked()
	m.mu.Unlock()

	m.notify(ctx, natsSubjectCartCleared, summary)
	return nil
}

// degradeLocked reports whether a failed backend mutation should fall back
// to a local best-effort mutation. Only the server variant degrades.
func (m *cartManager) degradeLocked(err error) bool {
	if err == nil {
		return false
	}
	_, isServer := m.backend.(*serverBackend)
	return isServer
}

func (m *cartManager) AuthState() AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *cartManager) GetItems() []entity.CartItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]entity.CartItem, len(m.cart.Items))
	copy(items, m.cart.Items)
	return items
}

func (m *cartManager) GetItemsCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cart.TotalItems()
}

func (m *cartManager) GetCartTotal() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cart.Subtotal()
}

func (m *cartManager) IsProductInCart(productID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cart.HasProduct(productID)
}

func (m *cartManager) GetProductQuantity(productID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cart.ProductQuantity(productID)
}

func (m *cartManager) GetShippingCost() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shipping.Cost(m.cart.Subtotal())
}

func (m *cartManager) GetFinalTotal() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	subtotal := m.cart.Subtotal()
	return subtotal + m.shipping.Cost(subtotal)
}

func (m *cartManager) GetSummary() entity.CartSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summaryLocked()
}

func (m *cartManager) summaryLocked() entity.CartSummary {
	return entity.NewCartSummary(m.cart, m.shipping)
}

// Subscribe registers a change listener and returns its unsubscribe func.
func (m *cartManager) Subscribe(fn func(entity.CartSummary)) func() {
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

func (m *cartManager) notify(ctx context.Context, subject string, summary entity.CartSummary) {
	m.subMu.Lock()
	fns := make([]func(entity.CartSummary), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(summary)
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(ctx, subject, summary); err != nil {
			m.log.Warnf("Failed to publish %s event: %v", subject, err)
		}
	}
}
