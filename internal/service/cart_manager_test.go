package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLocalCartStore struct {
	mock.Mock
}

func (m *MockLocalCartStore) Load(ctx context.Context) ([]entity.CartItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CartItem), args.Error(1)
}

func (m *MockLocalCartStore) Save(ctx context.Context, items []entity.CartItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockLocalCartStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockCartAPI struct {
	mock.Mock
}

func (m *MockCartAPI) SetSessionToken(token string) {
	m.Called(token)
}

func (m *MockCartAPI) Fetch(ctx context.Context) ([]entity.CartItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CartItem), args.Error(1)
}

func (m *MockCartAPI) Add(ctx context.Context, productID string, quantity int, specifications string) ([]entity.CartItem, error) {
	args := m.Called(ctx, productID, quantity, specifications)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CartItem), args.Error(1)
}

func (m *MockCartAPI) Remove(ctx context.Context, serverItemID string) ([]entity.CartItem, error) {
	args := m.Called(ctx, serverItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CartItem), args.Error(1)
}

func (m *MockCartAPI) Update(ctx context.Context, serverItemID string, quantity int) ([]entity.CartItem, error) {
	args := m.Called(ctx, serverItemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CartItem), args.Error(1)
}

func (m *MockCartAPI) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCartAPI) Merge(ctx context.Context, items []entity.CartItem) ([]entity.CartItem, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CartItem), args.Error(1)
}

type NoOpLogger struct{}

func (l *NoOpLogger) Debug(args ...interface{})                   {}
func (l *NoOpLogger) Debugf(template string, args ...interface{}) {}
func (l *NoOpLogger) Info(args ...interface{})                    {}
func (l *NoOpLogger) Infof(template string, args ...interface{})  {}
func (l *NoOpLogger) Warn(args ...interface{})                    {}
func (l *NoOpLogger) Warnf(template string, args ...interface{})  {}
func (l *NoOpLogger) Error(args ...interface{})                   {}
func (l *NoOpLogger) Errorf(template string, args ...interface{}) {}
func (l *NoOpLogger) Fatal(args ...interface{})                   {}
func (l *NoOpLogger) Fatalf(template string, args ...interface{}) {}
func (l *NoOpLogger) With(args ...interface{}) logger.Logger      { return l }

func newTestManager(store *MockLocalCartStore, api *MockCartAPI) CartManager {
	return NewCartManager(store, api, nil, &NoOpLogger{}, CartManagerConfig{})
}

func testProduct(id string, price float64) entity.ProductSnapshot {
	return entity.ProductSnapshot{ID: id, Name: "Product " + id, Price: price}
}

func serverItem(serverID, productID string, price float64, quantity int) entity.CartItem {
	return entity.CartItem{
		ServerID:   serverID,
		Product:    testProduct(productID, price),
		Quantity:   quantity,
		SyncStatus: entity.SyncStatusSynced,
	}
}

func enterAnonymousEmpty(t *testing.T, manager CartManager, store *MockLocalCartStore, api *MockCartAPI) {
	t.Helper()
	store.On("Load", mock.Anything).Return(nil, repository.ErrNotFound).Once()
	api.On("SetSessionToken", "").Return()
	require.NoError(t, manager.SetAuthStatus(context.Background(), AuthStateAnonymous, "", ""))
}

func enterAuthenticatedEmpty(t *testing.T, manager CartManager, store *MockLocalCartStore, api *MockCartAPI) {
	t.Helper()
	store.On("Load", mock.Anything).Return(nil, repository.ErrNotFound).Once()
	api.On("SetSessionToken", "token1").Return()
	api.On("Fetch", mock.Anything).Return([]entity.CartItem{}, nil).Once()
	require.NoError(t, manager.SetAuthStatus(context.Background(), AuthStateAuthenticated, "user1", "token1"))
}

func TestCartManager_UninitializedRejectsMutations(t *testing.T) {
	manager := newTestManager(new(MockLocalCartStore), new(MockCartAPI))

	err := manager.AddToCart(context.Background(), testProduct("p1", 100), 1, "")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, AuthStateUninitialized, manager.AuthState())
}

func TestCartManager_AnonymousAddRemoveRoundTrip(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAnonymousEmpty(t, manager, store, api)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, manager.AddToCart(context.Background(), testProduct("pA", 500), 1, ""))

	summary := manager.GetSummary()
	assert.Equal(t, 500.0, summary.Subtotal)
	assert.Equal(t, 50.0, summary.Shipping)
	assert.Equal(t, 550.0, summary.Total)
	assert.Equal(t, 1, summary.TotalItems)

	itemID := manager.GetItems()[0].ID
	require.NoError(t, manager.RemoveFromCart(context.Background(), itemID))

	summary = manager.GetSummary()
	assert.Equal(t, 0.0, summary.Subtotal)
	assert.Equal(t, 50.0, summary.Shipping)
	assert.Equal(t, 50.0, summary.Total)
	assert.Equal(t, 0, summary.TotalItems)

	store.AssertNumberOfCalls(t, "Save", 2)
}

func TestCartManager_AnonymousAddDedupsByProductAndSpecs(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAnonymousEmpty(t, manager, store, api)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 100), 1, ""))
	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 100), 3, ""))

	items := manager.GetItems()
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
	assert.Equal(t, 4, manager.GetItemsCount())

	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 100), 1, "custom"))
	assert.Len(t, manager.GetItems(), 2)
	assert.Equal(t, 5, manager.GetProductQuantity("p1"))
}

func TestCartManager_AnonymousLoadsCorruptStoreAsEmpty(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	store.On("Load", mock.Anything).Return(nil, repository.ErrCorruptData).Once()
	api.On("SetSessionToken", "").Return()

	require.NoError(t, manager.SetAuthStatus(context.Background(), AuthStateAnonymous, "", ""))
	assert.Empty(t, manager.GetItems())
	assert.Equal(t, AuthStateAnonymous, manager.AuthState())
}

func TestCartManager_LoginMerge_Success(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	localItems := []entity.CartItem{
		{ID: "local-1", Product: testProduct("pA", 100), Quantity: 2, SyncStatus: entity.SyncStatusLocalOnly},
	}
	merged := []entity.CartItem{serverItem("srv-1", "pA", 100, 3)}

	store.On("Load", mock.Anything).Return(localItems, nil)
	store.On("Clear", mock.Anything).Return(nil)
	api.On("SetSessionToken", "").Return()
	api.On("SetSessionToken", "token1").Return()
	api.On("Fetch", mock.Anything).Return([]entity.CartItem{serverItem("srv-1", "pA", 100, 1)}, nil)
	api.On("Merge", mock.Anything, localItems).Return(merged, nil)

	require.NoError(t, manager.SetAuthStatus(context.Background(), AuthStateAnonymous, "", ""))
	require.NoError(t, manager.SetAuthStatus(context.Background(), AuthStateAuthenticated, "user1", "token1"))

	assert.Equal(t, AuthStateAuthenticated, manager.AuthState())
	items := manager.GetItems()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "srv-1", items[0].ServerID)

	api.AssertNumberOfCalls(t, "Merge", 1)
	store.AssertCalled(t, "Clear", mock.Anything)

	// A repeated signal for the same session must not re-fire the merge.
	require.NoError(t, manager.SetAuthStatus(context.Background(), AuthStateAuthenticated, "user1", "token1"))
	api.AssertNumberOfCalls(t, "Merge", 1)
}

func TestCartManager_LoginMerge_FailureKeepsSnapshotForRetry(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	localItems := []entity.CartItem{
		{ID: "local-1", Product: testProduct("pA", 100), Quantity: 2, SyncStatus: entity.SyncStatusLocalOnly},
	}
	merged := []entity.CartItem{serverItem("srv-1", "pA", 100, 2)}

	store.On("Load", mock.Anything).Return(localItems, nil)
	api.On("SetSessionToken", "").Return()
	api.On("SetSessionToken", "token1").Return()
	api.On("Fetch", mock.Anything).Return([]entity.CartItem{}, nil)
	api.On("Merge", mock.Anything, localItems).Return(nil, errors.New("merge endpoint down")).Once()

	require.NoError(t, manager.SetAuthStatus(context.Background(), AuthStateAnonymous, "", ""))
	err := manager.SetAuthStatus(context.Background(), AuthStateAuthenticated, "user1", "token1")
	require.Error(t, err)
	store.AssertNotCalled(t, "Clear", mock.Anything)

	// The snapshot survives, so an explicit retry can still merge.
	api.On("Merge", mock.Anything, localItems).Return(merged, nil).Once()
	store.On("Clear", mock.Anything).Return(nil)

	require.NoError(t, manager.MergeCartOnLogin(context.Background()))
	api.AssertNumberOfCalls(t, "Merge", 2)
	store.AssertCalled(t, "Clear", mock.Anything)

	// Snapshot consumed; further calls are no-ops.
	require.NoError(t, manager.MergeCartOnLogin(context.Background()))
	api.AssertNumberOfCalls(t, "Merge", 2)
}

func TestCartManager_AuthenticatedAddReplacesListFromServer(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAuthenticatedEmpty(t, manager, store, api)
	api.On("Add", mock.Anything, "p1", 2, "").Return([]entity.CartItem{serverItem("srv-9", "p1", 100, 2)}, nil)

	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 100), 2, ""))

	items := manager.GetItems()
	require.Len(t, items, 1)
	assert.Equal(t, "srv-9", items[0].ServerID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, entity.SyncStatusSynced, items[0].SyncStatus)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCartManager_AuthenticatedAddFallsBackLocallyOnFailure(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAuthenticatedEmpty(t, manager, store, api)
	api.On("Add", mock.Anything, "p1", 1, "").Return(nil, errors.New("network down"))

	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 100), 1, ""))

	items := manager.GetItems()
	require.Len(t, items, 1)
	assert.Equal(t, entity.SyncStatusLocalOnly, items[0].SyncStatus)
	assert.Empty(t, items[0].ServerID)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCartManager_AuthenticatedRemoveUnsyncedItemStaysLocal(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAuthenticatedEmpty(t, manager, store, api)
	api.On("Add", mock.Anything, "p1", 1, "").Return(nil, errors.New("network down"))
	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 100), 1, ""))

	itemID := manager.GetItems()[0].ID
	require.NoError(t, manager.RemoveFromCart(context.Background(), itemID))

	assert.Empty(t, manager.GetItems())
	api.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestCartManager_AuthenticatedUpdateFallsBackLocallyOnFailure(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAuthenticatedEmpty(t, manager, store, api)
	api.On("Add", mock.Anything, "p1", 1, "").Return([]entity.CartItem{serverItem("srv-1", "p1", 100, 1)}, nil)
	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 100), 1, ""))

	itemID := manager.GetItems()[0].ID
	api.On("Update", mock.Anything, "srv-1", 4).Return(nil, errors.New("network down"))

	require.NoError(t, manager.UpdateQuantity(context.Background(), itemID, 4))

	items := manager.GetItems()
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
	assert.Equal(t, entity.SyncStatusLocalOnly, items[0].SyncStatus)
}

func TestCartManager_UpdateQuantityZeroDelegatesToRemove(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAnonymousEmpty(t, manager, store, api)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 100), 2, ""))
	itemID := manager.GetItems()[0].ID

	require.NoError(t, manager.UpdateQuantity(context.Background(), itemID, 0))

	assert.Empty(t, manager.GetItems())
	assert.Equal(t, 0, manager.GetItemsCount())
}

func TestCartManager_ClearAlwaysEmptiesEvenOnServerFailure(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAuthenticatedEmpty(t, manager, store, api)
	api.On("Add", mock.Anything, "p1", 1, "").Return([]entity.CartItem{serverItem("srv-1", "p1", 100, 1)}, nil)
	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 100), 1, ""))

	api.On("Clear", mock.Anything).Return(errors.New("server unavailable"))

	require.NoError(t, manager.ClearCart(context.Background()))
	assert.Empty(t, manager.GetItems())
	assert.Equal(t, 0.0, manager.GetCartTotal())
}

func TestCartManager_DerivedQueries(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAnonymousEmpty(t, manager, store, api)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 400), 2, ""))
	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p2", 150), 1, ""))

	assert.Equal(t, 3, manager.GetItemsCount())
	assert.Equal(t, 950.0, manager.GetCartTotal())
	assert.True(t, manager.IsProductInCart("p1"))
	assert.False(t, manager.IsProductInCart("p3"))
	assert.Equal(t, 2, manager.GetProductQuantity("p1"))
	assert.Equal(t, 50.0, manager.GetShippingCost())
	assert.Equal(t, 1000.0, manager.GetFinalTotal())

	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p2", 150), 1, ""))
	assert.Equal(t, 1100.0, manager.GetCartTotal())
	assert.Equal(t, 0.0, manager.GetShippingCost())
	assert.Equal(t, 1100.0, manager.GetFinalTotal())
}

func TestCartManager_SubscribersReceiveEveryChange(t *testing.T) {
	store := new(MockLocalCartStore)
	api := new(MockCartAPI)
	manager := newTestManager(store, api)

	enterAnonymousEmpty(t, manager, store, api)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	var received []entity.CartSummary
	unsubscribe := manager.Subscribe(func(s entity.CartSummary) {
		received = append(received, s)
	})

	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 200), 1, ""))
	require.Len(t, received, 1)
	assert.Equal(t, 1, received[0].TotalItems)
	assert.Equal(t, 200.0, received[0].Subtotal)

	unsubscribe()
	require.NoError(t, manager.AddToCart(context.Background(), testProduct("p1", 200), 1, ""))
	assert.Len(t, received, 1)
}
