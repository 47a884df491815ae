package cartapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successEnvelope(t *testing.T, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{"success": true, "data": json.RawMessage(raw)})
	require.NoError(t, err)
	return body
}

func TestClient_Fetch_TransformsServerItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart", r.URL.Path)
		w.Write(successEnvelope(t, map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id":       "srv-1",
					"quantity": 2,
					"product":  map[string]interface{}{"id": "p1", "name": "Widget", "price": 99.5},
				},
			},
		}))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	items, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "srv-1", items[0].ServerID)
	assert.Equal(t, "p1", items[0].Product.ID)
	assert.Equal(t, 99.5, items[0].Product.Price)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, entity.SyncStatusSynced, items[0].SyncStatus)
}

func TestClient_Add_SendsBodyAndBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/add", r.URL.Path)
		assert.Equal(t, "Bearer token1", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "p1", req["productId"])
		assert.Equal(t, 3.0, req["quantity"])
		assert.Equal(t, "engraved", req["specifications"])

		w.Write(successEnvelope(t, map[string]interface{}{"items": []interface{}{}}))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	client.SetSessionToken("token1")

	items, err := client.Add(context.Background(), "p1", 3, "engraved")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClient_FailureEnvelopeSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "product out of stock"})
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Add(context.Background(), "p1", 1, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "product out of stock")
}

func TestClient_Merge_SendsLocalCartItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/merge", r.URL.Path)

		var req struct {
			Items []mergeItemRequest `json:"localCartItems"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 2)
		assert.Equal(t, "p1", req.Items[0].ProductID)
		assert.Equal(t, 2, req.Items[0].Quantity)
		assert.Equal(t, "blue", req.Items[1].Specifications)

		w.Write(successEnvelope(t, map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id":       "srv-7",
					"quantity": 3,
					"product":  map[string]interface{}{"id": "p1", "name": "Widget", "price": 10},
				},
			},
		}))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	local := []entity.CartItem{
		{Product: entity.ProductSnapshot{ID: "p1", Price: 10}, Quantity: 2},
		{Product: entity.ProductSnapshot{ID: "p2", Price: 20}, Quantity: 1, Specifications: "blue"},
	}

	merged, err := client.Merge(context.Background(), local)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "srv-7", merged[0].ServerID)
	assert.Equal(t, 3, merged[0].Quantity)
}

func TestClient_Remove_TargetsServerItemID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/cart/remove/srv-4", r.URL.Path)
		w.Write(successEnvelope(t, map[string]interface{}{"items": []interface{}{}}))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	items, err := client.Remove(context.Background(), "srv-4")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClient_Clear(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/cart/clear", r.URL.Path)
		w.Write(successEnvelope(t, map[string]interface{}{}))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	assert.NoError(t, client.Clear(context.Background()))
}
