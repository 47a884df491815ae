package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
)

const defaultRequestTimeout = 15 * time.Second

// ErrRequestFailed marks any cart API call that did not produce a trusted
// success envelope. Callers degrade to a local mutation when they see it.
var ErrRequestFailed = errors.New("cart api request failed")

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("cart api base URL is not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetSessionToken sets the bearer token attached to subsequent requests.
// An empty token clears it (logout).
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// envelope is the wire format every cart API response follows. Data is only
// trusted when Success is true; Message carries the failure reason otherwise.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

type wireProduct struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"original_price,omitempty"`
	Images        []string `json:"images,omitempty"`
	Icon          string   `json:"icon,omitempty"`
}

// wireCartItem is the server's item representation, nesting full product detail.
type wireCartItem struct {
	ID             string      `json:"id"`
	Product        wireProduct `json:"product"`
	Quantity       int         `json:"quantity"`
	Specifications string      `json:"specifications,omitempty"`
	AddedAt        time.Time   `json:"added_at"`
}

type wireCart struct {
	Items []wireCartItem `json:"items"`
}

type addItemRequest struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	Specifications string `json:"specifications"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type mergeItemRequest struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	Specifications string `json:"specifications"`
}

type mergeRequest struct {
	Items []mergeItemRequest `json:"localCartItems"`
}

func toEntityItems(cart wireCart) []entity.CartItem {
	items := make([]entity.CartItem, 0, len(cart.Items))
	for _, wi := range cart.Items {
		items = append(items, entity.CartItem{
			ServerID: wi.ID,
			Product: entity.ProductSnapshot{
				ID:            wi.Product.ID,
				Name:          wi.Product.Name,
				Price:         wi.Product.Price,
				OriginalPrice: wi.Product.OriginalPrice,
				Images:        wi.Product.Images,
				Icon:          wi.Product.Icon,
			},
			Quantity:       wi.Quantity,
			Specifications: wi.Specifications,
			AddedAt:        wi.AddedAt,
			SyncStatus:     entity.SyncStatusSynced,
		})
	}
	return items
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body for %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: failed to decode response envelope: %w", method, path, ErrRequestFailed)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("server returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s: %w", method, path, msg, ErrRequestFailed)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response data: %w", method, path, ErrRequestFailed)
		}
	}
	return nil
}

// Fetch returns the current server-held cart.
func (c *Client) Fetch(ctx context.Context) ([]entity.CartItem, error) {
	var cart wireCart
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	return toEntityItems(cart), nil
}

// Add adds a product to the server cart and returns the updated cart.
func (c *Client) Add(ctx context.Context, productID string, quantity int, specifications string) ([]entity.CartItem, error) {
	var cart wireCart
	req := addItemRequest{ProductID: productID, Quantity: quantity, Specifications: specifications}
	if err := c.do(ctx, http.MethodPost, "/cart/add", req, &cart); err != nil {
		return nil, err
	}
	return toEntityItems(cart), nil
}

// Remove deletes a server cart item and returns the updated cart.
func (c *Client) Remove(ctx context.Context, serverItemID string) ([]entity.CartItem, error) {
	var cart wireCart
	if err := c.do(ctx, http.MethodDelete, "/cart/remove/"+serverItemID, nil, &cart); err != nil {
		return nil, err
	}
	return toEntityItems(cart), nil
}

// Update changes a server cart item's quantity and returns the updated cart.
func (c *Client) Update(ctx context.Context, serverItemID string, quantity int) ([]entity.CartItem, error) {
	var cart wireCart
	if err := c.do(ctx, http.MethodPut, "/cart/update/"+serverItemID, updateItemRequest{Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return toEntityItems(cart), nil
}

// Clear empties the server cart.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart/clear", nil, nil)
}

// Merge sends locally held items so the server can fold them into its cart.
// The server is the authority on merge and dedup policy.
func (c *Client) Merge(ctx context.Context, items []entity.CartItem) ([]entity.CartItem, error) {
	req := mergeRequest{Items: make([]mergeItemRequest, 0, len(items))}
	for _, item := range items {
		req.Items = append(req.Items, mergeItemRequest{
			ProductID:      item.Product.ID,
			Quantity:       item.Quantity,
			Specifications: item.Specifications,
		})
	}

	var cart wireCart
	if err := c.do(ctx, http.MethodPost, "/cart/merge", req, &cart); err != nil {
		return nil, err
	}
	return toEntityItems(cart), nil
}
