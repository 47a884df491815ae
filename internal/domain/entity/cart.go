package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type SyncStatus string

const (
	SyncStatusSynced    SyncStatus = "synced"
	SyncStatusLocalOnly SyncStatus = "local-only"
)

type ProductSnapshot struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"original_price,omitempty"`
	Images        []string `json:"images,omitempty"`
	Icon          string   `json:"icon,omitempty"`
}

func (p ProductSnapshot) Validate() error {
	if p.ID == "" {
		return errors.New("product ID cannot be empty")
	}
	if p.Price < 0 {
		return errors.New("product price cannot be negative")
	}
	return nil
}

type CartItem struct {
	ID             string          `json:"id"`
	ServerID       string          `json:"server_id,omitempty"`
	Product        ProductSnapshot `json:"product"`
	Quantity       int             `json:"quantity"`
	Specifications string          `json:"specifications,omitempty"`
	AddedAt        time.Time       `json:"added_at"`
	SyncStatus     SyncStatus      `json:"sync_status"`
}

func NewCartItem(product ProductSnapshot, quantity int, specifications string, status SyncStatus) (*CartItem, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, errors.New("cart item quantity must be positive")
	}
	return &CartItem{
		ID:             uuid.NewString(),
		Product:        product,
		Quantity:       quantity,
		Specifications: specifications,
		AddedAt:        time.Now().UTC(),
		SyncStatus:     status,
	}, nil
}

type Cart struct {
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart() *Cart {
	return &Cart{
		Items:     make([]CartItem, 0),
		UpdatedAt: time.Now().UTC(),
	}
}

// GetLine looks up an item by product identity. Two lines for the same
// product with different specifications are distinct and never merged.
func (c *Cart) GetLine(productID, specifications string) (*CartItem, int) {
	for i, item := range c.Items {
		if item.Product.ID == productID && item.Specifications == specifications {
			return &c.Items[i], i
		}
	}
	return nil, -1
}

func (c *Cart) GetItem(itemID string) (*CartItem, int) {
	for i, item := range c.Items {
		if item.ID == itemID {
			return &c.Items[i], i
		}
	}
	return nil, -1
}

// AddItem increments the quantity of an existing line with the same product
// and specifications, or appends a new line.
func (c *Cart) AddItem(product ProductSnapshot, quantity int, specifications string, status SyncStatus) error {
	if quantity <= 0 {
		return errors.New("quantity to add must be positive")
	}

	line, _ := c.GetLine(product.ID, specifications)
	if line != nil {
		line.Quantity += quantity
		if status == SyncStatusLocalOnly {
			line.SyncStatus = SyncStatusLocalOnly
		}
	} else {
		newItem, err := NewCartItem(product, quantity, specifications, status)
		if err != nil {
			return err
		}
		c.Items = append(c.Items, *newItem)
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateItemQuantity sets the quantity of an item. A quantity of zero or
// less removes the line instead of storing a zero.
func (c *Cart) UpdateItemQuantity(itemID string, newQuantity int) error {
	item, index := c.GetItem(itemID)
	if item == nil {
		return errors.New("item not found in cart")
	}

	if newQuantity <= 0 {
		c.Items = append(c.Items[:index], c.Items[index+1:]...)
	} else {
		item.Quantity = newQuantity
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *Cart) RemoveItem(itemID string) error {
	_, index := c.GetItem(itemID)
	if index == -1 {
		return errors.New("item not found in cart to remove")
	}

	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *Cart) Clear() {
	c.Items = make([]CartItem, 0)
	c.UpdatedAt = time.Now().UTC()
}

// Replace adopts a canonical item list wholesale, preserving the local ID of
// any item that matches by server ID so UI keys stay stable across a sync.
func (c *Cart) Replace(items []CartItem) {
	byServerID := make(map[string]string, len(c.Items))
	for _, existing := range c.Items {
		if existing.ServerID != "" {
			byServerID[existing.ServerID] = existing.ID
		}
	}

	adopted := make([]CartItem, 0, len(items))
	for _, item := range items {
		if item.ServerID != "" {
			if localID, ok := byServerID[item.ServerID]; ok {
				item.ID = localID
			}
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		adopted = append(adopted, item)
	}
	c.Items = adopted
	c.UpdatedAt = time.Now().UTC()
}

// TotalItems is recomputed from the lines on every call, never stored.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Subtotal is recomputed from the lines on every call, never stored.
func (c *Cart) Subtotal() float64 {
	var subtotal float64
	for _, item := range c.Items {
		subtotal += item.Product.Price * float64(item.Quantity)
	}
	return subtotal
}

func (c *Cart) HasProduct(productID string) bool {
	for _, item := range c.Items {
		if item.Product.ID == productID {
			return true
		}
	}
	return false
}

// ProductQuantity sums quantities across all specification variants of a product.
func (c *Cart) ProductQuantity(productID string) int {
	total := 0
	for _, item := range c.Items {
		if item.Product.ID == productID {
			total += item.Quantity
		}
	}
	return total
}
