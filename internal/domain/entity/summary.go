package entity

const (
	DefaultFreeShippingThreshold = 1000.0
	DefaultShippingFee           = 50.0
)

// ShippingRule computes shipping cost as a pure function of the subtotal.
type ShippingRule struct {
	FreeThreshold float64
	Fee           float64
}

func DefaultShippingRule() ShippingRule {
	return ShippingRule{
		FreeThreshold: DefaultFreeShippingThreshold,
		Fee:           DefaultShippingFee,
	}
}

func (r ShippingRule) Cost(subtotal float64) float64 {
	if subtotal >= r.FreeThreshold {
		return 0
	}
	return r.Fee
}

// CartSummary is the single aggregate checkout and order flows consume.
// All figures are derived from the items at construction time.
type CartSummary struct {
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	Subtotal   float64    `json:"subtotal"`
	Shipping   float64    `json:"shipping"`
	Total      float64    `json:"total"`
}

func NewCartSummary(cart *Cart, rule ShippingRule) CartSummary {
	items := make([]CartItem, len(cart.Items))
	copy(items, cart.Items)

	subtotal := cart.Subtotal()
	shipping := rule.Cost(subtotal)

	return CartSummary{
		Items:      items,
		TotalItems: cart.TotalItems(),
		Subtotal:   subtotal,
		Shipping:   shipping,
		Total:      subtotal + shipping,
	}
}
