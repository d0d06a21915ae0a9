package domain

import "fmt"

// Variant narrows a product to a concrete purchasable unit.
type Variant struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

type CartItem struct {
	ProductID string   `json:"productId"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Quantity  int      `json:"quantity"`
	Variant   *Variant `json:"selectedVariant,omitempty"`
}

// ItemKey identifies a cart row. Two items with the same product but
// different variants are distinct rows.
type ItemKey string

func NewItemKey(productID string, v *Variant) ItemKey {
	if v == nil {
		return ItemKey(productID)
	}
	return ItemKey(fmt.Sprintf("%s|%s|%s", productID, v.Size, v.Color))
}

func (i CartItem) Key() ItemKey {
	return NewItemKey(i.ProductID, i.Variant)
}
