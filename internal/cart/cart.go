// Package cart implements the shopping cart aggregate and its derived totals.
package cart

import (
	"errors"

	"github.com/styleshop/storefront/internal/models"
)

// ErrInvalidQuantity is returned when a line would be added with a
// non-positive quantity.
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// Cart is an ordered collection of lines. It is not safe for concurrent use;
// callers own a cart exclusively while mutating it.
type Cart struct {
	lines []models.CartLine
}

// New builds a cart from previously saved lines. Lines with a non-positive
// quantity are dropped and lines sharing a key are merged.
func New(lines ...models.CartLine) *Cart {
	c := &Cart{}
	for _, l := range lines {
		_ = c.AddLine(l.Product, l.Quantity, l.SelectedSize, l.SelectedColor)
	}
	return c
}

// AddLine adds quantity units of p in the given variant. A line with the same
// (product, size, color) absorbs the quantity; otherwise a new line is
// appended. The cart keeps its own copy of p.
func (c *Cart) AddLine(p models.Product, quantity int, size, color string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	key := models.LineKey{ProductID: p.ID, Size: size, Color: color}
	if i := c.find(key); i >= 0 {
		c.lines[i].Quantity += quantity
		return nil
	}

	c.lines = append(c.lines, models.CartLine{
		Product:       p.Clone(),
		Quantity:      quantity,
		SelectedSize:  size,
		SelectedColor: color,
	})
	return nil
}

// UpdateQuantity sets the quantity of the line identified by key. A quantity
// of zero or less removes the line. Unknown keys are ignored.
func (c *Cart) UpdateQuantity(key models.LineKey, quantity int) {
	if quantity <= 0 {
		c.RemoveLine(key)
		return
	}
	if i := c.find(key); i >= 0 {
		c.lines[i].Quantity = quantity
	}
}

// RemoveLine deletes the line identified by key if it exists.
func (c *Cart) RemoveLine(key models.LineKey) {
	if i := c.find(key); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []models.CartLine {
	out := make([]models.CartLine, len(c.lines))
	for i, l := range c.lines {
		l.Product = l.Product.Clone()
		out[i] = l
	}
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Units returns the total quantity across all lines.
func (c *Cart) Units() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Totals derives subtotal, shipping, tax and total under pricing. method
// overrides the threshold-based shipping fee when set.
func (c *Cart) Totals(pricing Pricing, method ShippingMethod) models.Totals {
	return pricing.Totals(c.lines, method)
}

func (c *Cart) find(key models.LineKey) int {
	for i, l := range c.lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}
