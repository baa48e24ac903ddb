package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GenderUnisex is the gender category that matches every gender filter.
const GenderUnisex = "Unisex"

// Product represents a product in the catalog
type Product struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Category       string           `json:"category"`
	GenderCategory string           `json:"gender_category"`
	Brand          string           `json:"brand,omitempty"`
	Image          string           `json:"image,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	OriginalPrice  *decimal.Decimal `json:"original_price,omitempty"`
	Rating         float64          `json:"rating"`
	ReviewCount    int              `json:"review_count"`
	Colors         []string         `json:"colors"`
	Sizes          []string         `json:"sizes"`
	IsNew          bool             `json:"is_new"`
	IsOnSale       bool             `json:"is_on_sale"`
}

// Clone returns a copy that shares no slices or pointers with p.
func (p Product) Clone() Product {
	c := p
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		c.OriginalPrice = &op
	}
	if p.Colors != nil {
		c.Colors = append([]string(nil), p.Colors...)
	}
	if p.Sizes != nil {
		c.Sizes = append([]string(nil), p.Sizes...)
	}
	return c
}

// PriceRange is an inclusive price interval. The zero value means unset;
// Set marks a range chosen by the client even when both bounds are 0.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
	Set bool            `json:"-"`
}

// IsZero reports whether the range was left unset.
func (r PriceRange) IsZero() bool {
	return !r.Set && r.Min.IsZero() && r.Max.IsZero()
}

// Contains reports whether price lies within [Min, Max]. A range with
// Min > Max contains nothing.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Min) && price.LessThanOrEqual(r.Max)
}

// FilterCriteria holds the active filter dimensions. Empty sets and zero
// values disable their dimension.
type FilterCriteria struct {
	Categories       []string   `json:"categories,omitempty"`
	GenderCategories []string   `json:"gender_categories,omitempty"`
	PriceRange       PriceRange `json:"price_range"`
	Sizes            []string   `json:"sizes,omitempty"`
	Colors           []string   `json:"colors,omitempty"`
	Brands           []string   `json:"brands,omitempty"`
	Rating           float64    `json:"rating"`
}

// CartLine represents one (product, variant, quantity) entry in a cart
type CartLine struct {
	Product       Product `json:"product"`
	Quantity      int     `json:"quantity"`
	SelectedSize  string  `json:"selected_size,omitempty"`
	SelectedColor string  `json:"selected_color,omitempty"`
}

// Key returns the identity of the line.
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.Product.ID, Size: l.SelectedSize, Color: l.SelectedColor}
}

// LineTotal is price × quantity, unrounded.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey identifies a cart line: two lines are the same line iff all three
// fields are equal.
type LineKey struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Totals holds derived cart amounts. Values are kept at full precision;
// Rounded is applied only when presenting them.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Rounded returns a copy with every amount rounded to 2 decimal places.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: t.Subtotal.Round(2),
		Shipping: t.Shipping.Round(2),
		Tax:      t.Tax.Round(2),
		Total:    t.Total.Round(2),
	}
}

// ShippingInfo is the address entered in the first checkout step
type ShippingInfo struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// PaymentInfo is entered in the second checkout step. Card fields are only
// required when Method is "card".
type PaymentInfo struct {
	Method     string `json:"method"`
	CardNumber string `json:"card_number,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty"`
	CVV        string `json:"cvv,omitempty"`
	CardName   string `json:"card_name,omitempty"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order is an immutable snapshot taken when checkout is submitted
type Order struct {
	Number         string       `json:"number"`
	UserID         string       `json:"user_id,omitempty"`
	Status         string       `json:"status"`
	Lines          []CartLine   `json:"lines"`
	Shipping       ShippingInfo `json:"shipping"`
	ShippingMethod string       `json:"shipping_method"`
	PaymentMethod  string       `json:"payment_method"`
	CardLast4      string       `json:"card_last4,omitempty"`
	Totals         Totals       `json:"totals"`
	Currency       string       `json:"currency"`
	CreatedAt      time.Time    `json:"created_at"`
}

// User represents an authenticated account
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

// FilterMetadata describes the values the filter UI can offer
type FilterMetadata struct {
	Categories       []string        `json:"categories"`
	GenderCategories []string        `json:"gender_categories"`
	Sizes            []string        `json:"sizes"`
	Colors           []string        `json:"colors"`
	Brands           []string        `json:"brands"`
	MaxPrice         decimal.Decimal `json:"max_price"`
	Defaults         FilterCriteria  `json:"defaults"`
}

// CartResponse represents a cart with its lines and totals
type CartResponse struct {
	Lines     []CartLine `json:"lines"`
	ItemCount int        `json:"item_count"`
	Totals    Totals     `json:"totals"`
	Currency  string     `json:"currency"`
}

// AddToCartRequest represents a request to add an item to the cart
type AddToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// UpdateCartRequest sets the quantity of an existing line
type UpdateCartRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity"`
}

// RemoveFromCartRequest removes a line
type RemoveFromCartRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents an account registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AuthResponse is returned by login and register
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
