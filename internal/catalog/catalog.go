// Package catalog holds the immutable product catalog together with the pure
// functions that browse it: filtering, sorting and pagination.
package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/styleshop/storefront/internal/models"
)

// ErrProductNotFound is returned when an id is not in the catalog.
var ErrProductNotFound = errors.New("product not found")

// Store is an ordered, read-only set of products. Every accessor hands out
// copies so callers can never mutate the catalog.
type Store struct {
	products []models.Product
	index    map[string]int
	maxPrice decimal.Decimal
}

// NewStore validates products and builds a store that keeps their order.
func NewStore(products []models.Product) (*Store, error) {
	s := &Store{
		products: make([]models.Product, 0, len(products)),
		index:    make(map[string]int, len(products)),
	}

	for i, p := range products {
		if err := validateProduct(p); err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if _, dup := s.index[p.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, p.ID)
		}
		s.index[p.ID] = len(s.products)
		s.products = append(s.products, p.Clone())
		if p.Price.GreaterThan(s.maxPrice) {
			s.maxPrice = p.Price
		}
	}

	return s, nil
}

func validateProduct(p models.Product) error {
	switch {
	case p.ID == "":
		return errors.New("missing id")
	case p.Name == "":
		return errors.New("missing name")
	case !p.Price.IsPositive():
		return fmt.Errorf("price must be positive, got %s", p.Price)
	case p.OriginalPrice != nil && p.OriginalPrice.LessThan(p.Price):
		return fmt.Errorf("original price %s is below price %s", p.OriginalPrice, p.Price)
	case p.Rating < 0 || p.Rating > 5:
		return fmt.Errorf("rating %.1f outside [0,5]", p.Rating)
	case p.ReviewCount < 0:
		return fmt.Errorf("negative review count %d", p.ReviewCount)
	}
	return nil
}

// All returns every product in catalog order.
func (s *Store) All() []models.Product {
	out := make([]models.Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.Clone()
	}
	return out
}

// Get returns the product with the given id.
func (s *Store) Get(id string) (models.Product, error) {
	i, ok := s.index[id]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return s.products[i].Clone(), nil
}

// Len returns the number of products.
func (s *Store) Len() int {
	return len(s.products)
}

// MaxPrice returns the highest product price in the catalog.
func (s *Store) MaxPrice() decimal.Decimal {
	return s.maxPrice
}

// DefaultCriteria is the canonical cleared filter state: every set empty,
// no rating threshold and a price range spanning the whole catalog.
func (s *Store) DefaultCriteria() models.FilterCriteria {
	return models.FilterCriteria{
		PriceRange: models.PriceRange{Min: decimal.Zero, Max: s.maxPrice},
	}
}

// Metadata lists the distinct filter values in order of first appearance.
func (s *Store) Metadata() models.FilterMetadata {
	var categories, genders, sizes, colors, brands distinct
	for _, p := range s.products {
		categories.add(p.Category)
		genders.add(p.GenderCategory)
		brands.add(p.Brand)
		for _, size := range p.Sizes {
			sizes.add(size)
		}
		for _, c := range p.Colors {
			colors.add(c)
		}
	}

	return models.FilterMetadata{
		Categories:       categories.values,
		GenderCategories: genders.values,
		Sizes:            sizes.values,
		Colors:           colors.values,
		Brands:           brands.values,
		MaxPrice:         s.maxPrice,
		Defaults:         s.DefaultCriteria(),
	}
}

type distinct struct {
	seen   map[string]struct{}
	values []string
}

func (d *distinct) add(v string) {
	if v == "" {
		return
	}
	if d.seen == nil {
		d.seen = make(map[string]struct{})
		d.values = []string{}
	}
	if _, ok := d.seen[v]; ok {
		return
	}
	d.seen[v] = struct{}{}
	d.values = append(d.values, v)
}
