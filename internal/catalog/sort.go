package catalog

import (
	"cmp"
	"slices"

	"github.com/styleshop/storefront/internal/models"
)

// SortOrder names a product ordering offered by listing pages.
type SortOrder string

const (
	SortFeatured  SortOrder = "featured"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortRating    SortOrder = "rating"
	SortNewest    SortOrder = "newest"
)

// ParseSort maps a query value to a SortOrder, falling back to featured.
func ParseSort(s string) SortOrder {
	switch o := SortOrder(s); o {
	case SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return o
	default:
		return SortFeatured
	}
}

// Sort returns a sorted copy of products. The sort is stable, so ties and
// the featured order keep catalog order.
func Sort(products []models.Product, order SortOrder) []models.Product {
	out := slices.Clone(products)

	switch order {
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b models.Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b models.Product) int { return b.Price.Cmp(a.Price) })
	case SortRating:
		slices.SortStableFunc(out, func(a, b models.Product) int { return cmp.Compare(b.Rating, a.Rating) })
	case SortNewest:
		slices.SortStableFunc(out, func(a, b models.Product) int { return boolRank(b.IsNew) - boolRank(a.IsNew) })
	}

	return out
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
