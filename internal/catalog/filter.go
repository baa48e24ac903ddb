package catalog

import (
	"slices"
	"strings"

	"github.com/styleshop/storefront/internal/models"
	"golang.org/x/text/cases"
)

// Landing page names with special meaning for FilterCategory.
const (
	CategoryAll  = "Todos"
	CategorySale = "Sale"
)

// GenderLandings are the landing pages that filter on gender category.
var GenderLandings = []string{"Mujer", "Hombre", "Niños"}

// Query is the full input of the product filter. SaleOnly sits outside the
// criteria because the offers view toggles it independently.
type Query struct {
	Criteria models.FilterCriteria
	Search   string
	SaleOnly bool
}

// Filter returns the products matching every dimension of q, in input order.
// Within a dimension any listed value matches.
func Filter(products []models.Product, q Query) []models.Product {
	needle := fold(q.Search)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if matchesSearch(p, needle) &&
			matchesCriteria(p, q.Criteria) &&
			(!q.SaleOnly || p.IsOnSale) {
			out = append(out, p)
		}
	}
	return out
}

// FilterCategory serves the category landing pages. "Sale" keeps products on
// sale and ignores the price and rating filters; "Todos" keeps everything;
// gender landings match genderCategory with the Unisex rule; any other name
// is compared to the product category.
func FilterCategory(products []models.Product, category string, c models.FilterCriteria) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if category == CategorySale {
			if p.IsOnSale {
				out = append(out, p)
			}
			continue
		}

		var ok bool
		switch {
		case slices.Contains(GenderLandings, category):
			ok = p.GenderCategory == category || p.GenderCategory == models.GenderUnisex
		case category == CategoryAll:
			ok = true
		default:
			ok = p.Category == category
		}

		if ok && matchesPrice(p, c.PriceRange) && matchesRating(p, c.Rating) {
			out = append(out, p)
		}
	}
	return out
}

// ActiveFilterCount counts active dimensions the way the filter panel badge
// does: one per selected value, one for a rating threshold and one for a
// price range narrower than [0, maxPrice].
func ActiveFilterCount(c models.FilterCriteria, defaults models.PriceRange) int {
	n := len(c.Categories) + len(c.GenderCategories) + len(c.Sizes) + len(c.Colors) + len(c.Brands)
	if c.Rating > 0 {
		n++
	}
	if !c.PriceRange.IsZero() &&
		(c.PriceRange.Min.GreaterThan(defaults.Min) || c.PriceRange.Max.LessThan(defaults.Max)) {
		n++
	}
	return n
}

func matchesCriteria(p models.Product, c models.FilterCriteria) bool {
	return matchesAny(p.Category, c.Categories) &&
		matchesGender(p, c.GenderCategories) &&
		matchesPrice(p, c.PriceRange) &&
		matchesRating(p, c.Rating) &&
		overlaps(p.Sizes, c.Sizes, false) &&
		overlaps(p.Colors, c.Colors, true) &&
		matchesAny(p.Brand, c.Brands)
}

func matchesSearch(p models.Product, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(fold(p.Name), needle) || strings.Contains(fold(p.Category), needle)
}

func matchesAny(value string, set []string) bool {
	return len(set) == 0 || slices.Contains(set, value)
}

func matchesGender(p models.Product, set []string) bool {
	if len(set) == 0 || p.GenderCategory == models.GenderUnisex {
		return true
	}
	return slices.Contains(set, p.GenderCategory)
}

func matchesPrice(p models.Product, r models.PriceRange) bool {
	return r.IsZero() || r.Contains(p.Price)
}

func matchesRating(p models.Product, min float64) bool {
	return min == 0 || p.Rating >= min
}

// overlaps reports whether any of have is in want. Color tokens are hex
// codes, so they compare case-insensitively.
func overlaps(have, want []string, foldCase bool) bool {
	if len(want) == 0 {
		return true
	}
	for _, h := range have {
		for _, w := range want {
			if h == w || (foldCase && strings.EqualFold(h, w)) {
				return true
			}
		}
	}
	return false
}

func fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}
