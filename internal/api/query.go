package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/styleshop/storefront/internal/catalog"
	"github.com/styleshop/storefront/internal/models"
	"github.com/styleshop/storefront/internal/services"
)

// Price bounds are plain decimals, at most maxPriceLen characters and no
// greater than maxPriceBound.
const maxPriceLen = 16

var maxPriceBound = decimal.New(1, 9)

// ParseListRequest reads the listing query parameters. Set-valued
// parameters may be repeated or comma separated. When only one price bound
// is given the other comes from bounds.
func ParseListRequest(q url.Values, bounds models.PriceRange) (services.ListRequest, error) {
	req := services.ListRequest{
		Query: catalog.Query{
			Search: strings.TrimSpace(q.Get("q")),
			Criteria: models.FilterCriteria{
				Categories:       multi(q, "category"),
				GenderCategories: multi(q, "gender"),
				Sizes:            multi(q, "size"),
				Colors:           multi(q, "color"),
				Brands:           multi(q, "brand"),
			},
		},
		Sort: catalog.SortOrder(q.Get("sort")),
	}

	var err error
	if req.Query.Criteria.PriceRange, err = priceRange(q, bounds); err != nil {
		return req, err
	}
	if req.Query.Criteria.Rating, err = floatParam(q, "rating"); err != nil {
		return req, err
	}
	if req.Query.Criteria.Rating < 0 || req.Query.Criteria.Rating > 5 {
		return req, fmt.Errorf("rating must be between 0 and 5")
	}
	if v := q.Get("sale"); v != "" {
		if req.Query.SaleOnly, err = strconv.ParseBool(v); err != nil {
			return req, fmt.Errorf("invalid sale: %q", v)
		}
	}
	if req.Page, err = intParam(q, "page"); err != nil {
		return req, err
	}
	if req.Limit, err = intParam(q, "limit"); err != nil {
		return req, err
	}
	return req, nil
}

func multi(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func priceRange(q url.Values, bounds models.PriceRange) (models.PriceRange, error) {
	minStr, maxStr := q.Get("minPrice"), q.Get("maxPrice")
	if minStr == "" && maxStr == "" {
		return models.PriceRange{}, nil
	}

	r := models.PriceRange{Min: decimal.Zero, Max: bounds.Max, Set: true}
	var err error
	if minStr != "" {
		if r.Min, err = priceParam("minPrice", minStr); err != nil {
			return r, err
		}
	}
	if maxStr != "" {
		if r.Max, err = priceParam("maxPrice", maxStr); err != nil {
			return r, err
		}
	}
	return r, nil
}

func priceParam(key, v string) (decimal.Decimal, error) {
	if len(v) > maxPriceLen || strings.ContainsAny(v, "eE") {
		return decimal.Zero, fmt.Errorf("invalid %s: %q", key, v)
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() || d.GreaterThan(maxPriceBound) {
		return decimal.Zero, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func intParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func floatParam(q url.Values, key string) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}
