package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/styleshop/storefront/internal/models"
)

func product(id, category, gender, price string) models.Product {
	return models.Product{
		ID:             id,
		Name:           "Product " + id,
		Category:       category,
		GenderCategory: gender,
		Price:          decimal.RequireFromString(price),
		Rating:         4,
		Colors:         []string{"#000000"},
		Sizes:          []string{"M"},
	}
}

func TestDefaultCatalog(t *testing.T) {
	store, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 14, store.Len())
	assert.True(t, decimal.RequireFromString("199.99").Equal(store.MaxPrice()))

	all := store.All()
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, "14", all[len(all)-1].ID)

	p, err := store.Get("4")
	require.NoError(t, err)
	assert.Equal(t, "Chaqueta de Cuero", p.Name)
	require.NotNil(t, p.OriginalPrice)
	assert.Equal(t, "199.99", p.OriginalPrice.String())
	assert.True(t, p.IsOnSale)
}

func TestStoreGetNotFound(t *testing.T) {
	store, err := Default()
	require.NoError(t, err)

	_, err = store.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestStoreHandsOutCopies(t *testing.T) {
	store, err := NewStore([]models.Product{product("a", "Camisetas", "Mujer", "10")})
	require.NoError(t, err)

	all := store.All()
	all[0].Name = "mutated"
	all[0].Sizes[0] = "XXL"

	p, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Product a", p.Name)
	assert.Equal(t, []string{"M"}, p.Sizes)

	p.Colors[0] = "#FFFFFF"
	again, _ := store.Get("a")
	assert.Equal(t, []string{"#000000"}, again.Colors)
}

func TestNewStoreValidation(t *testing.T) {
	below := decimal.RequireFromString("5")

	tests := []struct {
		name   string
		mutate func(p *models.Product)
	}{
		{"missing id", func(p *models.Product) { p.ID = "" }},
		{"zero price", func(p *models.Product) { p.Price = decimal.Zero }},
		{"original below price", func(p *models.Product) { p.OriginalPrice = &below }},
		{"rating above five", func(p *models.Product) { p.Rating = 5.5 }},
		{"negative reviews", func(p *models.Product) { p.ReviewCount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := product("a", "Camisetas", "Mujer", "10")
			tt.mutate(&p)
			_, err := NewStore([]models.Product{p})
			assert.Error(t, err)
		})
	}

	_, err := NewStore([]models.Product{
		product("a", "Camisetas", "Mujer", "10"),
		product("a", "Camisetas", "Mujer", "12"),
	})
	assert.ErrorContains(t, err, "duplicate id")
}

func TestMetadata(t *testing.T) {
	store, err := NewStore([]models.Product{
		product("a", "Camisetas", "Mujer", "10"),
		product("b", "Zapatos", "Unisex", "30"),
		product("c", "Camisetas", "Hombre", "20"),
	})
	require.NoError(t, err)

	meta := store.Metadata()
	assert.Equal(t, []string{"Camisetas", "Zapatos"}, meta.Categories)
	assert.Equal(t, []string{"Mujer", "Unisex", "Hombre"}, meta.GenderCategories)
	assert.Equal(t, []string{"M"}, meta.Sizes)
	assert.Equal(t, "30", meta.MaxPrice.String())
	assert.Equal(t, "0", meta.Defaults.PriceRange.Min.String())
	assert.Equal(t, "30", meta.Defaults.PriceRange.Max.String())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := `products:
  - id: x1
    name: Gorra
    category: Accesorios
    gender_category: Unisex
    price: "12.50"
    rating: 3.9
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	store, err := LoadFile(path)
	require.NoError(t, err)
	p, err := store.Get("x1")
	require.NoError(t, err)
	assert.Equal(t, "12.5", p.Price.String())
	assert.Empty(t, p.Sizes)
	assert.NotNil(t, p.Sizes)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsBadPrice(t *testing.T) {
	_, err := Parse([]byte(`products:
  - id: x1
    name: Gorra
    price: "twelve"
`))
	assert.ErrorContains(t, err, "invalid price")
}
