package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/styleshop/storefront/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Products []productRecord `yaml:"products"`
}

// productRecord mirrors the YAML layout. Prices stay strings until they are
// parsed into exact decimals.
type productRecord struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Category       string   `yaml:"category"`
	GenderCategory string   `yaml:"gender_category"`
	Brand          string   `yaml:"brand"`
	Image          string   `yaml:"image"`
	Price          string   `yaml:"price"`
	OriginalPrice  string   `yaml:"original_price"`
	Rating         float64  `yaml:"rating"`
	ReviewCount    int      `yaml:"review_count"`
	Colors         []string `yaml:"colors"`
	Sizes          []string `yaml:"sizes"`
	IsNew          bool     `yaml:"is_new"`
	IsOnSale       bool     `yaml:"is_on_sale"`
}

// Default loads the catalog bundled with the binary.
func Default() (*Store, error) {
	return Parse(defaultCatalog)
}

// LoadFile loads a catalog from a YAML file on disk.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Store, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	products := make([]models.Product, 0, len(file.Products))
	for _, rec := range file.Products {
		p, err := rec.toProduct()
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", rec.ID, err)
		}
		products = append(products, p)
	}

	return NewStore(products)
}

func (r productRecord) toProduct() (models.Product, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return models.Product{}, fmt.Errorf("invalid price %q: %w", r.Price, err)
	}

	p := models.Product{
		ID:             r.ID,
		Name:           r.Name,
		Category:       r.Category,
		GenderCategory: r.GenderCategory,
		Brand:          r.Brand,
		Image:          r.Image,
		Price:          price,
		Rating:         r.Rating,
		ReviewCount:    r.ReviewCount,
		Colors:         r.Colors,
		Sizes:          r.Sizes,
		IsNew:          r.IsNew,
		IsOnSale:       r.IsOnSale,
	}
	if p.Colors == nil {
		p.Colors = []string{}
	}
	if p.Sizes == nil {
		p.Sizes = []string{}
	}

	if r.OriginalPrice != "" {
		op, err := decimal.NewFromString(r.OriginalPrice)
		if err != nil {
			return models.Product{}, fmt.Errorf("invalid original price %q: %w", r.OriginalPrice, err)
		}
		p.OriginalPrice = &op
	}

	return p, nil
}
