package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/styleshop/storefront/internal/api"
	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/services"
)

type productOptions struct {
	search     string
	category   string
	categories []string
	genders    []string
	sizes      []string
	colors     []string
	brands     []string
	minPrice   string
	maxPrice   string
	rating     float64
	sale       bool
	sort       string
	page       int
	limit      int
	asJSON     bool
}

var productFlags productOptions

// productsCmd lists the catalog with the same filters the API accepts
var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List catalog products",
	Example: `  storefront products --categories Camisetas,Pantalones --size M --sort price-low
  storefront products --category Zapatos --max-price 100 --json`,
	Args: cobra.NoArgs,
	RunE: runProducts,
}

func init() {
	f := productsCmd.Flags()
	f.StringVarP(&productFlags.search, "query", "q", "", "search product name and category")
	f.StringVar(&productFlags.category, "category", "", "category landing page")
	f.StringSliceVar(&productFlags.categories, "categories", nil, "filter by category")
	f.StringSliceVar(&productFlags.genders, "gender", nil, "filter by gender category")
	f.StringSliceVar(&productFlags.sizes, "size", nil, "filter by size")
	f.StringSliceVar(&productFlags.colors, "color", nil, "filter by color")
	f.StringSliceVar(&productFlags.brands, "brand", nil, "filter by brand")
	f.StringVar(&productFlags.minPrice, "min-price", "", "minimum price")
	f.StringVar(&productFlags.maxPrice, "max-price", "", "maximum price")
	f.Float64Var(&productFlags.rating, "rating", 0, "minimum rating")
	f.BoolVar(&productFlags.sale, "sale", false, "only products on sale")
	f.StringVar(&productFlags.sort, "sort", "", "featured, price-low, price-high, rating or newest")
	f.IntVar(&productFlags.page, "page", 1, "page number")
	f.IntVar(&productFlags.limit, "limit", 0, "page size")
	f.BoolVar(&productFlags.asJSON, "json", false, "print JSON instead of a table")
}

func runProducts(cmd *cobra.Command, args []string) error {
	store, err := loadCatalog()
	if err != nil {
		return err
	}
	m, err := metrics.New(noop.NewMeterProvider().Meter("storefront-cli"), cfg.OTELServiceName)
	if err != nil {
		return err
	}
	productService := services.NewProductService(store, m, logger, cfg.PageSize)

	req, err := api.ParseListRequest(productQuery(), store.DefaultCriteria().PriceRange)
	if err != nil {
		return err
	}
	req.Category = productFlags.category

	listing := productService.ListProducts(cmd.Context(), req)
	if productFlags.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}
	return printListing(cmd.OutOrStdout(), listing, cfg.Currency)
}

// productQuery encodes the flags as listing query parameters
func productQuery() url.Values {
	q := url.Values{}
	set := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	set("q", productFlags.search)
	set("minPrice", productFlags.minPrice)
	set("maxPrice", productFlags.maxPrice)
	set("sort", productFlags.sort)
	if productFlags.rating > 0 {
		q.Set("rating", strconv.FormatFloat(productFlags.rating, 'f', -1, 64))
	}
	if productFlags.sale {
		q.Set("sale", "true")
	}
	q.Set("page", strconv.Itoa(productFlags.page))
	if productFlags.limit > 0 {
		q.Set("limit", strconv.Itoa(productFlags.limit))
	}
	q["category"] = productFlags.categories
	q["gender"] = productFlags.genders
	q["size"] = productFlags.sizes
	q["color"] = productFlags.colors
	q["brand"] = productFlags.brands
	return q
}

func printListing(out io.Writer, listing services.ProductListing, currency string) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tRATING\tSIZES")
	for _, p := range listing.Items {
		price := p.Price.StringFixed(2)
		if p.IsOnSale {
			price += " (sale)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%.1f\t%s\n",
			p.ID, p.Name, p.Category, price, currency, p.Rating, strings.Join(p.Sizes, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "page %d of %d, %d products, sort %s\n",
		listing.Page.Page, listing.TotalPages, listing.TotalItems, listing.Sort)
	return err
}
