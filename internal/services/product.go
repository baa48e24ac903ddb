package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/catalog"
	"github.com/styleshop/storefront/internal/metrics"
	"github.com/styleshop/storefront/internal/models"
)

// MaxPageSize caps the limit a client may request.
const MaxPageSize = 100

// ListRequest describes one catalog listing. When Category is set the
// landing page rules apply and Query.Search and Query.SaleOnly are ignored.
type ListRequest struct {
	Query    catalog.Query
	Category string
	Sort     catalog.SortOrder
	Page     int
	Limit    int
}

// ProductListing is a page of products plus the filter panel badge count.
type ProductListing struct {
	catalog.Page[models.Product]
	Sort          catalog.SortOrder `json:"sort"`
	ActiveFilters int               `json:"active_filters"`
}

// ProductService handles product-related operations
type ProductService struct {
	catalog  *catalog.Store
	metrics  *metrics.AppMetrics
	logger   *zap.Logger
	pageSize int
}

// NewProductService creates a new product service
func NewProductService(store *catalog.Store, metrics *metrics.AppMetrics, logger *zap.Logger, pageSize int) *ProductService {
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	return &ProductService{
		catalog:  store,
		metrics:  metrics,
		logger:   logger,
		pageSize: pageSize,
	}
}

// ListProducts filters, sorts and paginates the catalog
func (s *ProductService) ListProducts(ctx context.Context, req ListRequest) ProductListing {
	products := s.catalog.All()

	var matched []models.Product
	if req.Category != "" {
		matched = catalog.FilterCategory(products, req.Category, req.Query.Criteria)
	} else {
		matched = catalog.Filter(products, req.Query)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	order := catalog.ParseSort(string(req.Sort))
	page := catalog.Paginate(catalog.Sort(matched, order), req.Page, limit)

	s.metrics.SearchResults.Record(ctx, int64(len(matched)), metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Bool("category_landing", req.Category != ""),
		attribute.Bool("has_search", req.Query.Search != ""),
	})...))
	s.logger.Debug("products listed",
		zap.String("category", req.Category),
		zap.String("search", req.Query.Search),
		zap.Int("matched", len(matched)),
		zap.Int("page", page.Page),
	)

	return ProductListing{
		Page:          page,
		Sort:          order,
		ActiveFilters: catalog.ActiveFilterCount(req.Query.Criteria, s.catalog.DefaultCriteria().PriceRange),
	}
}

// GetProduct returns a product by ID and records the view
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.catalog.Get(id)
	if err != nil {
		return nil, fmt.Errorf("product %q: %w", id, err)
	}

	viewAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("product_id", id),
		attribute.String("product_category", p.Category),
	})
	s.metrics.ProductsViewed.Add(ctx, 1, metric.WithAttributes(viewAttrs...))

	return &p, nil
}

// Filters returns the values the filter panel can offer
func (s *ProductService) Filters() models.FilterMetadata {
	return s.catalog.Metadata()
}
