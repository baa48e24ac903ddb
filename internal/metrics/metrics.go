package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"

	"github.com/styleshop/storefront/pkg/config"
)

// AppMetrics holds all application metrics
type AppMetrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Database Metrics
	DBQueriesTotal  metric.Int64Counter
	DBQueryDuration metric.Float64Histogram

	// Business Metrics
	OrdersCreated       metric.Int64Counter
	RevenueTotal        metric.Float64Counter
	ProductsViewed      metric.Int64Counter
	SearchResults       metric.Int64Histogram
	CartItemsCount      metric.Int64Gauge
	CheckoutTransitions metric.Int64Counter
	ValidationFailures  metric.Int64Counter
	AuthAttempts        metric.Int64Counter

	// Application Metrics
	ActiveCartsCount metric.Int64Gauge
	SessionHits      metric.Int64Counter
	SessionMisses    metric.Int64Counter

	// Service name for adding to all metrics
	serviceName string
}

// ShutdownFunc flushes and stops the meter provider.
type ShutdownFunc func(context.Context) error

// InitMetrics sets up the OTLP/HTTP exporter and returns the instruments.
// When metrics are disabled the instruments come from a noop provider.
func InitMetrics(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*AppMetrics, ShutdownFunc, error) {
	if !cfg.OTELMetricsEnabled {
		logger.Info("metrics export disabled")
		m, err := New(noop.NewMeterProvider().Meter(cfg.OTELServiceName), cfg.OTELServiceName)
		return m, func(context.Context) error { return nil }, err
	}

	// Environment attributes first, explicit service attributes take precedence
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}
	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create explicit resource: %w", err)
	}
	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	// WithEndpoint expects host:port without a scheme
	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	headers := parseHeaders(cfg.OTELExporterOTLPHeaders)
	if len(headers) > 0 {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(headers))
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(cfg.OTELExportInterval),
	)
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(meterProvider)

	logger.Info("metrics exporter configured",
		zap.String("endpoint", cfg.OTELExporterOTLPEndpoint),
		zap.Bool("insecure", cfg.OTELExporterOTLPInsecure),
		zap.Int("headers", len(headers)),
		zap.Duration("interval", cfg.OTELExportInterval),
		zap.String("service_name", cfg.OTELServiceName),
	)

	m, err := New(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		_ = meterProvider.Shutdown(ctx)
		return nil, nil, err
	}
	return m, meterProvider.Shutdown, nil
}

// New creates every instrument from meter.
func New(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	// Latency buckets in milliseconds, up to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	m := &AppMetrics{serviceName: serviceName}
	var err error

	counter := func(name, desc, unit string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			err = fmt.Errorf("failed to create %s counter: %w", name, err)
		}
		return c
	}
	gauge := func(name, desc string) metric.Int64Gauge {
		if err != nil {
			return nil
		}
		var g metric.Int64Gauge
		g, err = meter.Int64Gauge(name, metric.WithDescription(desc), metric.WithUnit("1"))
		if err != nil {
			err = fmt.Errorf("failed to create %s gauge: %w", name, err)
		}
		return g
	}
	latency := func(name, desc string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("ms"),
			metric.WithExplicitBucketBoundaries(buckets...),
		)
		if err != nil {
			err = fmt.Errorf("failed to create %s histogram: %w", name, err)
		}
		return h
	}

	m.HTTPRequestsTotal = counter("http.server.request.count", "Total number of HTTP requests", "1")
	m.HTTPRequestsErrors = counter("http.server.request.error.count", "Total number of HTTP error requests", "1")
	m.HTTPRequestDuration = latency("http.server.request.duration", "HTTP request duration in milliseconds")

	m.DBQueriesTotal = counter("db.client.queries.count", "Total number of database queries", "1")
	m.DBQueryDuration = latency("db.client.queries.duration", "Database query duration in milliseconds")

	m.OrdersCreated = counter("orders_created_total", "Total number of orders created", "1")
	m.ProductsViewed = counter("products_viewed_total", "Total number of product views", "1")
	m.CheckoutTransitions = counter("checkout_transitions_total", "Checkout step transitions", "1")
	m.ValidationFailures = counter("checkout_validation_failures_total", "Checkout steps blocked by validation", "1")
	m.AuthAttempts = counter("auth_attempts_total", "Login and registration attempts", "1")
	m.CartItemsCount = gauge("cart_items_count", "Current number of lines in a cart")

	m.ActiveCartsCount = gauge("active_carts_count", "Number of live visitor sessions")
	m.SessionHits = counter("session_cache_hits_total", "Session lookups that found state", "1")
	m.SessionMisses = counter("session_cache_misses_total", "Session lookups that started fresh state", "1")

	if err != nil {
		return nil, err
	}

	m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue generated"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	m.SearchResults, err = meter.Int64Histogram(
		"catalog_search_results",
		metric.WithDescription("Number of products matched by a listing query"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 20, 50, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search results histogram: %w", err)
	}

	return m, nil
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordDBQuery records database query metrics including the SQL statement
func (m *AppMetrics) RecordDBQuery(ctx context.Context, operation, table, statement string, start time.Time, success bool) {
	duration := time.Since(start).Milliseconds()

	status := "success"
	if !success {
		status = "error"
	}

	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
		attribute.String("db.statement", statement),
		attribute.String("db.system", "mysql"),
		attribute.String("status", status),
	})

	m.DBQueriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.DBQueryDuration.Record(ctx, float64(duration), metric.WithAttributes(attrs...))
}

// RecordCheckoutStep counts a checkout transition attempt. A blocked attempt
// also counts as a validation failure.
func (m *AppMetrics) RecordCheckoutStep(ctx context.Context, from, to string, blocked bool) {
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("from_step", from),
		attribute.String("to_step", to),
		attribute.Bool("blocked", blocked),
	})
	m.CheckoutTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
	if blocked {
		m.ValidationFailures.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
			attribute.String("step", from),
		})...))
	}
}

// RecordAuth counts a login or registration attempt.
func (m *AppMetrics) RecordAuth(ctx context.Context, action string, success bool) {
	m.AuthAttempts.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("action", action),
		attribute.Bool("success", success),
	})...))
}

// parseHeaders parses header string in format "key1=value1,key2=value2"
// and returns a map of headers
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
