package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.AppPort)
	assert.False(t, cfg.DBEnabled)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 12, cfg.PageSize)
	assert.Equal(t, "SH", cfg.OrderNumberPrefix)
	assert.Equal(t, 3*time.Second, cfg.CheckoutLatency)
	assert.Equal(t, time.Second, cfg.AuthLatency)
	assert.Equal(t, "0.21", cfg.TaxRate.String())

	p := cfg.Pricing()
	assert.Equal(t, "15", p.FlatShippingFee.String())
	assert.Equal(t, "100", p.FreeShippingThreshold.String())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_ENABLED", "yes")
	t.Setenv("PAGE_SIZE", "24")
	t.Setenv("TAX_RATE", "0.10")
	t.Setenv("CHECKOUT_LATENCY", "250ms")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("OTEL_METRICS_ENABLED", "false")

	cfg := LoadConfig()
	assert.Equal(t, 9090, cfg.GetAppPortInt())
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, 24, cfg.PageSize)
	assert.True(t, cfg.TaxRate.Equal(cfg.Pricing().TaxRate))
	assert.Equal(t, "0.1", cfg.TaxRate.String())
	assert.Equal(t, 250*time.Millisecond, cfg.CheckoutLatency)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.False(t, cfg.OTELMetricsEnabled)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PAGE_SIZE", "twelve")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("FLAT_SHIPPING_FEE", "cheap")

	cfg := LoadConfig()
	assert.Equal(t, 12, cfg.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "15", cfg.FlatShippingFee.String())
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "shop"}
	assert.Equal(t, "u:p@tcp(db:3306)/shop?parseTime=true&charset=utf8mb4", cfg.GetDSN())
}

func TestNewLogger(t *testing.T) {
	logger, err := (&Config{LogLevel: "debug", LogFormat: "console"}).NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = (&Config{LogLevel: "loud"}).NewLogger()
	assert.Error(t, err)
}

func TestEnsureJWTSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	cfg := LoadConfig()
	assert.Empty(t, cfg.JWTSecret, "no built-in signing secret")

	generated, err := cfg.EnsureJWTSecret()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, cfg.JWTSecret, 2*jwtSecretBytes)

	first := cfg.JWTSecret
	generated, err = cfg.EnsureJWTSecret()
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, first, cfg.JWTSecret)

	other := &Config{}
	_, err = other.EnsureJWTSecret()
	require.NoError(t, err)
	assert.NotEqual(t, first, other.JWTSecret)
}

func TestEnsureJWTSecretKeepsConfigured(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "s3cr3t-from-env")

	cfg := LoadConfig()
	generated, err := cfg.EnsureJWTSecret()
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, "s3cr3t-from-env", cfg.JWTSecret)
}
