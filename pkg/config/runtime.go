package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/styleshop/storefront/internal/cart"
)

// Pricing returns the cart pricing constants.
func (c *Config) Pricing() cart.Pricing {
	return cart.Pricing{
		FlatShippingFee:       c.FlatShippingFee,
		FreeShippingThreshold: c.FreeShippingThreshold,
		TaxRate:               c.TaxRate,
	}
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	level, err := zapcore.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	config.Level = zap.NewAtomicLevelAt(level)

	if c.LogFormat == "console" {
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.String("service", c.OTELServiceName)), nil
}

// jwtSecretBytes is the size of a generated signing secret.
const jwtSecretBytes = 32

// EnsureJWTSecret fills an unset JWT_SECRET with random bytes and reports
// whether it did. Tokens signed with a generated secret stop validating
// when the process restarts.
func (c *Config) EnsureJWTSecret() (bool, error) {
	if strings.TrimSpace(c.JWTSecret) != "" {
		return false, nil
	}
	buf := make([]byte, jwtSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return false, fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	c.JWTSecret = hex.EncodeToString(buf)
	return true, nil
}
