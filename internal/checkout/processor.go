package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/styleshop/storefront/internal/models"
)

// Processor settles a submitted order and returns its order number.
type Processor interface {
	Process(ctx context.Context, order *models.Order) (string, error)
}

// SimulatedProcessor waits a fixed latency and then always succeeds. It
// stands in for a payment gateway.
type SimulatedProcessor struct {
	Latency time.Duration
	Prefix  string
	Now     func() time.Time
}

// NewSimulatedProcessor returns a processor with the given latency and
// order number prefix.
func NewSimulatedProcessor(latency time.Duration, prefix string) *SimulatedProcessor {
	return &SimulatedProcessor{Latency: latency, Prefix: prefix, Now: time.Now}
}

// Process blocks for the configured latency unless ctx ends first.
func (p *SimulatedProcessor) Process(ctx context.Context, _ *models.Order) (string, error) {
	if p.Latency > 0 {
		timer := time.NewTimer(p.Latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return OrderNumber(p.Prefix, now()), nil
}

// OrderNumber is prefix followed by the last six digits of t in Unix
// milliseconds, zero padded.
func OrderNumber(prefix string, t time.Time) string {
	return fmt.Sprintf("%s%06d", prefix, t.UnixMilli()%1_000_000)
}
