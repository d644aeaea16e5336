package ocr

import (
	"context"

	"go.uber.org/zap"
)

// DefaultMinConfidence is the confidence bar a result must meet for the
// fallback chain to stop trying further providers.
const DefaultMinConfidence = 0.8

// FallbackChain tries providers in a fixed priority order, cheapest first,
// and accepts the first result meeting the confidence bar. When no provider
// reaches the bar the last non-error result is returned best-effort.
type FallbackChain struct {
	providers     []Provider
	minConfidence float64
}

func NewFallbackChain(minConfidence float64, providers ...Provider) *FallbackChain {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &FallbackChain{
		providers:     providers,
		minConfidence: minConfidence,
	}
}

func (c *FallbackChain) Providers() []Provider {
	return c.providers
}

// ProcessPage runs the chain for one page image. A provider failure is
// recovered locally by moving on; only an empty chain or all providers
// failing surfaces ErrNoResult.
func (c *FallbackChain) ProcessPage(ctx context.Context, image []byte) (*PageResult, error) {
	logger := zap.S().Named("ocr")

	var lastResult *PageResult
	for _, provider := range c.providers {
		result, err := provider.ProcessPage(ctx, image)
		if err != nil {
			logger.Warnw("ocr provider failed, trying next",
				"provider", provider.Name(), "error", err)
			continue
		}

		lastResult = result
		if result.AvgConfidence >= c.minConfidence {
			return result, nil
		}

		logger.Debugw("ocr confidence below bar, falling back",
			"provider", provider.Name(),
			"confidence", result.AvgConfidence,
			"min_confidence", c.minConfidence)
	}

	if lastResult == nil {
		return nil, ErrNoResult
	}
	return lastResult, nil
}
