package ocr

import (
	"go.uber.org/zap"

	"github.com/arabic-corpus/ingest-pipeline/internal/config"
)

// ChainFromConfig builds the fallback chain in the configured priority
// order. Unrecognized provider names are skipped with a warning so a typo in
// the environment never silently drops the whole chain.
func ChainFromConfig(cfg *config.Config) *FallbackChain {
	providers := make([]Provider, 0, len(cfg.Service.Ocr.Providers))
	for _, name := range cfg.Service.Ocr.Providers {
		switch name {
		case "tesseract":
			providers = append(providers, NewTesseractProvider(cfg.Service.Ocr.TesseractLanguages...))
		case "paddle-http":
			if cfg.Service.Ocr.PaddleEndpoint == "" {
				zap.S().Named("ocr").Debugw("paddle-http provider skipped, no endpoint configured")
				continue
			}
			providers = append(providers, NewPaddleHTTPProvider(cfg.Service.Ocr.PaddleEndpoint))
		default:
			zap.S().Named("ocr").Warnw("unrecognized ocr provider, skipping", "provider", name)
		}
	}

	return NewFallbackChain(cfg.Service.Ocr.MinConfidence, providers...)
}
