package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// BoundingBox locates a line or word on the page image, in pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Word struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Bbox       BoundingBox `json:"bbox"`
}

type Line struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Bbox       BoundingBox `json:"bbox"`
	Words      []Word      `json:"words"`
}

// PageResult is the outcome of running one OCR engine over one page image.
// It lives entirely within one stage execution and is never persisted or
// shared across tasks.
type PageResult struct {
	Engine        string          `json:"engine"`
	EngineVersion string          `json:"engineVersion"`
	AvgConfidence float64         `json:"avgConfidence"`
	Lines         []Line          `json:"lines"`
	RawPayload    json.RawMessage `json:"rawPayload,omitempty"`
}

// Provider is the capability one OCR backend exposes: turn page image bytes
// into a PageResult or fail with a *ProviderError.
type Provider interface {
	Name() string
	ProcessPage(ctx context.Context, image []byte) (*PageResult, error)
}

// ProviderError marks a single backend invocation failure (transport or
// processing). The fallback chain recovers from it by moving to the next
// provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ocr provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrNoResult is returned when the provider list is empty or every provider
// failed with none returning a usable result.
var ErrNoResult = errors.New("ocr providers returned no result")
