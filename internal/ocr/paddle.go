package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const paddleRequestTimeout = 2 * time.Minute

// PaddleHTTPProvider delegates OCR to a remote PaddleOCR-style service that
// accepts raw image bytes and answers with the recognized lines as JSON.
type PaddleHTTPProvider struct {
	endpoint string
	client   *http.Client
}

func NewPaddleHTTPProvider(endpoint string) *PaddleHTTPProvider {
	return &PaddleHTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: paddleRequestTimeout},
	}
}

func (p *PaddleHTTPProvider) Name() string {
	return "paddle-http"
}

func (p *PaddleHTTPProvider) ProcessPage(ctx context.Context, image []byte) (*PageResult, error) {
	if p.endpoint == "" {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no endpoint configured")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: p.Name(),
			Err:      fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body),
		}
	}

	var result PageResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("decoding response: %w", err)}
	}
	result.Engine = p.Name()
	result.RawPayload = body

	return &result, nil
}
