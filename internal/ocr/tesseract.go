package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

const tesseractEngineVersion = "tesseract-5"

// TesseractProvider runs OCR locally through the gosseract binding. It is
// the cheapest backend in the chain and therefore tried first by default.
type TesseractProvider struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

func NewTesseractProvider(languages ...string) *TesseractProvider {
	return &TesseractProvider{
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}
}

func (p *TesseractProvider) Name() string {
	return "tesseract"
}

func (p *TesseractProvider) ProcessPage(ctx context.Context, image []byte) (*PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}

	client := p.clientFactory()
	defer client.Close()

	if len(p.languages) > 0 {
		if err := client.SetLanguage(p.languages...); err != nil {
			return nil, &ProviderError{Provider: p.Name(), Err: err}
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}

	lineBoxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}

	lines := make([]Line, 0, len(lineBoxes))
	var confidenceSum float64
	for _, b := range lineBoxes {
		confidence := b.Confidence / 100.0
		confidenceSum += confidence
		lines = append(lines, Line{
			Text:       strings.TrimSpace(b.Word),
			Confidence: confidence,
			Bbox: BoundingBox{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
		})
	}

	avgConfidence := 0.0
	if len(lines) > 0 {
		avgConfidence = confidenceSum / float64(len(lines))
	}

	return &PageResult{
		Engine:        p.Name(),
		EngineVersion: tesseractEngineVersion,
		AvgConfidence: avgConfidence,
		Lines:         lines,
	}, nil
}
