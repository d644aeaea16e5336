package ingest_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arabic-corpus/ingest-pipeline/internal/ingest"
	"github.com/arabic-corpus/ingest-pipeline/internal/ocr"
)

// fixedProvider always returns the same lines at the same confidence.
type fixedProvider struct {
	confidence float64
	lines      []string
}

func (p *fixedProvider) Name() string { return "fixed" }

func (p *fixedProvider) ProcessPage(ctx context.Context, image []byte) (*ocr.PageResult, error) {
	result := &ocr.PageResult{Engine: p.Name(), AvgConfidence: p.confidence}
	for _, line := range p.lines {
		result.Lines = append(result.Lines, ocr.Line{Text: line, Confidence: p.confidence})
	}
	return result, nil
}

var _ = Describe("default handlers", func() {
	var (
		registry *ingest.HandlerRegistry
		sink     *ingest.MemoryLineSink
		input    ingest.StageInput
	)

	BeforeEach(func() {
		chain := ocr.NewFallbackChain(0.8, &fixedProvider{
			confidence: 0.9,
			lines:      []string{"قَالَ المُؤَلِّفُ", "فِي البَابِ الأَوَّلِ"},
		})
		sink = ingest.NewMemoryLineSink()
		registry = ingest.NewDefaultHandlers(chain, ingest.NoopPageImageSource{}, sink)
		input = ingest.StageInput{
			JobID:     uuid.New(),
			EditionID: uuid.New(),
			PageID:    uuid.New(),
		}
	})

	It("registers a handler for every pipeline stage", func() {
		for _, stage := range ingest.Stages() {
			handler, err := registry.Handler(stage)
			Expect(err).To(BeNil())
			Expect(handler).ToNot(BeNil())
		}
	})

	It("rejects an unknown stage before looking for a handler", func() {
		_, err := registry.Handler(ingest.Stage("mystery"))
		var unknownErr *ingest.UnknownStageError
		Expect(err).To(BeAssignableToTypeOf(unknownErr))
	})

	It("stores OCR lines for the page", func() {
		handler, err := registry.Handler(ingest.StageRunOcr)
		Expect(err).To(BeNil())
		Expect(handler(context.TODO(), input)).To(BeNil())

		lines, err := sink.Lines(context.TODO(), input.JobID, input.PageID)
		Expect(err).To(BeNil())
		Expect(lines).To(HaveLen(2))
	})

	It("normalizes stored lines in place", func() {
		runOcr, err := registry.Handler(ingest.StageRunOcr)
		Expect(err).To(BeNil())
		Expect(runOcr(context.TODO(), input)).To(BeNil())

		normalize, err := registry.Handler(ingest.StageNormalizeLines)
		Expect(err).To(BeNil())
		Expect(normalize(context.TODO(), input)).To(BeNil())

		lines, err := sink.Lines(context.TODO(), input.JobID, input.PageID)
		Expect(err).To(BeNil())
		Expect(lines).To(Equal([]string{"قال المولف", "في الباب الاول"}))
	})

	It("tokenizes normalized lines", func() {
		runOcr, err := registry.Handler(ingest.StageRunOcr)
		Expect(err).To(BeNil())
		Expect(runOcr(context.TODO(), input)).To(BeNil())

		tokenize, err := registry.Handler(ingest.StageTokenizePassages)
		Expect(err).To(BeNil())
		Expect(tokenize(context.TODO(), input)).To(BeNil())

		tokens := sink.Tokens(input.JobID, input.PageID)
		Expect(tokens).To(HaveLen(2))
		Expect(tokens[0]).To(Equal([]string{"قال", "المولف"}))
		Expect(tokens[1]).To(Equal([]string{"في", "الباب", "الاول"}))
	})
})
