package ocr_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arabic-corpus/ingest-pipeline/internal/ocr"
)

var _ = Describe("paddle http provider", func() {
	It("decodes a successful response", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/octet-stream"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"engineVersion":"2.7","avgConfidence":0.93,"lines":[{"text":"سطر اول","confidence":0.93}]}`))
		}))
		defer server.Close()

		provider := ocr.NewPaddleHTTPProvider(server.URL)
		result, err := provider.ProcessPage(context.TODO(), []byte{0x01})
		Expect(err).To(BeNil())
		Expect(result.Engine).To(Equal("paddle-http"))
		Expect(result.EngineVersion).To(Equal("2.7"))
		Expect(result.AvgConfidence).To(BeNumerically("~", 0.93, 0.0001))
		Expect(result.Lines).To(HaveLen(1))
		Expect(result.RawPayload).ToNot(BeEmpty())
	})

	It("wraps a non-200 response in a ProviderError", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		provider := ocr.NewPaddleHTTPProvider(server.URL)
		_, err := provider.ProcessPage(context.TODO(), nil)
		var providerErr *ocr.ProviderError
		Expect(err).To(BeAssignableToTypeOf(providerErr))
	})

	It("fails without an endpoint", func() {
		provider := ocr.NewPaddleHTTPProvider("")
		_, err := provider.ProcessPage(context.TODO(), nil)
		Expect(err).ToNot(BeNil())
	})
})
