package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/arabic-corpus/ingest-pipeline/pkg/requestid"
)

// RequestID takes the request id from the x-request-id header, falling back
// to chi's generated id or a fresh UUID, and injects it into the request
// context so the service layer can correlate log lines.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("x-request-id")

		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = requestid.Generate()
		}

		ctx := requestid.ToContext(r.Context(), requestID)
		w.Header().Set("x-request-id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
