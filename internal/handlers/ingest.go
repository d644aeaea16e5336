// Package handlers exposes the ingestion HTTP surface: job creation and job
// status reads. Everything else about the corpus (books, pages, passages,
// search) lives in its own services.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	api "github.com/arabic-corpus/ingest-pipeline/api/v1alpha1"
	"github.com/arabic-corpus/ingest-pipeline/internal/handlers/mappers"
	"github.com/arabic-corpus/ingest-pipeline/internal/service"
	"github.com/arabic-corpus/ingest-pipeline/pkg/log"
	"github.com/arabic-corpus/ingest-pipeline/pkg/requestid"
)

const createdByHeader = "x-created-by"

type IngestHandler struct {
	service *service.IngestService
}

func NewIngestHandler(service *service.IngestService) *IngestHandler {
	return &IngestHandler{service: service}
}

func (h *IngestHandler) Routes(r chi.Router) {
	r.Post("/ingest/jobs", h.CreateJob)
	r.Get("/ingest/jobs/{id}", h.GetJob)
}

func (h *IngestHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("ingest_handler").WithContext(ctx).Operation("create_ingest_job").Build()

	var body api.IngestJobCreate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeServiceError(w, r, logger, service.NewErrInvalidRequest("invalid body"), "")
		return
	}

	editionID, err := uuid.Parse(body.EditionId)
	if err != nil {
		writeServiceError(w, r, logger, service.NewErrInvalidRequest("editionId must be a valid UUID"), "")
		return
	}

	createdBy := r.Header.Get(createdByHeader)
	if createdBy == "" {
		createdBy = "api"
	}

	job, err := h.service.CreateJob(ctx, editionID, createdBy)
	if err != nil {
		writeServiceError(w, r, logger, err, "failed to create ingest job")
		return
	}

	logger.Success().WithString("job_id", job.ID.String()).Log()
	writeJSON(w, http.StatusCreated, mappers.IngestJobToApi(job, nil))
}

func (h *IngestHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("ingest_handler").WithContext(ctx).Operation("get_ingest_job").Build()

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, logger, service.NewErrInvalidRequest("job id must be a valid UUID"), "")
		return
	}

	job, stages, err := h.service.GetJob(ctx, jobID)
	if err != nil {
		writeServiceError(w, r, logger, err, "failed to get ingest job")
		return
	}

	writeJSON(w, http.StatusOK, mappers.IngestJobToApi(job, stages))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, api.Error{
		Message:   message,
		RequestId: requestid.FromContextPtr(r.Context()),
	})
}

// writeServiceError maps service error types onto HTTP statuses. Anything
// unrecognized is logged and reported with the fallback message so internals
// never leak into responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *log.OperationTracer, err error, fallback string) {
	switch err.(type) {
	case *service.ErrInvalidRequest:
		writeError(w, r, http.StatusBadRequest, err.Error())
	case *service.ErrResourceNotFound:
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		logger.Error(err).Log()
		writeError(w, r, http.StatusInternalServerError, fallback)
	}
}
