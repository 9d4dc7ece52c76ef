package ingestion

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rpattn/fulfill/internal/domain"
	"github.com/rpattn/fulfill/internal/httpx"
)

// Handler exposes bulk import as HTTP endpoints: an upload that answers with
// a job id and a status endpoint to poll it.
type Handler struct {
	service       *Service
	maxUploadSize int64
}

// NewHandler wraps the ingestion service for HTTP.
func NewHandler(service *Service, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = 64 << 20
	}
	return &Handler{service: service, maxUploadSize: maxUploadSize}
}

// Register mounts the import routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/products/import", h.Upload)
	r.Get("/imports/{id}", h.JobStatus)
}

type jobResponse struct {
	domain.ImportJob
	Progress int `json:"progress"`
}

// Upload accepts a multipart file and answers 202 with the created job. The
// import itself runs in the background; poll the status endpoint.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid form data: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("file required: %v", err))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return
	}

	job, err := h.service.StartImport(r.Context(), header.Filename, payload)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, jobResponse{ImportJob: job, Progress: job.Progress()})
}

// JobStatus returns the persisted snapshot of one import job.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid import job id")
		return
	}

	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "import job not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, "failed to load import job")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, jobResponse{ImportJob: job, Progress: job.Progress()})
}
