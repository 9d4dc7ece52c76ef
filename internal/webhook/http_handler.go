package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rpattn/fulfill/internal/domain"
	"github.com/rpattn/fulfill/internal/httpx"
)

// Handler exposes webhook management over HTTP.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler wraps the webhook service for HTTP.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// Register mounts the webhook routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/test", h.Test)
	})
}

type webhookRequest struct {
	URL       string `json:"url" validate:"required,url,max=500"`
	EventType string `json:"event_type" validate:"required,oneof=product.created product.updated product.deleted"`
	Enabled   *bool  `json:"enabled"`
}

func (h *Handler) decodeRequest(r *http.Request) (webhookRequest, error) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var enabled *bool
	if raw := r.URL.Query().Get("enabled"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid enabled filter")
			return
		}
		enabled = &value
	}

	webhooks, err := h.service.List(r.Context(), enabled)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "failed to list webhooks")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, webhooks)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	created, err := h.service.Create(r.Context(), req.URL, domain.EventType(req.EventType), enabled)
	if err != nil {
		if errors.Is(err, domain.ErrWebhookExists) {
			httpx.Error(w, http.StatusConflict, err.Error())
			return
		}
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid webhook id")
		return
	}

	hook, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "webhook not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, "failed to load webhook")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, hook)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid webhook id")
		return
	}

	req, err := h.decodeRequest(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	updated, err := h.service.Update(r.Context(), id, req.URL, domain.EventType(req.EventType), enabled)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			httpx.Error(w, http.StatusNotFound, "webhook not found")
		case errors.Is(err, domain.ErrWebhookExists):
			httpx.Error(w, http.StatusConflict, err.Error())
		default:
			httpx.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid webhook id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "webhook not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, "failed to delete webhook")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Test fires one synchronous sample delivery and reports the outcome.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid webhook id")
		return
	}

	result, err := h.service.Test(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "webhook not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, "failed to test webhook")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}
