package product

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

// Handler exposes product CRUD over HTTP.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler wraps the product service for HTTP.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// Register mounts the product routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

type productRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	SKU         string `json:"sku" validate:"required,min=1,max=255"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

func (h *Handler) decodeRequest(r *http.Request) (productRequest, error) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

type listResponse struct {
	Items  []domain.Product `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := domain.ProductFilter{
		SKU:         query.Get("sku"),
		Name:        query.Get("name"),
		Description: query.Get("description"),
	}
	if raw := query.Get("active"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid active filter")
			return
		}
		filter.Active = &value
	}

	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	products, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{Items: products, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), CreateInput{
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSKUConflict) {
			httpx.Error(w, http.StatusConflict, err.Error())
			return
		}
		httpx.Error(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "product not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	req, err := h.decodeRequest(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			httpx.Error(w, http.StatusNotFound, "product not found")
		case errors.Is(err, domain.ErrSKUConflict):
			httpx.Error(w, http.StatusConflict, err.Error())
		default:
			httpx.Error(w, http.StatusInternalServerError, "failed to update product")
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "product not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
