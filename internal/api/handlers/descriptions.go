package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-extractor/internal/api/middleware"
	"github.com/dvloznov/statement-extractor/internal/learning"
)

// DescriptionStore is the learned-description table. learning.Store
// implements it.
type DescriptionStore interface {
	All() []learning.Entry
	Stats() learning.Stats
	Categories() []string
	FindSimilarStore(name string) (learning.Match, bool)
	CreateManualStore(ctx context.Context, store, description, category string) error
	UpdateDescription(ctx context.Context, store, description, category string) error
	DeleteDescription(ctx context.Context, store string) error
	Clear(ctx context.Context) error
}

// DescriptionsHandler manages learned store descriptions.
type DescriptionsHandler struct {
	store DescriptionStore
	log   zerolog.Logger
}

// NewDescriptionsHandler creates a new descriptions handler.
func NewDescriptionsHandler(store DescriptionStore, log zerolog.Logger) *DescriptionsHandler {
	return &DescriptionsHandler{
		store: store,
		log:   log,
	}
}

type descriptionRequest struct {
	Store       string `json:"store"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ListDescriptions handles GET /api/descriptions
func (h *DescriptionsHandler) ListDescriptions(w http.ResponseWriter, r *http.Request) {
	entries := h.store.All()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"descriptions": entries,
		"count":        len(entries),
	})
}

// CreateDescription handles POST /api/descriptions
func (h *DescriptionsHandler) CreateDescription(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}

	err := h.store.CreateManualStore(r.Context(), req.Store, req.Description, req.Category)
	switch {
	case err == nil:
	case errors.Is(err, learning.ErrEmptyStore):
		middleware.WriteError(w, http.StatusBadRequest, "store is required")
		return
	case errors.Is(err, learning.ErrDuplicateStore):
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	default:
		h.log.Error().Err(err).Str("store", req.Store).Msg("Failed to create store")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create store")
		return
	}

	m, _ := h.store.FindSimilarStore(req.Store)
	middleware.WriteJSON(w, http.StatusCreated, m)
}

// UpdateDescription handles PUT /api/descriptions/{store}
func (h *DescriptionsHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	store := r.PathValue("store")

	var req descriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.UpdateDescription(r.Context(), store, req.Description, req.Category); err != nil {
		h.writeStoreError(w, err, store, "Failed to update store")
		return
	}

	m, _ := h.store.FindSimilarStore(store)
	middleware.WriteJSON(w, http.StatusOK, m)
}

// DeleteDescription handles DELETE /api/descriptions/{store}
func (h *DescriptionsHandler) DeleteDescription(w http.ResponseWriter, r *http.Request) {
	store := r.PathValue("store")

	if err := h.store.DeleteDescription(r.Context(), store); err != nil {
		h.writeStoreError(w, err, store, "Failed to delete store")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearDescriptions handles DELETE /api/descriptions
func (h *DescriptionsHandler) ClearDescriptions(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Failed to clear descriptions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to clear descriptions")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/descriptions/stats
func (h *DescriptionsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Stats())
}

// Categories handles GET /api/descriptions/categories
func (h *DescriptionsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := h.store.Categories()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// FindSimilar handles GET /api/descriptions/similar?q=
func (h *DescriptionsHandler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		middleware.WriteError(w, http.StatusBadRequest, "q is required")
		return
	}

	m, ok := h.store.FindSimilarStore(q)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No similar store")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, m)
}

func (h *DescriptionsHandler) writeStoreError(w http.ResponseWriter, err error, store, msg string) {
	if errors.Is(err, learning.ErrStoreNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Store not found")
		return
	}
	h.log.Error().Err(err).Str("store", store).Msg(msg)
	middleware.WriteError(w, http.StatusInternalServerError, msg)
}
