package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cartillasalud/backend/internal/application/services"
	"github.com/cartillasalud/backend/internal/domain/entities"
)

// CatalogHandler serves the catalog CRUD endpoints. One handler covers every
// kind; the kind comes from the URL path.
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func kindFromRequest(r *http.Request) entities.EntityKind {
	return entities.EntityKind(r.PathValue("kind"))
}

// List handles GET /api/catalog/{kind}
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context(), kindFromRequest(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// Get handles GET /api/catalog/{kind}/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "id is required")
		return
	}

	entry, err := h.service.Get(r.Context(), kindFromRequest(r), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// Create handles POST /api/catalog/{kind}
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CatalogInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.service.Create(r.Context(), kindFromRequest(r), input)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, entry)
}

// Update handles PATCH /api/catalog/{kind}/{id}
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "id is required")
		return
	}

	var input services.CatalogInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.service.Update(r.Context(), kindFromRequest(r), id, input)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// ToggleStatus handles POST /api/catalog/{kind}/{id}/toggle-status
func (h *CatalogHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "id is required")
		return
	}

	entry, err := h.service.ToggleStatus(r.Context(), kindFromRequest(r), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/catalog/{kind}/{id}
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.service.Delete(r.Context(), kindFromRequest(r), id); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
