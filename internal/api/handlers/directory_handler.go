package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cartillasalud/backend/internal/application/services"
	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/repositories"
)

// DirectoryHandler serves the read side of the directory
type DirectoryHandler struct {
	service *services.DirectoryService
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(service *services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

func directoryFilterFromQuery(r *http.Request) repositories.DirectoryFilter {
	query := r.URL.Query()

	filter := repositories.DirectoryFilter{
		Provider:  query.Get("provider"),
		Plan:      query.Get("plan"),
		Specialty: query.Get("specialty"),
		Province:  query.Get("province"),
		Locality:  query.Get("locality"),
		Category:  query.Get("category"),
		Limit:     25,
		Offset:    0,
	}

	if raw := query.Get("status"); raw != "" {
		if status, ok := entities.ParseStatus(raw); ok {
			filter.Status = &status
		}
	}
	if raw := query.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	return filter
}

// List handles GET /api/directory
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), directoryFilterFromQuery(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// Search handles GET /api/directory/search
func (h *DirectoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Search(r.Context(), directoryFilterFromQuery(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// Export handles GET /api/directory/export. The response is a CSV download
// in the same format the import accepts.
func (h *DirectoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("directory-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.service.Export(r.Context(), w); err != nil {
		// Headers are already written; all we can do is drop the connection.
		http.Error(w, "export failed", http.StatusInternalServerError)
	}
}
