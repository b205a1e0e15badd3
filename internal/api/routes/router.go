package routes

import (
	"net/http"

	"github.com/cartillasalud/backend/internal/api/handlers"
	"github.com/cartillasalud/backend/internal/api/middleware"
	"github.com/cartillasalud/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	directoryHandler *handlers.DirectoryHandler
	providerHandler  *handlers.ProviderHandler
	catalogHandler   *handlers.CatalogHandler
	importHandler    *handlers.ImportHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	directoryHandler *handlers.DirectoryHandler,
	providerHandler *handlers.ProviderHandler,
	catalogHandler *handlers.CatalogHandler,
	importHandler *handlers.ImportHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		directoryHandler: directoryHandler,
		providerHandler:  providerHandler,
		catalogHandler:   catalogHandler,
		importHandler:    importHandler,

		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Directory endpoints
	r.mux.HandleFunc("GET /api/directory", r.directoryHandler.List)
	r.mux.HandleFunc("GET /api/directory/search", r.directoryHandler.Search)
	r.mux.HandleFunc("GET /api/directory/export", r.directoryHandler.Export)
	r.mux.HandleFunc("POST /api/directory/import", r.importHandler.Import)

	// Provider endpoints
	r.mux.HandleFunc("POST /api/providers", r.providerHandler.Create)
	r.mux.HandleFunc("GET /api/providers/{id}", r.providerHandler.Get)
	r.mux.HandleFunc("PATCH /api/providers/{id}", r.providerHandler.Update)
	r.mux.HandleFunc("POST /api/providers/{id}/toggle-status", r.providerHandler.ToggleStatus)
	r.mux.HandleFunc("PATCH /api/providers/status", r.providerHandler.SetStatusByName)
	r.mux.HandleFunc("DELETE /api/providers/{id}", r.providerHandler.Delete)

	// Catalog endpoints (plans, categories, specialties, provinces, localities)
	r.mux.HandleFunc("GET /api/catalog/{kind}", r.catalogHandler.List)
	r.mux.HandleFunc("POST /api/catalog/{kind}", r.catalogHandler.Create)
	r.mux.HandleFunc("GET /api/catalog/{kind}/{id}", r.catalogHandler.Get)
	r.mux.HandleFunc("PATCH /api/catalog/{kind}/{id}", r.catalogHandler.Update)
	r.mux.HandleFunc("POST /api/catalog/{kind}/{id}/toggle-status", r.catalogHandler.ToggleStatus)
	r.mux.HandleFunc("DELETE /api/catalog/{kind}/{id}", r.catalogHandler.Delete)

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so cached responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	if r.metrics != nil {
		handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	}
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	handler = middleware.CORSMiddleware(handler)

	return handler
}
