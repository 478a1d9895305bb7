package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vrindex/internal/service"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *service.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Index reads.
	r.Get("/entries/*", h.GetEntry)
	r.Get("/serialize", h.Serialize)
	r.Get("/serialize/*", h.Serialize)
	r.Get("/structure", h.Structure)
	r.Get("/structure/*", h.Structure)

	// Selection.
	r.Get("/select", h.SelectByAttribute)
	r.Get("/nearest", h.GetByAttribute)
	r.Get("/types/{type}", h.SelectByType)
	r.Get("/keys", h.SelectByKey)

	// Index writes.
	r.Post("/entries", h.Apply)
	r.Post("/values", h.SetValue)
	r.Post("/state/push", h.PushState)
	r.Post("/state/pop", h.PopState)

	// Snapshots and the queue.
	r.Post("/snapshots", h.CreateSnapshot)
	r.Get("/snapshots", h.ListSnapshots)
	r.Get("/search", h.Search)
	r.Get("/queue", h.GetQueue)
	r.Post("/queue", h.Enqueue)
	r.Post("/queue/drain", h.DrainQueue)
	r.Post("/queue/apply", h.ApplyQueue)

	// Source files.
	r.Get("/sources", h.ListSources)
	r.Put("/sources/*", h.PutSource)
	r.Delete("/sources/*", h.DeleteSource)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
