package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vrindex/internal/index"
	"github.com/starford/vrindex/internal/service"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardPath extracts everything after the route prefix. Supports encoded
// slashes from OpenAPI clients (e.g. MVR%2FDisplay).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// entryName turns the wildcard path into an index name. Without an ns query
// parameter the name is absolute; with one it is resolved from ns.
func entryName(r *http.Request) (name, ns string) {
	p := wildcardPath(r)
	ns = r.URL.Query().Get("ns")
	if ns == "" {
		if p == "" {
			return index.Root, index.Root
		}
		return "/" + p, index.Root
	}
	return p, ns
}

func boolParam(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

func intParam(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

func readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return "", false
	}
	if strings.TrimSpace(string(body)) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("body is required"))
		return "", false
	}
	return string(body), true
}

// GetEntry handles GET /api/entries/*.
//
//	@Summary		Look up one entry
//	@Tags			entries
//	@Produce		json
//	@Param			path	path		string	true	"Entry name"
//	@Param			ns		query		string	false	"Namespace to resolve a relative name from"
//	@Success		200		{object}	Entry
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{path} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	name, ns := entryName(r)
	if name == index.Root {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	e, err := h.svc.Lookup(r.Context(), name, ns)
	if err != nil {
		writeError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Serialize handles GET /api/serialize/*.
//
//	@Summary		Serialize an entry, or the whole index when no path is given
//	@Tags			entries
//	@Produce		xml
//	@Param			path	path		string	false	"Entry name"
//	@Param			ns		query		string	false	"Namespace to resolve a relative name from"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/serialize/{path} [get]
func (h *Handler) Serialize(w http.ResponseWriter, r *http.Request) {
	name, ns := entryName(r)
	text, err := h.svc.Serialize(r.Context(), name, ns)
	if err != nil {
		writeError(w, "serialize", err)
		return
	}
	writeText(w, http.StatusOK, "application/xml; charset=utf-8", text)
}

// Structure handles GET /api/structure/*.
//
//	@Summary		Print the entry tree
//	@Tags			entries
//	@Produce		plain
//	@Param			path	path		string	false	"Entry name"
//	@Param			limit	query		int		false	"Cut values longer than this"
//	@Success		200		{string}	string
//	@Security		BearerAuth
//	@Router			/structure/{path} [get]
func (h *Handler) Structure(w http.ResponseWriter, r *http.Request) {
	name, _ := entryName(r)
	writeText(w, http.StatusOK, "text/plain; charset=utf-8", h.svc.Structure(r.Context(), name, intParam(r, "limit")))
}

// SelectByAttribute handles GET /api/select.
//
//	@Summary		Select entries by attribute
//	@Tags			select
//	@Produce		json
//	@Param			attr	query		string	true	"Attribute name"
//	@Param			value	query		string	false	"Attribute value, * for any"
//	@Param			ns		query		string	false	"Namespace"
//	@Param			child	query		bool	false	"Direct children of ns only"
//	@Success		200		{object}	NamesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/select [get]
func (h *Handler) SelectByAttribute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	attr := q.Get("attr")
	if attr == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'attr' is required"))
		return
	}
	val := q.Get("value")
	if val == "" {
		val = index.Wildcard
	}
	names, err := h.svc.SelectByAttribute(r.Context(), attr, val, q.Get("ns"), boolParam(r, "child"))
	if err != nil {
		writeError(w, "select by attribute", err)
		return
	}
	writeJSON(w, http.StatusOK, NamesResponse{Names: nonNil(names)})
}

// GetByAttribute handles GET /api/nearest.
//
//	@Summary		Find the entry with an attribute nearest to a namespace
//	@Tags			select
//	@Produce		json
//	@Param			attr	query		string	true	"Attribute name"
//	@Param			value	query		string	false	"Attribute value, * for any"
//	@Param			ns		query		string	false	"Namespace"
//	@Success		200		{object}	NameResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nearest [get]
func (h *Handler) GetByAttribute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	attr := q.Get("attr")
	if attr == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'attr' is required"))
		return
	}
	val := q.Get("value")
	if val == "" {
		val = index.Wildcard
	}
	name, err := h.svc.GetByAttribute(r.Context(), attr, val, q.Get("ns"))
	if err != nil {
		writeError(w, "get by attribute", err)
		return
	}
	writeJSON(w, http.StatusOK, NameResponse{Name: name})
}

// SelectByType handles GET /api/types/{type}.
//
//	@Summary		Select entries by type name
//	@Tags			select
//	@Produce		json
//	@Param			type	path		string	true	"Type name"	Enums(int, float, string, intarray, floatarray, stringarray, container)
//	@Param			ns		query		string	false	"Namespace"
//	@Param			child	query		bool	false	"Direct children of ns only"
//	@Success		200		{object}	NamesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/types/{type} [get]
func (h *Handler) SelectByType(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.SelectByType(r.Context(), chi.URLParam(r, "type"), r.URL.Query().Get("ns"), boolParam(r, "child"))
	if err != nil {
		writeError(w, "select by type", err)
		return
	}
	writeJSON(w, http.StatusOK, NamesResponse{Names: nonNil(names)})
}

// SelectByKey handles GET /api/keys.
//
//	@Summary		Select entries by key pattern
//	@Tags			select
//	@Produce		json
//	@Param			pattern	query		string	true	"Key pattern, * matches one segment"
//	@Param			ns		query		string	false	"Namespace a relative pattern is joined to"
//	@Success		200		{object}	NamesResponse
//	@Security		BearerAuth
//	@Router			/keys [get]
func (h *Handler) SelectByKey(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pattern := q.Get("pattern")
	if pattern == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'pattern' is required"))
		return
	}
	writeJSON(w, http.StatusOK, NamesResponse{Names: nonNil(h.svc.SelectByKey(r.Context(), pattern, q.Get("ns")))})
}

// Apply handles POST /api/entries.
//
//	@Summary		Add entries from markup
//	@Tags			entries
//	@Accept			xml
//	@Produce		json
//	@Param			ns		query		string	false	"Namespace to add under"
//	@Success		201		{object}	NameResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [post]
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	last, err := h.svc.Apply(r.Context(), body, r.URL.Query().Get("ns"))
	if err != nil {
		writeError(w, "apply", err)
		return
	}
	writeJSON(w, http.StatusCreated, NameResponse{Name: last})
}

// SetValue handles POST /api/values.
//
//	@Summary		Set one value from a name=value assignment
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SetValueRequest	true	"Assignment"
//	@Success		201		{object}	NameResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/values [post]
func (h *Handler) SetValue(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req SetValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Assignment == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("assignment is required"))
		return
	}
	full, err := h.svc.Set(r.Context(), req.Assignment)
	if err != nil {
		writeError(w, "set value", err)
		return
	}
	writeJSON(w, http.StatusCreated, NameResponse{Name: full})
}

// PushState handles POST /api/state/push.
//
//	@Summary		Checkpoint the index
//	@Tags			state
//	@Success		204
//	@Security		BearerAuth
//	@Router			/state/push [post]
func (h *Handler) PushState(w http.ResponseWriter, r *http.Request) {
	h.svc.PushState(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// PopState handles POST /api/state/pop.
//
//	@Summary		Roll the index back to the last checkpoint
//	@Tags			state
//	@Success		204
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/state/pop [post]
func (h *Handler) PopState(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.PopState(r.Context()); err != nil {
		writeError(w, "pop state", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSnapshot handles POST /api/snapshots.
//
//	@Summary		Snapshot entries into the queue and journal
//	@Tags			snapshots
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SnapshotRequest	false	"Entries to snapshot"
//	@Success		201		{object}	Snapshot
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/snapshots [post]
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	snap, err := h.svc.Snapshot(r.Context(), req.Names, req.Namespace)
	if err != nil {
		writeError(w, "snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ListSnapshots handles GET /api/snapshots.
//
//	@Summary		List snapshots, oldest first
//	@Tags			snapshots
//	@Produce		json
//	@Param			limit	query		int	false	"Newest N only"
//	@Success		200		{object}	SnapshotListResponse
//	@Security		BearerAuth
//	@Router			/snapshots [get]
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Snapshots(r.Context(), intParam(r, "limit"))
	if err != nil {
		writeError(w, "list snapshots", err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotListResponse{Snapshots: nonNil(list)})
}

// Search handles GET /api/search.
//
//	@Summary		Search snapshot payloads
//	@Tags			snapshots
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(r.Context(), q, intParam(r, "limit"))
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: nonNil(results)})
}

// GetQueue handles GET /api/queue.
//
//	@Summary		The snapshot queue in wire form
//	@Tags			queue
//	@Produce		xml
//	@Success		200	{string}	string
//	@Security		BearerAuth
//	@Router			/queue [get]
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.QueueText(r.Context())
	if err != nil {
		writeError(w, "queue", err)
		return
	}
	writeText(w, http.StatusOK, "application/xml; charset=utf-8", text)
}

// Enqueue handles POST /api/queue.
//
//	@Summary		Merge a queue received in wire form
//	@Tags			queue
//	@Accept			xml
//	@Produce		json
//	@Success		200	{object}	CountResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/queue [post]
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	n, err := h.svc.Enqueue(r.Context(), body)
	if err != nil {
		writeError(w, "enqueue", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// DrainQueue handles POST /api/queue/drain.
//
//	@Summary		Return the queue in wire form and empty it
//	@Tags			queue
//	@Produce		xml
//	@Success		200	{string}	string
//	@Security		BearerAuth
//	@Router			/queue/drain [post]
func (h *Handler) DrainQueue(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.Drain(r.Context())
	if err != nil {
		writeError(w, "drain", err)
		return
	}
	writeText(w, http.StatusOK, "application/xml; charset=utf-8", text)
}

// ApplyQueue handles POST /api/queue/apply.
//
//	@Summary		Apply every queued snapshot to the index, oldest first
//	@Tags			queue
//	@Produce		json
//	@Success		200	{object}	CountResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/queue/apply [post]
func (h *Handler) ApplyQueue(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ApplyQueued(r.Context())
	if err != nil {
		writeError(w, "apply queue", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// ListSources handles GET /api/sources.
//
//	@Summary		List source files
//	@Tags			sources
//	@Produce		json
//	@Success		200	{object}	SourceListResponse
//	@Security		BearerAuth
//	@Router			/sources [get]
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Sources(r.Context())
	if err != nil {
		writeError(w, "list sources", err)
		return
	}
	writeJSON(w, http.StatusOK, SourceListResponse{Sources: nonNil(list)})
}

// PutSource handles PUT /api/sources/*.
//
//	@Summary		Write a source file and load it
//	@Tags			sources
//	@Accept			xml
//	@Param			path	path	string	true	"Source path"
//	@Success		204
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sources/{path} [put]
func (h *Handler) PutSource(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := h.svc.WriteSource(r.Context(), path, []byte(body)); err != nil {
		writeError(w, "put source", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSource handles DELETE /api/sources/*.
//
//	@Summary		Delete a source file
//	@Tags			sources
//	@Param			path	path	string	true	"Source path"
//	@Success		204
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sources/{path} [delete]
func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteSource(r.Context(), path); err != nil {
		writeError(w, "delete source", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
