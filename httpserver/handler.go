package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/ruteri/storage-config-detail/detail"
	"github.com/ruteri/storage-config-detail/interfaces"
	"github.com/ruteri/storage-config-detail/metrics"
	"github.com/ruteri/storage-config-detail/notify"
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// Handler serves the configuration detail API. It keeps one assembler per
// configuration id; every assembler shares the same collaborators.
type Handler struct {
	deps  detail.Dependencies
	notes *notify.Buffer
	log   *slog.Logger

	mu         sync.Mutex
	assemblers map[string]*detail.Assembler
}

// NewHandler creates a handler. deps is the template for every assembler;
// notes, when set, is served at /api/notifications and should also be
// reachable from deps.Notifier.
func NewHandler(deps detail.Dependencies, notes *notify.Buffer, log *slog.Logger) *Handler {
	if deps.Log == nil {
		deps.Log = log
	}
	return &Handler{
		deps:       deps,
		notes:      notes,
		log:        log,
		assemblers: make(map[string]*detail.Assembler),
	}
}

func (h *Handler) setCollector(c metrics.Collector) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deps.Metrics = c
}

func (h *Handler) assembler(id string, create bool) *detail.Assembler {
	h.mu.Lock()
	defer h.mu.Unlock()

	a, ok := h.assemblers[id]
	if !ok && create {
		a = detail.New(h.deps)
		h.assemblers[id] = a
	}
	return a
}

// forget drops a's entry when it is still registered for id. Assemblers
// without a view are not kept.
func (h *Handler) forget(id string, a *detail.Assembler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.assemblers[id] == a {
		delete(h.assemblers, id)
	}
}

// HandleGetConfig returns the detail snapshot of a configuration, loading it
// first when it was never loaded, failed to load, or reload=1 is given.
//
// URL format: GET /api/storage/configs/{id}[?reload=1]
//
// Response: JSON snapshot. 404 when the configuration does not exist, 503
// when it could not be fetched. A failed load leaves nothing registered.
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, &RequestError{http.StatusBadRequest, errors.New("missing configuration id")})
		return
	}

	a := h.assembler(id, true)

	state := a.Snapshot().State
	reload := r.URL.Query().Get("reload")
	if state == detail.StateIdle || state == detail.StateError || reload == "1" || reload == "true" {
		if err := a.Load(r.Context(), id); err != nil {
			h.log.Warn("Configuration load failed", slog.String("config_id", id), "err", err)
			if !errors.Is(err, detail.ErrStale) {
				h.forget(id, a)
			}
			h.writeError(w, loadError(err))
			return
		}
	}

	h.writeJSON(w, http.StatusOK, a.Snapshot())
}

// HandleResync recomputes usage of a loaded configuration.
//
// URL format: POST /api/storage/configs/{id}/resync
//
// Response: JSON snapshot. 412 when the configuration is not loaded, 409
// while another resync runs, 502 when the counter source failed (the
// previous snapshot stays valid).
func (h *Handler) HandleResync(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a := h.assembler(id, false)
	if a == nil {
		h.writeError(w, &RequestError{http.StatusPreconditionFailed, detail.ErrNotReady})
		return
	}

	if err := a.Resync(r.Context()); err != nil {
		h.writeError(w, resyncError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, a.Snapshot())
}

// HandleCloseConfig discards the assembler of a configuration. Work still in
// flight for it is dropped.
//
// URL format: DELETE /api/storage/configs/{id}
func (h *Handler) HandleCloseConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	a, ok := h.assemblers[id]
	delete(h.assemblers, id)
	h.mu.Unlock()

	if ok {
		a.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleNotifications lists buffered notifications, oldest first. With
// drain=1 the buffer is emptied.
//
// URL format: GET /api/notifications[?drain=1]
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		h.writeJSON(w, http.StatusOK, []notify.Notification{})
		return
	}

	var items []notify.Notification
	if d := r.URL.Query().Get("drain"); d == "1" || d == "true" {
		items = h.notes.Drain()
	} else {
		items = h.notes.Recent()
	}
	h.writeJSON(w, http.StatusOK, items)
}

func loadError(err error) *RequestError {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return &RequestError{http.StatusNotFound, err}
	case errors.Is(err, detail.ErrStale):
		return &RequestError{http.StatusConflict, err}
	default:
		return &RequestError{http.StatusServiceUnavailable, err}
	}
}

func resyncError(err error) *RequestError {
	switch {
	case errors.Is(err, detail.ErrResyncInFlight), errors.Is(err, detail.ErrStale):
		return &RequestError{http.StatusConflict, err}
	case errors.Is(err, detail.ErrNotReady):
		return &RequestError{http.StatusPreconditionFailed, err}
	default:
		return &RequestError{http.StatusBadGateway, err}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *RequestError) {
	h.writeJSON(w, e.StatusCode, map[string]string{"error": e.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
