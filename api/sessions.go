package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"demo-console/console"
	"demo-console/snippet"
)

func (h *handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Catalog())
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.List())
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Create()
	if err != nil {
		h.log.Error("create session", zap.Error(err))
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *handler) killSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Kill(id); err != nil {
		if errors.Is(err, console.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		// The session is gone either way; the runtime just failed to quit cleanly.
		h.log.Warn("kill session", zap.String("session", id), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// session looks up the {id} session, answering 404 itself when it is missing.
func (h *handler) session(w http.ResponseWriter, r *http.Request) (*console.Session, bool) {
	s, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, console.ErrNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, console.ErrClosed):
		http.Error(w, "session closed", http.StatusGone)
	case errors.Is(err, console.ErrNoFocus):
		http.Error(w, "no demo selected", http.StatusConflict)
	case errors.Is(err, snippet.ErrFetch):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
