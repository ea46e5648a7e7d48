package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"demo-console/console"
)

type selectRequest struct {
	Name string  `json:"name"`
	Text *string `json:"text,omitempty"`
}

type selectResponse struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type textRequest struct {
	Text        *string `json:"text,omitempty"`
	KeepHistory bool    `json:"keepHistory"`
}

// decodeOptional decodes a JSON body into v, accepting an empty body.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// syncText records the page's editor text when the request carries it.
func syncText(s *console.Session, text *string) error {
	if text == nil {
		return nil
	}
	return s.Edit(*text)
}

// selectSnippet answers once the editor shows the chosen demo. When the
// request carries the editor text, it is snapped into the focused demo first,
// as the picker gaining focus does on the page.
func (h *handler) selectSnippet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text != nil {
		if err := syncText(s, req.Text); err != nil {
			writeError(w, err)
			return
		}
		if err := s.Snap(); err != nil {
			writeError(w, err)
			return
		}
	}

	select {
	case err := <-s.Select(req.Name):
		if err != nil {
			if errors.Is(err, console.ErrClosed) {
				writeError(w, err)
				return
			}
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	case <-r.Context().Done():
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Name: s.Focus(), Text: s.Editor().Text()})
}

func (h *handler) focus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req textRequest
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := syncText(s, req.Text); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Snap(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) duplicate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req textRequest
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := syncText(s, req.Text); err != nil {
		writeError(w, err)
		return
	}
	opt, err := s.Duplicate()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, opt)
}

func (h *handler) run(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req textRequest
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := syncText(s, req.Text); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Submit(r.Context(), req.KeepHistory)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
