package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"kioskpad/internal/navigator"
	"kioskpad/internal/service"
)

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

// urlParam returns a path parameter with percent-escapes decoded, so device
// keys with spaces can be addressed.
func urlParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	st, err := s.backend.Snapshot(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	st, err := s.backend.Snapshot(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": st.Devices,
		"count":   len(st.Devices),
	})
}

type focusResponse struct {
	Scope   string          `json:"scope"`
	Focused string          `json:"focused,omitempty"`
	Item    *navigator.Item `json:"item,omitempty"`
}

func (s *Server) focusResponse(st service.State) focusResponse {
	resp := focusResponse{Scope: st.Scope, Focused: st.Focused}
	if l, ok := s.layouts.Layout(st.Scope); ok && st.Focused != "" {
		if it, ok := l.Item(st.Focused); ok {
			resp.Item = &it
		}
	}
	return resp
}

func (s *Server) handleGetFocus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	st, err := s.backend.Snapshot(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.focusResponse(st))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	direction := chi.URLParam(r, "direction")
	if _, err := navigator.ParseDirection(direction); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.doThenFocus(w, r, service.Move{Direction: direction})
}

func (s *Server) handleSetFocus(w http.ResponseWriter, r *http.Request) {
	s.doThenFocus(w, r, service.Focus{Item: urlParam(r, "item")})
}

// doThenFocus runs ev and answers with the resulting focus.
func (s *Server) doThenFocus(w http.ResponseWriter, r *http.Request, ev service.Event) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	if _, err := s.backend.Do(ctx, ev); err != nil {
		writeServiceError(w, err)
		return
	}
	st, err := s.backend.Snapshot(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.focusResponse(st))
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.doNoContent(w, r, service.Activate{})
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.doNoContent(w, r, service.Back{})
}

func (s *Server) doNoContent(w http.ResponseWriter, r *http.Request, ev service.Event) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	if _, err := s.backend.Do(ctx, ev); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Visible *bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.Visible == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "visible is required")
		return
	}
	s.doNoContent(w, r, service.SetVisible{Visible: *req.Visible})
}

func (s *Server) handleSetScope(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.Scope == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "scope is required")
		return
	}
	s.doNoContent(w, r, service.SetScope{Scope: req.Scope})
}

func (s *Server) handlePutLayout(w http.ResponseWriter, r *http.Request) {
	var l navigator.Layout
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	l.Scope = urlParam(r, "scope")
	if err := s.layouts.Set(&l); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLayouts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scopes": s.layouts.Scopes()})
}

func (s *Server) handleStartConfigurator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot *int `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.Slot == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "slot is required")
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()
	info, err := s.backend.StartConfigurator(ctx, *req.Slot)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleAbortConfigurator(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	if err := s.backend.AbortConfigurator(ctx); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetConfigurator(w http.ResponseWriter, r *http.Request) {
	s.doNoContent(w, r, service.ResetConfigurator{})
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	info, err := s.backend.Mapping(ctx, urlParam(r, "device"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
