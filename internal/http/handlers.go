package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gnucashboard/internal/core"
	"gnucashboard/internal/dashboard"
	"gnucashboard/internal/log"
	"gnucashboard/internal/settings"
	"gnucashboard/internal/sink"
	"gnucashboard/internal/views"
	"gnucashboard/internal/views/trends"
)

// maxActionBytes bounds the size of an action body or WebSocket message.
const maxActionBytes = 64 << 10

type sessionResponse struct {
	ID      string      `json:"id"`
	Created time.Time   `json:"created"`
	Views   []sink.View `json:"views"`
}

type viewResponse struct {
	View  sink.View             `json:"view"`
	Sinks map[string]sink.Entry `json:"sinks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrSessionNotFound),
		errors.Is(err, dashboard.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, dashboard.ErrUnsupportedAction),
		errors.Is(err, settings.ErrIndexOutOfRange),
		errors.Is(err, settings.ErrInvalidCategoryType),
		errors.Is(err, views.ErrIndexOutOfRange),
		errors.Is(err, trends.ErrInvalidHeatmapMode),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, errInvalidAction):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errInvalidAction = errors.New("invalid action")

// decodeAction parses one action. Unknown fields are rejected.
func decodeAction(data []byte) (dashboard.Action, error) {
	var act dashboard.Action
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&act); err != nil {
		return act, fmt.Errorf("%w: %v", errInvalidAction, err)
	}
	if act.Type == "" {
		return act, fmt.Errorf("%w: missing type", errInvalidAction)
	}
	return act, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail writes err with its mapped status. Server errors are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		if status == http.StatusInternalServerError {
			writeError(w, status, "internal error")
			return
		}
	}
	writeError(w, status, err.Error())
}

// sessionView resolves the {id} and {view} URL parameters.
func (s *Server) sessionView(r *http.Request) (*dashboard.Session, sink.View, error) {
	name := chi.URLParam(r, "view")
	view, ok := sink.ParseView(name)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", dashboard.ErrUnknownView, name)
	}
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		return nil, "", err
	}
	return sess, view, nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.source.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("book not loaded"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type pageData struct {
	Title string
	View  sink.View
	Views []sink.View
	Ready bool
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", pageData{
		Title: "GnuCash dashboard",
		Views: sink.Views(),
		Ready: s.source.Ready(),
	})
}

func (s *Server) handleViewPage(w http.ResponseWriter, r *http.Request) {
	view, ok := sink.ParseView(chi.URLParam(r, "view"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.render(w, r, "view.html", pageData{
		Title: titleOf(view),
		View:  view,
		Views: sink.Views(),
		Ready: s.source.Ready(),
	})
}

func titleOf(v sink.View) string {
	switch v {
	case sink.ViewCategory:
		return "Category"
	case sink.ViewOverview:
		return "Overview"
	case sink.ViewTrends:
		return "Trends"
	}
	return string(v)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, Created: sess.Created, Views: sink.Views()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Settings())
}

func (s *Server) handleRenderView(w http.ResponseWriter, r *http.Request) {
	sess, view, err := s.sessionView(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sinks, err := sess.Render(view)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{View: view, Sinks: sinks})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, view, err := s.sessionView(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBytes))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errInvalidAction, err))
		return
	}
	act, err := decodeAction(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	changed, err := sess.Apply(view, act)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Action applied",
		log.FieldSessionID, sess.ID,
		log.FieldView, string(view),
		log.FieldAction, string(act.Type),
		log.FieldSinks, len(changed))
	writeJSON(w, http.StatusOK, viewResponse{View: view, Sinks: changed})
}
