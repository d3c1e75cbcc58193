package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/enercomp/enercomp/internal/chat"
	"github.com/enercomp/enercomp/internal/session"
)

// uploads are read fully into memory; measurement CSVs are small.
const maxUploadBytes = 32 << 20

// registerHandlers registers all HTTP handlers.
func (s *Server) registerHandlers() {
	s.router.HandleFunc("/healthcheck", s.allow(http.MethodGet, s.handleHealthcheck))
	s.router.HandleFunc("/agent-info", s.allow(http.MethodGet, s.handleAgentInfo))
	s.router.HandleFunc("/v1/chat/message", s.allow(http.MethodPost, s.handleChatMessage))
	s.router.HandleFunc("/v1/sessions", s.allow(http.MethodGet, s.handleListSessions))
	s.router.HandleFunc("/v1/sessions/", s.allow("", s.handleSession))
	s.router.Handle("/metrics", s.allow(http.MethodGet, promhttp.Handler().ServeHTTP))
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAgentInfo(w http.ResponseWriter, _ *http.Request) {
	info := s.info
	if info.Tools == nil {
		info.Tools = []string{}
	}
	s.writeJSON(w, http.StatusOK, info)
}

// chatRequest is the JSON form of POST /v1/chat/message. The same fields can
// arrive as a multipart form with the CSV in a "file" part.
type chatRequest struct {
	Text         string `json:"text"`
	UserID       string `json:"userId"`
	SessionID    string `json:"sessionId"`
	LanguageCode string `json:"languageCode"`
	FileName     string `json:"fileName"`
	CSVData      string `json:"csvData"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseChatRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	msg := chat.Message{
		Text:         req.Text,
		FileName:     req.FileName,
		LanguageCode: req.LanguageCode,
	}
	if req.CSVData != "" {
		msg.FileData = []byte(req.CSVData)
	}

	emit := func(e chat.Event) {
		s.writeSSE(w, flusher, e)
	}
	if _, err := s.chat.HandleMessage(r.Context(), req.UserID, req.SessionID, msg, emit); err != nil {
		// The terminal error event was already emitted by the handler.
		s.logger.Warn("chat turn failed: %v", err)
	}
}

// parseChatRequest accepts either a JSON body or a multipart form with an
// optional "file" part.
func (s *Server) parseChatRequest(r *http.Request) (*chatRequest, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, errors.New("invalid multipart form")
		}
		req := &chatRequest{
			Text:         r.FormValue("text"),
			UserID:       r.FormValue("userId"),
			SessionID:    r.FormValue("sessionId"),
			LanguageCode: r.FormValue("languageCode"),
		}
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			data, readErr := io.ReadAll(io.LimitReader(file, maxUploadBytes))
			if readErr != nil {
				return nil, errors.New("failed to read uploaded file")
			}
			req.FileName = header.Filename
			req.CSVData = string(data)
		} else if !errors.Is(err, http.ErrMissingFile) {
			return nil, errors.New("invalid file upload")
		}
		return req, nil
	}

	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	return &req, nil
}

func (s *Server) writeSSE(w io.Writer, flusher http.Flusher, e chat.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("failed to encode SSE event: %v", err)
		return
	}
	if _, err := io.WriteString(w, "event: "+e.Type+"\ndata: "+string(data)+"\n\n"); err != nil {
		s.logger.Debug("client went away during SSE stream: %v", err)
		return
	}
	flusher.Flush()
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "userId query parameter required")
		return
	}

	sessions, err := s.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// handleSession routes /v1/sessions/{id} and /v1/sessions/{id}/events.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	sessionID, sub, _ := strings.Cut(rest, "/")
	if sessionID == "" {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "session id required")
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "userId query parameter required")
		return
	}

	switch {
	case sub == "events" && r.Method == http.MethodGet:
		s.handleListEvents(w, r, userID, sessionID)
	case sub == "" && r.Method == http.MethodGet:
		s.handleGetSession(w, r, userID, sessionID)
	case sub == "" && r.Method == http.MethodDelete:
		s.handleDeleteSession(w, r, userID, sessionID)
	default:
		s.handleMethodNotAllowed(w, r)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, userID, sessionID string) {
	sess, err := s.sessions.Get(r.Context(), userID, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to load session")
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request, userID, sessionID string) {
	events, err := s.sessions.ListEvents(r.Context(), userID, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to list events")
		return
	}
	if events == nil {
		events = []session.Event{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, userID, sessionID string) {
	err := s.sessions.Delete(r.Context(), userID, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete session")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
