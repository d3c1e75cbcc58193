package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enercomp/enercomp/internal/agent/runner"
	"github.com/enercomp/enercomp/internal/agent/state"
	"github.com/enercomp/enercomp/internal/artifact"
	"github.com/enercomp/enercomp/internal/chat"
	"github.com/enercomp/enercomp/internal/report"
	"github.com/enercomp/enercomp/internal/session"
)

type fakeRunner struct {
	result func(initial *state.State) *state.State
}

func (f *fakeRunner) Run(_ context.Context, _, _, _ string, initial *state.State, onProgress func(runner.Progress)) (*state.State, error) {
	if onProgress != nil {
		onProgress(runner.Progress{Agent: "data_analyst", Text: "analisando"})
	}
	return f.result(initial), nil
}

func testServer(t *testing.T) (*Server, session.Store) {
	t.Helper()

	sessions := session.NewMemoryStore()
	fake := &fakeRunner{result: func(initial *state.State) *state.State {
		out := *initial
		out.ComplianceReport = &report.Report{
			ReportMetadata: report.Metadata{Title: "Relatório", GeneratedDate: "2026-08-27"},
			Introduction:   report.Introduction{Objective: "Analisar."},
			AnalysisSections: []report.AnalysisSection{
				{Title: "Tensão", Content: "Adequada."},
			},
			FinalConsiderations: "Conforme.",
		}
		return &out
	}}
	chatHandler := chat.New(fake, sessions, artifact.NewMemoryStore(), chat.Options{})

	return New(0, chatHandler, sessions, AgentInfo{
		Name:        "energy_compliance_workflow",
		Description: "Power quality compliance report generator",
		Model:       "gemini-1.5-flash-latest",
	}), sessions
}

func TestHealthcheck(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAgentInfo(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agent-info", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var info AgentInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "energy_compliance_workflow", info.Name)
	assert.Equal(t, "gemini-1.5-flash-latest", info.Model)
	assert.NotNil(t, info.Tools)
}

func TestMethodGuard(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthcheck", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/chat/message", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// Non-preflight responses carry the headers too.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatMessageJSON(t *testing.T) {
	srv, _ := testServer(t)

	body, err := json.Marshal(map[string]string{
		"text":      "analise este arquivo",
		"userId":    "alice",
		"sessionId": "s1",
		"fileName":  "medicoes.csv",
		"csvData":   "timestamp,voltage_v\n2026-08-27T10:00:00Z,220.1",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	stream := rec.Body.String()
	assert.Contains(t, stream, "event: status")
	assert.Contains(t, stream, "event: report")
	assert.Contains(t, stream, "Relatório")
	assert.NotContains(t, stream, "event: error")
}

func TestChatMessageMultipart(t *testing.T) {
	srv, _ := testServer(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("text", "analise"))
	require.NoError(t, form.WriteField("userId", "alice"))
	require.NoError(t, form.WriteField("sessionId", "s2"))
	part, err := form.CreateFormFile("file", "medicoes.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("timestamp,voltage_v\n2026-08-27T10:00:00Z,220.1"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/message", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: report")
}

func TestChatMessageWithoutCSVEmitsError(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/message", strings.NewReader(`{"text":"oi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: error")
}

func TestChatMessageInvalidBody(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/message", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	srv, sessions := testServer(t)
	ctx := context.Background()

	_, err := sessions.Create(ctx, "alice", "s1", map[string]any{"languageCode": "pt-BR"})
	require.NoError(t, err)
	require.NoError(t, sessions.AppendEvent(ctx, "alice", "s1", session.Event{ID: "e1", Author: "user", Text: "oi"}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions?userId=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listBody struct {
		Sessions []*session.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listBody))
	require.Len(t, listBody.Sessions, 1)
	assert.Equal(t, "s1", listBody.Sessions[0].ID)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1?userId=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/events?userId=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var eventsBody struct {
		Events []session.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eventsBody))
	require.Len(t, eventsBody.Events, 1)
	assert.Equal(t, "oi", eventsBody.Events[0].Text)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/sessions/s1?userId=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1?userId=alice", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionEndpointsRequireUserID(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
