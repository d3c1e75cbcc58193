// Package chat implements the message-handling core of the chat surface: it
// accepts a user turn with an optional CSV attachment, persists the upload,
// drives the report workflow, and emits progress and results as a stream of
// events the transport layer can forward (SSE over HTTP, plain text on the
// CLI).
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/enercomp/enercomp/internal/agent/runner"
	"github.com/enercomp/enercomp/internal/agent/state"
	"github.com/enercomp/enercomp/internal/artifact"
	"github.com/enercomp/enercomp/internal/logging"
	"github.com/enercomp/enercomp/internal/metrics"
	"github.com/enercomp/enercomp/internal/report"
	"github.com/enercomp/enercomp/internal/session"
)

// DefaultLanguageCode is used when neither the request nor the session state
// carries one.
const DefaultLanguageCode = "pt-BR"

// Event types emitted during a turn.
const (
	EventStatus = "status"
	EventReport = "report"
	EventError  = "error"
)

// Message is one user turn.
type Message struct {
	// Text is the user's free-text message.
	Text string

	// FileName and FileData carry an optional CSV attachment.
	FileName string
	FileData []byte

	// LanguageCode overrides the report language for this turn.
	LanguageCode string
}

// Event is one item of the turn's output stream.
type Event struct {
	Type   string         `json:"type"`
	Agent  string         `json:"agent,omitempty"`
	Text   string         `json:"text,omitempty"`
	Report *report.Report `json:"report,omitempty"`
}

// Result summarizes a completed turn.
type Result struct {
	SessionID string
	State     *state.State
}

// Options tunes the handler.
type Options struct {
	// DefaultLanguageCode replaces the package default when set.
	DefaultLanguageCode string
}

// WorkflowRunner executes one workflow invocation. Satisfied by
// runner.Runner.
type WorkflowRunner interface {
	Run(ctx context.Context, userID, sessionID, message string, initial *state.State, onProgress func(runner.Progress)) (*state.State, error)
}

// Handler runs chat turns. Persistence is best effort: session and artifact
// failures are logged and the turn continues degraded.
type Handler struct {
	runner      WorkflowRunner
	sessions    session.Store
	artifacts   artifact.Store
	defaultLang string
	logger      *logging.Logger
}

// New creates a chat handler.
func New(r WorkflowRunner, sessions session.Store, artifacts artifact.Store, opts Options) *Handler {
	lang := opts.DefaultLanguageCode
	if lang == "" {
		lang = DefaultLanguageCode
	}
	return &Handler{
		runner:      r,
		sessions:    sessions,
		artifacts:   artifacts,
		defaultLang: lang,
		logger:      logging.GetLogger("chat"),
	}
}

// HandleMessage processes one turn. Events go to emit as they happen; the
// final state (including any degraded-run error) is in the Result. A non-nil
// error means the workflow itself could not run at all.
func (h *Handler) HandleMessage(ctx context.Context, userID, sessionID string, msg Message, emit func(Event)) (*Result, error) {
	start := time.Now()
	if userID == "" {
		userID = runner.DefaultUserID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if emit == nil {
		emit = func(Event) {}
	}

	sessionState := h.ensureSession(ctx, userID, sessionID)
	h.appendEvent(ctx, userID, sessionID, "user", msg.Text)

	initial, err := h.buildState(ctx, userID, sessionID, sessionState, msg, emit)
	if err != nil {
		metrics.ChatTurns.WithLabelValues("failed").Inc()
		emit(Event{Type: EventError, Text: err.Error()})
		return nil, err
	}

	emit(Event{Type: EventStatus, Text: "processing power quality data"})

	// Each turn gets its own ADK invocation session; durable chat identity
	// lives in the session store.
	final, err := h.runner.Run(ctx, userID, uuid.NewString(), msg.Text, initial, func(p runner.Progress) {
		emit(Event{Type: EventStatus, Agent: p.Agent, Text: p.Text})
	})
	if err != nil {
		metrics.ChatTurns.WithLabelValues("failed").Inc()
		metrics.TurnDuration.Observe(time.Since(start).Seconds())
		emit(Event{Type: EventError, Text: err.Error()})
		h.appendEvent(ctx, userID, sessionID, "system", "turn failed: "+err.Error())
		return nil, fmt.Errorf("chat turn failed: %w", err)
	}

	h.finishTurn(ctx, userID, sessionID, final, emit)
	metrics.TurnDuration.Observe(time.Since(start).Seconds())

	return &Result{SessionID: sessionID, State: final}, nil
}

// ensureSession returns the existing session state, creating the session on
// first contact. Failures are logged only.
func (h *Handler) ensureSession(ctx context.Context, userID, sessionID string) map[string]any {
	sess, err := h.sessions.Get(ctx, userID, sessionID)
	if err == nil {
		return sess.State
	}
	if !errors.Is(err, session.ErrNotFound) {
		h.logger.Warn("failed to load session %s: %v", sessionID, err)
		return nil
	}
	if _, err := h.sessions.Create(ctx, userID, sessionID, nil); err != nil {
		h.logger.Warn("failed to create session %s: %v", sessionID, err)
	}
	return nil
}

// buildState seeds the workflow state from the stored session and the
// incoming message. An attachment replaces any previously uploaded CSV and is
// kept as an artifact.
func (h *Handler) buildState(ctx context.Context, userID, sessionID string, sessionState map[string]any, msg Message, emit func(Event)) (*state.State, error) {
	st, err := state.FromSessionState(sessionState)
	if err != nil {
		h.logger.Warn("session %s carries invalid state, starting fresh: %v", sessionID, err)
		st = &state.State{}
	}

	if len(msg.FileData) > 0 {
		fileName := msg.FileName
		if fileName == "" {
			fileName = "upload.csv"
		}
		key := uuid.NewString() + "-" + fileName
		if err := h.artifacts.Save(ctx, userID, sessionID, key, "text/csv", msg.FileData); err != nil {
			h.logger.Warn("failed to store upload %s: %v", key, err)
		} else {
			emit(Event{Type: EventStatus, Text: "file received: " + fileName})
		}
		st.FileName = fileName
		st.PowerQualityDataCSV = string(msg.FileData)
	}

	if msg.LanguageCode != "" {
		st.LanguageCode = msg.LanguageCode
	}
	if st.LanguageCode == "" {
		st.LanguageCode = h.defaultLang
	}

	if st.PowerQualityDataCSV == "" {
		return nil, fmt.Errorf("no power quality CSV available: attach a file to this session first")
	}

	// Stale results from a previous turn must not leak into this one.
	st.DataAnalysisReport = ""
	st.ComplianceReport = nil
	st.Error = ""

	return st, nil
}

// finishTurn emits the terminal event and persists the outcome.
func (h *Handler) finishTurn(ctx context.Context, userID, sessionID string, final *state.State, emit func(Event)) {
	switch {
	case final.ComplianceReport != nil:
		metrics.ChatTurns.WithLabelValues("ok").Inc()
		emit(Event{Type: EventReport, Report: final.ComplianceReport})
		h.saveReportArtifact(ctx, userID, sessionID, final.ComplianceReport)
		h.appendEvent(ctx, userID, sessionID, "compliance_report", final.ComplianceReport.ReportMetadata.Title)
	case final.Error != "":
		metrics.ChatTurns.WithLabelValues("degraded").Inc()
		emit(Event{Type: EventError, Text: final.Error})
		h.appendEvent(ctx, userID, sessionID, "system", final.Error)
	default:
		metrics.ChatTurns.WithLabelValues("degraded").Inc()
		emit(Event{Type: EventError, Text: "workflow produced no report"})
	}

	if err := h.sessions.UpdateState(ctx, userID, sessionID, final.Delta()); err != nil {
		h.logger.Warn("failed to persist session %s state: %v", sessionID, err)
	}
}

func (h *Handler) saveReportArtifact(ctx context.Context, userID, sessionID string, rep *report.Report) {
	raw, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		h.logger.Warn("failed to encode report artifact: %v", err)
		return
	}
	key := "report-" + uuid.NewString() + ".json"
	if err := h.artifacts.Save(ctx, userID, sessionID, key, "application/json", raw); err != nil {
		h.logger.Warn("failed to store report artifact %s: %v", key, err)
	}
}

func (h *Handler) appendEvent(ctx context.Context, userID, sessionID, author, text string) {
	if text == "" {
		return
	}
	err := h.sessions.AppendEvent(ctx, userID, sessionID, session.Event{
		ID:     uuid.NewString(),
		Author: author,
		Text:   text,
	})
	if err != nil {
		h.logger.Warn("failed to append %s event to session %s: %v", author, sessionID, err)
	}
}
