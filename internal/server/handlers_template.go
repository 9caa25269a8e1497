package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/generator"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/lint"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/tagproto"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// GenerateRequest is the body of POST /template.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

// RunResult is the data of the terminal "result" event.
type RunResult struct {
	RunID     string                `json:"runID"`
	Outcome   string                `json:"outcome"`
	Units     int                   `json:"units"`
	Skipped   int                   `json:"skipped"`
	Discarded string                `json:"discarded,omitempty"`
	Template  *types.ServerTemplate `json:"template"`
	Error     string                `json:"error,omitempty"`
}

// generateTemplate streams a template for a prompt. Snapshots are sent as
// "snapshot" events; the run ends with a "result" or "error" event.
func (s *Server) generateTemplate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if err := generator.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidPrompt, err.Error())
		return
	}

	info, ctx := s.runs.start(r.Context(), "generate", req.Prompt, req.Model)
	defer s.runs.finish(info.ID)
	w.Header().Set("X-Run-ID", info.ID)

	sse, ok := startSSE(w)
	if !ok {
		return
	}
	if err := sse.writeEvent(SSEEventRun, info); err != nil {
		return
	}

	res, err := s.generator(req.Model).Generate(ctx, req.Prompt, snapshotSender(sse), session.WithID(info.ID))
	s.saveCreation(r.Context(), req, res)
	s.finishRun(sse, info.ID, res, err)
}

// decodeTemplate replays a recorded model transcript through a session. The
// body is the raw transcript; ?chunk=N splits it into N-byte fragments and
// ?matcher=regex selects the regex matcher.
func (s *Server) decodeTemplate(w http.ResponseWriter, r *http.Request) {
	chunk := 0
	if v := r.URL.Query().Get("chunk"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "chunk must be a non-negative integer")
			return
		}
		chunk = n
	}
	var matcher tagproto.Matcher = tagproto.ScanMatcher{}
	switch r.URL.Query().Get("matcher") {
	case "", "scan":
	case "regex":
		matcher = tagproto.NewRegexMatcher()
	default:
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "matcher must be scan or regex")
		return
	}

	// The transcript is read before streaming; HTTP/1 bodies may not be
	// readable once the response has started.
	transcript, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	info, ctx := s.runs.start(r.Context(), "decode", "", "")
	defer s.runs.finish(info.ID)
	w.Header().Set("X-Run-ID", info.ID)

	sse, ok := startSSE(w)
	if !ok {
		return
	}
	if err := sse.writeEvent(SSEEventRun, info); err != nil {
		return
	}

	sess := session.New(session.WithID(info.ID), session.WithBus(s.bus), session.WithMatcher(matcher))
	res, err := sess.Run(ctx, session.FromReader(bytes.NewReader(transcript), chunk), snapshotSender(sse))
	s.finishRun(sse, info.ID, res, err)
}

// snapshotSender forwards each snapshot; a write failure means the client
// left, so the run is cancelled.
func snapshotSender(sse *sseWriter) session.UpdateFunc {
	return func(t *types.ServerTemplate) session.Action {
		if err := sse.writeEvent(SSEEventSnapshot, t); err != nil {
			return session.Cancel
		}
		return session.Continue
	}
}

func (s *Server) finishRun(sse *sseWriter, runID string, res *session.Result, err error) {
	if res == nil {
		code := ErrCodeProviderError
		if errors.Is(err, generator.ErrInvalidPrompt) {
			code = ErrCodeInvalidPrompt
		}
		sse.writeEvent(SSEEventError, ErrorDetail{Code: code, Message: err.Error()})
		return
	}

	out := RunResult{
		RunID:     runID,
		Outcome:   res.Outcome.String(),
		Units:     res.Units,
		Skipped:   res.Skipped,
		Discarded: res.Discarded,
		Template:  res.Template,
	}
	if err != nil {
		out.Error = err.Error()
		logging.Warn().Err(err).Str("runID", runID).Str("outcome", out.Outcome).Msg("template run ended early")
	}
	sse.writeEvent(SSEEventResult, out)
}

// LintRequest is the body of POST /template/lint.
type LintRequest struct {
	Template *types.ServerTemplate `json:"template"`
}

func (s *Server) lintTemplate(w http.ResponseWriter, r *http.Request) {
	var req LintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if req.Template == nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "template is required")
		return
	}
	findings := lint.Check(req.Template)
	if findings == nil {
		findings = []lint.Finding{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"findings":  findings,
		"hasErrors": lint.HasErrors(findings),
	})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runs.list())
}

func (s *Server) abortRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if !s.runs.abort(runID) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "run not found: "+runID)
		return
	}
	writeSuccess(w)
}
