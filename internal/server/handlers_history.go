package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/storage"
)

// saveCreation records a generation that produced at least one unit. Failed
// runs are not kept.
func (s *Server) saveCreation(ctx context.Context, req GenerateRequest, res *session.Result) {
	if s.history == nil || res == nil || res.Outcome == session.OutcomeFailed || res.Units == 0 {
		return
	}
	model := req.Model
	if model == "" {
		model = s.appConfig.Model
	}
	c := &storage.Creation{
		Prompt:   req.Prompt,
		Model:    model,
		Outcome:  res.Outcome.String(),
		Template: res.Template,
	}
	// The run may have been aborted; the save still has to happen.
	if err := s.history.Save(context.WithoutCancel(ctx), c); err != nil {
		logging.Error().Err(err).Msg("failed to save creation")
	}
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []*storage.Creation{})
		return
	}
	list, err := s.history.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "creationID")
	if s.history == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "creation not found: "+id)
		return
	}
	c, err := s.history.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "creation not found: "+id)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if s.history != nil {
		if err := s.history.Delete(r.Context(), chi.URLParam(r, "creationID")); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
	}
	writeSuccess(w)
}
