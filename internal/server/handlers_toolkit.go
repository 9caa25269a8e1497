package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/toolkit"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// ToolkitRequest is the body of POST /toolkit/{tool}. Prompt is the server's
// theme, or the embed description for the embed tool.
type ToolkitRequest struct {
	Template *types.ServerTemplate `json:"template"`
	Prompt   string                `json:"prompt"`
	Model    string                `json:"model,omitempty"`
}

// ToolkitResponse carries one generated item.
type ToolkitResponse struct {
	Tool   toolkit.Tool `json:"tool"`
	Result any          `json:"result"`
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toolkit.Tools)
}

func (s *Server) runTool(w http.ResponseWriter, r *http.Request) {
	tool, err := toolkit.ParseTool(chi.URLParam(r, "tool"))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	var req ToolkitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if req.Template == nil {
		if tool != toolkit.ToolEmbed {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "template is required")
			return
		}
		req.Template = types.NewServerTemplate()
	}
	if tool == toolkit.ToolEmbed && req.Prompt == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "prompt is required")
		return
	}

	p, model, err := s.resolveSmall(req.Model)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	k := toolkit.New(p, toolkit.WithModel(model.ID), toolkit.WithBus(s.bus))

	result, err := k.Run(r.Context(), tool, req.Prompt, req.Template)
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeProviderError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ToolkitResponse{Tool: tool, Result: result})
}
