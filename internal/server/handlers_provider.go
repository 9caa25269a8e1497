package server

import (
	"net/http"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Models []types.Model `json:"models"`
}

// ProvidersResponse is returned by GET /provider.
type ProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
	// Default is "provider/model", empty when nothing is available.
	Default string `json:"default"`
}

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	resp := ProvidersResponse{Providers: []ProviderInfo{}}
	for _, p := range s.providers.List() {
		resp.Providers = append(resp.Providers, ProviderInfo{ID: p.ID(), Name: p.Name(), Models: p.Models()})
	}
	if _, m, err := s.providers.Resolve(s.appConfig.Model); err == nil {
		resp.Default = m.ProviderID + "/" + m.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"activeRuns": len(s.runs.list()),
		"providers":  len(s.providers.List()),
	})
}
