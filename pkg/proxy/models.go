package proxy

import (
	"net/http"
)

type ModelCard struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// handleModels lists every caller-facing model name from the map plus the
// emulated image model, without duplicates.
func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	ids := s.models.Keys()
	cards := make([]ModelCard, 0, len(ids)+1)
	seen := make(map[string]bool, len(ids)+1)
	for _, id := range append(ids, imageModelID) {
		if seen[id] {
			continue
		}
		seen[id] = true
		cards = append(cards, ModelCard{
			ID:      id,
			Object:  "model",
			Created: s.startedAt.Unix(),
			OwnedBy: "proxy",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": cards})
}
