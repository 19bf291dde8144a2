package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/jsl-segmenter/internal/agents"
	"github.com/snappy-loop/jsl-segmenter/internal/controller"
)

// Handler contains all HTTP handlers
type Handler struct {
	agent          agents.SegmentationAgent
	examples       []string
	segmentTimeout time.Duration
}

// NewHandler creates a new handler. segmentTimeout bounds each session submit; 0 disables it.
func NewHandler(agent agents.SegmentationAgent, segmentTimeout time.Duration) *Handler {
	return &Handler{
		agent:          agent,
		examples:       controller.Examples(),
		segmentTimeout: segmentTimeout,
	}
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
