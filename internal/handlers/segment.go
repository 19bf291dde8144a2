package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/jsl-segmenter/internal/llm"
	"github.com/snappy-loop/jsl-segmenter/internal/models"
)

const maxSegmentBodyBytes = 256 << 10

// Segment handles POST /v1/segment
func (h *Handler) Segment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSegmentBodyBytes)
	var req models.SegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	segments, err := h.agent.Segment(r.Context(), req.Text)
	if err != nil {
		var upErr *llm.UpstreamError
		switch {
		case errors.Is(err, llm.ErrEmptyInput), errors.Is(err, llm.ErrInputTooLong):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &upErr):
			writeJSONError(w, http.StatusBadGateway, upErr.Error())
		default:
			log.Error().Err(err).Msg("Failed to segment text")
			writeJSONError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	if segments == nil {
		segments = []string{}
	}

	writeJSON(w, http.StatusOK, models.SegmentResponse{Segments: segments})
}

// Examples handles GET /v1/examples
func (h *Handler) Examples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ExamplesResponse{Examples: h.examples})
}
