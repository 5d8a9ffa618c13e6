package web

import (
	"encoding/json"
	"net/http"
	"strings"
)

// handleAsk streams the answer as newline-delimited JSON. Each record is
// flushed as soon as it is encoded so the client sees tokens live.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	threshold := s.defaultThreshold
	if req.SimilarityThreshold != nil {
		if *req.SimilarityThreshold < 0 || *req.SimilarityThreshold > 1 {
			http.Error(w, "similarity_threshold must be within [0, 1]", http.StatusBadRequest)
			return
		}
		threshold = *req.SimilarityThreshold
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	enc := json.NewEncoder(w)
	emit := func(record any) error {
		if err := enc.Encode(record); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	}

	if err := s.answer.Answer(r.Context(), req.Query, threshold, emit); err != nil {
		// The only error surfaced here is a failed write, meaning the
		// client is gone. Nothing useful can be sent anymore.
		s.log.Debug().Err(err).Msg("answer stream aborted by client")
	}
}
