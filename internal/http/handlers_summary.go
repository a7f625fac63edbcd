package http

import (
	"log/slog"
	"net/http"
)

const summaryCacheKey = "fund"

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if ov, found := s.summaryCache.Get(summaryCacheKey); found {
		if s.metrics != nil {
			s.metrics.IncrCacheHit("summary")
		}
		slog.DebugContext(r.Context(), "Summary cache hit")
		writeSuccess(w, http.StatusOK, toSummaryDTO(ov))
		return
	}
	if s.metrics != nil {
		s.metrics.IncrCacheMiss("summary")
	}

	ov, err := s.summaries.Overview(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.summaryCache.Set(summaryCacheKey, ov)
	writeSuccess(w, http.StatusOK, toSummaryDTO(ov))
}
