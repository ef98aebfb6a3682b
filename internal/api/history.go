package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nerrad567/moodcast/internal/catalog"
	"github.com/nerrad567/moodcast/internal/history"
)

// HistoryResponse is the body of GET /api/v1/cities/{city}/history.
type HistoryResponse struct {
	City    catalog.City     `json:"city"`
	Lookups []history.Lookup `json:"lookups"`
	Total   int              `json:"total"`
}

// handleCityHistory returns the most recent lookups served for a city.
func (s *Server) handleCityHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history is disabled")
		return
	}

	city, ok := cityParam(w, r)
	if !ok {
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	lookups, err := s.history.Recent(ctx, city, limit)
	if err != nil {
		s.logger.Error("failed to read history", "city", city, "error", err)
		writeInternalError(w, "failed to read history")
		return
	}
	total, err := s.history.Count(ctx, city)
	if err != nil {
		s.logger.Error("failed to count history", "city", city, "error", err)
		writeInternalError(w, "failed to read history")
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		City:    city,
		Lookups: lookups,
		Total:   total,
	})
}

// parseHistoryLimit parses the limit query parameter. Empty means the
// repository default.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return history.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > history.MaxLimit {
		limit = history.MaxLimit
	}
	return limit, nil
}
