package http

import (
	"net/http"

	"fintrack/internal/auth"
)

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	summary, err := s.dashboard.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

// handleDashboardTrend returns the monthly buckets and how many records had
// no usable date.
func (s *Server) handleDashboardTrend(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	trend, err := s.dashboard.Trend(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	NewJSONResponse().Body(trend).Write(w)
}
