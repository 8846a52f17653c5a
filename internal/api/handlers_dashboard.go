package api

import (
	"errors"
	"net/http"

	"github.com/ameistad/carenote/internal/dashboard"
)

// handleDashboard aggregates employee and AI evaluations over the start/end range,
// narrowed to one employee by the user parameter.
func (s *APIServer) handleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := dateRange(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		filter := dashboard.Filter{Start: start, End: end, UserName: r.URL.Query().Get("user")}
		dash, err := dashboard.Build(r.Context(), s.db, filter)
		if errors.Is(err, dashboard.ErrInvalidRange) {
			s.respondError(w, r, badRequest("%s", err.Error()))
			return
		}
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}
