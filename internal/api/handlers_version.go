package api

import (
	"net/http"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/constants"
)

// handleProbe answers the container health check with a plain "ok".
func (s *APIServer) handleProbe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *APIServer) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := apitypes.HealthResponse{
			Status:  "ok",
			Version: constants.Version,
			Service: "carenoted",
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func (s *APIServer) handleVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apitypes.VersionResponse{Version: constants.Version})
	}
}
