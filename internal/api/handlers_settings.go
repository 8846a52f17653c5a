package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/db"
)

func (s *APIServer) handleSettingsList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := s.db.ListSettings()
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		apiSettings := make([]db.SettingAPIResponse, len(settings))
		for i, setting := range settings {
			apiSettings[i] = setting.ToAPIResponse()
		}
		writeJSON(w, http.StatusOK, apitypes.SettingsListResponse{Settings: apiSettings})
	}
}

func (s *APIServer) handleDeleteSetting() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if name == "" {
			writeError(w, http.StatusBadRequest, "Setting name is required")
			return
		}
		if err := s.db.DeleteSetting(name); err != nil {
			s.respondError(w, r, fmt.Errorf("setting %q: %w", name, err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSetSetting stores an age-encrypted setting such as a provider API key.
func (s *APIServer) handleSetSetting() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.SetSettingRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			s.respondError(w, r, err)
			return
		}

		if err := validateSetSettingRequest(req); err != nil {
			s.respondError(w, r, err)
			return
		}

		if err := s.db.SetSetting(req.Name, req.Value); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func validateSetSettingRequest(req apitypes.SetSettingRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return badRequest("setting name is required")
	}

	if strings.TrimSpace(req.Value) == "" {
		return badRequest("setting value is required")
	}

	if len(req.Name) > 255 {
		return badRequest("setting name too long (max 255 characters)")
	}

	if !isValidSettingName(req.Name) {
		return badRequest("setting name can only contain letters, numbers, underscores, hyphens and dots")
	}

	if len(req.Value) > 10000 {
		return badRequest("setting value too long (max 10000 characters)")
	}

	return nil
}

func isValidSettingName(name string) bool {
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-' || char == '.') {
			return false
		}
	}
	return true
}
