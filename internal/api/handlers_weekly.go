package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/weekly"
)

const defaultReportLimit = 10

// handleWeekly returns the two-week analysis of a customer. refresh=true bypasses the cache.
func (s *APIServer) handleWeekly() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customer, week, err := s.weeklyTarget(r, r.URL.Query().Get("week"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		status, err := s.weekly.ComputeWeeklyStatus(r.Context(), customer.ID, customer.Name, week, !boolQuery(r, "refresh"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func (s *APIServer) handleGenerateWeeklyReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.WeeklyReportRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r.Body, &req); err != nil {
				s.respondError(w, r, err)
				return
			}
		}
		customer, week, err := s.weeklyTarget(r, req.Week)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		report, status, err := s.weekly.GenerateWeeklyReport(r.Context(), customer.ID, customer.Name, week)
		if errors.Is(err, weekly.ErrEmptyReport) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, apitypes.WeeklyReportResponse{Report: report, Status: status})
	}
}

func (s *APIServer) handleWeeklyReports() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		reports, err := s.weekly.ListReports(id, intQuery(r, "limit", defaultReportLimit))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if reports == nil {
			reports = []db.WeeklyStatus{}
		}
		writeJSON(w, http.StatusOK, apitypes.WeeklyReportsResponse{Reports: reports})
	}
}

// weeklyTarget resolves the {id} customer and the week, which defaults to today.
func (s *APIServer) weeklyTarget(r *http.Request, week string) (db.Customer, string, error) {
	id, err := pathID(r)
	if err != nil {
		return db.Customer{}, "", err
	}
	if week == "" {
		week = time.Now().Format(time.DateOnly)
	}
	if err := parseDate("week", week); err != nil {
		return db.Customer{}, "", err
	}
	customer, err := s.db.GetCustomer(id)
	if err != nil {
		return db.Customer{}, "", fmt.Errorf("customer %d: %w", id, err)
	}
	return customer, week, nil
}
