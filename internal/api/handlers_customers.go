package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/records"
)

func (s *APIServer) handleCustomersList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customers, err := s.db.ListCustomers(r.URL.Query().Get("q"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if customers == nil {
			customers = []db.Customer{}
		}
		writeJSON(w, http.StatusOK, apitypes.CustomersResponse{Customers: customers})
	}
}

func (s *APIServer) handleGetCustomer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		customer, err := s.db.GetCustomer(id)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("customer %d: %w", id, err))
			return
		}
		writeJSON(w, http.StatusOK, customer)
	}
}

func (s *APIServer) handleCreateCustomer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.CustomerRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := validateCustomerRequest(req); err != nil {
			s.respondError(w, r, err)
			return
		}

		id, err := s.db.CreateCustomer(customerFromRequest(0, req))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, apitypes.CreatedResponse{ID: id})
	}
}

func (s *APIServer) handleUpdateCustomer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var req apitypes.CustomerRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := validateCustomerRequest(req); err != nil {
			s.respondError(w, r, err)
			return
		}

		n, err := s.db.UpdateCustomer(customerFromRequest(id, req))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if n == 0 {
			s.respondError(w, r, fmt.Errorf("customer %d: %w", id, db.ErrNotFound))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *APIServer) handleDeleteCustomer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		n, err := s.db.DeleteCustomer(id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if n == 0 {
			s.respondError(w, r, fmt.Errorf("customer %d: %w", id, db.ErrNotFound))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *APIServer) handleCustomerRecords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := s.customerRecords(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, apitypes.RecordsResponse{Records: recs})
	}
}

// handleRequiredItems checks the customer's records for missing required items.
func (s *APIServer) handleRequiredItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, err := s.customerRecords(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		recs := make([]records.Record, len(stored))
		for i, rec := range stored {
			recs[i] = rec.Record
		}

		checks := records.CheckRequiredItems(recs)
		if checks == nil {
			checks = []records.RequiredCheck{}
		}
		response := apitypes.RequiredItemsResponse{Checks: checks}
		for _, category := range records.Categories {
			rate, completed, required := records.CompletionRate(checks, category)
			response.Completion = append(response.Completion, apitypes.CategoryCompletion{
				Category:  category,
				Rate:      rate,
				Completed: completed,
				Required:  required,
			})
		}
		writeJSON(w, http.StatusOK, response)
	}
}

// customerRecords loads the records of the {id} customer within the start/end query range.
func (s *APIServer) customerRecords(r *http.Request) ([]db.DailyRecord, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	start, end, err := dateRange(r)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.GetCustomer(id); err != nil {
		return nil, fmt.Errorf("customer %d: %w", id, err)
	}
	recs, err := s.db.GetCustomerRecords(id, start, end)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []db.DailyRecord{}
	}
	return recs, nil
}

func validateCustomerRequest(req apitypes.CustomerRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return badRequest("customer name is required")
	}
	if req.BirthDate != "" {
		if err := parseDate("birthDate", req.BirthDate); err != nil {
			return err
		}
	}
	if req.BenefitStartDate != "" {
		if err := parseDate("benefitStartDate", req.BenefitStartDate); err != nil {
			return err
		}
	}
	return nil
}

func customerFromRequest(id int64, req apitypes.CustomerRequest) db.Customer {
	return db.Customer{
		ID:               id,
		Name:             strings.TrimSpace(req.Name),
		BirthDate:        req.BirthDate,
		Gender:           req.Gender,
		RecognitionNo:    strings.TrimSpace(req.RecognitionNo),
		BenefitStartDate: req.BenefitStartDate,
		Grade:            req.Grade,
	}
}
