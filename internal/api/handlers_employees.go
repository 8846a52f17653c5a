package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/db"
)

func (s *APIServer) handleEmployeesList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		users, err := s.db.ListUsers(q.Get("q"), q.Get("status"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if users == nil {
			users = []db.User{}
		}
		writeJSON(w, http.StatusOK, apitypes.EmployeesResponse{Employees: users})
	}
}

func (s *APIServer) handleGetEmployee() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		user, err := s.db.GetUser(id)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("employee %d: %w", id, err))
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *APIServer) handleCreateEmployee() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.EmployeeRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := validateEmployeeRequest(req, true); err != nil {
			s.respondError(w, r, err)
			return
		}

		id, err := s.db.CreateUser(applyEmployeeRequest(db.User{}, req), req.Password)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, apitypes.CreatedResponse{ID: id})
	}
}

// handleUpdateEmployee changes the fields present in the request. The password changes only when given.
func (s *APIServer) handleUpdateEmployee() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var req apitypes.EmployeeRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := validateEmployeeRequest(req, false); err != nil {
			s.respondError(w, r, err)
			return
		}

		existing, err := s.db.GetUser(id)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("employee %d: %w", id, err))
			return
		}
		if _, err := s.db.UpdateUser(applyEmployeeRequest(existing, req), req.Password); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleDeleteEmployee marks the employee as resigned. Their evaluations are kept.
func (s *APIServer) handleDeleteEmployee() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		n, err := s.db.SoftDeleteUser(id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if n == 0 {
			s.respondError(w, r, fmt.Errorf("employee %d: %w", id, db.ErrNotFound))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func validateEmployeeRequest(req apitypes.EmployeeRequest, create bool) error {
	if create {
		if strings.TrimSpace(req.Username) == "" {
			return badRequest("username is required")
		}
		if strings.TrimSpace(req.Name) == "" {
			return badRequest("name is required")
		}
		if req.Password == "" {
			return badRequest("password is required")
		}
	}
	switch req.Role {
	case "", db.RoleAdmin, db.RoleEmployee:
	default:
		return badRequest("role must be %s or %s", db.RoleAdmin, db.RoleEmployee)
	}
	switch req.WorkStatus {
	case "", db.WorkStatusActive, db.WorkStatusResigned:
	default:
		return badRequest("workStatus must be %s or %s", db.WorkStatusActive, db.WorkStatusResigned)
	}
	for name, value := range map[string]string{"birthDate": req.BirthDate, "hireDate": req.HireDate, "licenseDate": req.LicenseDate} {
		if value == "" {
			continue
		}
		if err := parseDate(name, value); err != nil {
			return err
		}
	}
	return nil
}

func applyEmployeeRequest(u db.User, req apitypes.EmployeeRequest) db.User {
	set := func(dst *string, value string) {
		if v := strings.TrimSpace(value); v != "" {
			*dst = v
		}
	}
	set(&u.Username, req.Username)
	set(&u.Role, req.Role)
	set(&u.Name, req.Name)
	set(&u.Gender, req.Gender)
	set(&u.BirthDate, req.BirthDate)
	set(&u.WorkStatus, req.WorkStatus)
	set(&u.JobType, req.JobType)
	set(&u.HireDate, req.HireDate)
	set(&u.LicenseName, req.LicenseName)
	set(&u.LicenseDate, req.LicenseDate)
	return u
}
