package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/db"
)

// handleCreateEmployeeEvaluation records an issue against an employee's note. An issue already
// recorded for the same record, employee, category and type is updated instead.
func (s *APIServer) handleCreateEmployeeEvaluation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.EmployeeEvaluationRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := validateEmployeeEvaluationRequest(req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if _, err := s.db.GetRecord(req.RecordID); err != nil {
			s.respondError(w, r, fmt.Errorf("record %d: %w", req.RecordID, err))
			return
		}

		eval := db.EmployeeEvaluation{
			RecordID:        req.RecordID,
			TargetDate:      req.TargetDate,
			TargetUserID:    req.TargetUserID,
			EvaluatorUserID: req.EvaluatorUserID,
			Category:        req.Category,
			EvaluationType:  req.EvaluationType,
			Score:           req.Score,
			Comment:         strings.TrimSpace(req.Comment),
			EvaluationDate:  req.EvaluationDate,
		}
		if eval.TargetUserID == nil && req.TargetUserName != "" {
			userID, err := s.db.UserIDByName(strings.TrimSpace(req.TargetUserName))
			if errors.Is(err, db.ErrNotFound) {
				s.respondError(w, r, badRequest("unknown employee %q", req.TargetUserName))
				return
			}
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			eval.TargetUserID = &userID
		}

		if eval.TargetUserID != nil {
			existingID, err := s.db.FindExistingEmployeeEvaluation(eval.RecordID, *eval.TargetUserID, eval.Category, eval.EvaluationType)
			switch {
			case err == nil:
				eval.ID = existingID
				if eval.Score == 0 {
					eval.Score = 1
				}
				if eval.EvaluationDate == "" {
					eval.EvaluationDate = time.Now().Format(time.DateOnly)
				}
				if _, err := s.db.UpdateEmployeeEvaluation(eval); err != nil {
					s.respondError(w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, apitypes.CreatedResponse{ID: existingID})
				return
			case !errors.Is(err, db.ErrNotFound):
				s.respondError(w, r, err)
				return
			}
		}

		id, err := s.db.SaveEmployeeEvaluation(eval)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, apitypes.CreatedResponse{ID: id})
	}
}

// handleDeleteEmployeeEvaluation undoes an evaluation. Only fresh evaluations can be undone
// unless force=true is given.
func (s *APIServer) handleDeleteEmployeeEvaluation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		eval, err := s.db.GetEmployeeEvaluation(id)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("employee evaluation %d: %w", id, err))
			return
		}

		undoLimit := constants.EmployeeEvalUndoLimit * time.Second
		if !boolQuery(r, "force") && time.Since(eval.CreatedAt) > undoLimit {
			writeError(w, http.StatusConflict, fmt.Sprintf("evaluation can only be undone within %s of creation", undoLimit))
			return
		}

		if _, err := s.db.DeleteEmployeeEvaluation(id); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *APIServer) handleRecordEmployeeEvaluations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		evaluations, err := s.db.ListEmployeeEvaluationsByRecord(id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if evaluations == nil {
			evaluations = []db.EmployeeEvaluation{}
		}
		writeJSON(w, http.StatusOK, apitypes.EmployeeEvaluationsResponse{Evaluations: evaluations})
	}
}

func validateEmployeeEvaluationRequest(req apitypes.EmployeeEvaluationRequest) error {
	if req.RecordID <= 0 {
		return badRequest("recordId is required")
	}
	if !slices.Contains(db.EvalCategories, req.Category) {
		return badRequest("category must be one of %s", strings.Join(db.EvalCategories, ", "))
	}
	if !slices.Contains(db.EvalTypes, req.EvaluationType) {
		return badRequest("evaluationType must be one of %s", strings.Join(db.EvalTypes, ", "))
	}
	if req.Score < 0 {
		return badRequest("score cannot be negative")
	}
	if req.TargetDate != "" {
		if err := parseDate("targetDate", req.TargetDate); err != nil {
			return err
		}
	}
	if req.EvaluationDate != "" {
		if err := parseDate("evaluationDate", req.EvaluationDate); err != nil {
			return err
		}
	}
	return nil
}
