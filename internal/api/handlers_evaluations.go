package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/evaluation"
	"github.com/ameistad/carenote/internal/logging"
)

// handleEvaluateRecord runs the AI evaluation of a record. With a category in the body only that
// note is evaluated, using the given text or the stored note.
func (s *APIServer) handleEvaluateRecord() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var req apitypes.EvaluateRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r.Body, &req); err != nil {
				s.respondError(w, r, err)
				return
			}
		}
		stored, err := s.db.GetRecord(id)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("record %d: %w", id, err))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), defaultContextTimeout)
		defer cancel()

		response := apitypes.EvaluateResponse{RecordID: id}
		if req.Category != "" {
			category := strings.ToUpper(strings.TrimSpace(req.Category))
			switch category {
			case evaluation.CategoryPhysical, evaluation.CategoryCognitive, evaluation.CategoryNursing, evaluation.CategoryRecovery:
			default:
				s.respondError(w, r, badRequest("unknown evaluation category %q", req.Category))
				return
			}
			text := req.Text
			if text == "" {
				text = noteForCategory(stored, category)
			}
			note, err := s.evaluator.ProcessDailyNoteEvaluation(ctx, id, category, text)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			response.Note = &note
		} else {
			result, err := s.evaluator.EvaluateRecords(ctx, []int64{id}, 1)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			if msg, failed := result.Failures[id]; failed {
				s.respondError(w, r, fmt.Errorf("evaluation of record %d failed: %s", id, msg))
				return
			}
		}

		evaluations, err := s.db.ListAIEvaluationsByRecord(id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		response.Evaluations = evaluations
		if response.Evaluations == nil {
			response.Evaluations = []db.AIEvaluation{}
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func noteForCategory(rec db.DailyRecord, category string) string {
	switch category {
	case evaluation.CategoryPhysical:
		return rec.PhysicalNote
	case evaluation.CategoryCognitive:
		return rec.CognitiveNote
	case evaluation.CategoryNursing:
		return rec.NursingNote
	case evaluation.CategoryRecovery:
		return rec.FunctionalNote
	}
	return ""
}

func (s *APIServer) handleRecordEvaluations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if _, err := s.db.GetRecord(id); err != nil {
			s.respondError(w, r, fmt.Errorf("record %d: %w", id, err))
			return
		}
		evaluations, err := s.db.ListAIEvaluationsByRecord(id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if evaluations == nil {
			evaluations = []db.AIEvaluation{}
		}
		writeJSON(w, http.StatusOK, apitypes.EvaluationsResponse{Evaluations: evaluations})
	}
}

// handleBatchEvaluate evaluates every record in a date range as a background job.
func (s *APIServer) handleBatchEvaluate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.BatchEvaluateRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := parseDate("start", req.Start); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := parseDate("end", req.End); err != nil {
			s.respondError(w, r, err)
			return
		}
		if req.Start > req.End {
			s.respondError(w, r, badRequest("start %s is after end %s", req.Start, req.End))
			return
		}

		recs, err := s.db.GetAllRecordsByDateRange(req.Start, req.End)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		ids := make([]int64, len(recs))
		for i, rec := range recs {
			ids[i] = rec.RecordID
		}

		jobID := s.startJob("Batch evaluation", func(ctx context.Context, logger *slog.Logger) (string, []any, error) {
			logger.Info("Evaluating records", "start", req.Start, "end", req.End, "records", len(ids))
			result, err := s.evaluator.EvaluateRecords(logging.WithLogger(ctx, logger), ids, req.Concurrency)
			if err != nil {
				return "", nil, err
			}
			msg := fmt.Sprintf("Evaluated %d of %d records", result.Evaluated, result.Total)
			return msg, []any{"evaluated", result.Evaluated, "skipped", result.Skipped, "failed", result.Failed}, nil
		})
		writeJSON(w, http.StatusAccepted, apitypes.JobResponse{JobID: jobID})
	}
}

func (s *APIServer) handleEvaluationStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		start, end, err := dateRange(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		stats, err := s.db.AIEvaluationStats(id, start, end)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if stats == nil {
			stats = []db.AIEvaluationStat{}
		}
		writeJSON(w, http.StatusOK, apitypes.EvaluationStatsResponse{Stats: stats})
	}
}
