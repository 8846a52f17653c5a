package evaluation

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ameistad/carenote/internal/logging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const defaultConcurrency = 4

// BatchResult summarizes an EvaluateRecords run.
type BatchResult struct {
	Total     int `json:"total"`
	Evaluated int `json:"evaluated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	// Failures maps record ids to the error that stopped them.
	Failures map[int64]string `json:"failures,omitempty"`
}

// EvaluateRecords evaluates the special notes of every record with at most concurrency
// requests in flight. A failing record is counted and does not stop the batch; a cancelled
// context does.
func (s *Service) EvaluateRecords(parent context.Context, recordIDs []int64, concurrency int) (BatchResult, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	result := BatchResult{Total: len(recordIDs), Failures: map[int64]string{}}
	logger := logging.FromContextOr(parent, s.logger)

	var (
		mu   sync.Mutex
		done atomic.Int64
	)
	eg, ctx := errgroup.WithContext(parent)
	sema := semaphore.NewWeighted(int64(concurrency))

	for _, id := range recordIDs {
		if err := sema.Acquire(ctx, 1); err != nil {
			break
		}
		eg.Go(func() error {
			defer sema.Release(1)

			evaluated, err := s.evaluateRecord(ctx, id)
			n := done.Add(1)

			mu.Lock()
			switch {
			case err != nil:
				result.Failed++
				result.Failures[id] = err.Error()
			case evaluated:
				result.Evaluated++
			default:
				result.Skipped++
			}
			mu.Unlock()

			if err != nil {
				logger.Error("Record evaluation failed", "recordID", id, "error", err)
			}
			logger.Info("Evaluation progress", "done", n, "total", len(recordIDs), "recordID", id)
			return ctx.Err()
		})
	}

	if err := eg.Wait(); err != nil {
		return result, err
	}
	return result, parent.Err()
}

// evaluateRecord runs the special-note evaluation for one record and stores baseline
// grades for its nursing and recovery notes.
func (s *Service) evaluateRecord(ctx context.Context, recordID int64) (bool, error) {
	stored, err := s.store.GetRecord(recordID)
	if err != nil {
		return false, err
	}
	record := stored.Record
	if record.IsAbsent() {
		return false, nil
	}

	result := s.EvaluateSpecialNote(ctx, record)
	if err := s.SaveSpecialNoteEvaluation(recordID, result); err != nil {
		return false, err
	}
	if _, err := s.ProcessDailyNoteEvaluation(ctx, recordID, CategoryNursing, record.NursingNote); err != nil {
		return false, err
	}
	if _, err := s.ProcessDailyNoteEvaluation(ctx, recordID, CategoryRecovery, record.FunctionalNote); err != nil {
		return false, err
	}
	return result != nil, nil
}
