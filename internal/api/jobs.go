package api

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/ameistad/carenote/internal/logging"
	"github.com/oklog/ulid"
)

// finishedJobTTL is how long the final entry of a job stays available to late subscribers.
const finishedJobTTL = time.Hour

func newJobID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

type jobState struct {
	final    *logging.LogEntry
	finished time.Time
}

// jobTracker remembers running jobs and the last entry of finished ones, so a client that
// subscribes after a job ended still sees how it ended.
type jobTracker struct {
	mu   sync.Mutex
	jobs map[string]*jobState
}

func newJobTracker() *jobTracker {
	return &jobTracker{jobs: make(map[string]*jobState)}
}

func (t *jobTracker) start(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, job := range t.jobs {
		if job.final != nil && time.Since(job.finished) > finishedJobTTL {
			delete(t.jobs, id)
		}
	}
	t.jobs[jobID] = &jobState{}
}

func (t *jobTracker) finish(jobID string, entry logging.LogEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[jobID]; ok {
		job.final = &entry
		job.finished = time.Now()
	}
}

// lookup returns the final entry of a finished job. known is false for jobs never started here.
func (t *jobTracker) lookup(jobID string) (final *logging.LogEntry, known bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return nil, false
	}
	return job.final, true
}

// jobFunc does the work of a background job and returns the completion message and its fields.
type jobFunc func(ctx context.Context, logger *slog.Logger) (string, []any, error)

// startJob runs fn in the background with a job logger and returns the job id.
func (s *APIServer) startJob(name string, fn jobFunc) string {
	jobID := newJobID()
	jobLogger := logging.NewJobLogger(jobID, s.logLevel, s.logBroker)
	s.jobs.start(jobID)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), defaultContextTimeout)
		defer cancel()

		jobLogger.Info("Job started", "job", name)
		message, args, err := fn(ctx, jobLogger)
		// The final entry is recorded before it is logged so late subscribers still see it.
		if err != nil {
			s.jobs.finish(jobID, logging.LogEntry{
				Level:       slog.LevelError.String(),
				Message:     name + " failed",
				Timestamp:   time.Now(),
				JobID:       jobID,
				Fields:      map[string]any{"error": err.Error()},
				IsJobFailed: true,
			})
			logging.LogJobFailed(jobLogger, jobID, name+" failed", err)
			return
		}
		s.jobs.finish(jobID, logging.LogEntry{
			Level:         slog.LevelInfo.String(),
			Message:       message,
			Timestamp:     time.Now(),
			JobID:         jobID,
			IsJobComplete: true,
		})
		logging.LogJobComplete(jobLogger, jobID, message, args...)
	}()
	return jobID
}
