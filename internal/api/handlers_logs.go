package api

import (
	"net/http"

	"github.com/ameistad/carenote/internal/logging"
)

func (s *APIServer) handleLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Subscribe to general logs (all logs)
		logChan, subscriberID := s.logBroker.SubscribeGeneral()

		streamConfig := sseStreamConfig{
			logChan: logChan,
			cleanup: func() { s.logBroker.UnsubscribeGeneral(subscriberID) },
		}

		streamSSELogs(w, r, streamConfig)
	}
}

// handleJobLogs streams the logs of one upload or evaluation job and ends when the job does.
func (s *APIServer) handleJobLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := r.PathValue("jobID")
		if _, known := s.jobs.lookup(jobID); !known {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}

		logChan, subscriberID := s.logBroker.SubscribeJob(jobID)
		streamConfig := sseStreamConfig{
			logChan:      logChan,
			cleanup:      func() { s.logBroker.UnsubscribeJob(jobID, subscriberID) },
			endOnJobDone: true,
		}
		// The job may have ended before the client subscribed.
		if final, _ := s.jobs.lookup(jobID); final != nil {
			streamConfig.backlog = []logging.LogEntry{*final}
		}

		streamSSELogs(w, r, streamConfig)
	}
}
