package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ameistad/carenote/internal/logging"
)

const keepaliveInterval = 30 * time.Second

type sseStreamConfig struct {
	logChan <-chan logging.LogEntry
	cleanup func()
	// backlog is written before anything from logChan.
	backlog []logging.LogEntry
	// endOnJobDone closes the stream after a complete or failed entry.
	endOnJobDone bool
}

// streamSSELogs writes log entries as Server-Sent Events until the client goes away,
// the channel closes, or the job ends.
func streamSSELogs(w http.ResponseWriter, r *http.Request, cfg sseStreamConfig) {
	if cfg.cleanup != nil {
		defer cfg.cleanup()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Nginx/HAProxy
	w.WriteHeader(http.StatusOK)

	// Send initial keepalive to establish connection
	if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
		return
	}
	flusher.Flush()

	done := func(entry logging.LogEntry) bool {
		return cfg.endOnJobDone && (entry.IsJobComplete || entry.IsJobFailed)
	}

	for _, entry := range cfg.backlog {
		if err := writeSSEMessage(w, entry); err != nil {
			return
		}
		flusher.Flush()
		if done(entry) {
			return
		}
	}

	ctx := r.Context()
	keepaliveTicker := time.NewTicker(keepaliveInterval)
	defer keepaliveTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return

		case <-keepaliveTicker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case entry, ok := <-cfg.logChan:
			if !ok {
				return
			}
			if err := writeSSEMessage(w, entry); err != nil {
				return
			}
			flusher.Flush()
			if done(entry) {
				return
			}
		}
	}
}

// writeSSEMessage writes a log entry as Server-Sent Event
func writeSSEMessage(w http.ResponseWriter, entry logging.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	if err != nil {
		return fmt.Errorf("failed to write SSE data: %w", err)
	}

	return nil
}
