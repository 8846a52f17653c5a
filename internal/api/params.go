package api

import (
	"net/http"
	"strconv"
	"time"
)

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

func parseDate(name, value string) error {
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		return badRequest("%s must be a YYYY-MM-DD date, got %q", name, value)
	}
	return nil
}

// dateRange reads the start and end query parameters. Missing values default to
// the last 30 days up to today.
func dateRange(r *http.Request) (string, string, error) {
	q := r.URL.Query()
	end := q.Get("end")
	if end == "" {
		end = time.Now().Format(time.DateOnly)
	}
	if err := parseDate("end", end); err != nil {
		return "", "", err
	}
	start := q.Get("start")
	if start == "" {
		endDate, _ := time.Parse(time.DateOnly, end)
		start = endDate.AddDate(0, 0, -30).Format(time.DateOnly)
	}
	if err := parseDate("start", start); err != nil {
		return "", "", err
	}
	if start > end {
		return "", "", badRequest("start %s is after end %s", start, end)
	}
	return start, end, nil
}

func boolQuery(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func intQuery(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
