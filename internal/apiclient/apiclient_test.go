package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ameistad/carenote/internal/api"
	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/logging"
	"github.com/stretchr/testify/assert"
)

func newClient(t *testing.T, handler http.Handler) *APIClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	client, err := New(ts.URL+"/", "secret")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("", "token")
	assert.Error(t, err)
}

func TestRequestErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "401" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(apitypes.ErrorResponse{Error: "customer 7: not found"})
	})
	client := newClient(t, mux)

	_, err := client.Customer(context.Background(), 7)
	assert.True(t, IsNotFound(err))
	assert.ErrorContains(t, err, "customer 7: not found")

	_, err = client.Customer(context.Background(), 401)
	assert.ErrorContains(t, err, constants.EnvVarAPIToken)
	assert.False(t, IsNotFound(err))
}

func TestAuthHeaderAndQuery(t *testing.T) {
	var gotAuth, gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/employees", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(apitypes.EmployeesResponse{Employees: []db.User{{ID: 1, Name: "김요양"}}})
	})
	client := newClient(t, mux)

	employees, err := client.Employees(context.Background(), "김", db.WorkStatusActive)
	assert.NoError(t, err)
	assert.Len(t, employees, 1)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Contains(t, gotQuery, "status=")
	assert.Contains(t, gotQuery, "q=")
}

func TestStreamJobLogs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/jobs/{jobID}/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive\n\n")
		for _, entry := range []logging.LogEntry{
			{Level: "INFO", Message: "Job started", JobID: r.PathValue("jobID")},
			{Level: "INFO", Message: "Saved 3 records", JobID: r.PathValue("jobID"), IsJobComplete: true},
			{Level: "INFO", Message: "never read"},
		} {
			data, _ := json.Marshal(entry)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
	})
	mux.HandleFunc("GET /v1/jobs/unfinished/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"message\":\"Job started\"}\n\n")
	})
	client := newClient(t, mux)

	var seen []string
	final, err := client.StreamJobLogs(context.Background(), "job-1", func(e logging.LogEntry) {
		seen = append(seen, e.Message)
	})
	assert.NoError(t, err)
	assert.True(t, final.IsJobComplete)
	assert.Equal(t, []string{"Job started", "Saved 3 records"}, seen)

	_, err = client.StreamJobLogs(context.Background(), "unfinished", nil)
	assert.ErrorContains(t, err, "ended before the job finished")
}

func TestClientAgainstServer(t *testing.T) {
	store, err := db.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	srv := api.NewServer(api.Options{
		APIToken: "secret",
		DB:       store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	client := newClient(t, srv.Handler())
	ctx := context.Background()

	health, err := client.HealthCheck(ctx)
	if assert.NoError(t, err) {
		assert.Equal(t, "ok", health.Status)
	}
	assert.NoError(t, Probe(ctx, client.baseURL))

	id, err := client.CreateCustomer(ctx, apitypes.CustomerRequest{Name: "홍길동", BirthDate: "1940-01-02"})
	if !assert.NoError(t, err) {
		return
	}
	assert.NoError(t, client.UpdateCustomer(ctx, id, apitypes.CustomerRequest{Name: "홍길동", Grade: "2등급"}))
	customers, err := client.Customers(ctx, "홍")
	assert.NoError(t, err)
	if assert.Len(t, customers, 1) {
		assert.Equal(t, "2등급", customers[0].Grade)
	}

	layout := filepath.Join(t.TempDir(), "march.yaml")
	content := "pages:\n  - text: \"수급자명 홍길동\"\n    tables:\n      - top: 10\n        rows:\n          - [\"년월/일\", \"\", \"3/3\"]\n          - [\"총시간\", \"\", \"결석\"]\n"
	if err := os.WriteFile(layout, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	jobID, err := client.UploadRecords(ctx, layout)
	if !assert.NoError(t, err) {
		return
	}
	final, err := client.StreamJobLogs(ctx, jobID, nil)
	assert.NoError(t, err)
	assert.True(t, final.IsJobComplete)

	recs, err := client.CustomerRecords(ctx, id, "2025-03-01", "2025-03-31")
	assert.NoError(t, err)
	assert.Len(t, recs, 1)

	assert.NoError(t, client.DeleteCustomer(ctx, id))
	err = client.DeleteCustomer(ctx, id)
	assert.True(t, IsNotFound(err))
}
