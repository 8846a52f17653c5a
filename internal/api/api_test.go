package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ameistad/carenote/internal/aiclient"
	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/dashboard"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/evaluation"
	"github.com/ameistad/carenote/internal/logging"
	"github.com/ameistad/carenote/internal/records"
	"github.com/ameistad/carenote/internal/secrets"
	"github.com/ameistad/carenote/internal/weekly"
	"github.com/stretchr/testify/assert"
)

const testToken = "test-token"

type fakeClient struct {
	mu       sync.Mutex
	response string
}

func (f *fakeClient) ChatCompletion(ctx context.Context, req aiclient.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.response, nil
}

func (f *fakeClient) setResponse(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.response = s
}

func newTestServer(t *testing.T, token string) (*APIServer, *db.DB, *fakeClient) {
	t.Helper()
	store, err := db.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	client := &fakeClient{response: "식사량이 다소 줄었으나 전반적으로 안정적인 상태를 유지함."}
	resolver := aiclient.NewResolver(aiclient.ProviderGemini, store)
	resolver.SetClient(client)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := NewServer(Options{
		APIToken:   token,
		UploadsDir: t.TempDir(),
		DB:         store,
		Evaluator:  evaluation.NewService(store, resolver, logger),
		Weekly:     weekly.NewService(store, resolver, logger),
		LogBroker:  logging.NewLogBroker(),
		Logger:     logger,
	})
	return srv, store, client
}

// do sends an authorized request. body is marshalled to JSON unless it is a string.
func do(t *testing.T, srv *APIServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func seedRecords(t *testing.T, store *db.DB) int64 {
	t.Helper()
	rec := func(date, total, physical, lunch string) records.Record {
		r := records.NewRecord(date)
		r.CustomerName = "홍길동"
		r.CustomerBirthDate = "1940-01-02"
		r.TotalServiceTime = total
		r.StartTime = "09:00"
		r.EndTime = "16:00"
		r.PhysicalNote = physical
		r.NursingNote = "혈압 정상 범위"
		r.MealLunch = lunch
		return r
	}
	_, err := store.SaveParsedRecords([]records.Record{
		rec("2025-02-25", "240분", "보행 안정 유지", "일반식 전량"),
		rec("2025-03-04", "240분", "무릎 통증 호소", "죽식 1/2이하"),
		rec("2025-03-05", "240분", "산책 활발히 참여", "일반식 전량"),
	})
	if err != nil {
		t.Fatalf("failed to seed records: %v", err)
	}
	customer, err := store.FindCustomerByName("홍길동")
	if err != nil {
		t.Fatalf("failed to find customer: %v", err)
	}
	return customer.ID
}

func TestProbeAndHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, constants.HealthCheckPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	health := decode[apitypes.HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, constants.Version, health.Version)
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name       string
		serverKey  string
		header     string
		wantStatus int
	}{
		{"valid token", testToken, "Bearer " + testToken, http.StatusOK},
		{"missing header", testToken, "", http.StatusUnauthorized},
		{"wrong scheme", testToken, "Token " + testToken, http.StatusUnauthorized},
		{"empty token", testToken, "Bearer ", http.StatusUnauthorized},
		{"wrong token", testToken, "Bearer nope", http.StatusUnauthorized},
		{"server without token", "", "Bearer anything", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer(t, tt.serverKey)
			req := httptest.NewRequest(http.MethodGet, "/v1/version", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, decode[apitypes.ErrorResponse](t, rec).Error)
			}
		})
	}
}

func TestCustomersCRUD(t *testing.T) {
	srv, _, _ := newTestServer(t, testToken)

	rec := do(t, srv, http.MethodPost, "/v1/customers", apitypes.CustomerRequest{Name: "김영희", BirthDate: "1938-05-01"})
	if !assert.Equal(t, http.StatusCreated, rec.Code) {
		return
	}
	id := decode[apitypes.CreatedResponse](t, rec).ID
	path := fmt.Sprintf("/v1/customers/%d", id)

	rec = do(t, srv, http.MethodGet, "/v1/customers?q="+url.QueryEscape("영희"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[apitypes.CustomersResponse](t, rec).Customers, 1)

	rec = do(t, srv, http.MethodPut, path, apitypes.CustomerRequest{Name: "김영희", Grade: "3등급"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	customer := decode[db.Customer](t, rec)
	assert.Equal(t, "3등급", customer.Grade)
	assert.Empty(t, customer.BirthDate)

	rec = do(t, srv, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[apitypes.ErrorResponse](t, rec).Error, "not found")

	rec = do(t, srv, http.MethodPut, path, apitypes.CustomerRequest{Name: "김영희"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerRequestErrors(t *testing.T) {
	srv, _, _ := newTestServer(t, testToken)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"missing name", http.MethodPost, "/v1/customers", apitypes.CustomerRequest{}},
		{"bad birth date", http.MethodPost, "/v1/customers", apitypes.CustomerRequest{Name: "a", BirthDate: "1938.05.01"}},
		{"unknown field", http.MethodPost, "/v1/customers", `{"nickname":"x"}`},
		{"malformed json", http.MethodPost, "/v1/customers", `{"name":`},
		{"empty body", http.MethodPost, "/v1/customers", nil},
		{"invalid id", http.MethodGet, "/v1/customers/abc", nil},
		{"bad range", http.MethodGet, "/v1/customers/1/records?start=2025-03-10&end=2025-03-01", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[apitypes.ErrorResponse](t, rec).Error)
		})
	}
}

func TestCustomerRecordsAndRequiredItems(t *testing.T) {
	srv, store, _ := newTestServer(t, testToken)
	id := seedRecords(t, store)

	rec := do(t, srv, http.MethodGet, fmt.Sprintf("/v1/customers/%d/records?start=2025-03-01&end=2025-03-31", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	recs := decode[apitypes.RecordsResponse](t, rec).Records
	if assert.Len(t, recs, 2) {
		assert.Equal(t, "2025-03-05", recs[0].Date)
	}

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/v1/customers/%d/required-items?start=2025-03-01&end=2025-03-31", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	required := decode[apitypes.RequiredItemsResponse](t, rec)
	assert.Len(t, required.Checks, 2)
	if assert.Len(t, required.Completion, len(records.Categories)) {
		assert.Equal(t, records.CategoryBasic, required.Completion[0].Category)
	}

	rec = do(t, srv, http.MethodGet, "/v1/customers/999/records?start=2025-03-01&end=2025-03-31", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployees(t *testing.T) {
	srv, _, _ := newTestServer(t, testToken)

	rec := do(t, srv, http.MethodPost, "/v1/employees", apitypes.EmployeeRequest{Username: "kim", Password: "pw1234", Name: "김요양", JobType: "요양보호사"})
	if !assert.Equal(t, http.StatusCreated, rec.Code) {
		return
	}
	id := decode[apitypes.CreatedResponse](t, rec).ID
	path := fmt.Sprintf("/v1/employees/%d", id)

	rec = do(t, srv, http.MethodPut, path, apitypes.EmployeeRequest{JobType: "사회복지사"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, path, nil)
	user := decode[db.User](t, rec)
	assert.Equal(t, "김요양", user.Name)
	assert.Equal(t, "사회복지사", user.JobType)

	rec = do(t, srv, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/employees?status="+url.QueryEscape(db.WorkStatusActive), nil)
	assert.Empty(t, decode[apitypes.EmployeesResponse](t, rec).Employees)

	rec = do(t, srv, http.MethodGet, path, nil)
	assert.Equal(t, db.WorkStatusResigned, decode[db.User](t, rec).WorkStatus)

	rec = do(t, srv, http.MethodPost, "/v1/employees", apitypes.EmployeeRequest{Username: "lee", Name: "이신입"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/v1/employees/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployeeEvaluations(t *testing.T) {
	srv, store, _ := newTestServer(t, testToken)
	seedRecords(t, store)
	recordID, err := store.RecordIDByCustomerNameAndDate("홍길동", "2025-03-04")
	if !assert.NoError(t, err) {
		return
	}
	rec := do(t, srv, http.MethodPost, "/v1/employees", apitypes.EmployeeRequest{Username: "kim", Password: "pw1234", Name: "김요양"})
	if !assert.Equal(t, http.StatusCreated, rec.Code) {
		return
	}

	request := apitypes.EmployeeEvaluationRequest{
		RecordID:       recordID,
		TargetUserName: "김요양",
		Category:       db.CategoryPhysical,
		EvaluationType: db.EvalTypeMissing,
	}
	rec = do(t, srv, http.MethodPost, "/v1/employee-evaluations", request)
	if !assert.Equal(t, http.StatusCreated, rec.Code) {
		return
	}
	first := decode[apitypes.CreatedResponse](t, rec).ID

	rec = do(t, srv, http.MethodPost, "/v1/employee-evaluations", request)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, decode[apitypes.CreatedResponse](t, rec).ID)

	// fresh evaluations can be undone
	rec = do(t, srv, http.MethodDelete, fmt.Sprintf("/v1/employee-evaluations/%d", first), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/employee-evaluations", request)
	if !assert.Equal(t, http.StatusCreated, rec.Code) {
		return
	}
	second := decode[apitypes.CreatedResponse](t, rec).ID
	_, err = store.Exec(`UPDATE employee_evaluations SET created_at = datetime('now', '-1 minute') WHERE emp_eval_id = ?`, second)
	if !assert.NoError(t, err) {
		return
	}

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/v1/records/%d/employee-evaluations", recordID), nil)
	evals := decode[apitypes.EmployeeEvaluationsResponse](t, rec).Evaluations
	if assert.Len(t, evals, 1) {
		assert.Equal(t, "김요양", evals[0].TargetUserName)
	}

	rec = do(t, srv, http.MethodDelete, fmt.Sprintf("/v1/employee-evaluations/%d", second), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodDelete, fmt.Sprintf("/v1/employee-evaluations/%d?force=true", second), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodDelete, fmt.Sprintf("/v1/employee-evaluations/%d", second), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployeeEvaluationErrors(t *testing.T) {
	srv, store, _ := newTestServer(t, testToken)
	seedRecords(t, store)
	recordID, err := store.RecordIDByCustomerNameAndDate("홍길동", "2025-03-04")
	if !assert.NoError(t, err) {
		return
	}

	tests := []struct {
		name       string
		request    apitypes.EmployeeEvaluationRequest
		wantStatus int
	}{
		{"bad category", apitypes.EmployeeEvaluationRequest{RecordID: recordID, Category: "기타", EvaluationType: db.EvalTypeTypo}, http.StatusBadRequest},
		{"bad type", apitypes.EmployeeEvaluationRequest{RecordID: recordID, Category: db.CategoryNursing, EvaluationType: "지각"}, http.StatusBadRequest},
		{"unknown employee", apitypes.EmployeeEvaluationRequest{RecordID: recordID, TargetUserName: "없음", Category: db.CategoryNursing, EvaluationType: db.EvalTypeTypo}, http.StatusBadRequest},
		{"missing record", apitypes.EmployeeEvaluationRequest{RecordID: 9999, Category: db.CategoryNursing, EvaluationType: db.EvalTypeTypo}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/v1/employee-evaluations", tt.request)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestEvaluateRecord(t *testing.T) {
	srv, store, _ := newTestServer(t, testToken)
	seedRecords(t, store)
	recordID, err := store.RecordIDByCustomerNameAndDate("홍길동", "2025-03-04")
	if !assert.NoError(t, err) {
		return
	}
	path := fmt.Sprintf("/v1/records/%d/evaluate", recordID)

	rec := do(t, srv, http.MethodPost, path, apitypes.EvaluateRequest{Category: "nursing"})
	if !assert.Equal(t, http.StatusOK, rec.Code) {
		return
	}
	resp := decode[apitypes.EvaluateResponse](t, rec)
	if assert.NotNil(t, resp.Note) {
		assert.Equal(t, db.GradeAverage, resp.Note.Grade)
	}
	if assert.Len(t, resp.Evaluations, 1) {
		assert.Equal(t, db.CategoryNursing, resp.Evaluations[0].Category)
	}

	// the model answer is not JSON, so only the nursing and recovery rows are stored
	rec = do(t, srv, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[apitypes.EvaluateResponse](t, rec).Evaluations, 2)

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/v1/records/%d/evaluations", recordID), nil)
	assert.Len(t, decode[apitypes.EvaluationsResponse](t, rec).Evaluations, 2)

	rec = do(t, srv, http.MethodPost, path, apitypes.EvaluateRequest{Category: "dance"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/records/9999/evaluate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWeeklyEndpoints(t *testing.T) {
	srv, store, client := newTestServer(t, testToken)
	id := seedRecords(t, store)

	rec := do(t, srv, http.MethodGet, fmt.Sprintf("/v1/customers/%d/weekly?week=2025-03-03", id), nil)
	if !assert.Equal(t, http.StatusOK, rec.Code) {
		return
	}
	status := decode[weekly.Status](t, rec)
	assert.Equal(t, "홍길동", status.Name)
	assert.Equal(t, "2025-03-03", status.Current.Start)
	assert.Len(t, status.Raw, 3)

	rec = do(t, srv, http.MethodPost, fmt.Sprintf("/v1/customers/%d/weekly/report", id), apitypes.WeeklyReportRequest{Week: "2025-03-03"})
	if !assert.Equal(t, http.StatusOK, rec.Code) {
		return
	}
	report := decode[apitypes.WeeklyReportResponse](t, rec)
	assert.Equal(t, "식사량이 다소 줄었으나 전반적으로 안정적인 상태를 유지함.", report.Report)

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/v1/customers/%d/weekly/reports", id), nil)
	reports := decode[apitypes.WeeklyReportsResponse](t, rec).Reports
	if assert.Len(t, reports, 1) {
		assert.Equal(t, "2025-03-03", reports[0].StartDate)
	}

	client.setResponse("   ")
	rec = do(t, srv, http.MethodPost, fmt.Sprintf("/v1/customers/%d/weekly/report", id), apitypes.WeeklyReportRequest{Week: "2025-03-03"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, srv, http.MethodPost, fmt.Sprintf("/v1/customers/%d/weekly/report", id), apitypes.WeeklyReportRequest{Week: "2024-01-01"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/v1/customers/%d/weekly?week=03-05", id), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/customers/999/weekly", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, testToken)

	rec := do(t, srv, http.MethodGet, "/v1/dashboard?start=2025-03-01&end=2025-03-07&user="+url.QueryEscape(dashboard.AllUsers), nil)
	if !assert.Equal(t, http.StatusOK, rec.Code) {
		return
	}
	dash := decode[dashboard.Dashboard](t, rec)
	assert.Equal(t, "2025-03-01", dash.Filter.Start)
	assert.Len(t, dash.DailyTrend, 7)
	assert.Equal(t, 0, dash.KPIs.TotalIssues)

	rec = do(t, srv, http.MethodGet, "/v1/dashboard?start=2025-03-07&end=2025-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings(t *testing.T) {
	identity, err := secrets.GenerateIdentity()
	if !assert.NoError(t, err) {
		return
	}
	t.Setenv(constants.EnvVarAgeIdentity, identity)
	srv, store, _ := newTestServer(t, testToken)

	rec := do(t, srv, http.MethodPost, "/v1/settings", apitypes.SetSettingRequest{Name: constants.EnvVarGeminiKey, Value: "AIza-secret"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	value, err := store.GetSettingDecrypted(constants.EnvVarGeminiKey)
	assert.NoError(t, err)
	assert.Equal(t, "AIza-secret", value)

	rec = do(t, srv, http.MethodGet, "/v1/settings", nil)
	settings := decode[apitypes.SettingsListResponse](t, rec).Settings
	if assert.Len(t, settings, 1) {
		assert.Equal(t, constants.EnvVarGeminiKey, settings[0].Name)
		assert.NotContains(t, settings[0].DigestValue, "AIza")
	}

	rec = do(t, srv, http.MethodPost, "/v1/settings", apitypes.SetSettingRequest{Name: "bad name!", Value: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/v1/settings/"+constants.EnvVarGeminiKey, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/v1/settings/"+constants.EnvVarGeminiKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func uploadRequest(t *testing.T, url, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url+"/v1/records/upload", &body)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

// readJobStream reads job log events until the stream ends and returns them.
func readJobStream(t *testing.T, url, jobID string) []logging.LogEntry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/v1/jobs/"+jobID+"/logs", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to open log stream: %v", err)
	}
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var entries []logging.LogEntry
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var entry logging.LogEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			t.Fatalf("invalid event %q: %v", data, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

const layoutYAML = `pages:
  - text: "수급자명 홍길동"
    tables:
      - top: 10
        rows:
          - ["년월/일", "", "3/3"]
          - ["총시간", "", "결석"]
`

func TestUploadJob(t *testing.T) {
	srv, store, _ := newTestServer(t, testToken)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		name         string
		filename     string
		content      string
		wantComplete bool
		wantMessage  string
	}{
		{"layout is imported", "march.yaml", layoutYAML, true, "Saved 1 records from march.yaml"},
		{"empty document fails", "empty.json", `{"pages": []}`, false, "Record upload failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.DefaultClient.Do(uploadRequest(t, ts.URL, tt.filename, tt.content))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			if !assert.Equal(t, http.StatusAccepted, resp.StatusCode) {
				return
			}
			var job apitypes.JobResponse
			if !assert.NoError(t, json.NewDecoder(resp.Body).Decode(&job)) {
				return
			}
			assert.Len(t, job.JobID, 26)

			entries := readJobStream(t, ts.URL, job.JobID)
			if !assert.NotEmpty(t, entries) {
				return
			}
			last := entries[len(entries)-1]
			assert.Equal(t, tt.wantComplete, last.IsJobComplete)
			assert.Equal(t, !tt.wantComplete, last.IsJobFailed)
			assert.Equal(t, tt.wantMessage, last.Message)
		})
	}

	customer, err := store.FindCustomerByName("홍길동")
	assert.NoError(t, err)
	recs, err := store.GetCustomerRecords(customer.ID, "2025-03-03", "2025-03-03")
	assert.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestUploadRejectsBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t, testToken)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.DefaultClient.Do(uploadRequest(t, ts.URL, "notes.txt", "hello"))
	if assert.NoError(t, err) {
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/jobs/01HZZZZZZZZZZZZZZZZZZZZZZZ/logs", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err = http.DefaultClient.Do(req)
	if assert.NoError(t, err) {
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv, _, _ := newTestServer(t, testToken)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
