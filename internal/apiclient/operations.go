package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/dashboard"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/logging"
	"github.com/ameistad/carenote/internal/weekly"
)

func withQuery(path string, params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

func (c *APIClient) Version(ctx context.Context) (*apitypes.VersionResponse, error) {
	var response apitypes.VersionResponse
	if err := c.get(ctx, "version", &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// UploadRecords uploads a care record PDF or layout file and returns the id of the import job.
func (c *APIClient) UploadRecords(ctx context.Context, filePath string) (string, error) {
	var response apitypes.JobResponse
	if err := c.upload(ctx, "records/upload", filePath, &response); err != nil {
		return "", err
	}
	return response.JobID, nil
}

// StreamJobLogs passes every log entry of the job to onEntry and returns the final entry
// once the job completed or failed.
func (c *APIClient) StreamJobLogs(ctx context.Context, jobID string, onEntry func(logging.LogEntry)) (logging.LogEntry, error) {
	var final logging.LogEntry
	err := c.stream(ctx, fmt.Sprintf("jobs/%s/logs", url.PathEscape(jobID)), func(data string) (bool, error) {
		var entry logging.LogEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return false, fmt.Errorf("failed to parse log entry: %w", err)
		}
		if onEntry != nil {
			onEntry(entry)
		}
		if entry.IsJobComplete || entry.IsJobFailed {
			final = entry
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return final, err
	}
	if !final.IsJobComplete && !final.IsJobFailed {
		return final, fmt.Errorf("log stream for job %s ended before the job finished", jobID)
	}
	return final, nil
}

// StreamLogs passes every server log entry to onEntry until ctx is done.
func (c *APIClient) StreamLogs(ctx context.Context, onEntry func(logging.LogEntry)) error {
	return c.stream(ctx, "logs", func(data string) (bool, error) {
		var entry logging.LogEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return false, fmt.Errorf("failed to parse log entry: %w", err)
		}
		onEntry(entry)
		// Never stop streaming for general logs
		return false, nil
	})
}

func (c *APIClient) Customers(ctx context.Context, keyword string) ([]db.Customer, error) {
	var response apitypes.CustomersResponse
	if err := c.get(ctx, withQuery("customers", map[string]string{"q": keyword}), &response); err != nil {
		return nil, err
	}
	return response.Customers, nil
}

func (c *APIClient) Customer(ctx context.Context, id int64) (*db.Customer, error) {
	var customer db.Customer
	if err := c.get(ctx, fmt.Sprintf("customers/%d", id), &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *APIClient) CreateCustomer(ctx context.Context, req apitypes.CustomerRequest) (int64, error) {
	var response apitypes.CreatedResponse
	if err := c.post(ctx, "customers", req, &response); err != nil {
		return 0, err
	}
	return response.ID, nil
}

func (c *APIClient) UpdateCustomer(ctx context.Context, id int64, req apitypes.CustomerRequest) error {
	return c.put(ctx, fmt.Sprintf("customers/%d", id), req)
}

func (c *APIClient) DeleteCustomer(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("customers/%d", id))
}

func (c *APIClient) CustomerRecords(ctx context.Context, id int64, start, end string) ([]db.DailyRecord, error) {
	var response apitypes.RecordsResponse
	path := withQuery(fmt.Sprintf("customers/%d/records", id), map[string]string{"start": start, "end": end})
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Records, nil
}

func (c *APIClient) RequiredItems(ctx context.Context, id int64, start, end string) (*apitypes.RequiredItemsResponse, error) {
	var response apitypes.RequiredItemsResponse
	path := withQuery(fmt.Sprintf("customers/%d/required-items", id), map[string]string{"start": start, "end": end})
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *APIClient) EvaluationStats(ctx context.Context, id int64, start, end string) ([]db.AIEvaluationStat, error) {
	var response apitypes.EvaluationStatsResponse
	path := withQuery(fmt.Sprintf("customers/%d/evaluation-stats", id), map[string]string{"start": start, "end": end})
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Stats, nil
}

func (c *APIClient) Employees(ctx context.Context, keyword, workStatus string) ([]db.User, error) {
	var response apitypes.EmployeesResponse
	path := withQuery("employees", map[string]string{"q": keyword, "status": workStatus})
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Employees, nil
}

func (c *APIClient) CreateEmployee(ctx context.Context, req apitypes.EmployeeRequest) (int64, error) {
	var response apitypes.CreatedResponse
	if err := c.post(ctx, "employees", req, &response); err != nil {
		return 0, err
	}
	return response.ID, nil
}

func (c *APIClient) UpdateEmployee(ctx context.Context, id int64, req apitypes.EmployeeRequest) error {
	return c.put(ctx, fmt.Sprintf("employees/%d", id), req)
}

// DeleteEmployee marks the employee as resigned.
func (c *APIClient) DeleteEmployee(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("employees/%d", id))
}

// EvaluateRecord runs the AI evaluation of a record, or of one category when category is set.
func (c *APIClient) EvaluateRecord(ctx context.Context, recordID int64, category string) (*apitypes.EvaluateResponse, error) {
	var request any
	if category != "" {
		request = apitypes.EvaluateRequest{Category: category}
	}
	var response apitypes.EvaluateResponse
	if err := c.post(ctx, fmt.Sprintf("records/%d/evaluate", recordID), request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *APIClient) RecordEvaluations(ctx context.Context, recordID int64) ([]db.AIEvaluation, error) {
	var response apitypes.EvaluationsResponse
	if err := c.get(ctx, fmt.Sprintf("records/%d/evaluations", recordID), &response); err != nil {
		return nil, err
	}
	return response.Evaluations, nil
}

// BatchEvaluate starts the evaluation of all records in the range and returns the job id.
func (c *APIClient) BatchEvaluate(ctx context.Context, req apitypes.BatchEvaluateRequest) (string, error) {
	var response apitypes.JobResponse
	if err := c.post(ctx, "evaluations/batch", req, &response); err != nil {
		return "", err
	}
	return response.JobID, nil
}

func (c *APIClient) CreateEmployeeEvaluation(ctx context.Context, req apitypes.EmployeeEvaluationRequest) (int64, error) {
	var response apitypes.CreatedResponse
	if err := c.post(ctx, "employee-evaluations", req, &response); err != nil {
		return 0, err
	}
	return response.ID, nil
}

func (c *APIClient) DeleteEmployeeEvaluation(ctx context.Context, id int64, force bool) error {
	path := fmt.Sprintf("employee-evaluations/%d", id)
	if force {
		path += "?force=true"
	}
	return c.delete(ctx, path)
}

func (c *APIClient) RecordEmployeeEvaluations(ctx context.Context, recordID int64) ([]db.EmployeeEvaluation, error) {
	var response apitypes.EmployeeEvaluationsResponse
	if err := c.get(ctx, fmt.Sprintf("records/%d/employee-evaluations", recordID), &response); err != nil {
		return nil, err
	}
	return response.Evaluations, nil
}

func (c *APIClient) Weekly(ctx context.Context, customerID int64, week string, refresh bool) (*weekly.Status, error) {
	params := map[string]string{"week": week}
	if refresh {
		params["refresh"] = strconv.FormatBool(refresh)
	}
	var status weekly.Status
	if err := c.get(ctx, withQuery(fmt.Sprintf("customers/%d/weekly", customerID), params), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *APIClient) GenerateWeeklyReport(ctx context.Context, customerID int64, week string) (*apitypes.WeeklyReportResponse, error) {
	var response apitypes.WeeklyReportResponse
	path := fmt.Sprintf("customers/%d/weekly/report", customerID)
	if err := c.post(ctx, path, apitypes.WeeklyReportRequest{Week: week}, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *APIClient) WeeklyReports(ctx context.Context, customerID int64, limit int) ([]db.WeeklyStatus, error) {
	params := map[string]string{}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var response apitypes.WeeklyReportsResponse
	if err := c.get(ctx, withQuery(fmt.Sprintf("customers/%d/weekly/reports", customerID), params), &response); err != nil {
		return nil, err
	}
	return response.Reports, nil
}

func (c *APIClient) Dashboard(ctx context.Context, start, end, user string) (*dashboard.Dashboard, error) {
	var dash dashboard.Dashboard
	path := withQuery("dashboard", map[string]string{"start": start, "end": end, "user": user})
	if err := c.get(ctx, path, &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

func (c *APIClient) SettingsList(ctx context.Context) ([]db.SettingAPIResponse, error) {
	var response apitypes.SettingsListResponse
	if err := c.get(ctx, "settings", &response); err != nil {
		return nil, err
	}
	return response.Settings, nil
}

func (c *APIClient) SetSetting(ctx context.Context, name, value string) error {
	request := apitypes.SetSettingRequest{
		Name:  name,
		Value: value,
	}
	return c.post(ctx, "settings", request, nil)
}

func (c *APIClient) DeleteSetting(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("setting name is required")
	}
	return c.delete(ctx, "settings/"+url.PathEscape(name))
}
