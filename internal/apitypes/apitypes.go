package apitypes

import (
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/evaluation"
	"github.com/ameistad/carenote/internal/records"
	"github.com/ameistad/carenote/internal/weekly"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Service string `json:"service"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type JobResponse struct {
	JobID string `json:"jobId"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}

type CustomerRequest struct {
	Name             string `json:"name"`
	BirthDate        string `json:"birthDate,omitempty"`
	Gender           string `json:"gender,omitempty"`
	RecognitionNo    string `json:"recognitionNo,omitempty"`
	BenefitStartDate string `json:"benefitStartDate,omitempty"`
	Grade            string `json:"grade,omitempty"`
}

type CustomersResponse struct {
	Customers []db.Customer `json:"customers"`
}

type RecordsResponse struct {
	Records []db.DailyRecord `json:"records"`
}

type CategoryCompletion struct {
	Category  string  `json:"category"`
	Rate      float64 `json:"rate"`
	Completed int     `json:"completed"`
	Required  int     `json:"required"`
}

type RequiredItemsResponse struct {
	Checks     []records.RequiredCheck `json:"checks"`
	Completion []CategoryCompletion    `json:"completion"`
}

type EmployeeRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password,omitempty"`
	Role        string `json:"role,omitempty"`
	Name        string `json:"name"`
	Gender      string `json:"gender,omitempty"`
	BirthDate   string `json:"birthDate,omitempty"`
	WorkStatus  string `json:"workStatus,omitempty"`
	JobType     string `json:"jobType,omitempty"`
	HireDate    string `json:"hireDate,omitempty"`
	LicenseName string `json:"licenseName,omitempty"`
	LicenseDate string `json:"licenseDate,omitempty"`
}

type EmployeesResponse struct {
	Employees []db.User `json:"employees"`
}

// EvaluateRequest selects a single category to evaluate. An empty category evaluates the whole record.
type EvaluateRequest struct {
	Category string `json:"category,omitempty"`
	Text     string `json:"text,omitempty"`
}

type EvaluateResponse struct {
	RecordID    int64                      `json:"recordId"`
	Note        *evaluation.NoteEvaluation `json:"note,omitempty"`
	Evaluations []db.AIEvaluation          `json:"evaluations"`
}

// BatchEvaluateRequest evaluates every record dated within the range.
type BatchEvaluateRequest struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Concurrency int    `json:"concurrency,omitempty"`
}

type EvaluationsResponse struct {
	Evaluations []db.AIEvaluation `json:"evaluations"`
}

type EvaluationStatsResponse struct {
	Stats []db.AIEvaluationStat `json:"stats"`
}

type EmployeeEvaluationRequest struct {
	RecordID        int64  `json:"recordId"`
	TargetDate      string `json:"targetDate,omitempty"`
	TargetUserID    *int64 `json:"targetUserId,omitempty"`
	TargetUserName  string `json:"targetUserName,omitempty"`
	EvaluatorUserID *int64 `json:"evaluatorUserId,omitempty"`
	Category        string `json:"category"`
	EvaluationType  string `json:"evaluationType"`
	Score           int    `json:"score,omitempty"`
	Comment         string `json:"comment,omitempty"`
	EvaluationDate  string `json:"evaluationDate,omitempty"`
}

type EmployeeEvaluationsResponse struct {
	Evaluations []db.EmployeeEvaluation `json:"evaluations"`
}

type WeeklyReportRequest struct {
	Week string `json:"week"`
}

type WeeklyReportResponse struct {
	Report string         `json:"report"`
	Status *weekly.Status `json:"status"`
}

type WeeklyReportsResponse struct {
	Reports []db.WeeklyStatus `json:"reports"`
}

type SettingsListResponse struct {
	Settings []db.SettingAPIResponse `json:"settings"`
}

type SetSettingRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
