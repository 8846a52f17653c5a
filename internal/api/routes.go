package api

import (
	"net/http"

	"github.com/ameistad/carenote/internal/constants"
)

func (s *APIServer) setupRoutes() {
	authMiddleware := s.bearerTokenAuthMiddleware
	logMiddleware := s.loggingMiddleware
	protected := func(h http.HandlerFunc) http.Handler {
		return logMiddleware(authMiddleware(h))
	}

	// Container probe, no auth.
	s.router.Handle("GET "+constants.HealthCheckPath, s.handleProbe())
	s.router.Handle("GET /health", s.handleHealth())
	s.router.Handle("GET /v1/version", protected(s.handleVersion()))

	// Uploads and job logs
	s.router.Handle("POST /v1/records/upload", protected(s.handleUpload()))
	s.router.Handle("GET /v1/jobs/{jobID}/logs", authMiddleware(s.handleJobLogs()))

	// Logs stream
	s.router.Handle("GET /v1/logs", authMiddleware(s.handleLogs()))

	// Customers
	s.router.Handle("GET /v1/customers", protected(s.handleCustomersList()))
	s.router.Handle("POST /v1/customers", protected(s.handleCreateCustomer()))
	s.router.Handle("GET /v1/customers/{id}", protected(s.handleGetCustomer()))
	s.router.Handle("PUT /v1/customers/{id}", protected(s.handleUpdateCustomer()))
	s.router.Handle("DELETE /v1/customers/{id}", protected(s.handleDeleteCustomer()))
	s.router.Handle("GET /v1/customers/{id}/records", protected(s.handleCustomerRecords()))
	s.router.Handle("GET /v1/customers/{id}/required-items", protected(s.handleRequiredItems()))
	s.router.Handle("GET /v1/customers/{id}/evaluation-stats", protected(s.handleEvaluationStats()))

	// Employees
	s.router.Handle("GET /v1/employees", protected(s.handleEmployeesList()))
	s.router.Handle("POST /v1/employees", protected(s.handleCreateEmployee()))
	s.router.Handle("GET /v1/employees/{id}", protected(s.handleGetEmployee()))
	s.router.Handle("PUT /v1/employees/{id}", protected(s.handleUpdateEmployee()))
	s.router.Handle("DELETE /v1/employees/{id}", protected(s.handleDeleteEmployee()))

	// AI evaluations
	s.router.Handle("POST /v1/records/{id}/evaluate", protected(s.handleEvaluateRecord()))
	s.router.Handle("GET /v1/records/{id}/evaluations", protected(s.handleRecordEvaluations()))
	s.router.Handle("POST /v1/evaluations/batch", protected(s.handleBatchEvaluate()))

	// Employee evaluations
	s.router.Handle("POST /v1/employee-evaluations", protected(s.handleCreateEmployeeEvaluation()))
	s.router.Handle("DELETE /v1/employee-evaluations/{id}", protected(s.handleDeleteEmployeeEvaluation()))
	s.router.Handle("GET /v1/records/{id}/employee-evaluations", protected(s.handleRecordEmployeeEvaluations()))

	// Weekly analysis and reports
	s.router.Handle("GET /v1/customers/{id}/weekly", protected(s.handleWeekly()))
	s.router.Handle("POST /v1/customers/{id}/weekly/report", protected(s.handleGenerateWeeklyReport()))
	s.router.Handle("GET /v1/customers/{id}/weekly/reports", protected(s.handleWeeklyReports()))

	s.router.Handle("GET /v1/dashboard", protected(s.handleDashboard()))

	// Settings routes
	s.router.Handle("GET /v1/settings", protected(s.handleSettingsList()))
	s.router.Handle("POST /v1/settings", protected(s.handleSetSetting()))
	s.router.Handle("DELETE /v1/settings/{name}", protected(s.handleDeleteSetting()))
}
