package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Employee evaluation categories and types.
const (
	EvalCategoryCommon = "공통"

	EvalTypeMissing      = "누락"
	EvalTypeInsufficient = "내용부족"
	EvalTypeTypo         = "오타"
	EvalTypeGrammar      = "문법"
	EvalTypeError        = "오류"
)

var (
	EvalCategories = []string{EvalCategoryCommon, CategoryPhysical, CategoryCognitive, CategoryNursing, CategoryRecovery}
	EvalTypes      = []string{EvalTypeMissing, EvalTypeInsufficient, EvalTypeTypo, EvalTypeGrammar, EvalTypeError}
)

// EmployeeEvaluation is an issue a reviewer recorded against an employee's note.
type EmployeeEvaluation struct {
	ID              int64     `json:"emp_eval_id"`
	RecordID        int64     `json:"record_id"`
	TargetDate      string    `json:"target_date,omitempty"`
	TargetUserID    *int64    `json:"target_user_id,omitempty"`
	EvaluatorUserID *int64    `json:"evaluator_user_id,omitempty"`
	Category        string    `json:"category"`
	EvaluationType  string    `json:"evaluation_type"`
	Score           int       `json:"score"`
	Comment         string    `json:"comment,omitempty"`
	EvaluationDate  string    `json:"evaluation_date"`
	CreatedAt       time.Time `json:"created_at"`

	TargetUserName       string `json:"target_user_name,omitempty"`
	TargetUserWorkStatus string `json:"target_user_work_status,omitempty"`
	EvaluatorUserName    string `json:"evaluator_user_name,omitempty"`
}

func createEmployeeEvaluationsTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS employee_evaluations (
    emp_eval_id INTEGER PRIMARY KEY AUTOINCREMENT,
    record_id INTEGER NOT NULL,
    target_date TEXT,
    target_user_id INTEGER,
    evaluator_user_id INTEGER,
    category TEXT NOT NULL,                  -- 공통, 신체, 인지, 간호, 기능
    evaluation_type TEXT NOT NULL,           -- 누락, 내용부족, 오타, 문법, 오류
    score INTEGER NOT NULL DEFAULT 1,
    comment TEXT,
    evaluation_date TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (record_id) REFERENCES daily_infos(record_id) ON DELETE CASCADE,
    FOREIGN KEY (target_user_id) REFERENCES users(user_id) ON DELETE SET NULL,
    FOREIGN KEY (evaluator_user_id) REFERENCES users(user_id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_employee_evaluations_date ON employee_evaluations(evaluation_date);
CREATE INDEX IF NOT EXISTS idx_employee_evaluations_record ON employee_evaluations(record_id);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create employee_evaluations table: %w", err)
	}
	return nil
}

const employeeEvaluationSelect = `
SELECT ee.emp_eval_id, ee.record_id, COALESCE(ee.target_date, ''), ee.target_user_id, ee.evaluator_user_id,
       ee.category, ee.evaluation_type, ee.score, COALESCE(ee.comment, ''), ee.evaluation_date, ee.created_at,
       COALESCE(tu.name, ''), COALESCE(tu.work_status, ''), COALESCE(eu.name, '')
FROM employee_evaluations ee
LEFT JOIN users tu ON tu.user_id = ee.target_user_id
LEFT JOIN users eu ON eu.user_id = ee.evaluator_user_id`

func scanEmployeeEvaluation(scanner interface{ Scan(...any) error }) (EmployeeEvaluation, error) {
	var e EmployeeEvaluation
	var target, evaluator sql.NullInt64
	err := scanner.Scan(&e.ID, &e.RecordID, &e.TargetDate, &target, &evaluator,
		&e.Category, &e.EvaluationType, &e.Score, &e.Comment, &e.EvaluationDate, &e.CreatedAt,
		&e.TargetUserName, &e.TargetUserWorkStatus, &e.EvaluatorUserName)
	if target.Valid {
		e.TargetUserID = &target.Int64
	}
	if evaluator.Valid {
		e.EvaluatorUserID = &evaluator.Int64
	}
	return e, err
}

func (db *DB) queryEmployeeEvaluations(query string, args ...any) ([]EmployeeEvaluation, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee evaluations: %w", err)
	}
	defer rows.Close()

	var result []EmployeeEvaluation
	for rows.Next() {
		e, err := scanEmployeeEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee evaluation: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// SaveEmployeeEvaluation stores a new evaluation and returns its id.
// Score defaults to 1 and the evaluation date to today.
func (db *DB) SaveEmployeeEvaluation(e EmployeeEvaluation) (int64, error) {
	if e.Category == "" || e.EvaluationType == "" {
		return 0, fmt.Errorf("category and evaluation type are required")
	}
	if e.Score == 0 {
		e.Score = 1
	}
	if e.EvaluationDate == "" {
		e.EvaluationDate = time.Now().Format(time.DateOnly)
	}
	result, err := db.Exec(`INSERT INTO employee_evaluations (record_id, target_date, target_user_id, evaluator_user_id,
                  category, evaluation_type, score, comment, evaluation_date)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RecordID, nullIfEmpty(e.TargetDate), nullInt64(e.TargetUserID), nullInt64(e.EvaluatorUserID),
		e.Category, e.EvaluationType, e.Score, nullIfEmpty(e.Comment), e.EvaluationDate)
	if err != nil {
		return 0, fmt.Errorf("failed to save employee evaluation: %w", err)
	}
	return result.LastInsertId()
}

func (db *DB) GetEmployeeEvaluation(id int64) (EmployeeEvaluation, error) {
	e, err := scanEmployeeEvaluation(db.QueryRow(employeeEvaluationSelect+` WHERE ee.emp_eval_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return EmployeeEvaluation{}, ErrNotFound
	}
	if err != nil {
		return EmployeeEvaluation{}, fmt.Errorf("failed to get employee evaluation: %w", err)
	}
	return e, nil
}

// ListEmployeeEvaluationsByRecord returns a record's evaluations, newest first.
func (db *DB) ListEmployeeEvaluationsByRecord(recordID int64) ([]EmployeeEvaluation, error) {
	return db.queryEmployeeEvaluations(employeeEvaluationSelect+` WHERE ee.record_id = ? ORDER BY ee.created_at DESC, ee.emp_eval_id DESC`, recordID)
}

// ListEmployeeEvaluationsInRange returns evaluations with an evaluation date between start and end.
func (db *DB) ListEmployeeEvaluationsInRange(start, end string) ([]EmployeeEvaluation, error) {
	return db.queryEmployeeEvaluations(employeeEvaluationSelect+` WHERE ee.evaluation_date BETWEEN ? AND ? ORDER BY ee.evaluation_date, ee.emp_eval_id`, start, end)
}

// CountEmployeeEvaluations counts evaluations with an evaluation date between start and end.
func (db *DB) CountEmployeeEvaluations(start, end string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM employee_evaluations WHERE evaluation_date BETWEEN ? AND ?`, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count employee evaluations: %w", err)
	}
	return count, nil
}

// FindExistingEmployeeEvaluation returns the id of an evaluation already recorded for the same
// record, target user, category and type.
func (db *DB) FindExistingEmployeeEvaluation(recordID, targetUserID int64, category, evaluationType string) (int64, error) {
	var id int64
	err := db.QueryRow(`SELECT emp_eval_id FROM employee_evaluations
              WHERE record_id = ? AND target_user_id = ? AND category = ? AND evaluation_type = ?
              LIMIT 1`, recordID, targetUserID, category, evaluationType).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

func (db *DB) UpdateEmployeeEvaluation(e EmployeeEvaluation) (int64, error) {
	result, err := db.Exec(`UPDATE employee_evaluations
              SET target_date = ?, evaluator_user_id = ?, score = ?, comment = ?, evaluation_date = ?
              WHERE emp_eval_id = ?`,
		nullIfEmpty(e.TargetDate), nullInt64(e.EvaluatorUserID), e.Score, nullIfEmpty(e.Comment), e.EvaluationDate, e.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to update employee evaluation: %w", err)
	}
	return rowsAffected(result)
}

func (db *DB) DeleteEmployeeEvaluation(id int64) (int64, error) {
	result, err := db.Exec(`DELETE FROM employee_evaluations WHERE emp_eval_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete employee evaluation: %w", err)
	}
	return rowsAffected(result)
}
