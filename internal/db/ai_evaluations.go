package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	CategoryPhysical  = "신체"
	CategoryCognitive = "인지"
	CategoryNursing   = "간호"
	CategoryRecovery  = "기능"

	GradeExcellent = "우수"
	GradeAverage   = "평균"
	GradeImprove   = "개선"
	GradePoor      = "불량"
	GradeNone      = "평가없음"
)

// Grades lists the graded outcomes in display order.
var Grades = []string{GradeExcellent, GradeAverage, GradeImprove, GradePoor}

// KoreanCategory maps the English evaluation categories to the stored Korean names.
// Unknown values are returned unchanged.
func KoreanCategory(category string) string {
	switch strings.ToUpper(strings.TrimSpace(category)) {
	case "PHYSICAL", "SPECIAL_NOTE_PHYSICAL":
		return CategoryPhysical
	case "COGNITIVE", "SPECIAL_NOTE_COGNITIVE":
		return CategoryCognitive
	case "NURSING":
		return CategoryNursing
	case "RECOVERY":
		return CategoryRecovery
	}
	return category
}

type AIEvaluation struct {
	ID               int64     `json:"ai_eval_id"`
	RecordID         int64     `json:"record_id"`
	Category         string    `json:"category"`
	OERFidelity      string    `json:"oer_fidelity"`
	SpecificityScore string    `json:"specificity_score"`
	GrammarScore     string    `json:"grammar_score"`
	GradeCode        string    `json:"grade_code"`
	ReasonText       string    `json:"reason_text,omitempty"`
	SuggestionText   string    `json:"suggestion_text,omitempty"`
	OriginalText     string    `json:"original_text,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Set by range and customer queries.
	Date       string `json:"date,omitempty"`
	CustomerID int64  `json:"customer_id,omitempty"`
}

// AIEvaluationStat aggregates one category's evaluations.
type AIEvaluationStat struct {
	Category         string  `json:"category"`
	Total            int     `json:"total"`
	OERRatio         float64 `json:"oer_ratio"`
	SpecificityRatio float64 `json:"specificity_ratio"`
	GrammarRatio     float64 `json:"grammar_ratio"`
	Excellent        int     `json:"excellent"`
	Average          int     `json:"average"`
	Improve          int     `json:"improve"`
	Poor             int     `json:"poor"`
}

func createAIEvaluationsTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS ai_evaluations (
    ai_eval_id INTEGER PRIMARY KEY AUTOINCREMENT,
    record_id INTEGER NOT NULL,
    category TEXT NOT NULL,                  -- 신체, 인지, 간호, 기능
    oer_fidelity TEXT,                       -- O / X
    specificity_score TEXT,
    grammar_score TEXT,
    grade_code TEXT,                         -- 우수, 평균, 개선, 불량, 평가없음
    reason_text TEXT,
    suggestion_text TEXT,
    original_text TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (record_id, category),
    FOREIGN KEY (record_id) REFERENCES daily_infos(record_id) ON DELETE CASCADE
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create ai_evaluations table: %w", err)
	}
	return nil
}

const aiEvaluationColumns = `ae.ai_eval_id, ae.record_id, ae.category, COALESCE(ae.oer_fidelity, ''),
       COALESCE(ae.specificity_score, ''), COALESCE(ae.grammar_score, ''), COALESCE(ae.grade_code, ''),
       COALESCE(ae.reason_text, ''), COALESCE(ae.suggestion_text, ''), COALESCE(ae.original_text, ''),
       ae.created_at, ae.updated_at`

func scanAIEvaluation(scanner interface{ Scan(...any) error }, extra ...any) (AIEvaluation, error) {
	var e AIEvaluation
	dest := []any{&e.ID, &e.RecordID, &e.Category, &e.OERFidelity, &e.SpecificityScore, &e.GrammarScore,
		&e.GradeCode, &e.ReasonText, &e.SuggestionText, &e.OriginalText, &e.CreatedAt, &e.UpdatedAt}
	err := scanner.Scan(append(dest, extra...)...)
	return e, err
}

// SaveAIEvaluation inserts or updates the evaluation for (record, category) and returns its id.
func (db *DB) SaveAIEvaluation(e AIEvaluation) (int64, error) {
	category := KoreanCategory(e.Category)
	query := `INSERT INTO ai_evaluations (record_id, category, oer_fidelity, specificity_score, grammar_score,
                  grade_code, reason_text, suggestion_text, original_text)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(record_id, category) DO UPDATE SET
                oer_fidelity = excluded.oer_fidelity,
                specificity_score = excluded.specificity_score,
                grammar_score = excluded.grammar_score,
                grade_code = excluded.grade_code,
                reason_text = excluded.reason_text,
                suggestion_text = excluded.suggestion_text,
                original_text = excluded.original_text,
                updated_at = CURRENT_TIMESTAMP`
	_, err := db.Exec(query, e.RecordID, category, nullIfEmpty(e.OERFidelity), nullIfEmpty(e.SpecificityScore),
		nullIfEmpty(e.GrammarScore), nullIfEmpty(e.GradeCode), nullIfEmpty(e.ReasonText),
		nullIfEmpty(e.SuggestionText), nullIfEmpty(e.OriginalText))
	if err != nil {
		return 0, fmt.Errorf("failed to save ai evaluation: %w", err)
	}

	var id int64
	if err := db.QueryRow(`SELECT ai_eval_id FROM ai_evaluations WHERE record_id = ? AND category = ?`, e.RecordID, category).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read ai evaluation id: %w", err)
	}
	return id, nil
}

// GetAIEvaluation returns the evaluation for a record and category (English or Korean).
func (db *DB) GetAIEvaluation(recordID int64, category string) (AIEvaluation, error) {
	e, err := scanAIEvaluation(db.QueryRow(`SELECT `+aiEvaluationColumns+` FROM ai_evaluations ae
              WHERE ae.record_id = ? AND ae.category = ?`, recordID, KoreanCategory(category)))
	if errors.Is(err, sql.ErrNoRows) {
		return AIEvaluation{}, ErrNotFound
	}
	if err != nil {
		return AIEvaluation{}, fmt.Errorf("failed to get ai evaluation: %w", err)
	}
	return e, nil
}

func (db *DB) ListAIEvaluationsByRecord(recordID int64) ([]AIEvaluation, error) {
	rows, err := db.Query(`SELECT `+aiEvaluationColumns+` FROM ai_evaluations ae
              WHERE ae.record_id = ? ORDER BY ae.category`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ai evaluations: %w", err)
	}
	defer rows.Close()

	var result []AIEvaluation
	for rows.Next() {
		e, err := scanAIEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ai evaluation: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// ListAIEvaluationsByCustomer returns a customer's latest 50 evaluations with the record date.
func (db *DB) ListAIEvaluationsByCustomer(customerID int64) ([]AIEvaluation, error) {
	return db.queryAIEvaluationsWithDate(`SELECT `+aiEvaluationColumns+`, di.date, di.customer_id
              FROM ai_evaluations ae
              JOIN daily_infos di ON di.record_id = ae.record_id
              JOIN customers c ON c.customer_id = di.customer_id
              WHERE di.customer_id = ?
              ORDER BY di.date DESC, ae.created_at DESC
              LIMIT 50`, customerID)
}

// ListAIEvaluationsInRange returns evaluations whose record date falls between start and end.
func (db *DB) ListAIEvaluationsInRange(start, end string) ([]AIEvaluation, error) {
	return db.queryAIEvaluationsWithDate(`SELECT `+aiEvaluationColumns+`, di.date, di.customer_id
              FROM ai_evaluations ae
              JOIN daily_infos di ON di.record_id = ae.record_id
              WHERE di.date BETWEEN ? AND ?
              ORDER BY di.date`, start, end)
}

func (db *DB) queryAIEvaluationsWithDate(query string, args ...any) ([]AIEvaluation, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ai evaluations: %w", err)
	}
	defer rows.Close()

	var result []AIEvaluation
	for rows.Next() {
		var date string
		var customerID int64
		e, err := scanAIEvaluation(rows, &date, &customerID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ai evaluation: %w", err)
		}
		e.Date = date
		e.CustomerID = customerID
		result = append(result, e)
	}
	return result, rows.Err()
}

func (db *DB) DeleteAIEvaluation(id int64) (int64, error) {
	result, err := db.Exec(`DELETE FROM ai_evaluations WHERE ai_eval_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete ai evaluation: %w", err)
	}
	return rowsAffected(result)
}

// AIEvaluationStats aggregates a customer's evaluations per category. Empty start or end
// disables the date filter.
func (db *DB) AIEvaluationStats(customerID int64, start, end string) ([]AIEvaluationStat, error) {
	query := `SELECT ae.category,
                  COUNT(*),
                  AVG(CASE WHEN ae.oer_fidelity = 'O' THEN 1.0 ELSE 0.0 END),
                  AVG(CASE WHEN ae.specificity_score = 'O' THEN 1.0 ELSE 0.0 END),
                  AVG(CASE WHEN ae.grammar_score = 'O' THEN 1.0 ELSE 0.0 END),
                  SUM(CASE WHEN ae.grade_code = '우수' THEN 1 ELSE 0 END),
                  SUM(CASE WHEN ae.grade_code = '평균' THEN 1 ELSE 0 END),
                  SUM(CASE WHEN ae.grade_code = '개선' THEN 1 ELSE 0 END),
                  SUM(CASE WHEN ae.grade_code = '불량' THEN 1 ELSE 0 END)
              FROM ai_evaluations ae
              JOIN daily_infos di ON di.record_id = ae.record_id
              WHERE di.customer_id = ?`
	args := []any{customerID}
	if start != "" && end != "" {
		query += ` AND di.date BETWEEN ? AND ?`
		args = append(args, start, end)
	}
	query += ` GROUP BY ae.category ORDER BY ae.category`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ai evaluation stats: %w", err)
	}
	defer rows.Close()

	var stats []AIEvaluationStat
	for rows.Next() {
		var s AIEvaluationStat
		if err := rows.Scan(&s.Category, &s.Total, &s.OERRatio, &s.SpecificityRatio, &s.GrammarRatio,
			&s.Excellent, &s.Average, &s.Improve, &s.Poor); err != nil {
			return nil, fmt.Errorf("failed to scan ai evaluation stats: %w", err)
		}
		s.OERRatio = round2(s.OERRatio)
		s.SpecificityRatio = round2(s.SpecificityRatio)
		s.GrammarRatio = round2(s.GrammarRatio)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
