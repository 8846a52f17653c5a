package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	WeeklyKindAnalysis = "analysis"
	WeeklyKindReport   = "report"
)

// WeeklyStatus is a cached weekly analysis (JSON) or a generated report for one customer and week.
type WeeklyStatus struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Kind       string    `json:"kind"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func createWeeklyStatusTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS weekly_status (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id INTEGER NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT 'report',
    report_text TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (customer_id, start_date, end_date, kind),
    FOREIGN KEY (customer_id) REFERENCES customers(customer_id) ON DELETE CASCADE
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create weekly_status table: %w", err)
	}
	return nil
}

// SaveWeeklyStatus inserts or replaces the text stored for customer, week and kind.
func (db *DB) SaveWeeklyStatus(customerID int64, start, end, kind, text string) error {
	query := `INSERT INTO weekly_status (customer_id, start_date, end_date, kind, report_text)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(customer_id, start_date, end_date, kind) DO UPDATE SET
                report_text = excluded.report_text,
                updated_at = CURRENT_TIMESTAMP`
	if _, err := db.Exec(query, customerID, start, end, kind, text); err != nil {
		return fmt.Errorf("failed to save weekly status: %w", err)
	}
	return nil
}

// LoadWeeklyStatus returns the stored text, or ErrNotFound.
func (db *DB) LoadWeeklyStatus(customerID int64, start, end, kind string) (string, error) {
	var text string
	err := db.QueryRow(`SELECT report_text FROM weekly_status
              WHERE customer_id = ? AND start_date = ? AND end_date = ? AND kind = ?`,
		customerID, start, end, kind).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load weekly status: %w", err)
	}
	return text, nil
}

func (db *DB) DeleteWeeklyStatus(customerID int64, start, end, kind string) (int64, error) {
	result, err := db.Exec(`DELETE FROM weekly_status WHERE customer_id = ? AND start_date = ? AND end_date = ? AND kind = ?`,
		customerID, start, end, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to delete weekly status: %w", err)
	}
	return rowsAffected(result)
}

// ListWeeklyStatus returns the newest entries of kind for a customer. limit <= 0 means 10.
func (db *DB) ListWeeklyStatus(customerID int64, kind string, limit int) ([]WeeklyStatus, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`SELECT id, customer_id, start_date, end_date, kind, report_text, created_at, updated_at
              FROM weekly_status
              WHERE customer_id = ? AND kind = ?
              ORDER BY start_date DESC
              LIMIT ?`, customerID, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly status: %w", err)
	}
	defer rows.Close()

	var result []WeeklyStatus
	for rows.Next() {
		var w WeeklyStatus
		if err := rows.Scan(&w.ID, &w.CustomerID, &w.StartDate, &w.EndDate, &w.Kind, &w.Text, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weekly status: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
