package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ameistad/carenote/internal/records"
)

// DailyRecord is a stored daily record with its identifiers.
type DailyRecord struct {
	RecordID   int64 `json:"record_id"`
	CustomerID int64 `json:"customer_id"`
	records.Record
}

// CustomerRecordCount is the number of records a customer has in a date range.
type CustomerRecordCount struct {
	CustomerID  int64  `json:"customer_id"`
	Name        string `json:"name"`
	BirthDate   string `json:"birth_date,omitempty"`
	RecordCount int    `json:"record_count"`
}

func createDailyRecordTables(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS daily_infos (
    record_id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id INTEGER NOT NULL,
    date TEXT NOT NULL,                      -- YYYY-MM-DD
    start_time TEXT,
    end_time TEXT,
    total_service_time TEXT,
    transport_service TEXT,
    transport_vehicles TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (customer_id) REFERENCES customers(customer_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_daily_infos_customer_date ON daily_infos(customer_id, date);
CREATE INDEX IF NOT EXISTS idx_daily_infos_date ON daily_infos(date);

CREATE TABLE IF NOT EXISTS daily_physicals (
    record_id INTEGER PRIMARY KEY,
    hygiene_care TEXT,
    bath_time TEXT,
    bath_method TEXT,
    meal_breakfast TEXT,
    meal_lunch TEXT,
    meal_dinner TEXT,
    toilet_care TEXT,
    mobility_care TEXT,
    note TEXT,
    writer_name TEXT,
    FOREIGN KEY (record_id) REFERENCES daily_infos(record_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS daily_cognitives (
    record_id INTEGER PRIMARY KEY,
    cog_support TEXT,
    comm_support TEXT,
    note TEXT,
    writer_name TEXT,
    FOREIGN KEY (record_id) REFERENCES daily_infos(record_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS daily_nursings (
    record_id INTEGER PRIMARY KEY,
    bp_temp TEXT,
    health_manage TEXT,
    nursing_manage TEXT,
    emergency TEXT,
    note TEXT,
    writer_name TEXT,
    FOREIGN KEY (record_id) REFERENCES daily_infos(record_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS daily_recoveries (
    record_id INTEGER PRIMARY KEY,
    prog_basic TEXT,
    prog_activity TEXT,
    prog_cognitive TEXT,
    prog_therapy TEXT,
    prog_enhance_detail TEXT,
    note TEXT,
    writer_name TEXT,
    FOREIGN KEY (record_id) REFERENCES daily_infos(record_id) ON DELETE CASCADE
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create daily record tables: %w", err)
	}
	return nil
}

const dailyRecordSelect = `
SELECT di.record_id, di.customer_id, di.date,
       c.name, COALESCE(c.birth_date, ''), COALESCE(c.grade, ''), COALESCE(c.recognition_no, ''),
       COALESCE(di.start_time, ''), COALESCE(di.end_time, ''), COALESCE(di.total_service_time, ''),
       COALESCE(di.transport_service, ''), COALESCE(di.transport_vehicles, ''),
       COALESCE(dp.hygiene_care, ''), COALESCE(dp.bath_time, ''), COALESCE(dp.bath_method, ''),
       COALESCE(dp.meal_breakfast, ''), COALESCE(dp.meal_lunch, ''), COALESCE(dp.meal_dinner, ''),
       COALESCE(dp.toilet_care, ''), COALESCE(dp.mobility_care, ''), COALESCE(dp.note, ''), COALESCE(dp.writer_name, ''),
       COALESCE(dc.cog_support, ''), COALESCE(dc.comm_support, ''), COALESCE(dc.note, ''), COALESCE(dc.writer_name, ''),
       COALESCE(dn.bp_temp, ''), COALESCE(dn.health_manage, ''), COALESCE(dn.nursing_manage, ''),
       COALESCE(dn.emergency, ''), COALESCE(dn.note, ''), COALESCE(dn.writer_name, ''),
       COALESCE(dr.prog_basic, ''), COALESCE(dr.prog_activity, ''), COALESCE(dr.prog_cognitive, ''),
       COALESCE(dr.prog_therapy, ''), COALESCE(dr.prog_enhance_detail, ''), COALESCE(dr.note, ''), COALESCE(dr.writer_name, '')
FROM daily_infos di
JOIN customers c ON c.customer_id = di.customer_id
LEFT JOIN daily_physicals dp ON dp.record_id = di.record_id
LEFT JOIN daily_cognitives dc ON dc.record_id = di.record_id
LEFT JOIN daily_nursings dn ON dn.record_id = di.record_id
LEFT JOIN daily_recoveries dr ON dr.record_id = di.record_id`

func scanDailyRecord(scanner interface{ Scan(...any) error }) (DailyRecord, error) {
	var d DailyRecord
	r := &d.Record
	err := scanner.Scan(&d.RecordID, &d.CustomerID, &r.Date,
		&r.CustomerName, &r.CustomerBirthDate, &r.CustomerGrade, &r.CustomerRecognitionNo,
		&r.StartTime, &r.EndTime, &r.TotalServiceTime, &r.TransportService, &r.TransportVehicles,
		&r.HygieneCare, &r.BathTime, &r.BathMethod, &r.MealBreakfast, &r.MealLunch, &r.MealDinner,
		&r.ToiletCare, &r.MobilityCare, &r.PhysicalNote, &r.WriterPhy,
		&r.CogSupport, &r.CommSupport, &r.CognitiveNote, &r.WriterCog,
		&r.BPTemp, &r.HealthManage, &r.NursingManage, &r.Emergency, &r.NursingNote, &r.WriterNur,
		&r.ProgBasic, &r.ProgActivity, &r.ProgCognitive, &r.ProgTherapy, &r.ProgEnhanceDetail, &r.FunctionalNote, &r.WriterFunc)
	return d, err
}

func (db *DB) queryDailyRecords(query string, args ...any) ([]DailyRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily records: %w", err)
	}
	defer rows.Close()

	var result []DailyRecord
	for rows.Next() {
		d, err := scanDailyRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily record: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// ImportResult summarizes an ImportRecords run.
type ImportResult struct {
	Saved    int `json:"saved"`
	Replaced int `json:"replaced"`
	// KeptEvaluations counts employee and AI evaluations moved from replaced records.
	KeptEvaluations int `json:"kept_evaluations"`
	// DroppedAIEvaluations counts AI evaluations of notes whose text changed.
	DroppedAIEvaluations int `json:"dropped_ai_evaluations"`
}

// SaveParsedRecords stores parsed records and returns the number of records saved.
func (db *DB) SaveParsedRecords(recs []records.Record) (int, error) {
	result, err := db.ImportRecords(recs)
	return result.Saved, err
}

// ImportRecords stores parsed records in one transaction. A record already stored for the
// same customer and date is replaced. Employee evaluations of the replaced record move to the
// new one, and so do AI evaluations whose note is unchanged.
func (db *DB) ImportRecords(recs []records.Record) (ImportResult, error) {
	var result ImportResult
	err := db.withTx(func(tx *sql.Tx) error {
		for _, r := range recs {
			if r.CustomerName == "" || r.Date == "" {
				continue
			}
			customerID, err := getOrCreateCustomer(tx, Customer{
				Name:          r.CustomerName,
				BirthDate:     r.CustomerBirthDate,
				Grade:         r.CustomerGrade,
				RecognitionNo: r.CustomerRecognitionNo,
			})
			if err != nil {
				return fmt.Errorf("failed to resolve customer %s: %w", r.CustomerName, err)
			}

			existing, err := queryInt64s(tx, `SELECT record_id FROM daily_infos WHERE customer_id = ? AND date = ? ORDER BY record_id DESC`, customerID, r.Date)
			if err != nil {
				return fmt.Errorf("failed to look up existing record: %w", err)
			}

			recordID, err := insertDailyRecord(tx, customerID, r)
			if err != nil {
				return err
			}
			for _, oldID := range existing {
				kept, dropped, err := moveEvaluations(tx, oldID, recordID, r)
				if err != nil {
					return err
				}
				if err := deleteDailyRecord(tx, oldID); err != nil {
					return err
				}
				result.KeptEvaluations += kept
				result.DroppedAIEvaluations += dropped
				result.Replaced++
			}
			result.Saved++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

// moveEvaluations re-links the evaluations of oldID to newID. AI evaluations are only moved
// when the note they graded is the same in r; the rest are left for deletion with oldID.
func moveEvaluations(tx *sql.Tx, oldID, newID int64, r records.Record) (kept, dropped int, err error) {
	res, err := tx.Exec(`UPDATE employee_evaluations SET record_id = ? WHERE record_id = ?`, newID, oldID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to move employee evaluations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	kept = int(n)

	notes := map[string]string{
		"신체": r.PhysicalNote,
		"인지": r.CognitiveNote,
		"간호": r.NursingNote,
		"기능": r.FunctionalNote,
	}
	rows, err := tx.Query(`SELECT ai_eval_id, category, COALESCE(original_text, '') FROM ai_evaluations WHERE record_id = ?`, oldID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load AI evaluations: %w", err)
	}
	var unchanged []int64
	for rows.Next() {
		var (
			id       int64
			category string
			original string
		)
		if err := rows.Scan(&id, &category, &original); err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("failed to scan AI evaluation: %w", err)
		}
		note, ok := notes[category]
		if ok && strings.TrimSpace(note) == strings.TrimSpace(original) {
			unchanged = append(unchanged, id)
		} else {
			dropped++
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	for _, id := range unchanged {
		// an evaluation already moved from a newer duplicate of this record wins
		res, err := tx.Exec(`UPDATE OR IGNORE ai_evaluations SET record_id = ? WHERE ai_eval_id = ?`, newID, id)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to move AI evaluation: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			kept++
		} else {
			dropped++
		}
	}
	return kept, dropped, nil
}

func insertDailyRecord(tx *sql.Tx, customerID int64, r records.Record) (int64, error) {
	result, err := tx.Exec(`INSERT INTO daily_infos (customer_id, date, start_time, end_time, total_service_time, transport_service, transport_vehicles)
              VALUES (?, ?, ?, ?, ?, ?, ?)`,
		customerID, r.Date, nullIfEmpty(r.StartTime), nullIfEmpty(r.EndTime), nullIfEmpty(r.TotalServiceTime),
		nullIfEmpty(r.TransportService), nullIfEmpty(r.TransportVehicles))
	if err != nil {
		return 0, fmt.Errorf("failed to insert daily info: %w", err)
	}
	recordID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get record id: %w", err)
	}

	sections := []struct {
		name  string
		query string
		args  []any
	}{
		{"physical", `INSERT INTO daily_physicals (record_id, hygiene_care, bath_time, bath_method, meal_breakfast, meal_lunch, meal_dinner, toilet_care, mobility_care, note, writer_name)
                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{recordID, r.HygieneCare, r.BathTime, r.BathMethod, r.MealBreakfast, r.MealLunch, r.MealDinner, r.ToiletCare, r.MobilityCare, r.PhysicalNote, r.WriterPhy}},
		{"cognitive", `INSERT INTO daily_cognitives (record_id, cog_support, comm_support, note, writer_name) VALUES (?, ?, ?, ?, ?)`,
			[]any{recordID, r.CogSupport, r.CommSupport, r.CognitiveNote, r.WriterCog}},
		{"nursing", `INSERT INTO daily_nursings (record_id, bp_temp, health_manage, nursing_manage, emergency, note, writer_name) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{recordID, r.BPTemp, r.HealthManage, r.NursingManage, r.Emergency, r.NursingNote, r.WriterNur}},
		{"recovery", `INSERT INTO daily_recoveries (record_id, prog_basic, prog_activity, prog_cognitive, prog_therapy, prog_enhance_detail, note, writer_name)
                  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{recordID, r.ProgBasic, r.ProgActivity, r.ProgCognitive, r.ProgTherapy, r.ProgEnhanceDetail, r.FunctionalNote, r.WriterFunc}},
	}
	for _, s := range sections {
		if _, err := tx.Exec(s.query, s.args...); err != nil {
			return 0, fmt.Errorf("failed to insert %s section: %w", s.name, err)
		}
	}
	return recordID, nil
}

func deleteDailyRecord(q queryer, recordID int64) error {
	for _, table := range []string{"ai_evaluations", "employee_evaluations", "daily_physicals", "daily_cognitives", "daily_nursings", "daily_recoveries", "daily_infos"} {
		if _, err := q.Exec(`DELETE FROM `+table+` WHERE record_id = ?`, recordID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return nil
}

// DeleteDailyRecord removes a record, its sections and its evaluations.
func (db *DB) DeleteDailyRecord(recordID int64) error {
	return db.withTx(func(tx *sql.Tx) error {
		return deleteDailyRecord(tx, recordID)
	})
}

// FindExistingRecordID returns the record id for customer and date.
func (db *DB) FindExistingRecordID(customerID int64, date string) (int64, error) {
	var id int64
	err := db.QueryRow(`SELECT record_id FROM daily_infos WHERE customer_id = ? AND date = ? ORDER BY record_id DESC LIMIT 1`,
		customerID, date).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// RecordIDByCustomerNameAndDate resolves a record by the recipient's name and the record date.
func (db *DB) RecordIDByCustomerNameAndDate(customerName, date string) (int64, error) {
	var id int64
	err := db.QueryRow(`SELECT di.record_id FROM daily_infos di
              JOIN customers c ON c.customer_id = di.customer_id
              WHERE c.name = ? AND di.date = ?
              ORDER BY di.record_id DESC LIMIT 1`, customerName, date).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

func (db *DB) GetRecord(recordID int64) (DailyRecord, error) {
	d, err := scanDailyRecord(db.QueryRow(dailyRecordSelect+` WHERE di.record_id = ?`, recordID))
	if errors.Is(err, sql.ErrNoRows) {
		return DailyRecord{}, ErrNotFound
	}
	if err != nil {
		return DailyRecord{}, fmt.Errorf("failed to get record: %w", err)
	}
	return d, nil
}

// GetCustomerRecords returns a customer's records, newest first. Empty start or end disables the range filter.
func (db *DB) GetCustomerRecords(customerID int64, start, end string) ([]DailyRecord, error) {
	query := dailyRecordSelect + ` WHERE di.customer_id = ?`
	args := []any{customerID}
	if start != "" && end != "" {
		query += ` AND di.date BETWEEN ? AND ?`
		args = append(args, start, end)
	}
	query += ` ORDER BY di.date DESC`
	return db.queryDailyRecords(query, args...)
}

// GetAllRecordsByDateRange returns every record in the range, ordered by date and customer.
func (db *DB) GetAllRecordsByDateRange(start, end string) ([]DailyRecord, error) {
	return db.queryDailyRecords(dailyRecordSelect+` WHERE di.date BETWEEN ? AND ? ORDER BY di.date, c.name`, start, end)
}

// GetCustomersWithRecords returns each customer with records in the range and how many they have.
func (db *DB) GetCustomersWithRecords(start, end string) ([]CustomerRecordCount, error) {
	rows, err := db.Query(`SELECT c.customer_id, c.name, COALESCE(c.birth_date, ''), COUNT(di.record_id)
              FROM customers c
              JOIN daily_infos di ON di.customer_id = c.customer_id
              WHERE di.date BETWEEN ? AND ?
              GROUP BY c.customer_id, c.name, c.birth_date
              ORDER BY c.name`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers with records: %w", err)
	}
	defer rows.Close()

	var result []CustomerRecordCount
	for rows.Next() {
		var c CustomerRecordCount
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.BirthDate, &c.RecordCount); err != nil {
			return nil, fmt.Errorf("failed to scan customer record count: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
