package db

import (
	"database/sql"
	"errors"
	"fmt"
)

type Customer struct {
	ID               int64  `json:"customer_id"`
	Name             string `json:"name"`
	BirthDate        string `json:"birth_date,omitempty"`
	Gender           string `json:"gender,omitempty"`
	RecognitionNo    string `json:"recognition_no,omitempty"`
	BenefitStartDate string `json:"benefit_start_date,omitempty"`
	Grade            string `json:"grade,omitempty"`
}

func createCustomersTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS customers (
    customer_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    birth_date TEXT,                         -- YYYY-MM-DD
    gender TEXT,
    recognition_no TEXT,                     -- 장기요양인정번호
    benefit_start_date TEXT,
    grade TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name);
CREATE INDEX IF NOT EXISTS idx_customers_recognition_no ON customers(recognition_no);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create customers table: %w", err)
	}
	return nil
}

const customerColumns = `customer_id, name, COALESCE(birth_date, ''), COALESCE(gender, ''),
       COALESCE(recognition_no, ''), COALESCE(benefit_start_date, ''), COALESCE(grade, '')`

func scanCustomer(scanner interface{ Scan(...any) error }) (Customer, error) {
	var c Customer
	err := scanner.Scan(&c.ID, &c.Name, &c.BirthDate, &c.Gender, &c.RecognitionNo, &c.BenefitStartDate, &c.Grade)
	return c, err
}

func queryCustomers(q queryer, query string, args ...any) ([]Customer, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func queryCustomer(q queryer, query string, args ...any) (Customer, error) {
	c, err := scanCustomer(q.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

// ListCustomers returns all customers, or those whose name or recognition number contains keyword.
func (db *DB) ListCustomers(keyword string) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if keyword != "" {
		like := "%" + keyword + "%"
		query += ` WHERE name LIKE ? OR recognition_no LIKE ?`
		args = append(args, like, like)
	}
	query += ` ORDER BY customer_id DESC`

	customers, err := queryCustomers(db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (db *DB) GetCustomer(customerID int64) (Customer, error) {
	return queryCustomer(db, `SELECT `+customerColumns+` FROM customers WHERE customer_id = ?`, customerID)
}

func (db *DB) CreateCustomer(c Customer) (int64, error) {
	if c.Name == "" {
		return 0, fmt.Errorf("customer name cannot be empty")
	}
	return insertCustomer(db, c)
}

func insertCustomer(q queryer, c Customer) (int64, error) {
	result, err := q.Exec(`INSERT INTO customers (name, birth_date, gender, recognition_no, benefit_start_date, grade)
              VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, nullIfEmpty(c.BirthDate), nullIfEmpty(c.Gender), nullIfEmpty(c.RecognitionNo),
		nullIfEmpty(c.BenefitStartDate), nullIfEmpty(c.Grade))
	if err != nil {
		return 0, fmt.Errorf("failed to create customer: %w", err)
	}
	return result.LastInsertId()
}

// UpdateCustomer replaces every field of the customer and returns the number of rows changed.
func (db *DB) UpdateCustomer(c Customer) (int64, error) {
	result, err := db.Exec(`UPDATE customers
              SET name = ?, birth_date = ?, gender = ?, recognition_no = ?, benefit_start_date = ?, grade = ?
              WHERE customer_id = ?`,
		c.Name, nullIfEmpty(c.BirthDate), nullIfEmpty(c.Gender), nullIfEmpty(c.RecognitionNo),
		nullIfEmpty(c.BenefitStartDate), nullIfEmpty(c.Grade), c.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to update customer: %w", err)
	}
	return rowsAffected(result)
}

// DeleteCustomer removes the customer together with its daily records.
func (db *DB) DeleteCustomer(customerID int64) (int64, error) {
	var affected int64
	err := db.withTx(func(tx *sql.Tx) error {
		recordIDs, err := queryInt64s(tx, `SELECT record_id FROM daily_infos WHERE customer_id = ?`, customerID)
		if err != nil {
			return fmt.Errorf("failed to look up customer records: %w", err)
		}
		for _, id := range recordIDs {
			if err := deleteDailyRecord(tx, id); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`DELETE FROM weekly_status WHERE customer_id = ?`, customerID); err != nil {
			return fmt.Errorf("failed to delete weekly status: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM customers WHERE customer_id = ?`, customerID)
		if err != nil {
			return fmt.Errorf("failed to delete customer: %w", err)
		}
		affected, err = rowsAffected(result)
		return err
	})
	return affected, err
}

func (db *DB) FindCustomerByName(name string) (Customer, error) {
	return findCustomerByName(db, name)
}

func findCustomerByName(q queryer, name string) (Customer, error) {
	return queryCustomer(q, `SELECT `+customerColumns+` FROM customers
              WHERE name = ? ORDER BY customer_id DESC LIMIT 1`, name)
}

func (db *DB) FindCustomerByRecognitionNo(recognitionNo string) (Customer, error) {
	return findCustomerByRecognitionNo(db, recognitionNo)
}

func findCustomerByRecognitionNo(q queryer, recognitionNo string) (Customer, error) {
	return queryCustomer(q, `SELECT `+customerColumns+` FROM customers
              WHERE recognition_no = ? ORDER BY customer_id DESC LIMIT 1`, recognitionNo)
}

func (db *DB) FindCustomerByNameAndBirth(name, birthDate string) (Customer, error) {
	return findCustomerByNameAndBirth(db, name, birthDate)
}

func findCustomerByNameAndBirth(q queryer, name, birthDate string) (Customer, error) {
	return queryCustomer(q, `SELECT `+customerColumns+` FROM customers
              WHERE name = ? AND birth_date = ? ORDER BY customer_id DESC LIMIT 1`, name, birthDate)
}

// ResolveCustomerID finds a customer by recognition number, then by name and birth date,
// then by name alone.
func (db *DB) ResolveCustomerID(name, birthDate, recognitionNo string) (int64, error) {
	return resolveCustomerID(db, name, birthDate, recognitionNo)
}

func resolveCustomerID(q queryer, name, birthDate, recognitionNo string) (int64, error) {
	lookups := []func() (Customer, error){}
	if recognitionNo != "" {
		lookups = append(lookups, func() (Customer, error) { return findCustomerByRecognitionNo(q, recognitionNo) })
	}
	if name != "" && birthDate != "" {
		lookups = append(lookups, func() (Customer, error) { return findCustomerByNameAndBirth(q, name, birthDate) })
	}
	if name != "" {
		lookups = append(lookups, func() (Customer, error) { return findCustomerByName(q, name) })
	}
	for _, lookup := range lookups {
		c, err := lookup()
		if err == nil {
			return c.ID, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return 0, err
		}
	}
	return 0, ErrNotFound
}

// GetOrCreateCustomer returns the id of the matching customer, refreshing its birth date,
// grade and recognition number, or creates a new one.
func (db *DB) GetOrCreateCustomer(c Customer) (int64, error) {
	return getOrCreateCustomer(db, c)
}

func getOrCreateCustomer(q queryer, c Customer) (int64, error) {
	id, err := resolveCustomerID(q, c.Name, c.BirthDate, c.RecognitionNo)
	switch {
	case err == nil:
		_, err := q.Exec(`UPDATE customers
                  SET birth_date = COALESCE(?, birth_date), grade = COALESCE(?, grade), recognition_no = COALESCE(?, recognition_no)
                  WHERE customer_id = ?`,
			nullIfEmpty(c.BirthDate), nullIfEmpty(c.Grade), nullIfEmpty(c.RecognitionNo), id)
		if err != nil {
			return 0, fmt.Errorf("failed to update customer: %w", err)
		}
		return id, nil
	case errors.Is(err, ErrNotFound):
		return insertCustomer(q, c)
	default:
		return 0, err
	}
}

func queryInt64s(q queryer, query string, args ...any) ([]int64, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
