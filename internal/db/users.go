package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin    = "ADMIN"
	RoleEmployee = "EMPLOYEE"

	WorkStatusActive   = "재직"
	WorkStatusResigned = "퇴사"
	WorkStatusAll      = "전체"
)

type User struct {
	ID              int64     `json:"user_id"`
	Username        string    `json:"username"`
	Role            string    `json:"role"`
	Name            string    `json:"name"`
	Gender          string    `json:"gender,omitempty"`
	BirthDate       string    `json:"birth_date,omitempty"`
	WorkStatus      string    `json:"work_status"`
	JobType         string    `json:"job_type,omitempty"`
	HireDate        string    `json:"hire_date,omitempty"`
	ResignationDate string    `json:"resignation_date,omitempty"`
	LicenseName     string    `json:"license_name,omitempty"`
	LicenseDate     string    `json:"license_date,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func createUsersTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
    user_id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,                  -- bcrypt hash
    role TEXT NOT NULL DEFAULT 'EMPLOYEE',
    name TEXT NOT NULL,
    gender TEXT,
    birth_date TEXT,
    work_status TEXT NOT NULL DEFAULT '재직',
    job_type TEXT,
    hire_date TEXT,
    resignation_date TEXT,
    license_name TEXT,
    license_date TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

const userColumns = `user_id, username, role, name, COALESCE(gender, ''), COALESCE(birth_date, ''), work_status,
       COALESCE(job_type, ''), COALESCE(hire_date, ''), COALESCE(resignation_date, ''),
       COALESCE(license_name, ''), COALESCE(license_date, ''), created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (User, error) {
	var u User
	err := scanner.Scan(&u.ID, &u.Username, &u.Role, &u.Name, &u.Gender, &u.BirthDate, &u.WorkStatus,
		&u.JobType, &u.HireDate, &u.ResignationDate, &u.LicenseName, &u.LicenseDate, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ListUsers returns employees ordered by name. keyword matches name or job type,
// and a workStatus of "" or 전체 includes everyone.
func (db *DB) ListUsers(keyword, workStatus string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	var args []any
	if keyword != "" {
		like := "%" + keyword + "%"
		query += ` AND (name LIKE ? OR job_type LIKE ?)`
		args = append(args, like, like)
	}
	if workStatus != "" && workStatus != WorkStatusAll {
		query += ` AND work_status = ?`
		args = append(args, workStatus)
	}
	query += ` ORDER BY name`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ActiveUsers returns employees currently 재직.
func (db *DB) ActiveUsers() ([]User, error) {
	return db.ListUsers("", WorkStatusActive)
}

func (db *DB) GetUser(userID int64) (User, error) {
	u, err := scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// CreateUser stores a new employee with a bcrypt-hashed password.
func (db *DB) CreateUser(u User, password string) (int64, error) {
	if u.Username == "" || u.Name == "" {
		return 0, fmt.Errorf("username and name are required")
	}
	if password == "" {
		return 0, fmt.Errorf("password cannot be empty")
	}
	if u.Role == "" {
		u.Role = RoleEmployee
	}
	if u.WorkStatus == "" {
		u.WorkStatus = WorkStatusActive
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := db.Exec(`INSERT INTO users (username, password, role, name, gender, birth_date, work_status,
                  job_type, hire_date, license_name, license_date)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, string(hash), u.Role, u.Name, nullIfEmpty(u.Gender), nullIfEmpty(u.BirthDate), u.WorkStatus,
		nullIfEmpty(u.JobType), nullIfEmpty(u.HireDate), nullIfEmpty(u.LicenseName), nullIfEmpty(u.LicenseDate))
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return result.LastInsertId()
}

// UpdateUser replaces the profile fields of a user. The password is changed only when newPassword is set.
func (db *DB) UpdateUser(u User, newPassword string) (int64, error) {
	query := `UPDATE users
              SET username = ?, role = ?, name = ?, gender = ?, birth_date = ?, work_status = ?, job_type = ?,
                  hire_date = ?, resignation_date = ?, license_name = ?, license_date = ?, updated_at = CURRENT_TIMESTAMP`
	args := []any{u.Username, u.Role, u.Name, nullIfEmpty(u.Gender), nullIfEmpty(u.BirthDate), u.WorkStatus,
		nullIfEmpty(u.JobType), nullIfEmpty(u.HireDate), nullIfEmpty(u.ResignationDate),
		nullIfEmpty(u.LicenseName), nullIfEmpty(u.LicenseDate)}
	if newPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return 0, fmt.Errorf("failed to hash password: %w", err)
		}
		query += `, password = ?`
		args = append(args, string(hash))
	}
	query += ` WHERE user_id = ?`
	args = append(args, u.ID)

	result, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update user: %w", err)
	}
	return rowsAffected(result)
}

// SoftDeleteUser marks the user as resigned as of today.
func (db *DB) SoftDeleteUser(userID int64) (int64, error) {
	today := time.Now().Format(time.DateOnly)
	result, err := db.Exec(`UPDATE users SET work_status = ?, resignation_date = ?, updated_at = CURRENT_TIMESTAMP
              WHERE user_id = ?`, WorkStatusResigned, today, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}
	return rowsAffected(result)
}

// AuthenticateUser returns the user when username and password match.
func (db *DB) AuthenticateUser(username, password string) (User, error) {
	var userID int64
	var hash string
	err := db.QueryRow(`SELECT user_id, password FROM users WHERE username = ?`, username).Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrNotFound
	}
	return db.GetUser(userID)
}

// UserIDByName returns the id of the first user with the given display name.
func (db *DB) UserIDByName(name string) (int64, error) {
	var id int64
	err := db.QueryRow(`SELECT user_id FROM users WHERE name = ? LIMIT 1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}
