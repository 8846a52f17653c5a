package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ameistad/carenote/internal/secrets"
)

// Setting is an age-encrypted value such as a provider API key.
type Setting struct {
	Name           string    `json:"name"`
	EncryptedValue string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type SettingAPIResponse struct {
	Name        string `json:"name"`
	DigestValue string `json:"digest_value"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (s Setting) ToAPIResponse() SettingAPIResponse {
	return SettingAPIResponse{
		Name:        s.Name,
		DigestValue: secrets.Digest(s.EncryptedValue),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
}

func createSettingsTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS settings (
    name TEXT PRIMARY KEY,
    encrypted_value TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	return nil
}

// SetSetting encrypts value with the configured age identity and upserts it under name.
func (db *DB) SetSetting(name, value string) error {
	if name == "" {
		return fmt.Errorf("setting name cannot be empty")
	}
	if value == "" {
		return fmt.Errorf("setting value cannot be empty")
	}
	identity, err := secrets.GetAgeIdentity()
	if err != nil {
		return fmt.Errorf("failed to get encryption key: %w", err)
	}
	encryptedValue, err := secrets.Encrypt(value, identity.Recipient())
	if err != nil {
		return fmt.Errorf("failed to encrypt setting value: %w", err)
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO settings (name, encrypted_value, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            encrypted_value = excluded.encrypted_value,
            updated_at = excluded.updated_at
    `
	if _, err := db.Exec(query, name, encryptedValue, now, now); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}

// GetSettingDecrypted returns the plain value of a setting, or ErrNotFound.
func (db *DB) GetSettingDecrypted(name string) (string, error) {
	var encrypted string
	err := db.QueryRow(`SELECT encrypted_value FROM settings WHERE name = ?`, name).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}

	identity, err := secrets.GetAgeIdentity()
	if err != nil {
		return "", fmt.Errorf("failed to get encryption key: %w", err)
	}
	value, err := secrets.Decrypt(encrypted, identity)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt setting '%s': %w", name, err)
	}
	return value, nil
}

func (db *DB) ListSettings() ([]Setting, error) {
	rows, err := db.Query(`SELECT name, encrypted_value, created_at, updated_at FROM settings ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Name, &s.EncryptedValue, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (db *DB) DeleteSetting(name string) error {
	result, err := db.Exec(`DELETE FROM settings WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceEncryptedSettings stores already encrypted values in a single transaction.
// It is used when the age identity is rolled.
func (db *DB) ReplaceEncryptedSettings(settings []Setting) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, s := range settings {
		if _, err := tx.Exec(`UPDATE settings SET encrypted_value = ?, updated_at = ? WHERE name = ?`, s.EncryptedValue, now, s.Name); err != nil {
			return fmt.Errorf("failed to update setting %s: %w", s.Name, err)
		}
	}
	return tx.Commit()
}
