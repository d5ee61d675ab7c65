package repository

import (
	"context"
	"database/sql"
)

// SettingsRepo stores whole JSON settings documents by namespace.
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Load returns the document for namespace, or "{}" when none was saved.
func (r *SettingsRepo) Load(ctx context.Context, namespace string) ([]byte, error) {
	row := r.db.QueryRowContext(ctx, `SELECT body FROM settings WHERE namespace = ?`, namespace)
	var body string
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return []byte("{}"), nil
		}
		return nil, err
	}
	return []byte(body), nil
}

func (r *SettingsRepo) Save(ctx context.Context, namespace string, body []byte) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO settings(namespace, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(namespace) DO UPDATE SET body=excluded.body, updated_at=CURRENT_TIMESTAMP;
	`, namespace, string(body))
	return err
}

// Exists reports whether namespace has a saved document.
func (r *SettingsRepo) Exists(ctx context.Context, namespace string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settings WHERE namespace = ?`, namespace).Scan(&n)
	return n > 0, err
}
