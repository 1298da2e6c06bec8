package data

import (
	"database/sql"
	"nimbusadmin/internal/core"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Create(e *core.AuditEntry) error {
	res, err := r.db.Exec(`INSERT INTO audit_logs (timestamp, user_id, connection_id, statement, duration_ms, status, error_message) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp, e.UserID, e.ConnectionID, e.Statement, e.DurationMs, e.Status, e.ErrorMessage)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	e.ID = id
	return nil
}

func (r *AuditRepo) GetRecent(limit int) ([]core.AuditEntry, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, user_id, connection_id, statement, duration_ms, status, error_message FROM audit_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []core.AuditEntry
	for rows.Next() {
		var e core.AuditEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.ConnectionID, &e.Statement, &e.DurationMs, &e.Status, &e.ErrorMessage); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
