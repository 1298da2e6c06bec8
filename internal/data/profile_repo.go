package data

import (
	"database/sql"
	"errors"
	"nimbusadmin/internal/core"
	"time"
)

type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetAll lists profiles most-recently-created first.
func (r *ProfileRepo) GetAll() ([]core.ConnectionProfile, error) {
	rows, err := r.db.Query(`SELECT id, name, host, port, username, password_enc, created_at FROM connections ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []core.ConnectionProfile
	for rows.Next() {
		var p core.ConnectionProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.Host, &p.Port, &p.Username, &p.Password, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *ProfileRepo) GetByID(id string) (*core.ConnectionProfile, error) {
	var p core.ConnectionProfile
	err := r.db.QueryRow(`SELECT id, name, host, port, username, password_enc, created_at FROM connections WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Host, &p.Port, &p.Username, &p.Password, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert creates or fully replaces the profile keyed by id. CreatedAt
// defaults to now when absent.
func (r *ProfileRepo) Upsert(p *core.ConnectionProfile) error {
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UnixMilli()
	}
	_, err := r.db.Exec(`INSERT OR REPLACE INTO connections (id, name, host, port, username, password_enc, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Host, p.Port, p.Username, p.Password, p.CreatedAt)
	return err
}

func (r *ProfileRepo) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM connections WHERE id=?`, id)
	return err
}
