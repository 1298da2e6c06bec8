package data

import (
	"database/sql"
	"errors"
	"nimbusadmin/internal/core"
	"time"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user with pre-derived password material.
func (r *UserRepo) Create(username, passwordHash, salt string) (*core.User, error) {
	now := time.Now().UnixMilli()
	res, err := r.db.Exec(`INSERT INTO users (username, password_hash, salt, created_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, salt, now)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &core.User{ID: id, Username: username, CreatedAt: now}, nil
}

func (r *UserRepo) GetByUsername(username string) (*core.User, error) {
	var u core.User
	err := r.db.QueryRow(`SELECT id, username, password_hash, salt, created_at FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByID(id int64) (*core.User, error) {
	var u core.User
	err := r.db.QueryRow(`SELECT id, username, password_hash, salt, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetAll lists accounts newest first, without password material.
func (r *UserRepo) GetAll() ([]core.User, error) {
	rows, err := r.db.Query(`SELECT id, username, created_at FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update renames and, when new password material is present, rehashes.
func (r *UserRepo) Update(u *core.User) error {
	if u.PasswordHash != "" {
		_, err := r.db.Exec(`UPDATE users SET username=?, password_hash=?, salt=? WHERE id=?`,
			u.Username, u.PasswordHash, u.Salt, u.ID)
		return err
	}
	_, err := r.db.Exec(`UPDATE users SET username=? WHERE id=?`, u.Username, u.ID)
	return err
}

func (r *UserRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM users WHERE id=?`, id)
	return err
}

func (r *UserRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
