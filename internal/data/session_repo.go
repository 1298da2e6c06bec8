package data

import (
	"database/sql"
	"errors"
	"nimbusadmin/internal/core"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(s *core.Session) error {
	_, err := r.db.Exec(`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		s.Token, s.UserID, s.ExpiresAt)
	return err
}

// GetUserByToken resolves a token to its user, rejecting expired sessions.
// Returns (nil, nil) when the token is unknown or past expiry.
func (r *SessionRepo) GetUserByToken(token string, now int64) (*core.User, error) {
	var u core.User
	err := r.db.QueryRow(`
		SELECT users.id, users.username, users.created_at
		FROM sessions
		JOIN users ON sessions.user_id = users.id
		WHERE sessions.token = ? AND sessions.expires_at > ?`, token, now).
		Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteExpired prunes sessions whose expiry has passed. Expired rows are
// harmless either way since lookups re-check expiry, so this is housekeeping.
func (r *SessionRepo) DeleteExpired(now int64) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now)
	return err
}
