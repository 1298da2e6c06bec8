package service

import (
	"crypto/rand"
	"encoding/hex"
	"nimbusadmin/internal/core"
	"nimbusadmin/internal/logger"
	"strings"
	"time"
)

// SessionTTL is the fixed validity window for login tokens.
const SessionTTL = 24 * time.Hour

const sessionTokenBytes = 32

type AuthService struct {
	users    core.UserRepository
	sessions core.SessionRepository
}

func NewAuthService(users core.UserRepository, sessions core.SessionRepository) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

// Bootstrap creates a default account when the store is empty. Operational
// convenience only; deployers are expected to rotate it.
func (s *AuthService) Bootstrap(username, password string) error {
	count, err := s.users.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	logger.Info.Printf("No users found, creating default account %q", username)
	_, err = s.CreateUser(username, password)
	return err
}

// CreateUser derives fresh password material and persists the account.
func (s *AuthService) CreateUser(username, password string) (*core.User, error) {
	if username == "" || password == "" {
		return nil, core.NewValidationError("username and password are required")
	}
	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(username, HashPassword(password, salt), salt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, core.NewConflictError("username already exists")
		}
		return nil, err
	}
	return user, nil
}

// Login validates credentials and mints a session token. Unknown username
// and wrong password collapse to the same failure.
func (s *AuthService) Login(username, password string) (string, *core.User, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		return "", nil, err
	}
	if user == nil || !VerifyPassword(password, user.Salt, user.PasswordHash) {
		return "", nil, core.NewAuthError("invalid username or password")
	}

	token, err := newSessionToken()
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	// Housekeeping; expired rows are rejected on lookup regardless.
	_ = s.sessions.DeleteExpired(now.UnixMilli())

	err = s.sessions.Create(&core.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(SessionTTL).UnixMilli(),
	})
	if err != nil {
		return "", nil, err
	}

	user.PasswordHash = ""
	user.Salt = ""
	return token, user, nil
}

// Validate resolves a bearer token to its user. Returns (nil, nil) for
// unknown or expired tokens; expiry is re-checked on every call.
func (s *AuthService) Validate(token string) (*core.User, error) {
	if token == "" {
		return nil, nil
	}
	return s.sessions.GetUserByToken(token, time.Now().UnixMilli())
}

// UpdateUser renames and, when password is non-empty, rehashes with a fresh
// salt.
func (s *AuthService) UpdateUser(id int64, username, password string) error {
	user, err := s.users.GetByID(id)
	if err != nil {
		return err
	}
	if user == nil {
		return core.NewNotFoundError("user not found")
	}
	if username == "" {
		return core.NewValidationError("username is required")
	}

	user.Username = username
	user.PasswordHash = ""
	user.Salt = ""
	if password != "" {
		salt, err := NewSalt()
		if err != nil {
			return err
		}
		user.Salt = salt
		user.PasswordHash = HashPassword(password, salt)
	}

	if err := s.users.Update(user); err != nil {
		if isUniqueViolation(err) {
			return core.NewConflictError("username already exists")
		}
		return err
	}
	return nil
}

// DeleteUser removes an account unconditionally. Deleting the last account
// locks out all administrative access; that is permitted but logged.
func (s *AuthService) DeleteUser(id int64) error {
	count, err := s.users.Count()
	if err == nil && count == 1 {
		logger.Info.Printf("Deleting the last remaining user account (id=%d)", id)
	}
	return s.users.Delete(id)
}

func (s *AuthService) ListUsers() ([]core.User, error) {
	return s.users.GetAll()
}

// ResetPassword rehashes a user's password by username (CLI recovery path).
func (s *AuthService) ResetPassword(username, newPassword string) error {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		return err
	}
	if user == nil {
		return core.NewNotFoundError("user not found: " + username)
	}
	return s.UpdateUser(user.ID, user.Username, newPassword)
}

func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// isUniqueViolation matches SQLite's unique-constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
