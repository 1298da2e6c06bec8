package core

// UserRepository defines storage operations for users.
// Lookups return (nil, nil) when no row matches.
type UserRepository interface {
	Create(username, passwordHash, salt string) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByID(id int64) (*User, error)
	GetAll() ([]User, error)
	Update(user *User) error
	Delete(id int64) error
	Count() (int, error)
}

// SessionRepository defines storage operations for login sessions.
type SessionRepository interface {
	Create(session *Session) error
	GetUserByToken(token string, now int64) (*User, error)
	DeleteExpired(now int64) error
}

// ProfileRepository defines storage operations for connection profiles.
type ProfileRepository interface {
	GetAll() ([]ConnectionProfile, error)
	GetByID(id string) (*ConnectionProfile, error)
	Upsert(profile *ConnectionProfile) error
	Delete(id string) error
}

// AuditRepository defines storage operations for gateway execution logs.
type AuditRepository interface {
	Create(entry *AuditEntry) error
	GetRecent(limit int) ([]AuditEntry, error)
}
