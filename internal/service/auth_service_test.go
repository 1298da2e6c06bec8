package service

import (
	"nimbusadmin/internal/core"
	"nimbusadmin/internal/data"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T) (*AuthService, *data.SessionRepo) {
	t.Helper()
	db, err := data.InitDB(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := data.NewSessionRepo(db)
	return NewAuthService(data.NewUserRepo(db), sessions), sessions
}

func TestCreateUserAndLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, err := svc.CreateUser("alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)

	token, loggedIn, err := svc.Login("alice", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.GreaterOrEqual(t, len(token), 32) // at least 128 bits of entropy
	require.Equal(t, user.ID, loggedIn.ID)
	// no password material in the returned record
	require.Empty(t, loggedIn.PasswordHash)
	require.Empty(t, loggedIn.Salt)
}

func TestLoginFailuresCollapse(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	_, _, wrongPass := svc.Login("alice", "nope")
	_, _, noUser := svc.Login("bob", "hunter2")

	var authErr *core.AuthError
	require.ErrorAs(t, wrongPass, &authErr)
	require.ErrorAs(t, noUser, &authErr)
	// unknown-user and wrong-password are indistinguishable to the caller
	require.Equal(t, wrongPass.Error(), noUser.Error())
}

func TestDuplicateUsernameConflicts(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.CreateUser("alice", "pw1")
	require.NoError(t, err)
	_, err = svc.CreateUser("alice", "pw2")

	var conflict *core.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestValidateToken(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.CreateUser("alice", "hunter2")
	require.NoError(t, err)
	token, _, err := svc.Login("alice", "hunter2")
	require.NoError(t, err)

	user, err := svc.Validate(token)
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "alice", user.Username)

	user, err = svc.Validate("no-such-token")
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = svc.Validate("")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestExpiredSessionRejected(t *testing.T) {
	svc, sessions := newTestAuthService(t)

	created, err := svc.CreateUser("alice", "hunter2")
	require.NoError(t, err)

	err = sessions.Create(&core.Session{
		Token:     "expired-token",
		UserID:    created.ID,
		ExpiresAt: time.Now().Add(-time.Minute).UnixMilli(),
	})
	require.NoError(t, err)

	user, err := svc.Validate("expired-token")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestBootstrapOnlyWhenEmpty(t *testing.T) {
	svc, _ := newTestAuthService(t)

	require.NoError(t, svc.Bootstrap("admin", "admin"))

	_, _, err := svc.Login("admin", "admin")
	require.NoError(t, err)

	// second bootstrap is a no-op, not a conflict
	require.NoError(t, svc.Bootstrap("admin", "admin"))

	users, err := svc.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestUpdateUserRenameAndRehash(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, err := svc.CreateUser("alice", "old")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateUser(user.ID, "alice2", "new"))

	_, _, err = svc.Login("alice", "old")
	require.Error(t, err)
	_, _, err = svc.Login("alice2", "new")
	require.NoError(t, err)
}

func TestUpdateUserRenameOnlyKeepsPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, err := svc.CreateUser("alice", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateUser(user.ID, "renamed", ""))

	_, _, err = svc.Login("renamed", "pw")
	require.NoError(t, err)
}

func TestUpdateUserConflictsOnTakenName(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.CreateUser("alice", "pw")
	require.NoError(t, err)
	bob, err := svc.CreateUser("bob", "pw")
	require.NoError(t, err)

	err = svc.UpdateUser(bob.ID, "alice", "")
	var conflict *core.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestDeleteLastUserIsPermitted(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, err := svc.CreateUser("solo", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(user.ID))

	users, err := svc.ListUsers()
	require.NoError(t, err)
	require.Empty(t, users)
}
