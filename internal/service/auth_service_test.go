package service

import (
	"context"
	"testing"
	"time"

	"ecofinds/internal/auth"
	"ecofinds/internal/service/servicetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService() (*AuthService, *servicetest.Store) {
	st := servicetest.NewStore()
	return NewAuthService(st, auth.NewTokenService("test-secret", time.Hour), servicetest.NewRevoker()), st
}

func TestSignupAndLogin(t *testing.T) {
	svc, st := newAuthService()
	ctx := context.Background()

	session, err := svc.Signup(ctx, &SignupRequest{Email: " Ann@Example.com ", Password: "secret1", Name: "Ann"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ann@example.com", session.User.Email)

	stored, err := st.GetUserByID(ctx, session.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	login, err := svc.Login(ctx, &LoginRequest{Email: "ANN@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = svc.Login(ctx, &LoginRequest{Email: "ann@example.com", Password: "wrong!!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, &SignupRequest{Email: "a@example.com", Password: "12345", Name: "A"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.Signup(ctx, &SignupRequest{Email: "not-an-email", Password: "123456", Name: "A"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.Signup(ctx, &SignupRequest{Email: "a@example.com", Password: "123456", Name: "A"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, &SignupRequest{Email: "A@example.com", Password: "123456", Name: "B"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestResolve(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	session, err := svc.Signup(ctx, &SignupRequest{Email: "b@example.com", Password: "123456", Name: "B"})
	require.NoError(t, err)

	p, err := svc.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, p.User.ID)

	require.NoError(t, svc.Logout(ctx, p))
	_, err = svc.Resolve(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// A valid token for an account that no longer exists.
	token, _, err := svc.tokens.Issue(999, "ghost@example.com")
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}
