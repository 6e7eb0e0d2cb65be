package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

func newAuthService(t *testing.T) (*AuthService, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("0123456789abcdef0123", time.Hour)
	svc := NewAuthService(memory.New(), tokens, time.Minute, nil)
	svc.hashCost = bcrypt.MinCost
	return svc, tokens
}

func TestAuthService_SignupLogin(t *testing.T) {
	svc, tokens := newAuthService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, SignupInput{Email: " Ada@Example.com ", Password: "secret1", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.User.ID)

	sub, err := tokens.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, sub)

	_, err = svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "secret2", Name: "Other"})
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	login, err := svc.Login(ctx, "ADA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_SignupValidation(t *testing.T) {
	svc, _ := newAuthService(t)

	tests := []struct {
		name string
		in   SignupInput
		want error
	}{
		{"missing email", SignupInput{Password: "secret1", Name: "A"}, core.ErrEmptyEmail},
		{"bad email", SignupInput{Email: "not-an-email", Password: "secret1", Name: "A"}, core.ErrInvalidEmail},
		{"missing name", SignupInput{Email: "a@b.co", Password: "secret1", Name: " "}, core.ErrEmptyName},
		{"short password", SignupInput{Email: "a@b.co", Password: "12345", Name: "A"}, core.ErrWeakPassword},
		{"long password", SignupInput{Email: "a@b.co", Password: strings.Repeat("x", 73), Name: "A"}, core.ErrLongPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthService_PasswordReset(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "bob@example.com", Password: "secret1", Name: "Bob"})
	require.NoError(t, err)

	found, err := svc.ForgotPassword(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = svc.ForgotPassword(ctx, "missing@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	assert.ErrorIs(t, svc.ResetPassword(ctx, "bob@example.com", "123"), core.ErrWeakPassword)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "missing@example.com", "newsecret"), store.ErrNotFound)

	require.NoError(t, svc.ResetPassword(ctx, "bob@example.com", "newsecret"))

	_, err = svc.Login(ctx, "bob@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "bob@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestAuthService_ProfileAndPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, SignupInput{Email: "cy@example.com", Password: "secret1", Name: "Cy"})
	require.NoError(t, err)
	id := sess.User.ID

	// prime the cache
	_, err = svc.Verify(ctx, id)
	require.NoError(t, err)

	name, phone := "Cyrus", "+39 333 1234567"
	updated, err := svc.UpdateProfile(ctx, id, core.ProfileUpdate{Name: &name, PhoneNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Cyrus", updated.Name)

	verified, err := svc.Verify(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Cyrus", verified.Name, "profile update must invalidate the cached user")
	assert.Equal(t, phone, verified.PhoneNumber)

	huge := strings.Repeat("a", core.MaxProfilePictureBytes+1)
	_, err = svc.UpdateProfile(ctx, id, core.ProfileUpdate{ProfilePicture: &huge})
	assert.ErrorIs(t, err, core.ErrPictureTooLarge)

	assert.ErrorIs(t, svc.ChangePassword(ctx, id, "wrong", "another1"), ErrWrongPassword)
	assert.ErrorIs(t, svc.ChangePassword(ctx, id, "secret1", "abc"), core.ErrWeakPassword)
	require.NoError(t, svc.ChangePassword(ctx, id, "secret1", "another1"))

	_, err = svc.Login(ctx, "cy@example.com", "another1")
	assert.NoError(t, err)

	_, err = svc.Verify(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
