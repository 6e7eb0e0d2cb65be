package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

const userCacheSize = 1024

type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// Session is what signup and login hand back to the caller.
type Session struct {
	Token string          `json:"token"`
	User  core.PublicUser `json:"user"`
}

type AuthService struct {
	users    store.UserStore
	tokens   *auth.TokenManager
	cache    *cache.LRUCache[core.User]
	logger   *applog.Logger
	hashCost int
	now      func() time.Time
}

func NewAuthService(users store.UserStore, tokens *auth.TokenManager, cacheTTL time.Duration, logger *applog.Logger) *AuthService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		cache:    cache.NewLRUCache[core.User](userCacheSize, cacheTTL),
		logger:   logger.WithComponent(applog.ComponentAuth),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// UserCache exposes the verified-user cache so it can be swept periodically.
func (s *AuthService) UserCache() cache.Cleaner {
	return s.cache
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (Session, error) {
	email := core.NormalizeEmail(in.Email)
	if err := core.ValidateEmail(email); err != nil {
		return Session{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Session{}, core.ErrEmptyName
	}
	if err := core.ValidatePassword(in.Password); err != nil {
		return Session{}, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return Session{}, err
	}

	user := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}

	s.logger.InfoContext(ctx, "User signed up", applog.FieldUserID, user.ID, applog.FieldOperation, applog.OpSignup)
	return s.session(user)
}

// Login returns ErrInvalidCredentials for both unknown emails and wrong passwords.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.WarnContext(ctx, "Invalid password", applog.FieldUserID, user.ID, applog.FieldOperation, applog.OpLogin)
		return Session{}, ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "User logged in", applog.FieldUserID, user.ID, applog.FieldOperation, applog.OpLogin)
	return s.session(user)
}

// Verify resolves the user behind an authenticated request.
func (s *AuthService) Verify(ctx context.Context, userID string) (core.PublicUser, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return core.PublicUser{}, err
	}
	return user.Public(), nil
}

// ForgotPassword reports whether an account exists for email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (bool, error) {
	email = core.NormalizeEmail(email)
	if email == "" {
		return false, core.ErrEmptyEmail
	}
	_, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ResetPassword sets a new password for the account registered under email.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = core.NormalizeEmail(email)
	if email == "" {
		return core.ErrEmptyEmail
	}
	if err := core.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Password reset", applog.FieldUserID, user.ID)
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update core.ProfileUpdate) (core.PublicUser, error) {
	if err := update.Validate(); err != nil {
		return core.PublicUser{}, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return core.PublicUser{}, err
	}

	user = update.Apply(user)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return core.PublicUser{}, fmt.Errorf("update user: %w", err)
	}
	s.cache.Delete(userID)

	s.logger.InfoContext(ctx, "Profile updated", applog.FieldUserID, userID)
	return user.Public(), nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := core.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return ErrWrongPassword
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Password changed", applog.FieldUserID, userID)
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, user core.User, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.cache.Delete(user.ID)
	return nil
}

func (s *AuthService) user(ctx context.Context, userID string) (core.User, error) {
	if user, ok := s.cache.Get(userID); ok {
		return user, nil
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return core.User{}, err
	}
	s.cache.Set(userID, user)
	return user, nil
}

func (s *AuthService) session(user core.User) (Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user.Public()}, nil
}

func (s *AuthService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
