package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Password length bounds, enforced on signup, reset and change. The minimum
// counts characters; the maximum counts bytes since bcrypt only reads 72.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// MaxProfilePictureBytes bounds the data URL stored as a profile picture.
const MaxProfilePictureBytes = 5 << 20

var (
	ErrEmptyEmail      = errors.New("email is required")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrEmptyName       = errors.New("name is required")
	ErrWeakPassword    = errors.New("password must be at least 6 characters")
	ErrLongPassword    = errors.New("password must be at most 72 bytes")
	ErrPictureTooLarge = errors.New("profile picture exceeds 5MB")
)

type User struct {
	ID             string
	Email          string
	Name           string
	PasswordHash   string
	PhoneNumber    string
	ProfilePicture string
	CreatedAt      time.Time
}

// PublicUser is the view of a user returned to clients.
type PublicUser struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	PhoneNumber    string `json:"phone_number"`
	ProfilePicture string `json:"profile_picture"`
}

// ProfileUpdate holds optional profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Name           *string
	PhoneNumber    *string
	ProfilePicture *string
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		PhoneNumber:    u.PhoneNumber,
		ProfilePicture: u.ProfilePicture,
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail expects an already normalized address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(password) > MaxPasswordLength {
		return ErrLongPassword
	}
	return nil
}

func (p ProfileUpdate) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrEmptyName
	}
	if p.ProfilePicture != nil && len(*p.ProfilePicture) > MaxProfilePictureBytes {
		return ErrPictureTooLarge
	}
	return nil
}

// Apply returns a copy of u with the update applied.
func (p ProfileUpdate) Apply(u User) User {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = strings.TrimSpace(*p.PhoneNumber)
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	return u
}
