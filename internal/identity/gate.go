// Package identity admits a player before a session starts.
package identity

import (
	"errors"
	"regexp"
	"strings"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
)

var (
	ErrNameRequired       = errors.New("name is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrEmailAlreadyUsed   = errors.New("email already used")
)

var pittEmail = regexp.MustCompile(constants.PittEmailPattern)

// UsedEmails reports whether an email has already completed a session.
type UsedEmails interface {
	IsUsed(email string) bool
}

type Player struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Gate struct {
	used UsedEmails
}

func NewGate(used UsedEmails) *Gate {
	return &Gate{used: used}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail matches the raw input; surrounding whitespace is rejected.
func ValidEmail(email string) bool {
	return pittEmail.MatchString(email)
}

// Admit checks the format first, then uniqueness. It never records the
// email; that only happens when a finished session is saved.
func (g *Gate) Admit(name, email string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, ErrNameRequired
	}
	if !ValidEmail(email) {
		return Player{}, ErrInvalidEmailFormat
	}
	normalized := NormalizeEmail(email)
	if g.used != nil && g.used.IsUsed(normalized) {
		return Player{}, ErrEmailAlreadyUsed
	}
	return Player{Name: name, Email: normalized}, nil
}

// Code maps a gate error to its stable error code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNameRequired):
		return constants.ErrorCodeNameRequired
	case errors.Is(err, ErrInvalidEmailFormat):
		return constants.ErrorCodeInvalidEmailFormat
	case errors.Is(err, ErrEmailAlreadyUsed):
		return constants.ErrorCodeEmailAlreadyUsed
	default:
		return ""
	}
}

// Message is the inline login-form text for a gate error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNameRequired):
		return "Please enter your name."
	case errors.Is(err, ErrInvalidEmailFormat):
		return "Please enter a valid Pitt email address (ending with @pitt.edu)"
	case errors.Is(err, ErrEmailAlreadyUsed):
		return "This email has already been used. Each student can only play once."
	default:
		return ""
	}
}
