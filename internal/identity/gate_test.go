package identity_test

import (
	"errors"
	"testing"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
	identity "github.com/CodeAndHammer/upjguesser/internal/identity"
)

type usedSet map[string]bool

func (u usedSet) IsUsed(email string) bool { return u[email] }

func TestValidEmail(t *testing.T) {
	cases := []struct {
		email string
		valid bool
	}{
		{"x@pitt.edu", true},
		{"first.last+tag@pitt.edu", true},
		{"a_b%c-d@pitt.edu", true},
		{"ABC@PITT.EDU", true},
		{"  pad@pitt.edu  ", false},
		{"x@pitt.edu\n", false},
		{"x@gmail.com", false},
		{"x@pitt.edu.evil.com", false},
		{"@pitt.edu", false},
		{"x y@pitt.edu", false},
		{"x@pittxedu", false},
		{"", false},
	}
	for _, c := range cases {
		if got := identity.ValidEmail(c.email); got != c.valid {
			t.Errorf("ValidEmail(%q) = %v, want %v", c.email, got, c.valid)
		}
	}
}

func TestAdmit(t *testing.T) {
	gate := identity.NewGate(usedSet{"ej123@pitt.edu": true})

	p, err := gate.Admit(" Pat ", "Pat42@Pitt.edu")
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if p.Name != "Pat" || p.Email != "pat42@pitt.edu" {
		t.Errorf("Admit = %+v, want trimmed name and lowercased email", p)
	}

	if _, err := gate.Admit("Emma", "EJ123@pitt.edu"); !errors.Is(err, identity.ErrEmailAlreadyUsed) {
		t.Errorf("Admit used email err = %v, want ErrEmailAlreadyUsed", err)
	}
	if _, err := gate.Admit("Pat", "x@gmail.com"); !errors.Is(err, identity.ErrInvalidEmailFormat) {
		t.Errorf("Admit gmail err = %v, want ErrInvalidEmailFormat", err)
	}
	if _, err := gate.Admit("   ", "x@pitt.edu"); !errors.Is(err, identity.ErrNameRequired) {
		t.Errorf("Admit blank name err = %v, want ErrNameRequired", err)
	}
	if _, err := gate.Admit("Pat", " x@pitt.edu "); !errors.Is(err, identity.ErrInvalidEmailFormat) {
		t.Errorf("Admit padded email err = %v, want ErrInvalidEmailFormat", err)
	}
}

func TestAdmitChecksFormatBeforeUniqueness(t *testing.T) {
	gate := identity.NewGate(usedSet{"x@gmail.com": true})
	if _, err := gate.Admit("Pat", "x@gmail.com"); !errors.Is(err, identity.ErrInvalidEmailFormat) {
		t.Errorf("err = %v, want ErrInvalidEmailFormat", err)
	}
}

func TestCode(t *testing.T) {
	cases := map[error]string{
		identity.ErrNameRequired:       constants.ErrorCodeNameRequired,
		identity.ErrInvalidEmailFormat: constants.ErrorCodeInvalidEmailFormat,
		identity.ErrEmailAlreadyUsed:   constants.ErrorCodeEmailAlreadyUsed,
		errors.New("other"):            "",
	}
	for err, want := range cases {
		if got := identity.Code(err); got != want {
			t.Errorf("Code(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestMessage(t *testing.T) {
	if got := identity.Message(identity.ErrEmailAlreadyUsed); got != "This email has already been used. Each student can only play once." {
		t.Errorf("Message(ErrEmailAlreadyUsed) = %q", got)
	}
	if got := identity.Message(identity.ErrInvalidEmailFormat); got != "Please enter a valid Pitt email address (ending with @pitt.edu)" {
		t.Errorf("Message(ErrInvalidEmailFormat) = %q", got)
	}
	if got := identity.Message(nil); got != "" {
		t.Errorf("Message(nil) = %q, want empty", got)
	}
}
