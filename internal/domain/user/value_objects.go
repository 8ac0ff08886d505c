package user

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidPassword = errors.New("invalid password")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Email struct {
	value string
}

func NewEmail(value string) (Email, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" || !emailPattern.MatchString(trimmed) {
		return Email{}, ErrInvalidEmail
	}
	return Email{value: trimmed}, nil
}

func (e Email) String() string {
	return e.value
}

func NewRole(value string) (Role, error) {
	role := Role(value)
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

type Password struct {
	value string
}

func NewPassword(value string) (Password, error) {
	if len(value) < 8 {
		return Password{}, ErrInvalidPassword
	}
	return Password{value: value}, nil
}

func (p Password) Value() string {
	return p.value
}

type Credentials struct {
	email    Email
	password Password
}

func NewCredentials(email, rawPassword string) (Credentials, error) {
	e, err := NewEmail(email)
	if err != nil {
		return Credentials{}, err
	}
	p, err := NewPassword(rawPassword)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{email: e, password: p}, nil
}

func (c Credentials) Email() Email {
	return c.email
}

func (c Credentials) Password() Password {
	return c.password
}
