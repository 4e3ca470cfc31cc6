package goGate

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

const (
	usernameMinLength = 3
	usernameMaxLength = 32
)

type registrationInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (e *Engine) validateRegistration(in registrationInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(e.config.Password.MinLength, e.config.Password.MaxLength)),
		validation.Field(&in.Username, validation.Length(usernameMinLength, usernameMaxLength), validation.Match(usernamePattern)),
	)
	return toValidationError(err)
}

func validateEmail(email string) error {
	return toValidationError(validation.Errors{
		"email": validation.Validate(email, validation.Required, validation.Length(3, 254), is.EmailFormat),
	}.Filter())
}

func (e *Engine) validatePassword(plain string) error {
	return toValidationError(validation.Errors{
		"password": validation.Validate(plain, validation.Required, validation.Length(e.config.Password.MinLength, e.config.Password.MaxLength)),
	}.Filter())
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &ValidationError{Fields: map[string]string{"request": err.Error()}}
	}
	out := &ValidationError{Fields: make(map[string]string, len(errs))}
	for field, fieldErr := range errs {
		if fieldErr != nil {
			out.Fields[field] = fieldErr.Error()
		}
	}
	return out
}

// usernameFromEmail derives a username from the local part of email, dropping
// any +tag and characters outside the username alphabet.
func usernameFromEmail(email string) string {
	local := email
	if at := strings.LastIndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	name := strings.TrimLeft(b.String(), "_.-")
	if len(name) > usernameMaxLength-usernameSuffixLength-1 {
		name = name[:usernameMaxLength-usernameSuffixLength-1]
	}
	if len(name) < usernameMinLength {
		name = "user" + name
	}
	return name
}

const usernameSuffixLength = 6

func usernameSuffix() (string, error) {
	buf := make([]byte, usernameSuffixLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
