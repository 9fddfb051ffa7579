package users

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
)

const (
	minPasswordLength = 8
	maxNameLength     = 100
	minUsernameLength = 3
	maxUsernameLength = 50
)

// RegisterInput is what a user types into the sign up form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Name            string
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, "@")
}

// ValidateLogin accepts either a username or an email as identifier.
func ValidateLogin(identifier, password string) error {
	fe := apperrors.FieldErrors{}
	identifier = strings.TrimSpace(identifier)
	switch {
	case identifier == "":
		fe["usernameOrEmail"] = "username or email is required"
	case strings.Contains(identifier, "@") && !IsEmail(identifier):
		fe["usernameOrEmail"] = "email address is not valid"
	}
	if password == "" {
		fe["password"] = "password is required"
	}
	return fe.OrNil()
}

// ValidateRegistration returns every field problem at once so a form can show them together.
func ValidateRegistration(in RegisterInput) error {
	fe := apperrors.FieldErrors{}

	if in.Username != "" {
		n := utf8.RuneCountInString(in.Username)
		if n < minUsernameLength || n > maxUsernameLength {
			fe["username"] = fmt.Sprintf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength)
		}
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		fe["email"] = "email is required"
	} else if !IsEmail(email) {
		fe["email"] = "email address is not valid"
	}

	if in.Password == "" {
		fe["password"] = "password is required"
	} else if err := ValidatePasswordStrength(in.Password); err != nil {
		fe["password"] = err.Error()
	}
	if in.ConfirmPassword != in.Password {
		fe["confirmPassword"] = "passwords do not match"
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		fe["name"] = "name is required"
	} else if utf8.RuneCountInString(name) > maxNameLength {
		fe["name"] = fmt.Sprintf("name must be at most %d characters", maxNameLength)
	}

	return fe.OrNil()
}
