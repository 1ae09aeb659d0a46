package service

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/boddenberg/spendsense-go/internal/domain"
)

// ============================================================
// Credential validation (runs before any network call)
// ============================================================

const minPasswordLength = 8

// passwordSpecials is the set of characters accepted as "special".
const passwordSpecials = `!@#$%^&*(),.?":{}|<>_/-`

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email has the local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// PasswordProblems lists every rule the password violates, in rule order.
// An empty result means the password is acceptable.
func PasswordProblems(password string) []string {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	var problems []string
	add := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}
	add(len([]rune(password)) >= minPasswordLength, "Password must be at least 8 characters long")
	add(hasUpper, "Password must contain at least one uppercase letter")
	add(hasLower, "Password must contain at least one lowercase letter")
	add(hasDigit, "Password must contain at least one digit")
	add(hasSpecial, "Password must contain at least one special character")
	return problems
}

func validateRegistration(name, email, password string) error {
	var v domain.Validation
	v.Check(strings.TrimSpace(name) != "", "Name is required")
	v.Check(ValidEmail(email), "Please enter a valid email address")
	for _, msg := range PasswordProblems(password) {
		v.Check(false, msg)
	}
	return v.Err()
}

func validateLogin(email, password string) error {
	var v domain.Validation
	v.Check(strings.TrimSpace(email) != "", "Email is required")
	v.Check(password != "", "Password is required")
	return v.Err()
}
