package auth

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 12
	// argon2 accepts more, the bound keeps hashing cost predictable.
	MaxPasswordLength = 72
)

// PasswordProblems lists the rules password breaks, empty when it is acceptable.
// Messages read after the field name, e.g. "password must contain a digit".
func PasswordProblems(password string) []string {
	var problems []string
	switch n := utf8.RuneCountInString(password); {
	case n < MinPasswordLength:
		problems = append(problems, fmt.Sprintf("is too short (minimum is %d characters)", MinPasswordLength))
	case n > MaxPasswordLength:
		problems = append(problems, fmt.Sprintf("is too long (maximum is %d characters)", MaxPasswordLength))
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	if !hasUpper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !hasNumber {
		problems = append(problems, "must contain a digit")
	}
	if !hasSpecial {
		problems = append(problems, "must contain a symbol")
	}
	return problems
}
