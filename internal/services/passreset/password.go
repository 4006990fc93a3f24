// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package passreset

import (
	"context"
	"strings"
	"unicode"

	"codeberg.org/oliverandrich/sampletrack/internal/i18n"
)

// PasswordValidator checks new kit passwords.
type PasswordValidator struct {
	MinLength           int
	CheckUserSimilarity bool
}

// DefaultPasswordValidator returns the validator used for kit passwords.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:           8,
		CheckUserSimilarity: true,
	}
}

// ValidationError represents a single password validation error
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError wraps multiple validation errors
type PasswordValidationError struct {
	Errors []ValidationError
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

// Messages returns all error messages
func (e *PasswordValidationError) Messages() []string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Message
	}
	return messages
}

// Validate checks password and returns nil or a *PasswordValidationError
// with messages in the locale of ctx. userAttributes are values the password
// must not resemble, such as the email and kit id.
func (v *PasswordValidator) Validate(ctx context.Context, password string, userAttributes ...string) error {
	var errs []ValidationError

	if len([]rune(password)) < v.MinLength {
		errs = append(errs, ValidationError{
			Code:    "min_length",
			Message: i18n.TData(ctx, "password_min_length", map[string]any{"MinLength": v.MinLength}),
		})
	}

	if isEntirelyNumeric(password) {
		errs = append(errs, ValidationError{
			Code:    "entirely_numeric",
			Message: i18n.T(ctx, "password_entirely_numeric"),
		})
	}

	if v.CheckUserSimilarity && isSimilarToUserAttributes(password, userAttributes) {
		errs = append(errs, ValidationError{
			Code:    "too_similar",
			Message: i18n.T(ctx, "password_too_similar"),
		})
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}
	return nil
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}

func isSimilarToUserAttributes(password string, attributes []string) bool {
	passwordLower := strings.ToLower(password)
	if passwordLower == "" {
		return false
	}

	for _, attr := range attributes {
		attrLower := strings.ToLower(strings.TrimSpace(attr))
		if attrLower == "" {
			continue
		}

		// Compare against the local part of email addresses as well.
		candidates := []string{attrLower}
		if at := strings.IndexByte(attrLower, '@'); at > 0 {
			candidates = append(candidates, attrLower[:at])
		}

		for _, c := range candidates {
			if strings.Contains(passwordLower, c) || strings.Contains(c, passwordLower) {
				return true
			}
			if similarity(passwordLower, c) > 0.7 {
				return true
			}
		}
	}

	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	lcs := longestCommonSubsequence(a, b)
	maxLen := max(len(a), len(b))

	return float64(lcs) / float64(maxLen)
}

func longestCommonSubsequence(a, b string) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][n]
}
