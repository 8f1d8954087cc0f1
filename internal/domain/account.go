package domain

import "strings"

// Username is a canonical BNC account name as accepted by the remote service.
type Username string

// MaxUsernameLength is the account-name limit enforced by the remote service.
const MaxUsernameLength = 32

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}

// SanitizeUsername derives a canonical account name from an arbitrary services
// identity: lowercased, runes outside [a-z0-9_-] replaced with '_', truncated
// to MaxUsernameLength. The result is stable under repeated application.
func SanitizeUsername(raw string) Username {
	lowered := strings.ToLower(raw)
	var b strings.Builder
	b.Grow(len(lowered))
	count := 0
	for _, r := range lowered {
		if count == MaxUsernameLength {
			break
		}
		if isUsernameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		count++
	}
	return Username(b.String())
}

// IsUsernameValid reports whether raw is already a canonical account name.
func IsUsernameValid(raw string) bool {
	return raw != "" && Username(raw) == SanitizeUsername(raw)
}
