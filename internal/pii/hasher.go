// Package pii normalizes and one-way-hashes personally identifying fields
// the way the downstream ad platform's matching requires. All functions are
// pure; hashing is SHA-256 rendered as lowercase hex, byte-stable for
// identical normalized input.
package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize lowercases, trims, and collapses internal whitespace. Matching
// on the advertiser side is done against this exact canonical form.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Hash returns the lowercase-hex SHA-256 of the normalized input, or ""
// when the input is empty. Absence must never hash into a false "present"
// signal.
func Hash(s string) string {
	n := Normalize(s)
	if n == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(n))
	return hex.EncodeToString(sum[:])
}

// HashPhone strips non-digits and prepends the Brazilian country code when
// the number looks like a bare local number (10 or 11 digits), then hashes.
func HashPhone(s string) string {
	digits := stripNonDigits(s)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 || len(digits) == 11 {
		digits = "55" + digits
	}
	sum := sha256.Sum256([]byte(digits))
	return hex.EncodeToString(sum[:])
}

// IsHashed reports whether v already looks like a SHA-256 hex digest.
// Pre-hashed input is treated as final and must not be re-hashed.
func IsHashed(v string) bool {
	if len(v) != 64 {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
