package campaign

import "strings"

// NormalizeAddress returns the canonical form used for identity comparisons.
// Addresses are otherwise opaque to this package.
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// SameAddress reports whether a and b identify the same account.
// An empty address never matches anything.
func SameAddress(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return NormalizeAddress(a) == NormalizeAddress(b)
}
