// Package verifier holds the pickup code comparison policy.
package verifier

import "crypto/subtle"

type Verifier interface {
	Verify(expected, supplied string) bool
}

// Exact accepts only a byte-for-byte match. No trimming, no case folding.
// An empty expected code never verifies.
type Exact struct{}

func (Exact) Verify(expected, supplied string) bool {
	return Verify(expected, supplied)
}

func Verify(expected, supplied string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}
