package prescription

import (
	"crypto/rand"
	"fmt"
)

// Pickup codes are drawn from an alphabet without 0/O/1/I/L to survive being
// read over a pharmacy counter. 30^10 draws make guessing impractical for a
// walk-in threat model; this is not a cryptographic credential.
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ2345678"
	CodeLength   = 10
)

// randRead is swapped out in tests; crypto/rand otherwise.
var randRead = rand.Read

// GenerateCode returns a new random pickup code. Bytes at or above the
// largest multiple of the alphabet size are rejected and redrawn so every
// glyph is equally likely. Uniqueness among active prescriptions is the
// caller's responsibility (see PrescriptionService).
func GenerateCode() (string, error) {
	const limit = 256 - 256%len(codeAlphabet)

	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength)
	for len(out) < CodeLength {
		if _, err := randRead(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == CodeLength {
				break
			}
		}
	}
	return string(out), nil
}
