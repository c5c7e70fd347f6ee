package waitlist

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet excludes characters that are easy to confuse when read aloud
// or retyped: 0, O, 1, l, I, 5, S, 2, Z, 9, g, v, V.
const codeAlphabet = "6789BCDFGHJKLMNPQRTWbcdfghjkmnpqrtwz"

const codeLength = 8

// CodeGenerator produces referral codes. The service retries on collisions,
// so generators only need uniqueness with high probability, not certainty.
type CodeGenerator func() (string, error)

// NewRefCode returns a random 8-character referral code drawn from a
// confusion-free alphabet.
func NewRefCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
