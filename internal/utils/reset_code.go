package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateResetCode generates a cryptographically random numeric code of
// the given number of digits, zero-padded. Used for password-reset codes.
func GenerateResetCode(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("digits must be positive")
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
