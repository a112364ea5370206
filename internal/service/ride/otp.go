package ride

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

var otpSpace = big.NewInt(1_000_000)

// generateOTP returns a random six digit passcode.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func otpMatches(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
