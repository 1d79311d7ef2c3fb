package user

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const pinLength = 6

// generatePIN returns a random zero-padded 6-digit PIN.
func generatePIN() (string, error) {
	max := big.NewInt(1000000) // 10^pinLength
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", pinLength, n), nil
}
