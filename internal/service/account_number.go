package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/boddenberg/bank-accounts-go/internal/port"
)

var _ port.AccountNumberGenerator = RandomAccountNumberGenerator{}

var accountNumberSpace = big.NewInt(1_000_000_000)

// RandomAccountNumberGenerator draws 9-digit, zero-padded account numbers.
// Collisions are left to the storage uniqueness constraint.
type RandomAccountNumberGenerator struct{}

func (RandomAccountNumberGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, accountNumberSpace)
	if err != nil {
		return "", fmt.Errorf("generate account number: %w", err)
	}
	return fmt.Sprintf("%09d", n.Int64()), nil
}
