package port

import (
	"context"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
)

// AccountRepository is the storage contract the accounts pipeline depends on.
// Implementations must be safe for concurrent use and report failures as
// *domain.RepoError. Every call may block on external storage.
type AccountRepository interface {
	CreateAccount(ctx context.Context, newAccount domain.NewAccount) (*domain.Account, error)
	// GetAccount fails with a RepoNotFound error when the id is absent.
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	// FindAccounts returns an empty slice, not an error, when nothing matches.
	FindAccounts(ctx context.Context, query domain.FindAccountQuery) ([]domain.Account, error)
	DeleteAccount(ctx context.Context, accountID int64) error
}

// AccountNumberGenerator produces candidate external account numbers.
// Uniqueness is left to the storage layer.
type AccountNumberGenerator interface {
	Generate() (string, error)
}
