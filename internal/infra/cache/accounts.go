package cache

import (
	"context"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/port"
)

var (
	_ port.AccountRepository = (*AccountRepository)(nil)
	_ port.Pinger            = (*AccountRepository)(nil)
)

// AccountRepository caches GetAccount results in front of another
// repository. Entries are dropped on delete; customer ids never change, so a
// cached owner stays correct for the life of the entry.
//
// Delete drops the entry both before and after the wrapped call: a get that
// runs while the delete is in flight can read the row and cache it again.
type AccountRepository struct {
	next  port.AccountRepository
	cache port.Cache[int64, domain.Account]
}

// NewAccountRepository wraps next with a read-through cache.
func NewAccountRepository(next port.AccountRepository, cache port.Cache[int64, domain.Account]) *AccountRepository {
	return &AccountRepository{next: next, cache: cache}
}

func (r *AccountRepository) CreateAccount(ctx context.Context, newAccount domain.NewAccount) (*domain.Account, error) {
	acc, err := r.next.CreateAccount(ctx, newAccount)
	if err != nil {
		return nil, err
	}
	r.cache.Set(acc.ID, copyAccount(*acc))
	return acc, nil
}

func (r *AccountRepository) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	if acc, ok := r.cache.Get(accountID); ok {
		v := copyAccount(acc)
		return &v, nil
	}

	acc, err := r.next.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(accountID, copyAccount(*acc))
	return acc, nil
}

func (r *AccountRepository) FindAccounts(ctx context.Context, query domain.FindAccountQuery) ([]domain.Account, error) {
	return r.next.FindAccounts(ctx, query)
}

func (r *AccountRepository) DeleteAccount(ctx context.Context, accountID int64) error {
	r.cache.Delete(accountID)
	err := r.next.DeleteAccount(ctx, accountID)
	r.cache.Delete(accountID)
	return err
}

// Ping delegates to the wrapped repository when it can be pinged.
func (r *AccountRepository) Ping(ctx context.Context) error {
	if p, ok := r.next.(port.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func copyAccount(acc domain.Account) domain.Account {
	if acc.AccountName != nil {
		name := *acc.AccountName
		acc.AccountName = &name
	}
	return acc
}
