// Package memory provides an in-process account repository for local runs.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/port"
)

var _ port.AccountRepository = (*AccountStore)(nil)

var errDuplicateNumber = errors.New("account number already in use")

// AccountStore keeps accounts in a map guarded by a RWMutex.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[int64]domain.Account
	numbers  map[string]int64
	nextID   int64
	bsb      string
	now      func() time.Time
}

// NewAccountStore creates an empty store that stamps bsb on new accounts.
func NewAccountStore(bsb string) *AccountStore {
	return &AccountStore{
		accounts: make(map[int64]domain.Account),
		numbers:  make(map[string]int64),
		bsb:      bsb,
		now:      time.Now,
	}
}

func (s *AccountStore) CreateAccount(_ context.Context, newAccount domain.NewAccount) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.numbers[newAccount.AccountNumber]; taken {
		return nil, domain.NewRepoError(domain.RepoOther, "create", errDuplicateNumber)
	}

	s.nextID++
	acc := domain.Account{
		ID:                    s.nextID,
		CustomerID:            newAccount.CustomerID,
		BalanceCents:          newAccount.BalanceCents,
		AvailableBalanceCents: newAccount.AvailableBalanceCents,
		AccountType:           newAccount.AccountType,
		AccountStatus:         domain.AccountStatusActive,
		DateOpened:            s.now().UTC().Truncate(time.Second),
		AccountName:           copyString(newAccount.AccountName),
		AccountNumber:         newAccount.AccountNumber,
		BSB:                   s.bsb,
	}
	s.accounts[acc.ID] = acc
	s.numbers[acc.AccountNumber] = acc.ID

	return cloneAccount(acc), nil
}

func (s *AccountStore) GetAccount(_ context.Context, accountID int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.NewRepoError(domain.RepoNotFound, "get", nil)
	}
	return cloneAccount(acc), nil
}

func (s *AccountStore) FindAccounts(_ context.Context, q domain.FindAccountQuery) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]domain.Account, 0)
	for _, acc := range s.accounts {
		if acc.CustomerID != q.CustomerID {
			continue
		}
		if q.AccountID != nil && acc.ID != *q.AccountID {
			continue
		}
		if q.AccountNumber != nil && acc.AccountNumber != *q.AccountNumber {
			continue
		}
		found = append(found, *cloneAccount(acc))
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}

func (s *AccountStore) DeleteAccount(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return domain.NewRepoError(domain.RepoNotFound, "delete", nil)
	}
	delete(s.accounts, accountID)
	delete(s.numbers, acc.AccountNumber)
	return nil
}

func cloneAccount(acc domain.Account) *domain.Account {
	acc.AccountName = copyString(acc.AccountName)
	return &acc
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
