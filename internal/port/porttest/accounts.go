// Package porttest provides scripted doubles of the ports for tests.
package porttest

import (
	"context"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/port"

	"github.com/stretchr/testify/mock"
)

var _ port.AccountRepository = (*AccountRepository)(nil)

// AccountRepository is a testify mock of port.AccountRepository. Script it
// with On(...).Once() and mock.InOrder to constrain call counts and order.
type AccountRepository struct {
	mock.Mock
}

// NewAccountRepository returns a mock that asserts its expectations when
// the test ends.
func NewAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *AccountRepository {
	m := &AccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *AccountRepository) CreateAccount(ctx context.Context, newAccount domain.NewAccount) (*domain.Account, error) {
	args := m.Called(ctx, newAccount)
	acc, _ := args.Get(0).(*domain.Account)
	return acc, args.Error(1)
}

func (m *AccountRepository) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	acc, _ := args.Get(0).(*domain.Account)
	return acc, args.Error(1)
}

func (m *AccountRepository) FindAccounts(ctx context.Context, query domain.FindAccountQuery) ([]domain.Account, error) {
	args := m.Called(ctx, query)
	accounts, _ := args.Get(0).([]domain.Account)
	return accounts, args.Error(1)
}

func (m *AccountRepository) DeleteAccount(ctx context.Context, accountID int64) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

// FixedNumbers always returns the same account number.
type FixedNumbers string

func (f FixedNumbers) Generate() (string, error) {
	return string(f), nil
}
