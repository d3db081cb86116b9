package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/infra/resilience"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var columns = []string{
	"id", "customer_id", "balance_cents", "available_balance_cents", "account_type",
	"account_status", "date_opened", "account_name", "account_number", "bsb",
}

var opened = time.Date(2016, 7, 8, 9, 10, 11, 0, time.UTC)

func newMockStore(t *testing.T) (*AccountStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cb := resilience.NewCircuitBreaker("postgres-test", CountsAsSuccess)
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
	return NewAccountStore(db, "062000", cb, cfg, zap.NewNop()), mock
}

func TestAccountStore_CreateAccount(t *testing.T) {
	store, mock := newMockStore(t)
	name := "abc"

	mock.ExpectQuery(`INSERT INTO accounts .* RETURNING id, customer_id`).
		WithArgs(int64(1), int64(34343), int64(3444), "Savings", "Active", "abc", "123456789", "062000").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(7), int64(1), int64(34343), int64(3444), "Savings", "Active", opened, "abc", "123456789", "062000"))

	acc, err := store.CreateAccount(context.Background(), domain.NewAccount{
		CustomerID:            1,
		BalanceCents:          34343,
		AvailableBalanceCents: 3444,
		AccountType:           domain.AccountTypeSavings,
		AccountName:           &name,
		AccountNumber:         "123456789",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), acc.ID)
	assert.Equal(t, domain.AccountStatusActive, acc.AccountStatus)
	assert.Equal(t, opened, acc.DateOpened)
	require.NotNil(t, acc.AccountName)
	assert.Equal(t, "abc", *acc.AccountName)
	assert.Equal(t, "062000", acc.BSB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_CreateAccount_NotRetried(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnError(&pq.Error{Code: "08006"})

	_, err := store.CreateAccount(context.Background(), domain.NewAccount{
		CustomerID:  1,
		AccountType: domain.AccountTypeChecking,
	})

	assert.Equal(t, domain.RepoConnection, domain.RepoKind(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_CreateAccount_UniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateAccount(context.Background(), domain.NewAccount{
		CustomerID:  1,
		AccountType: domain.AccountTypeChecking,
	})

	assert.Equal(t, domain.RepoOther, domain.RepoKind(err))
}

func TestAccountStore_GetAccount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), int64(1), int64(100), int64(50), "Credit", "Frozen", opened, nil, "000000001", "062000"))

	acc, err := store.GetAccount(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.CustomerID)
	assert.Equal(t, domain.AccountTypeCredit, acc.AccountType)
	assert.Equal(t, domain.AccountStatusFrozen, acc.AccountStatus)
	assert.Nil(t, acc.AccountName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_GetAccount_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := store.GetAccount(context.Background(), 9)

	assert.True(t, domain.IsRepoNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_GetAccount_RetriesConnectionFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnError(&pq.Error{Code: "08006"})
	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), int64(1), int64(100), int64(50), "Savings", "Active", opened, nil, "000000001", "062000"))

	acc, err := store.GetAccount(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, int64(2), acc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_GetAccount_GivesUpAfterRetries(t *testing.T) {
	store, mock := newMockStore(t)

	for i := 0; i < 3; i++ {
		mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
			WillReturnError(&pq.Error{Code: "08001"})
	}

	_, err := store.GetAccount(context.Background(), 2)

	assert.Equal(t, domain.RepoConnection, domain.RepoKind(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_FindAccounts(t *testing.T) {
	store, mock := newMockStore(t)
	accountID := int64(3)
	number := "000000003"

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE customer_id = \$1 AND id = \$2 AND account_number = \$3 ORDER BY id`).
		WithArgs(int64(1), int64(3), "000000003").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(3), int64(1), int64(10), int64(10), "Checking", "Active", opened, "main", "000000003", "062000"))

	accounts, err := store.FindAccounts(context.Background(), domain.FindAccountQuery{
		CustomerID:    1,
		AccountID:     &accountID,
		AccountNumber: &number,
	})

	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "main", *accounts[0].AccountName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_FindAccounts_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE customer_id = \$1 ORDER BY id`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(columns))

	accounts, err := store.FindAccounts(context.Background(), domain.FindAccountQuery{CustomerID: 4})

	require.NoError(t, err)
	assert.NotNil(t, accounts)
	assert.Empty(t, accounts)
}

func TestAccountStore_DeleteAccount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.DeleteAccount(context.Background(), 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_DeleteAccount_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteAccount(context.Background(), 2)

	assert.True(t, domain.IsRepoNotFound(err))
}

func TestAccountStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	store := NewAccountStore(db, "062000",
		resilience.NewCircuitBreaker("ping-test", CountsAsSuccess),
		resilience.Config{}, zap.NewNop())
	mock.ExpectPing()

	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.RepoErrorKind
	}{
		{"no rows", sql.ErrNoRows, domain.RepoNotFound},
		{"connection exception", &pq.Error{Code: "08003"}, domain.RepoConnection},
		{"admin shutdown", &pq.Error{Code: "57P01"}, domain.RepoConnection},
		{"bad conn", sql.ErrConnDone, domain.RepoConnection},
		{"breaker open", gobreaker.ErrOpenState, domain.RepoConnection},
		{"unique violation", &pq.Error{Code: "23505"}, domain.RepoOther},
		{"context canceled", context.Canceled, domain.RepoOther},
		{"unknown", errors.New("boom"), domain.RepoOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("get", tt.err)
			assert.Equal(t, tt.want, domain.RepoKind(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCountsAsSuccess(t *testing.T) {
	assert.True(t, CountsAsSuccess(nil))
	assert.True(t, CountsAsSuccess(sql.ErrNoRows))
	assert.True(t, CountsAsSuccess(&pq.Error{Code: "23505"}))
	assert.False(t, CountsAsSuccess(&pq.Error{Code: "08006"}))
}
