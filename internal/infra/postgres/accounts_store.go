package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/infra/resilience"
	"github.com/boddenberg/bank-accounts-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgres")

var (
	_ port.AccountRepository = (*AccountStore)(nil)
	_ port.Pinger            = (*AccountStore)(nil)
)

const accountColumns = `id, customer_id, balance_cents, available_balance_cents, account_type,
	account_status, date_opened, account_name, account_number, bsb`

// AccountStore is the PostgreSQL AccountRepository. Calls run behind a
// circuit breaker; idempotent calls are retried on connection failures.
type AccountStore struct {
	db     *sql.DB
	bsb    string
	cb     *gobreaker.CircuitBreaker
	cfg    resilience.Config
	logger *zap.Logger
}

// NewAccountStore creates the store. bsb is stamped on every new account.
func NewAccountStore(db *sql.DB, bsb string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *AccountStore {
	cfg.RetryIf = retryable
	return &AccountStore{db: db, bsb: bsb, cb: cb, cfg: cfg, logger: logger}
}

// Ping checks that the database is reachable.
func (s *AccountStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAccount inserts the account. Inserts are never retried: a lost reply
// could otherwise open the account twice.
func (s *AccountStore) CreateAccount(ctx context.Context, newAccount domain.NewAccount) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.Int64("customer.id", newAccount.CustomerID))

	query := `INSERT INTO accounts
		(customer_id, balance_cents, available_balance_cents, account_type, account_status, account_name, account_number, bsb)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + accountColumns

	var account *domain.Account
	err := s.call(ctx, "create", false, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, query,
			newAccount.CustomerID,
			newAccount.BalanceCents,
			newAccount.AvailableBalanceCents,
			string(newAccount.AccountType),
			string(domain.AccountStatusActive),
			nullString(newAccount.AccountName),
			newAccount.AccountNumber,
			s.bsb,
		)
		acc, err := scanAccount(row)
		account = acc
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("postgres: account created",
		zap.Int64("account_id", account.ID),
		zap.Int64("customer_id", account.CustomerID),
	)
	return account, nil
}

// GetAccount loads one account by id.
func (s *AccountStore) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.Int64("account.id", accountID))

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	var account *domain.Account
	err := s.call(ctx, "get", true, func(ctx context.Context) error {
		acc, err := scanAccount(s.db.QueryRowContext(ctx, query, accountID))
		account = acc
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// FindAccounts lists a customer's accounts, optionally narrowed by id and
// account number, ordered by id.
func (s *AccountStore) FindAccounts(ctx context.Context, q domain.FindAccountQuery) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Postgres.FindAccounts")
	defer span.End()
	span.SetAttributes(attribute.Int64("customer.id", q.CustomerID))

	query, args := buildFindQuery(q)

	var accounts []domain.Account
	err := s.call(ctx, "find", true, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		found := make([]domain.Account, 0)
		for rows.Next() {
			acc, err := scanAccount(rows)
			if err != nil {
				return err
			}
			found = append(found, *acc)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		accounts = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// DeleteAccount removes an account. A missing row is reported as NotFound.
func (s *AccountStore) DeleteAccount(ctx context.Context, accountID int64) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteAccount")
	defer span.End()
	span.SetAttributes(attribute.Int64("account.id", accountID))

	return s.call(ctx, "delete", true, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// call runs fn through the circuit breaker, retrying connection failures
// when retry is set, and classifies the final error.
func (s *AccountStore) call(ctx context.Context, op string, retry bool, fn func(context.Context) error) error {
	cfg := s.cfg
	if !retry {
		cfg.MaxRetries = 0
	}

	attempt := 0
	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		attempt++
		_, err := s.cb.Execute(func() (any, error) {
			return nil, fn(ctx)
		})
		if err != nil && attempt <= cfg.MaxRetries && retryable(err) {
			s.logger.Warn("postgres: retrying after connection failure",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	})
	return classify(op, err)
}

func buildFindQuery(q domain.FindAccountQuery) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1`)
	args := []any{q.CustomerID}

	if q.AccountID != nil {
		args = append(args, *q.AccountID)
		fmt.Fprintf(&b, ` AND id = $%d`, len(args))
	}
	if q.AccountNumber != nil {
		args = append(args, *q.AccountNumber)
		fmt.Fprintf(&b, ` AND account_number = $%d`, len(args))
	}
	b.WriteString(` ORDER BY id`)
	return b.String(), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		acc         domain.Account
		accountType string
		status      string
		name        sql.NullString
	)
	err := row.Scan(
		&acc.ID,
		&acc.CustomerID,
		&acc.BalanceCents,
		&acc.AvailableBalanceCents,
		&accountType,
		&status,
		&acc.DateOpened,
		&name,
		&acc.AccountNumber,
		&acc.BSB,
	)
	if err != nil {
		return nil, err
	}

	acc.AccountType = domain.AccountType(accountType)
	acc.AccountStatus = domain.AccountStatus(status)
	if name.Valid {
		acc.AccountName = &name.String
	}
	return &acc, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
