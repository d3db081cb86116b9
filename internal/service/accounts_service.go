// Package service provides the business logic layer (use cases).
// AccountService authorizes every account operation against the customer
// in the request path and translates storage failures into API errors.
package service

import (
	"context"
	"time"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/infra/observability"
	"github.com/boddenberg/bank-accounts-go/internal/infra/worker"
	"github.com/boddenberg/bank-accounts-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/accounts")

// AccountService runs the create/find/get/delete pipelines. Repository calls
// are issued through the worker pool; nothing here retries. A started
// pipeline runs to completion even if the caller's context is cancelled.
type AccountService struct {
	repo    port.AccountRepository
	numbers port.AccountNumberGenerator
	pool    *worker.Pool
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAccountService creates the accounts service with all dependencies injected.
func NewAccountService(
	repo port.AccountRepository,
	numbers port.AccountNumberGenerator,
	pool *worker.Pool,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		repo:    repo,
		numbers: numbers,
		pool:    pool,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateAccount opens an account for customerID. The body must name the same
// customer; the account number is always generated here.
func (s *AccountService) CreateAccount(ctx context.Context, customerID int64, newAccount domain.NewAccount) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "AccountService.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.Int64("customer.id", customerID))

	if newAccount.CustomerID != customerID {
		return nil, s.denied(ctx, "create", customerID,
			zap.Int64("body_customer_id", newAccount.CustomerID),
		)
	}
	if err := newAccount.Validate(); err != nil {
		return nil, err
	}

	number, err := s.numbers.Generate()
	if err != nil {
		return nil, s.internalError(ctx, "create", err)
	}
	newAccount.AccountNumber = number

	s.logger.Info("creating account",
		zap.Int64("customer_id", customerID),
		zap.String("account_type", string(newAccount.AccountType)),
	)

	start := time.Now()
	account, err := worker.Run(context.WithoutCancel(ctx), s.pool, "create", func(ctx context.Context) (*domain.Account, error) {
		return s.repo.CreateAccount(ctx, newAccount)
	})
	s.record("create", start, err)
	if err != nil {
		return nil, s.internalError(ctx, "create", err)
	}

	span.SetAttributes(attribute.Int64("account.id", account.ID))
	return account, nil
}

// FindAccounts lists the customer's accounts matching the optional filters.
// The query's customer id is always replaced by customerID.
func (s *AccountService) FindAccounts(ctx context.Context, customerID int64, query domain.FindAccountQuery) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "AccountService.FindAccounts")
	defer span.End()
	span.SetAttributes(attribute.Int64("customer.id", customerID))

	query.CustomerID = customerID
	if query.CustomerID != customerID {
		return nil, s.denied(ctx, "find", customerID)
	}

	s.logger.Info("finding accounts", zap.Int64("customer_id", customerID))

	start := time.Now()
	accounts, err := worker.Run(context.WithoutCancel(ctx), s.pool, "find", func(ctx context.Context) ([]domain.Account, error) {
		return s.repo.FindAccounts(ctx, query)
	})
	s.record("find", start, err)
	if err != nil {
		return nil, s.internalError(ctx, "find", err)
	}

	// the repository was asked for this customer only; check anyway
	for _, acc := range accounts {
		if !acc.OwnedBy(customerID) {
			s.metrics.IncrInvariantViolation()
			s.logger.Error("find returned an account of another customer",
				zap.Int64("customer_id", customerID),
				zap.Int64("account_id", acc.ID),
				zap.Int64("account_customer_id", acc.CustomerID),
			)
			span.SetStatus(codes.Error, "owner filter leak")
			return nil, &domain.ErrBadRequest{Message: "query returned accounts of another customer"}
		}
	}

	if accounts == nil {
		accounts = []domain.Account{}
	}
	span.SetAttributes(attribute.Int("accounts.count", len(accounts)))
	return accounts, nil
}

// GetAccount fetches one account. Ownership can only be checked once the
// account has been loaded.
func (s *AccountService) GetAccount(ctx context.Context, customerID, accountID int64) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "AccountService.GetAccount")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.Int64("account.id", accountID),
	)

	s.logger.Info("getting account",
		zap.Int64("customer_id", customerID),
		zap.Int64("account_id", accountID),
	)

	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, s.lookupError(ctx, "get", accountID, err)
	}

	if !account.OwnedBy(customerID) {
		return nil, s.denied(ctx, "get", customerID,
			zap.Int64("account_id", accountID),
		)
	}
	return account, nil
}

// DeleteAccount removes an account. The lookup before the delete only
// authorizes: an account that is already gone is deleted anyway and the
// call succeeds. The two repository calls are not atomic.
func (s *AccountService) DeleteAccount(ctx context.Context, customerID, accountID int64) error {
	ctx, span := tracer.Start(ctx, "AccountService.DeleteAccount")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("customer.id", customerID),
		attribute.Int64("account.id", accountID),
	)

	s.logger.Info("deleting account",
		zap.Int64("customer_id", customerID),
		zap.Int64("account_id", accountID),
	)

	account, err := s.getAccount(ctx, accountID)
	switch {
	case err == nil:
		if !account.OwnedBy(customerID) {
			return s.denied(ctx, "delete", customerID,
				zap.Int64("account_id", accountID),
			)
		}
	case isStorageNotFound(err):
		s.logger.Debug("account already absent",
			zap.Int64("customer_id", customerID),
			zap.Int64("account_id", accountID),
		)
	default:
		return s.internalError(ctx, "delete", err)
	}

	start := time.Now()
	err = worker.Do(context.WithoutCancel(ctx), s.pool, "delete", func(ctx context.Context) error {
		return s.repo.DeleteAccount(ctx, accountID)
	})
	s.record("delete", start, err)
	if err != nil && !isStorageNotFound(err) {
		return s.internalError(ctx, "delete", err)
	}
	return nil
}

func (s *AccountService) getAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	start := time.Now()
	account, err := worker.Run(context.WithoutCancel(ctx), s.pool, "get", func(ctx context.Context) (*domain.Account, error) {
		return s.repo.GetAccount(ctx, accountID)
	})
	s.record("get", start, err)
	return account, err
}

// record counts a repository call under its outcome label.
func (s *AccountService) record(op string, start time.Time, err error) {
	outcome := observability.OutcomeOK
	switch {
	case err == nil:
	case worker.IsBoundaryError(err):
		outcome = observability.OutcomeOffload
	case domain.IsRepoNotFound(err):
		outcome = observability.OutcomeNotFound
	default:
		outcome = observability.OutcomeError
	}
	s.metrics.RecordRepositoryCall(op, outcome, time.Since(start))
}
