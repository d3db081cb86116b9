package service

import (
	"context"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/infra/worker"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// isStorageNotFound reports a NotFound from the repository itself. Pool
// failures never count, whatever they wrap.
func isStorageNotFound(err error) bool {
	return !worker.IsBoundaryError(err) && domain.IsRepoNotFound(err)
}

// lookupError maps a failed get-by-id: absence becomes ErrNotFound, anything
// else is internal.
func (s *AccountService) lookupError(ctx context.Context, op string, accountID int64, err error) error {
	if isStorageNotFound(err) {
		s.logger.Info("account not found",
			zap.String("op", op),
			zap.Int64("account_id", accountID),
		)
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return s.internalError(ctx, op, err)
}

// internalError wraps a storage or offload failure as ErrInternal.
func (s *AccountService) internalError(ctx context.Context, op string, err error) error {
	if worker.IsBoundaryError(err) {
		s.logger.Error("repository call could not be offloaded",
			zap.String("op", op),
			zap.Error(err),
		)
	} else {
		s.logger.Error("repository call failed",
			zap.String("op", op),
			zap.Stringer("kind", domain.RepoKind(err)),
			zap.Error(err),
		)
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")

	return &domain.ErrInternal{Op: op, Err: err}
}

// denied builds the ownership rejection for op.
func (s *AccountService) denied(ctx context.Context, op string, customerID int64, fields ...zap.Field) error {
	s.metrics.IncrOwnershipDenial(op)
	s.logger.Warn("account ownership mismatch",
		append([]zap.Field{zap.String("op", op), zap.Int64("customer_id", customerID)}, fields...)...,
	)
	trace.SpanFromContext(ctx).SetStatus(codes.Error, "ownership mismatch")
	return &domain.ErrUnauthorized{CustomerID: customerID, Message: "account belongs to another customer"}
}
