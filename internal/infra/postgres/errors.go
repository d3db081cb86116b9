package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/boddenberg/bank-accounts-go/internal/domain"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"
)

// classify turns a database/sql, lib/pq or breaker error into a *domain.RepoError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *domain.RepoError
	if errors.As(err, &re) {
		return err
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.NewRepoError(domain.RepoNotFound, op, err)
	case isConnectionError(err), isBreakerRejection(err):
		return domain.NewRepoError(domain.RepoConnection, op, err)
	default:
		return domain.NewRepoError(domain.RepoOther, op, err)
	}
}

// isConnectionError reports failures to reach or stay connected to the server.
func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// class 08: connection exception; 57P01..57P03: server going away
		switch pqErr.Code {
		case "57P01", "57P02", "57P03":
			return true
		}
		return pqErr.Code.Class() == "08"
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// retryable reports whether another attempt could succeed. An open breaker
// is not retried.
func retryable(err error) bool {
	return isConnectionError(err) && !isBreakerRejection(err)
}

// CountsAsSuccess is the breaker's IsSuccessful predicate. Only connection
// failures count against the database.
func CountsAsSuccess(err error) bool {
	return err == nil || !isConnectionError(err)
}
