package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the accounts API.
// Storage adapters speak RepoError; the service translates it into the
// protocol-facing types below, which the HTTP layer turns into statuses.

// ============================================================
// Storage-facing
// ============================================================

// RepoErrorKind classifies a repository failure.
type RepoErrorKind int

const (
	RepoOther RepoErrorKind = iota
	RepoNotFound
	RepoConnection
)

func (k RepoErrorKind) String() string {
	switch k {
	case RepoNotFound:
		return "NotFound"
	case RepoConnection:
		return "ConnectionError"
	default:
		return "Other"
	}
}

// RepoError is returned by AccountRepository implementations.
type RepoError struct {
	Kind RepoErrorKind
	Op   string
	Err  error
}

func (e *RepoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repository %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("repository %s: %s", e.Op, e.Kind)
}

func (e *RepoError) Unwrap() error {
	return e.Err
}

// NewRepoError builds a RepoError of the given kind.
func NewRepoError(kind RepoErrorKind, op string, err error) *RepoError {
	return &RepoError{Kind: kind, Op: op, Err: err}
}

// RepoKind returns the kind of a repository failure. Errors that are not a
// RepoError count as RepoOther.
func RepoKind(err error) RepoErrorKind {
	var re *RepoError
	if errors.As(err, &re) {
		return re.Kind
	}
	return RepoOther
}

// IsRepoNotFound reports whether err is a RepoError of kind RepoNotFound.
func IsRepoNotFound(err error) bool {
	return err != nil && RepoKind(err) == RepoNotFound
}

// ============================================================
// Protocol-facing
// ============================================================

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       int64
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Resource, e.ID)
}

// ErrUnauthorized indicates the resource does not belong to the caller.
type ErrUnauthorized struct {
	CustomerID int64
	Message    string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unauthorized customer %d: %s", e.CustomerID, e.Message)
	}
	return fmt.Sprintf("unauthorized customer %d", e.CustomerID)
}

// ErrBadRequest indicates invalid input or a violated server-side invariant.
type ErrBadRequest struct {
	Field   string
	Message string
}

func (e *ErrBadRequest) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("bad request on '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("bad request: %s", e.Message)
}

// ErrInternal wraps any failure the caller cannot act on.
type ErrInternal struct {
	Op  string
	Err error
}

func (e *ErrInternal) Error() string {
	return fmt.Sprintf("internal error [%s]: %v", e.Op, e.Err)
}

func (e *ErrInternal) Unwrap() error {
	return e.Err
}
