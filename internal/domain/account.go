package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ============================================================
// Accounts
// ============================================================

// AccountType enumerates the kinds of account a customer can hold.
type AccountType string

const (
	AccountTypeSavings  AccountType = "Savings"
	AccountTypeChecking AccountType = "Checking"
	AccountTypeCredit   AccountType = "Credit"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeChecking, AccountTypeCredit:
		return true
	}
	return false
}

// AccountStatus enumerates the lifecycle states of a persisted account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "Active"
	AccountStatusClosed AccountStatus = "Closed"
	AccountStatusFrozen AccountStatus = "Frozen"
)

// Account is a persisted customer bank account. Amounts are in cents.
// CustomerID and AccountNumber never change after creation.
type Account struct {
	ID                    int64
	CustomerID            int64
	BalanceCents          int64
	AvailableBalanceCents int64
	AccountType           AccountType
	AccountStatus         AccountStatus
	DateOpened            time.Time
	AccountName           *string
	AccountNumber         string
	BSB                   string
}

// OwnedBy reports whether the account belongs to customerID.
func (a *Account) OwnedBy(customerID int64) bool {
	return a.CustomerID == customerID
}

// NewAccount is the command submitted to the repository to open an account.
// AccountNumber is always overwritten by the generator before submission.
type NewAccount struct {
	CustomerID            int64
	BalanceCents          int64       `validate:"gte=0"`
	AvailableBalanceCents int64       `validate:"gte=0,ltefield=BalanceCents"`
	AccountType           AccountType `validate:"account_type"`
	AccountName           *string     `validate:"omitempty,max=100"`
	AccountNumber         string
}

// FindAccountQuery filters accounts for listing. CustomerID is mandatory and
// is always taken from the request path, never from the query string.
type FindAccountQuery struct {
	AccountID     *int64
	CustomerID    int64
	AccountNumber *string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("account_type", func(fl validator.FieldLevel) bool {
		return AccountType(fl.Field().String()).Valid()
	})
	if err != nil {
		panic(fmt.Sprintf("register account_type validation: %v", err))
	}
	return v
}

// Validate checks the creation invariants, most importantly that the
// available balance never exceeds the balance.
func (n *NewAccount) Validate() error {
	if err := validate.Struct(n); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ErrBadRequest{Field: fe.Field(), Message: "failed '" + fe.Tag() + "' check"}
		}
		return &ErrBadRequest{Message: err.Error()}
	}
	return nil
}
