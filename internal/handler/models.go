package handler

import (
	"github.com/boddenberg/bank-accounts-go/internal/domain"
)

// ============================================================
// Account API representations
// ============================================================

// dateOpenedLayout renders timestamps as "2016-07-08 09:10:11".
const dateOpenedLayout = "2006-01-02 15:04:05"

type accountResponse struct {
	ID                    int64   `json:"id"`
	CustomerID            int64   `json:"customerId"`
	BalanceCents          int64   `json:"balanceCents"`
	AccountType           string  `json:"accountType"`
	DateOpened            string  `json:"dateOpened"`
	AccountStatus         string  `json:"accountStatus"`
	Name                  *string `json:"name"`
	AccountNumber         string  `json:"accountNumber"`
	AvailableBalanceCents int64   `json:"availableBalanceCents"`
	BSB                   string  `json:"bsb"`
}

type accountsResponse struct {
	Accounts []accountResponse `json:"accounts"`
}

type newAccountRequest struct {
	CustomerID            int64   `json:"customerId"`
	BalanceCents          int64   `json:"balanceCents"`
	AvailableBalanceCents int64   `json:"availableBalanceCents"`
	AccountType           string  `json:"accountType"`
	Name                  *string `json:"name"`
}

func (req newAccountRequest) toDomain() domain.NewAccount {
	return domain.NewAccount{
		CustomerID:            req.CustomerID,
		BalanceCents:          req.BalanceCents,
		AvailableBalanceCents: req.AvailableBalanceCents,
		AccountType:           domain.AccountType(req.AccountType),
		AccountName:           req.Name,
	}
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:                    a.ID,
		CustomerID:            a.CustomerID,
		BalanceCents:          a.BalanceCents,
		AccountType:           string(a.AccountType),
		DateOpened:            a.DateOpened.Format(dateOpenedLayout),
		AccountStatus:         string(a.AccountStatus),
		Name:                  a.AccountName,
		AccountNumber:         a.AccountNumber,
		AvailableBalanceCents: a.AvailableBalanceCents,
		BSB:                   a.BSB,
	}
}

func toAccountsResponse(accounts []domain.Account) accountsResponse {
	out := accountsResponse{Accounts: make([]accountResponse, 0, len(accounts))}
	for i := range accounts {
		out.Accounts = append(out.Accounts, toAccountResponse(&accounts[i]))
	}
	return out
}
