package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/infra/observability"
	"github.com/boddenberg/bank-accounts-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Accounts Handlers
// ============================================================

// POST /api/customers/{customerId}/accounts
func createAccountHandler(svc *service.AccountService, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /accounts")
		defer span.End()

		customerID, ok := pathID(r, "customerId")
		if !ok {
			writeNotFound(w, metrics)
			return
		}
		span.SetAttributes(attribute.Int64("customer.id", customerID))

		var req newAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("invalid account payload", zap.Error(err))
			writeBadRequest(w, metrics)
			return
		}

		account, err := svc.CreateAccount(ctx, customerID, req.toDomain())
		if err != nil {
			handleServiceError(w, err, metrics, logger)
			return
		}
		writeJSON(w, http.StatusCreated, toAccountResponse(account))
	}
}

// GET /api/customers/{customerId}/accounts?accountId=&accountNumber=
func findAccountsHandler(svc *service.AccountService, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /accounts")
		defer span.End()

		customerID, ok := pathID(r, "customerId")
		if !ok {
			writeNotFound(w, metrics)
			return
		}
		span.SetAttributes(attribute.Int64("customer.id", customerID))

		// a customerId query parameter is ignored; the path decides
		var query domain.FindAccountQuery
		params := r.URL.Query()
		if v := params.Get("accountId"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeBadRequest(w, metrics)
				return
			}
			query.AccountID = &id
		}
		if v := params.Get("accountNumber"); v != "" {
			query.AccountNumber = &v
		}

		accounts, err := svc.FindAccounts(ctx, customerID, query)
		if err != nil {
			handleServiceError(w, err, metrics, logger)
			return
		}
		writeJSON(w, http.StatusOK, toAccountsResponse(accounts))
	}
}

// GET /api/customers/{customerId}/accounts/{accountId}
func getAccountHandler(svc *service.AccountService, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /accounts/{accountId}")
		defer span.End()

		customerID, okCustomer := pathID(r, "customerId")
		accountID, okAccount := pathID(r, "accountId")
		if !okCustomer || !okAccount {
			writeNotFound(w, metrics)
			return
		}

		account, err := svc.GetAccount(ctx, customerID, accountID)
		if err != nil {
			handleServiceError(w, err, metrics, logger)
			return
		}
		writeJSON(w, http.StatusOK, toAccountResponse(account))
	}
}

// DELETE /api/customers/{customerId}/accounts/{accountId}
func deleteAccountHandler(svc *service.AccountService, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /accounts/{accountId}")
		defer span.End()

		customerID, okCustomer := pathID(r, "customerId")
		accountID, okAccount := pathID(r, "accountId")
		if !okCustomer || !okAccount {
			writeNotFound(w, metrics)
			return
		}

		if err := svc.DeleteAccount(ctx, customerID, accountID); err != nil {
			handleServiceError(w, err, metrics, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
