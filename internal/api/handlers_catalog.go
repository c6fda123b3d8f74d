/**
 * @description
 * HTTP handlers for the fee type catalog and the destination account registry.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

type createFeeTypeRequest struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	DefaultAmount int64  `json:"default_amount"`
	Mandatory     bool   `json:"mandatory"`
}

type createAccountRequest struct {
	BankName      string `json:"bank_name"`
	HolderName    string `json:"holder_name"`
	AccountNumber string `json:"account_number"`
}

// CreateFeeTypeHandler handles POST /fee-types.
func (h *LedgerHandlers) CreateFeeTypeHandler(w http.ResponseWriter, r *http.Request) {
	var req createFeeTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	feeType, err := h.service.CreateFeeType(r.Context(), domain.CreateFeeTypeInput{
		Code:          req.Code,
		Name:          req.Name,
		DefaultAmount: req.DefaultAmount,
		Mandatory:     req.Mandatory,
	})
	if err != nil {
		h.respondServiceError(w, "create_fee_type", err)
		return
	}
	writeJSON(w, http.StatusCreated, feeType)
}

// ListFeeTypesHandler handles GET /fee-types.
func (h *LedgerHandlers) ListFeeTypesHandler(w http.ResponseWriter, r *http.Request) {
	feeTypes, err := h.service.ListFeeTypes(r.Context())
	if err != nil {
		h.respondServiceError(w, "list_fee_types", err)
		return
	}
	if feeTypes == nil {
		feeTypes = []domain.FeeType{}
	}
	writeJSON(w, http.StatusOK, feeTypes)
}

// DeactivateFeeTypeHandler handles POST /fee-types/{feeTypeID}/deactivate.
func (h *LedgerHandlers) DeactivateFeeTypeHandler(w http.ResponseWriter, r *http.Request) {
	feeTypeID, ok := parseCatalogID(w, r, "feeTypeID", "Invalid fee type ID")
	if !ok {
		return
	}
	if err := h.service.DeactivateFeeType(r.Context(), feeTypeID); err != nil {
		h.respondServiceError(w, "deactivate_fee_type", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteFeeTypeHandler handles DELETE /fee-types/{feeTypeID}. Deletion of a
// referenced fee type answers 409; the client should deactivate instead.
func (h *LedgerHandlers) DeleteFeeTypeHandler(w http.ResponseWriter, r *http.Request) {
	feeTypeID, ok := parseCatalogID(w, r, "feeTypeID", "Invalid fee type ID")
	if !ok {
		return
	}
	if err := h.service.DeleteFeeType(r.Context(), feeTypeID); err != nil {
		h.respondServiceError(w, "delete_fee_type", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateAccountHandler handles POST /accounts.
func (h *LedgerHandlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.CreateAccount(r.Context(), domain.CreateAccountInput{
		BankName:      req.BankName,
		HolderName:    req.HolderName,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		h.respondServiceError(w, "create_account", err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// ListAccountsHandler handles GET /accounts.
func (h *LedgerHandlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.respondServiceError(w, "list_accounts", err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// DeleteAccountHandler handles DELETE /accounts/{accountID}.
func (h *LedgerHandlers) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := parseCatalogID(w, r, "accountID", "Invalid account ID")
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), accountID); err != nil {
		h.respondServiceError(w, "delete_account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseCatalogID(w http.ResponseWriter, r *http.Request, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}
