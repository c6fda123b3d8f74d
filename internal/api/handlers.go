/**
 * @description
 * This file contains the HTTP handlers for the payment ledger and the
 * validation workflow. Handlers parse incoming requests, call the application
 * service, and translate typed core errors into HTTP responses. Rendering,
 * export formatting, and session handling are collaborator concerns; the
 * handlers only move JSON.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: Service logic, models, and errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/app"
	"github.com/sekolahpay/ledger-service/internal/domain"
	"github.com/sekolahpay/ledger-service/internal/store"
)

const dateLayout = "2006-01-02"

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

type lineItemRequest struct {
	FeeTypeID string  `json:"fee_type_id"`
	Amount    int64   `json:"amount"`
	Note      *string `json:"note,omitempty"`
}

type createPaymentRequest struct {
	StudentID   string            `json:"student_id"`
	AccountID   string            `json:"account_id"`
	PaymentDate string            `json:"payment_date"` // YYYY-MM-DD
	Note        *string           `json:"note,omitempty"`
	ProofRef    *string           `json:"proof_ref,omitempty"`
	Items       []lineItemRequest `json:"items"`
}

type updatePaymentRequest struct {
	createPaymentRequest
	Status *string `json:"status,omitempty"`
}

type transitionRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note,omitempty"`
}

type bulkTransitionRequest struct {
	PaymentIDs []string `json:"payment_ids"`
	Status     string   `json:"status"`
	Note       *string  `json:"note,omitempty"`
}

type bulkTransitionResponse struct {
	Requested int   `json:"requested"`
	Updated   int64 `json:"updated"`
}

func parseLineItems(items []lineItemRequest) ([]domain.NewLineItem, error) {
	parsed := make([]domain.NewLineItem, 0, len(items))
	for _, item := range items {
		feeTypeID, err := uuid.Parse(item.FeeTypeID)
		if err != nil {
			return nil, domain.NewValidationError("items.fee_type_id", "must be a valid UUID")
		}
		parsed = append(parsed, domain.NewLineItem{FeeTypeID: feeTypeID, Amount: item.Amount, Note: item.Note})
	}
	return parsed, nil
}

func (req createPaymentRequest) toInput() (domain.CreatePaymentInput, error) {
	var in domain.CreatePaymentInput

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		return in, domain.NewValidationError("student_id", "must be a valid UUID")
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return in, domain.NewValidationError("account_id", "must be a valid UUID")
	}
	paymentDate, err := time.Parse(dateLayout, req.PaymentDate)
	if err != nil {
		return in, domain.NewValidationError("payment_date", "must be formatted YYYY-MM-DD")
	}
	items, err := parseLineItems(req.Items)
	if err != nil {
		return in, err
	}

	in = domain.CreatePaymentInput{
		StudentID:   studentID,
		AccountID:   accountID,
		PaymentDate: paymentDate,
		Note:        req.Note,
		ProofRef:    req.ProofRef,
		Items:       items,
	}
	return in, nil
}

// CreatePaymentHandler handles POST /payments.
func (h *LedgerHandlers) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := req.toInput()
	if err != nil {
		h.respondServiceError(w, "create_payment", err)
		return
	}

	payment, err := h.service.CreatePayment(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, "create_payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// UpdatePaymentHandler handles PUT /payments/{paymentID}.
func (h *LedgerHandlers) UpdatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := parsePaymentID(w, r)
	if !ok {
		return
	}
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	createIn, err := req.toInput()
	if err != nil {
		h.respondServiceError(w, "update_payment", err)
		return
	}
	in := domain.UpdatePaymentInput{
		StudentID:   createIn.StudentID,
		AccountID:   createIn.AccountID,
		PaymentDate: createIn.PaymentDate,
		Note:        createIn.Note,
		ProofRef:    createIn.ProofRef,
		Items:       createIn.Items,
	}
	if req.Status != nil {
		status, err := domain.ParseStatus(*req.Status)
		if err != nil {
			h.respondServiceError(w, "update_payment", err)
			return
		}
		in.Status = &status
	}

	payment, err := h.service.UpdatePayment(r.Context(), paymentID, actorID, in)
	if err != nil {
		h.respondServiceError(w, "update_payment", err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// DeletePaymentHandler handles DELETE /payments/{paymentID}.
func (h *LedgerHandlers) DeletePaymentHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := parsePaymentID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePayment(r.Context(), paymentID); err != nil {
		h.respondServiceError(w, "delete_payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPaymentHandler handles GET /payments/{paymentID}.
func (h *LedgerHandlers) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := parsePaymentID(w, r)
	if !ok {
		return
	}
	payment, err := h.service.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.respondServiceError(w, "get_payment", err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// ListPaymentsHandler handles GET /payments. The rows are fully resolved so
// exporters and report screens can render without further lookups. Unlike the
// aggregation endpoints, listing applies no implicit status restriction.
func (h *LedgerHandlers) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		h.respondServiceError(w, "list_payments", err)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, "list_payments", err)
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

// TransitionStatusHandler handles POST /payments/{paymentID}/status.
func (h *LedgerHandlers) TransitionStatusHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := parsePaymentID(w, r)
	if !ok {
		return
	}
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.respondServiceError(w, "transition_status", err)
		return
	}

	payment, err := h.service.TransitionStatus(r.Context(), paymentID, status, actorID, req.Note)
	if err != nil {
		h.respondServiceError(w, "transition_status", err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// BulkTransitionStatusHandler handles POST /payments/status/bulk. Unknown ids
// are skipped; the response reports how many rows actually changed.
func (h *LedgerHandlers) BulkTransitionStatusHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req bulkTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.respondServiceError(w, "bulk_transition_status", err)
		return
	}

	paymentIDs := make([]uuid.UUID, 0, len(req.PaymentIDs))
	for _, raw := range req.PaymentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondServiceError(w, "bulk_transition_status",
				domain.NewValidationError("payment_ids", "must contain only valid UUIDs"))
			return
		}
		paymentIDs = append(paymentIDs, id)
	}

	updated, err := h.service.BulkTransitionStatus(r.Context(), paymentIDs, status, actorID, req.Note)
	if err != nil {
		h.respondServiceError(w, "bulk_transition_status", err)
		return
	}
	writeJSON(w, http.StatusOK, bulkTransitionResponse{Requested: len(paymentIDs), Updated: updated})
}

func parsePaymentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment ID")
		return uuid.Nil, false
	}
	return paymentID, true
}

func requireActor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get actor ID from context")
		return uuid.Nil, false
	}
	return actorID, true
}

// respondServiceError maps typed core errors to HTTP responses. The core
// never swallows its own validation failures; this is the single place they
// become user-visible behavior.
func (h *LedgerHandlers) respondServiceError(w http.ResponseWriter, endpoint string, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusUnprocessableEntity, validationErr.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Status must be one of pending, approved, rejected")
	case errors.Is(err, store.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "Payment not found")
	case errors.Is(err, store.ErrFeeTypeNotFound):
		writeError(w, http.StatusNotFound, "Fee type not found")
	case errors.Is(err, store.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, store.ErrFeeTypeInUse):
		writeError(w, http.StatusConflict, "Fee type is referenced by posted payments; deactivate it instead")
	case errors.Is(err, store.ErrAccountInUse):
		writeError(w, http.StatusConflict, "Account is referenced by posted payments")
	case errors.Is(err, store.ErrDuplicateFeeTypeCode):
		writeError(w, http.StatusConflict, "Fee type code already exists")
	case errors.Is(err, store.ErrDuplicateAccountNumber):
		writeError(w, http.StatusConflict, "Account number already exists")
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"unhandled service error\" err=%v", endpoint, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
