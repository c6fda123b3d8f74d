/**
 * @description
 * This file defines the core domain models for the ledger-service: the payment
 * aggregate (header plus line items), the closed status enum, and the input
 * shapes used by the API and application layers.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (whole rupiah),
 *   which avoids floating-point inaccuracies with financial data.
 * - A payment's total is never accepted from a caller. It is always derived
 *   from the line amounts, so a header/line mismatch cannot be represented.
 */

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of payment workflow states.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ErrInvalidStatus is returned when a caller supplies a status outside the
// three-member enum.
var ErrInvalidStatus = errors.New("invalid payment status")

// ParseStatus normalizes and validates a status string from an API boundary.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Valid reports whether s is one of the three workflow states.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Payment is the aggregate root of the ledger: one student-submitted
// transaction covering one or more fee types. This struct maps to the
// `payments` table; Items maps to the owned `payment_items` rows.
type Payment struct {
	ID          uuid.UUID  `json:"id"`
	StudentID   uuid.UUID  `json:"student_id"`
	AccountID   uuid.UUID  `json:"account_id"`
	PaymentDate time.Time  `json:"payment_date"`
	Note        *string    `json:"note,omitempty"`
	ProofRef    *string    `json:"proof_ref,omitempty"`
	Status      Status     `json:"status"`
	Total       int64      `json:"total"` // derived: sum of line amounts
	ValidatorID *uuid.UUID `json:"validator_id,omitempty"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Items   []PaymentLineItem `json:"items,omitempty"`
	Student *StudentProfile   `json:"student,omitempty"` // resolved via the identity collaborator
	Account *Account          `json:"account,omitempty"`
}

// PaymentLineItem is one fee-type contribution within a payment. Line items
// are exclusively owned by their payment and are deleted with it.
type PaymentLineItem struct {
	ID        uuid.UUID `json:"id"`
	PaymentID uuid.UUID `json:"payment_id"`
	FeeTypeID uuid.UUID `json:"fee_type_id"`
	// Denormalized for display; sourced from the fee_types join, never stored.
	FeeTypeCode string  `json:"fee_type_code,omitempty"`
	FeeTypeName string  `json:"fee_type_name,omitempty"`
	Amount      int64   `json:"amount"`
	Note        *string `json:"note,omitempty"`
}

// NewLineItem is the line-item input shape for create and update operations.
type NewLineItem struct {
	FeeTypeID uuid.UUID `json:"fee_type_id"`
	Amount    int64     `json:"amount"`
	Note      *string   `json:"note,omitempty"`
}

// CreatePaymentInput carries everything needed to post a new payment. There is
// deliberately no total field.
type CreatePaymentInput struct {
	StudentID   uuid.UUID     `json:"student_id"`
	AccountID   uuid.UUID     `json:"account_id"`
	PaymentDate time.Time     `json:"payment_date"`
	Note        *string       `json:"note,omitempty"`
	ProofRef    *string       `json:"proof_ref,omitempty"`
	Items       []NewLineItem `json:"items"`
}

// Total derives the payment total from the line amounts.
func (in CreatePaymentInput) Total() int64 {
	var sum int64
	for _, item := range in.Items {
		sum += item.Amount
	}
	return sum
}

// UpdatePaymentInput carries a full-header edit. The line-item set is replaced
// wholesale (delete-then-recreate), never patched. Status, when present and
// equal to "approved" while the payment was not yet approved, triggers the
// approve-during-edit shortcut and stamps the validator.
type UpdatePaymentInput struct {
	StudentID   uuid.UUID     `json:"student_id"`
	AccountID   uuid.UUID     `json:"account_id"`
	PaymentDate time.Time     `json:"payment_date"`
	Note        *string       `json:"note,omitempty"`
	ProofRef    *string       `json:"proof_ref,omitempty"`
	Status      *Status       `json:"status,omitempty"`
	Items       []NewLineItem `json:"items"`
}

// Total derives the payment total from the line amounts.
func (in UpdatePaymentInput) Total() int64 {
	var sum int64
	for _, item := range in.Items {
		sum += item.Amount
	}
	return sum
}

// StudentProfile is the identity collaborator's view of a student. The ledger
// stores only the student id; these display attributes are resolved on read.
type StudentProfile struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	ClassLabel     string    `json:"class_label"`
	IdentityNumber string    `json:"identity_number"`
}

// ValidationError is a typed business-rule violation. It carries the offending
// field so the HTTP layer can produce a meaningful message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
