/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the ledger-service. Defining an
 * interface decouples the business logic from the PostgreSQL implementation and
 * lets the application-layer tests substitute hand-written stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Payment ledger methods. Create and Replace each run as one transaction
	// covering the header and the full line-item set.
	CreatePaymentWithItems(ctx context.Context, p *domain.Payment, items []domain.PaymentLineItem) error
	ReplacePaymentWithItems(ctx context.Context, p *domain.Payment, items []domain.PaymentLineItem) error
	DeletePayment(ctx context.Context, paymentID uuid.UUID) error
	FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	ListPayments(ctx context.Context, filter domain.ReportFilter) ([]domain.Payment, error)

	// Workflow methods. Bulk is one set-based update; missing ids are skipped.
	UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, params StatusUpdateParams) (*domain.Payment, error)
	BulkUpdatePaymentStatus(ctx context.Context, paymentIDs []uuid.UUID, params StatusUpdateParams) ([]StatusTransition, error)

	// Aggregation methods.
	SummarizePayments(ctx context.Context, filter domain.ReportFilter) (total int64, count int64, err error)
	MonthlyPaymentTotals(ctx context.Context, filter domain.ReportFilter, from, to time.Time) ([]MonthTotalRow, error)
	TopFeeType(ctx context.Context, filter domain.ReportFilter) (*domain.CategoryTotal, error)

	// Fee catalog methods.
	CreateFeeType(ctx context.Context, ft *domain.FeeType) error
	ListFeeTypes(ctx context.Context) ([]domain.FeeType, error)
	FindFeeTypeByID(ctx context.Context, feeTypeID uuid.UUID) (*domain.FeeType, error)
	FeeTypeReferenced(ctx context.Context, feeTypeID uuid.UUID) (bool, error)
	SetFeeTypeActive(ctx context.Context, feeTypeID uuid.UUID, active bool) error
	DeleteFeeType(ctx context.Context, feeTypeID uuid.UUID) error

	// Account registry methods.
	CreateAccount(ctx context.Context, account *domain.Account) error
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
}

// StatusUpdateParams describes one workflow transition as applied to storage.
// Nil pointer fields leave the corresponding column untouched, which is how a
// return-to-pending transition preserves the existing validator audit trail.
type StatusUpdateParams struct {
	Status      domain.Status
	ValidatorID *uuid.UUID
	ValidatedAt *time.Time
	Note        *string
}

// StatusTransition reports one row actually updated by a bulk transition,
// together with the status it held before the update and the fields the
// status-change fact needs.
type StatusTransition struct {
	PaymentID uuid.UUID
	Previous  domain.Status
	StudentID uuid.UUID
	Total     int64
}

// MonthTotalRow is one non-empty calendar month returned by the grouped
// monthly totals query. Zero-activity months are filled in by the caller.
type MonthTotalRow struct {
	Year  int
	Month int
	Total int64
}
