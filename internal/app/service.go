/**
 * @description
 * This file contains the core business logic for the ledger-service. The
 * `Service` struct owns the payment aggregate: it validates submissions,
 * derives totals from line amounts, and coordinates the repository, the
 * identity-service client, and the event producer.
 *
 * Key features:
 * - Payment totals are always derived from line items; no code path accepts a
 *   caller-supplied total, so a header/line mismatch cannot occur.
 * - Create and update each run as one storage transaction; update replaces the
 *   full line-item set.
 * - Student display attributes are resolved through the identity collaborator
 *   on read, and resolution failure degrades instead of failing the read.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For the status-change event boundary.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
	"github.com/sekolahpay/ledger-service/internal/store"
	"github.com/sekolahpay/ledger-service/pkg/rabbitmq"
)

const defaultReportMonths = 12

// StudentResolver resolves student references to display attributes. The
// identity service owns student records; the ledger never duplicates them.
type StudentResolver interface {
	GetStudent(ctx context.Context, studentID uuid.UUID) (*domain.StudentProfile, error)
	LookupStudents(ctx context.Context, studentIDs []uuid.UUID) (map[uuid.UUID]domain.StudentProfile, error)
}

// Service provides the core business logic for the payment ledger.
type Service struct {
	repo          store.Repository
	students      StudentResolver
	eventProducer rabbitmq.Publisher
	reportCache   ReportCache
	reportMonths  int
	now           func() time.Time
}

// NewService creates a new ledger service instance. The student resolver and
// event producer may be nil; reads then return unresolved references and
// status transitions skip event emission.
func NewService(repo store.Repository, students StudentResolver, producer rabbitmq.Publisher) *Service {
	return &Service{
		repo:          repo,
		students:      students,
		eventProducer: producer,
		reportMonths:  defaultReportMonths,
		now:           time.Now,
	}
}

// SetReportCache installs an optional cache for report summaries.
func (s *Service) SetReportCache(cache ReportCache) {
	s.reportCache = cache
}

// SetReportMonths overrides the default month-bucket window length.
func (s *Service) SetReportMonths(months int) {
	if months > 0 {
		s.reportMonths = months
	}
}

// CreatePayment validates and posts a new payment aggregate. The initial
// status is always pending and the total is the sum of the line amounts.
func (s *Service) CreatePayment(ctx context.Context, in domain.CreatePaymentInput) (*domain.Payment, error) {
	if err := s.validateLineItems(ctx, in.Items); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindAccountByID(ctx, in.AccountID); err != nil {
		return nil, fmt.Errorf("resolve destination account: %w", err)
	}

	payment := &domain.Payment{
		ID:          uuid.New(),
		StudentID:   in.StudentID,
		AccountID:   in.AccountID,
		PaymentDate: in.PaymentDate,
		Note:        in.Note,
		ProofRef:    in.ProofRef,
		Status:      domain.StatusPending,
		Total:       in.Total(),
	}
	items := buildLineItems(payment.ID, in.Items)

	if err := s.repo.CreatePaymentWithItems(ctx, payment, items); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	log.Printf("level=info component=ledger msg=\"payment created\" payment_id=%s student_id=%s total=%d items=%d",
		payment.ID, payment.StudentID, payment.Total, len(items))

	return s.GetPayment(ctx, payment.ID)
}

// UpdatePayment applies a full-header edit: same validation as create, the
// line-item set replaced wholesale, and the total recomputed. When the input
// carries status approved and the payment was not yet approved, the validator
// and timestamp are stamped with the acting staff member, so approving while
// editing behaves like a regular approval.
func (s *Service) UpdatePayment(ctx context.Context, paymentID uuid.UUID, actorID uuid.UUID, in domain.UpdatePaymentInput) (*domain.Payment, error) {
	existing, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}

	if err := s.validateLineItems(ctx, in.Items); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindAccountByID(ctx, in.AccountID); err != nil {
		return nil, fmt.Errorf("resolve destination account: %w", err)
	}

	status := existing.Status
	validatorID := existing.ValidatorID
	validatedAt := existing.ValidatedAt
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *in.Status)
		}
		status = *in.Status
		if status == domain.StatusApproved && existing.Status != domain.StatusApproved {
			stampedAt := s.now()
			validatorID = &actorID
			validatedAt = &stampedAt
		}
	}

	payment := &domain.Payment{
		ID:          paymentID,
		StudentID:   in.StudentID,
		AccountID:   in.AccountID,
		PaymentDate: in.PaymentDate,
		Note:        in.Note,
		ProofRef:    in.ProofRef,
		Status:      status,
		Total:       in.Total(),
		ValidatorID: validatorID,
		ValidatedAt: validatedAt,
	}
	items := buildLineItems(paymentID, in.Items)

	if err := s.repo.ReplacePaymentWithItems(ctx, payment, items); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	if status != existing.Status {
		s.emitStatusChanged(ctx, payment, existing.Status, actorID)
	}

	log.Printf("level=info component=ledger msg=\"payment updated\" payment_id=%s total=%d status=%s",
		paymentID, payment.Total, payment.Status)

	return s.GetPayment(ctx, paymentID)
}

// DeletePayment removes a payment and its line items.
func (s *Service) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	if err := s.repo.DeletePayment(ctx, paymentID); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	log.Printf("level=info component=ledger msg=\"payment deleted\" payment_id=%s", paymentID)
	return nil
}

// GetPayment returns the payment aggregate with resolved line items and, when
// the identity service answers, the student's display attributes.
func (s *Service) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if s.students != nil {
		profile, err := s.students.GetStudent(ctx, payment.StudentID)
		if err != nil {
			log.Printf("level=warn component=ledger msg=\"student resolution failed; returning unresolved reference\" payment_id=%s student_id=%s err=%v",
				payment.ID, payment.StudentID, err)
		} else {
			payment.Student = profile
		}
	}
	return payment, nil
}

// ListPayments returns filtered, fully-resolved payment rows for report
// screens and exporters. Reads never mutate ledger state.
func (s *Service) ListPayments(ctx context.Context, filter domain.ReportFilter) ([]domain.Payment, error) {
	payments, err := s.repo.ListPayments(ctx, filter)
	if err != nil {
		return nil, err
	}

	if s.students != nil && len(payments) > 0 {
		ids := make([]uuid.UUID, 0, len(payments))
		seen := make(map[uuid.UUID]bool, len(payments))
		for _, p := range payments {
			if !seen[p.StudentID] {
				seen[p.StudentID] = true
				ids = append(ids, p.StudentID)
			}
		}
		profiles, err := s.students.LookupStudents(ctx, ids)
		if err != nil {
			log.Printf("level=warn component=ledger msg=\"bulk student resolution failed; returning unresolved references\" count=%d err=%v", len(ids), err)
		} else {
			for i := range payments {
				if profile, ok := profiles[payments[i].StudentID]; ok {
					resolved := profile
					payments[i].Student = &resolved
				}
			}
		}
	}
	return payments, nil
}

// validateLineItems enforces the submission rules: a non-empty set, positive
// amounts, and fee-type references that are active or previously used.
func (s *Service) validateLineItems(ctx context.Context, items []domain.NewLineItem) error {
	if len(items) == 0 {
		return domain.NewValidationError("items", "at least one line item is required")
	}
	for i, item := range items {
		if item.Amount <= 0 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].amount", i), "must be a positive amount")
		}
		feeType, err := s.repo.FindFeeTypeByID(ctx, item.FeeTypeID)
		if err != nil {
			return fmt.Errorf("resolve fee type %s: %w", item.FeeTypeID, err)
		}
		if !feeType.Active {
			referenced, err := s.repo.FeeTypeReferenced(ctx, feeType.ID)
			if err != nil {
				return fmt.Errorf("check fee type usage: %w", err)
			}
			if !referenced {
				return domain.NewValidationError(fmt.Sprintf("items[%d].fee_type_id", i),
					fmt.Sprintf("fee type %s is inactive and has never been used", feeType.Code))
			}
		}
	}
	return nil
}

func buildLineItems(paymentID uuid.UUID, inputs []domain.NewLineItem) []domain.PaymentLineItem {
	items := make([]domain.PaymentLineItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, domain.PaymentLineItem{
			ID:        uuid.New(),
			PaymentID: paymentID,
			FeeTypeID: in.FeeTypeID,
			Amount:    in.Amount,
			Note:      in.Note,
		})
	}
	return items
}
