package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
	"github.com/sekolahpay/ledger-service/internal/store"
)

type workflowRepoStub struct {
	store.Repository

	payments map[uuid.UUID]*domain.Payment

	lastParams  store.StatusUpdateParams
	bulkParams  store.StatusUpdateParams
	bulkIDs     []uuid.UUID
	transitions []store.StatusTransition
}

func (s *workflowRepoStub) FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, store.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *workflowRepoStub) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, params store.StatusUpdateParams) (*domain.Payment, error) {
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, store.ErrPaymentNotFound
	}
	s.lastParams = params

	p.Status = params.Status
	if params.ValidatorID != nil {
		p.ValidatorID = params.ValidatorID
	}
	if params.ValidatedAt != nil {
		p.ValidatedAt = params.ValidatedAt
	}
	if params.Note != nil {
		p.Note = params.Note
	}
	copied := *p
	return &copied, nil
}

func (s *workflowRepoStub) BulkUpdatePaymentStatus(ctx context.Context, paymentIDs []uuid.UUID, params store.StatusUpdateParams) ([]store.StatusTransition, error) {
	s.bulkIDs = paymentIDs
	s.bulkParams = params

	transitions := make([]store.StatusTransition, 0, len(paymentIDs))
	for _, id := range paymentIDs {
		p, ok := s.payments[id]
		if !ok {
			continue
		}
		transitions = append(transitions, store.StatusTransition{
			PaymentID: id,
			Previous:  p.Status,
			StudentID: p.StudentID,
			Total:     p.Total,
		})
		p.Status = params.Status
	}
	s.transitions = transitions
	return transitions, nil
}

type publisherStub struct {
	events     []domain.PaymentStatusChanged
	publishErr error
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	return p.publishErr
}

func (p *publisherStub) PublishPaymentStatusChanged(ctx context.Context, event domain.PaymentStatusChanged) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.events = append(p.events, event)
	return nil
}

func (p *publisherStub) Close() {}

func newWorkflowStub(payments ...*domain.Payment) *workflowRepoStub {
	stub := &workflowRepoStub{payments: make(map[uuid.UUID]*domain.Payment)}
	for _, p := range payments {
		stub.payments[p.ID] = p
	}
	return stub
}

func TestTransitionStatus_ApproveStampsValidator(t *testing.T) {
	payment := &domain.Payment{ID: uuid.New(), StudentID: uuid.New(), Status: domain.StatusPending, Total: 250000}
	repo := newWorkflowStub(payment)
	publisher := &publisherStub{}
	service := NewService(repo, nil, publisher)

	stamped := time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC)
	service.now = func() time.Time { return stamped }

	actorID := uuid.New()
	updated, err := service.TransitionStatus(context.Background(), payment.ID, domain.StatusApproved, actorID, nil)
	if err != nil {
		t.Fatalf("TransitionStatus returned error: %v", err)
	}
	if updated.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
	if updated.ValidatorID == nil || *updated.ValidatorID != actorID {
		t.Fatalf("expected validator stamped, got %v", updated.ValidatorID)
	}
	if updated.ValidatedAt == nil || !updated.ValidatedAt.Equal(stamped) {
		t.Fatalf("expected validation timestamp %v, got %v", stamped, updated.ValidatedAt)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one status-change event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.PreviousStatus != domain.StatusPending || event.NewStatus != domain.StatusApproved {
		t.Fatalf("unexpected event transition %s -> %s", event.PreviousStatus, event.NewStatus)
	}
}

func TestTransitionStatus_ReApprovalRestampsLastValidator(t *testing.T) {
	payment := &domain.Payment{ID: uuid.New(), StudentID: uuid.New(), Status: domain.StatusPending}
	repo := newWorkflowStub(payment)
	service := NewService(repo, nil, nil)

	firstValidator := uuid.New()
	secondValidator := uuid.New()

	if _, err := service.TransitionStatus(context.Background(), payment.ID, domain.StatusApproved, firstValidator, nil); err != nil {
		t.Fatalf("first approval returned error: %v", err)
	}
	updated, err := service.TransitionStatus(context.Background(), payment.ID, domain.StatusApproved, secondValidator, nil)
	if err != nil {
		t.Fatalf("second approval returned error: %v", err)
	}
	if updated.ValidatorID == nil || *updated.ValidatorID != secondValidator {
		t.Fatalf("expected last validator to win, got %v", updated.ValidatorID)
	}
}

func TestTransitionStatus_ReturnToPendingKeepsAuditTrail(t *testing.T) {
	validatorID := uuid.New()
	validatedAt := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	payment := &domain.Payment{
		ID: uuid.New(), StudentID: uuid.New(),
		Status: domain.StatusApproved, ValidatorID: &validatorID, ValidatedAt: &validatedAt,
	}
	repo := newWorkflowStub(payment)
	service := NewService(repo, nil, nil)

	updated, err := service.TransitionStatus(context.Background(), payment.ID, domain.StatusPending, uuid.New(), nil)
	if err != nil {
		t.Fatalf("TransitionStatus returned error: %v", err)
	}
	if repo.lastParams.ValidatorID != nil || repo.lastParams.ValidatedAt != nil {
		t.Fatal("expected pending transition to leave validator columns untouched")
	}
	if updated.ValidatorID == nil || *updated.ValidatorID != validatorID {
		t.Fatalf("expected preserved validator, got %v", updated.ValidatorID)
	}
	if updated.ValidatedAt == nil || !updated.ValidatedAt.Equal(validatedAt) {
		t.Fatalf("expected preserved validation timestamp, got %v", updated.ValidatedAt)
	}
}

func TestTransitionStatus_RejectsUnknownStatus(t *testing.T) {
	repo := newWorkflowStub()
	service := NewService(repo, nil, nil)

	_, err := service.TransitionStatus(context.Background(), uuid.New(), domain.Status("archived"), uuid.New(), nil)
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestTransitionStatus_PublishFailureDoesNotFailTransition(t *testing.T) {
	payment := &domain.Payment{ID: uuid.New(), StudentID: uuid.New(), Status: domain.StatusPending}
	repo := newWorkflowStub(payment)
	publisher := &publisherStub{publishErr: errors.New("broker unreachable")}
	service := NewService(repo, nil, publisher)

	updated, err := service.TransitionStatus(context.Background(), payment.ID, domain.StatusApproved, uuid.New(), nil)
	if err != nil {
		t.Fatalf("expected transition to stand despite publish failure, got %v", err)
	}
	if updated.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
}

func TestBulkTransitionStatus_SkipsMissingIDs(t *testing.T) {
	existing := &domain.Payment{ID: uuid.New(), StudentID: uuid.New(), Status: domain.StatusPending, Total: 90000}
	repo := newWorkflowStub(existing)
	publisher := &publisherStub{}
	service := NewService(repo, nil, publisher)

	missingID := uuid.New()
	updated, err := service.BulkTransitionStatus(context.Background(),
		[]uuid.UUID{existing.ID, missingID}, domain.StatusApproved, uuid.New(), nil)
	if err != nil {
		t.Fatalf("BulkTransitionStatus returned error: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 updated row, got %d", updated)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one event for the row that changed, got %d", len(publisher.events))
	}
	if publisher.events[0].PaymentID != existing.ID {
		t.Fatalf("expected event for existing payment, got %s", publisher.events[0].PaymentID)
	}
}

func TestBulkTransitionStatus_EmptySetIsNoOp(t *testing.T) {
	repo := newWorkflowStub()
	service := NewService(repo, nil, nil)

	updated, err := service.BulkTransitionStatus(context.Background(), nil, domain.StatusRejected, uuid.New(), nil)
	if err != nil {
		t.Fatalf("BulkTransitionStatus returned error: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected 0 updated rows, got %d", updated)
	}
	if repo.bulkIDs != nil {
		t.Fatal("did not expect a storage call for an empty id set")
	}
}

func TestBulkTransitionStatus_EmitsPerRowFacts(t *testing.T) {
	first := &domain.Payment{ID: uuid.New(), StudentID: uuid.New(), Status: domain.StatusPending, Total: 10000}
	second := &domain.Payment{ID: uuid.New(), StudentID: uuid.New(), Status: domain.StatusRejected, Total: 20000}
	repo := newWorkflowStub(first, second)
	publisher := &publisherStub{}
	service := NewService(repo, nil, publisher)

	updated, err := service.BulkTransitionStatus(context.Background(),
		[]uuid.UUID{first.ID, second.ID}, domain.StatusApproved, uuid.New(), nil)
	if err != nil {
		t.Fatalf("BulkTransitionStatus returned error: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updated rows, got %d", updated)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected one event per updated row, got %d", len(publisher.events))
	}
	if publisher.events[1].PreviousStatus != domain.StatusRejected {
		t.Fatalf("expected per-row previous status, got %s", publisher.events[1].PreviousStatus)
	}
}
