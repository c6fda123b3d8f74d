/**
 * @description
 * The validation workflow engine: every status change on a payment goes
 * through the transition operations in this file. Transitions stamp the
 * validating staff member, persist the whole field set atomically, and emit a
 * PaymentStatusChanged fact toward the notification dispatcher.
 *
 * Emission is fire-and-forget. A publish failure is logged and swallowed; it
 * must never roll back a committed transition.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
	"github.com/sekolahpay/ledger-service/internal/store"
)

// TransitionStatus moves a payment into newStatus. All transitions between the
// three states are legal in either direction; there is no terminal state, so a
// validator mistake can always be corrected by returning to pending.
//
// Approving or rejecting stamps the validator and timestamp, restamping even
// when the status does not change. Returning to pending leaves both untouched:
// a workflow correction is not an erasure of audit history. A provided note
// overwrites the payment's note.
func (s *Service) TransitionStatus(ctx context.Context, paymentID uuid.UUID, newStatus domain.Status, actorID uuid.UUID, note *string) (*domain.Payment, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, newStatus)
	}

	existing, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}

	updated, err := s.repo.UpdatePaymentStatus(ctx, paymentID, s.statusUpdateParams(newStatus, actorID, note))
	if err != nil {
		return nil, fmt.Errorf("transition payment status: %w", err)
	}

	log.Printf("level=info component=workflow msg=\"payment status transitioned\" payment_id=%s previous=%s new=%s actor_id=%s",
		paymentID, existing.Status, newStatus, actorID)

	s.emitStatusChanged(ctx, updated, existing.Status, actorID)
	return updated, nil
}

// BulkTransitionStatus applies the same transition to every id in the set as
// one update-by-predicate. Ids with no matching payment are silently skipped;
// the returned count reflects the rows actually updated. One status-change
// fact is emitted per updated row, matching the single-row path.
func (s *Service) BulkTransitionStatus(ctx context.Context, paymentIDs []uuid.UUID, newStatus domain.Status, actorID uuid.UUID, note *string) (int64, error) {
	if !newStatus.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, newStatus)
	}
	if len(paymentIDs) == 0 {
		return 0, nil
	}

	transitions, err := s.repo.BulkUpdatePaymentStatus(ctx, paymentIDs, s.statusUpdateParams(newStatus, actorID, note))
	if err != nil {
		return 0, fmt.Errorf("bulk transition payment status: %w", err)
	}

	log.Printf("level=info component=workflow msg=\"bulk status transition applied\" requested=%d updated=%d new=%s actor_id=%s",
		len(paymentIDs), len(transitions), newStatus, actorID)

	for _, t := range transitions {
		s.publishStatusChanged(ctx, domain.PaymentStatusChanged{
			PaymentID:      t.PaymentID,
			PreviousStatus: t.Previous,
			NewStatus:      newStatus,
			ActorID:        actorID,
			StudentID:      t.StudentID,
			Total:          t.Total,
			OccurredAt:     s.now(),
		})
	}
	return int64(len(transitions)), nil
}

// statusUpdateParams builds the storage-level field set for a transition.
// Pending transitions carry nil validator fields, which leaves the stored
// audit trail untouched.
func (s *Service) statusUpdateParams(newStatus domain.Status, actorID uuid.UUID, note *string) store.StatusUpdateParams {
	params := store.StatusUpdateParams{Status: newStatus, Note: note}
	if newStatus == domain.StatusApproved || newStatus == domain.StatusRejected {
		stampedAt := s.now()
		params.ValidatorID = &actorID
		params.ValidatedAt = &stampedAt
	}
	return params
}

func (s *Service) emitStatusChanged(ctx context.Context, payment *domain.Payment, previous domain.Status, actorID uuid.UUID) {
	s.publishStatusChanged(ctx, domain.PaymentStatusChanged{
		PaymentID:      payment.ID,
		PreviousStatus: previous,
		NewStatus:      payment.Status,
		ActorID:        actorID,
		StudentID:      payment.StudentID,
		Total:          payment.Total,
		OccurredAt:     s.now(),
	})
}

func (s *Service) publishStatusChanged(ctx context.Context, event domain.PaymentStatusChanged) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.PublishPaymentStatusChanged(ctx, event); err != nil {
		log.Printf("level=warn component=workflow msg=\"status event publish failed; transition stands\" payment_id=%s new=%s err=%v",
			event.PaymentID, event.NewStatus, err)
	}
}
