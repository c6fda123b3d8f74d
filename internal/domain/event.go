package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatusChanged is the fact emitted by the validation workflow whenever
// a payment's status changes. The notification dispatcher consumes it; the
// workflow never waits on, or rolls back for, its delivery.
type PaymentStatusChanged struct {
	PaymentID      uuid.UUID `json:"payment_id"`
	PreviousStatus Status    `json:"previous_status"`
	NewStatus      Status    `json:"new_status"`
	ActorID        uuid.UUID `json:"actor_id"`
	StudentID      uuid.UUID `json:"student_id"`
	Total          int64     `json:"total"`
	OccurredAt     time.Time `json:"occurred_at"`
}
