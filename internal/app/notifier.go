/**
 * @description
 * The inbound half of the notification dispatcher boundary. The consumer
 * receives PaymentStatusChanged facts from the ledger events exchange and
 * hands them to a Notifier for downstream delivery, for example a
 * parent-facing messaging gateway.
 *
 * Contract: delivery failure is the dispatcher's own concern. Messages are
 * acknowledged even when the notifier errors (log-and-drop), so nothing can
 * propagate back toward the workflow that emitted the fact.
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

// Notifier delivers a status-change fact downstream.
type Notifier interface {
	NotifyStatusChanged(ctx context.Context, event domain.PaymentStatusChanged) error
}

// LogNotifier is the default delivery: a structured log line. Deployments with
// a real messaging gateway substitute their own Notifier.
type LogNotifier struct{}

func (LogNotifier) NotifyStatusChanged(ctx context.Context, event domain.PaymentStatusChanged) error {
	log.Printf("level=info component=notifier msg=\"payment status notification\" payment_id=%s student_id=%s previous=%s new=%s total=%d",
		event.PaymentID, event.StudentID, event.PreviousStatus, event.NewStatus, event.Total)
	return nil
}

// StatusChangedConsumer adapts AMQP deliveries to the Notifier.
type StatusChangedConsumer struct {
	notifier Notifier
}

func NewStatusChangedConsumer(notifier Notifier) *StatusChangedConsumer {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &StatusChangedConsumer{notifier: notifier}
}

// HandleMessage decodes one delivery and triggers notification. It always
// returns true: malformed payloads and delivery failures alike are dropped
// after logging, never re-queued toward the workflow.
func (c *StatusChangedConsumer) HandleMessage(body []byte) bool {
	var event domain.PaymentStatusChanged
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=notifier msg=\"undecodable status event; dropping\" err=%v", err)
		return true
	}
	if event.PaymentID == uuid.Nil {
		log.Printf("level=warn component=notifier msg=\"status event missing payment id; dropping\"")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.notifier.NotifyStatusChanged(ctx, event); err != nil {
		log.Printf("level=warn component=notifier msg=\"notification delivery failed; dropping\" payment_id=%s err=%v", event.PaymentID, err)
	}
	return true
}
