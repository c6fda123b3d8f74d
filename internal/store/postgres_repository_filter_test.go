package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

func TestAppendPaymentFilter_EmptyFilterProducesNoClause(t *testing.T) {
	where, args := appendPaymentFilter(nil, nil, domain.ReportFilter{})
	if len(where) != 0 || len(args) != 0 {
		t.Fatalf("expected no fragments for empty filter, got where=%v args=%v", where, args)
	}
	if got := whereClause(where); got != "" {
		t.Fatalf("expected empty clause, got %q", got)
	}
}

func TestAppendPaymentFilter_NumbersPlaceholdersSequentially(t *testing.T) {
	approved := domain.StatusApproved
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	accountID := uuid.New()

	filter := domain.ReportFilter{
		Status:    &approved,
		From:      &from,
		To:        &to,
		AccountID: &accountID,
	}
	where, args := appendPaymentFilter(nil, nil, filter)

	want := []string{
		"p.status = $1",
		"p.payment_date >= $2",
		"p.payment_date <= $3",
		"p.account_id = $4",
	}
	if len(where) != len(want) {
		t.Fatalf("expected %d fragments, got %d: %v", len(want), len(where), where)
	}
	for i, fragment := range want {
		if where[i] != fragment {
			t.Fatalf("fragment %d: expected %q, got %q", i, fragment, where[i])
		}
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
	if args[0] != "approved" {
		t.Fatalf("expected status arg first, got %v", args[0])
	}
}

func TestAppendPaymentFilter_ContinuesNumberingAfterSeedClauses(t *testing.T) {
	pending := domain.StatusPending
	where := []string{"p.payment_date >= $1", "p.payment_date <= $2"}
	args := []interface{}{time.Now(), time.Now()}

	where, args = appendPaymentFilter(where, args, domain.ReportFilter{Status: &pending})

	if len(where) != 3 {
		t.Fatalf("expected 3 fragments, got %v", where)
	}
	if where[2] != "p.status = $3" {
		t.Fatalf("expected status placeholder to continue numbering, got %q", where[2])
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
}

func TestAppendPaymentFilter_FeeTypePredicateUsesLineItems(t *testing.T) {
	feeTypeID := uuid.New()
	where, _ := appendPaymentFilter(nil, nil, domain.ReportFilter{FeeTypeID: &feeTypeID})
	if len(where) != 1 {
		t.Fatalf("expected one fragment, got %v", where)
	}
	want := "EXISTS (SELECT 1 FROM payment_items li WHERE li.payment_id = p.id AND li.fee_type_id = $1)"
	if where[0] != want {
		t.Fatalf("expected line-item subquery, got %q", where[0])
	}
}

func TestAppendPaymentFilter_StudentSetUsesAny(t *testing.T) {
	students := []uuid.UUID{uuid.New(), uuid.New()}
	where, args := appendPaymentFilter(nil, nil, domain.ReportFilter{StudentIDs: students})
	if len(where) != 1 || where[0] != "p.student_id = ANY($1)" {
		t.Fatalf("expected ANY predicate for student set, got %v", where)
	}
	if len(args) != 1 {
		t.Fatalf("expected the id slice as one arg, got %d", len(args))
	}
}

func TestWhereClause_JoinsWithAnd(t *testing.T) {
	got := whereClause([]string{"p.status = $1", "p.account_id = $2"})
	if got != " WHERE p.status = $1 AND p.account_id = $2" {
		t.Fatalf("unexpected clause %q", got)
	}
}
