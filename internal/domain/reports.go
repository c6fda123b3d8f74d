/**
 * @description
 * Read-side types for the aggregation engine: the uniform report filter and
 * the result shapes shared by every report surface (income report, status
 * board, dashboard cards).
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReportFilter is the single predicate shape applied uniformly across all
// aggregation queries. A nil Status means "approved only": income figures
// must never silently include pending or rejected payments, and that default
// is applied once, in filter normalization, for every report surface.
type ReportFilter struct {
	From      *time.Time  `json:"from,omitempty"` // inclusive
	To        *time.Time  `json:"to,omitempty"`   // inclusive
	Status    *Status     `json:"status,omitempty"`
	AccountID *uuid.UUID  `json:"account_id,omitempty"`
	FeeTypeID *uuid.UUID  `json:"fee_type_id,omitempty"`
	// StudentIDs expresses class-level predicates: the caller resolves a class
	// label to its student ids through the identity collaborator, because the
	// ledger stores only student references.
	StudentIDs []uuid.UUID `json:"student_ids,omitempty"`
}

// Normalized returns a copy with the implicit approved-only restriction
// applied when no status predicate was given.
func (f ReportFilter) Normalized() ReportFilter {
	if f.Status == nil {
		approved := StatusApproved
		f.Status = &approved
	}
	return f
}

// Summary is the total/count/average triple backing dashboard cards.
type Summary struct {
	Total   int64 `json:"total"`
	Count   int64 `json:"count"`
	Average int64 `json:"average"`
}

// MonthBucket is one calendar month's total in a fixed-length time series.
type MonthBucket struct {
	Label string `json:"label"` // "Jan 2006"
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Total int64  `json:"total"`
}

// CategoryTotal is a fee type's summed amount within a filtered payment set.
type CategoryTotal struct {
	FeeTypeID uuid.UUID `json:"fee_type_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Total     int64     `json:"total"`
}
