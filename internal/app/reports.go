/**
 * @description
 * The aggregation engine: stateless, read-only queries shared by every report
 * surface (income report, status board, dashboard cards). All three
 * operations normalize their filter the same way, which is where the implicit
 * approved-only restriction for income figures lives.
 */

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sekolahpay/ledger-service/internal/domain"
)

// Summarize computes total, count, and average over a filtered payment set.
// An empty set yields {0, 0, 0}, never a division error.
func (s *Service) Summarize(ctx context.Context, filter domain.ReportFilter) (domain.Summary, error) {
	normalized := filter.Normalized()

	cacheKey := summaryCacheKey(normalized)
	if s.reportCache != nil {
		if cached, ok := s.reportCache.GetSummary(ctx, cacheKey); ok {
			return *cached, nil
		}
	}

	total, count, err := s.repo.SummarizePayments(ctx, normalized)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize payments: %w", err)
	}

	summary := domain.Summary{Total: total, Count: count}
	if count > 0 {
		summary.Average = total / count
	}

	if s.reportCache != nil {
		s.reportCache.SetSummary(ctx, cacheKey, summary)
	}
	return summary, nil
}

// BucketByMonth produces a fixed-length monthly time series ending at the
// current month: exactly monthCount buckets in ascending chronological order,
// zero-activity months included. The month window defines the date range; the
// filter's own from/to bounds are not applied here.
func (s *Service) BucketByMonth(ctx context.Context, filter domain.ReportFilter, monthCount int) ([]domain.MonthBucket, error) {
	if monthCount <= 0 {
		monthCount = s.reportMonths
	}

	normalized := filter.Normalized()
	normalized.From = nil
	normalized.To = nil

	now := s.now()
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(monthCount - 1), 0)
	windowEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)

	rows, err := s.repo.MonthlyPaymentTotals(ctx, normalized, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("monthly payment totals: %w", err)
	}

	totals := make(map[[2]int]int64, len(rows))
	for _, row := range rows {
		totals[[2]int{row.Year, row.Month}] = row.Total
	}

	buckets := make([]domain.MonthBucket, 0, monthCount)
	for i := 0; i < monthCount; i++ {
		month := windowStart.AddDate(0, i, 0)
		buckets = append(buckets, domain.MonthBucket{
			Label: month.Format("Jan 2006"),
			Year:  month.Year(),
			Month: int(month.Month()),
			Total: totals[[2]int{month.Year(), int(month.Month())}],
		})
	}
	return buckets, nil
}

// TopCategory returns the fee type with the highest summed amount within the
// filter, or nil when nothing matches. Ties break by fee-type insertion order,
// so repeated calls over the same data always name the same category.
func (s *Service) TopCategory(ctx context.Context, filter domain.ReportFilter) (*domain.CategoryTotal, error) {
	top, err := s.repo.TopFeeType(ctx, filter.Normalized())
	if err != nil {
		return nil, fmt.Errorf("top fee type: %w", err)
	}
	return top, nil
}

// summaryCacheKey derives a stable cache key from the normalized filter.
func summaryCacheKey(filter domain.ReportFilter) string {
	encoded, err := json.Marshal(filter)
	if err != nil {
		return "summary"
	}
	return string(encoded)
}
