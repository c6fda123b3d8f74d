/**
 * @description
 * HTTP handlers for the aggregation endpoints. Every report screen (income
 * report, status board, dashboard cards) queries through these three
 * operations with the same filter shape, so they all inherit the implicit
 * approved-only restriction from the aggregation engine.
 */

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

type topCategoryResponse struct {
	TopCategory *domain.CategoryTotal `json:"top_category"`
}

// parseReportFilter reads the uniform filter from query parameters. A class
// predicate arrives as repeated student_id parameters: the caller resolves the
// class to student ids through the identity service first.
func parseReportFilter(r *http.Request) (domain.ReportFilter, error) {
	var filter domain.ReportFilter
	query := r.URL.Query()

	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, domain.NewValidationError("from", "must be formatted YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, domain.NewValidationError("to", "must be formatted YYYY-MM-DD")
		}
		filter.To = &to
	}
	if raw := query.Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if raw := query.Get("account_id"); raw != "" {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			return filter, domain.NewValidationError("account_id", "must be a valid UUID")
		}
		filter.AccountID = &accountID
	}
	if raw := query.Get("fee_type_id"); raw != "" {
		feeTypeID, err := uuid.Parse(raw)
		if err != nil {
			return filter, domain.NewValidationError("fee_type_id", "must be a valid UUID")
		}
		filter.FeeTypeID = &feeTypeID
	}
	for _, raw := range query["student_id"] {
		studentID, err := uuid.Parse(raw)
		if err != nil {
			return filter, domain.NewValidationError("student_id", "must be a valid UUID")
		}
		filter.StudentIDs = append(filter.StudentIDs, studentID)
	}
	return filter, nil
}

// SummaryHandler handles GET /reports/summary.
func (h *LedgerHandlers) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		h.respondServiceError(w, "report_summary", err)
		return
	}
	summary, err := h.service.Summarize(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, "report_summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// MonthlyHandler handles GET /reports/monthly?months=N.
func (h *LedgerHandlers) MonthlyHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		h.respondServiceError(w, "report_monthly", err)
		return
	}

	months := 0
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondServiceError(w, "report_monthly",
				domain.NewValidationError("months", "must be a positive integer"))
			return
		}
		months = parsed
	}

	buckets, err := h.service.BucketByMonth(r.Context(), filter, months)
	if err != nil {
		h.respondServiceError(w, "report_monthly", err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// TopCategoryHandler handles GET /reports/top-category. With no matching line
// items the response carries a null category rather than an error.
func (h *LedgerHandlers) TopCategoryHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		h.respondServiceError(w, "report_top_category", err)
		return
	}
	top, err := h.service.TopCategory(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, "report_top_category", err)
		return
	}
	writeJSON(w, http.StatusOK, topCategoryResponse{TopCategory: top})
}
