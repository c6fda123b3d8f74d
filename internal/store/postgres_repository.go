/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the SQL needed for the payment ledger tables: payments,
 * payment_items, fee_types, and accounts.
 *
 * Key invariants enforced here:
 * - A payment header and its line items are always written in one transaction.
 * - Editing a payment replaces the full line-item set (delete then recreate).
 * - Bulk status transitions are one set-based update; rows that do not exist
 *   are skipped rather than failing the batch.
 *
 * @dependencies
 * - context, errors, fmt, strings, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

var (
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrFeeTypeNotFound        = errors.New("fee type not found")
	ErrAccountNotFound        = errors.New("account not found")
	ErrFeeTypeInUse           = errors.New("fee type is referenced by posted payments")
	ErrAccountInUse           = errors.New("account is referenced by posted payments")
	ErrDuplicateFeeTypeCode   = errors.New("fee type code already exists")
	ErrDuplicateAccountNumber = errors.New("account number already exists")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const paymentColumns = `
	p.id, p.student_id, p.account_id, p.payment_date, p.note, p.proof_ref,
	p.status, p.total, p.validator_id, p.validated_at, p.created_at, p.updated_at,
	a.id, a.bank_name, a.holder_name, a.account_number, a.created_at, a.updated_at`

func scanPaymentRow(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var account domain.Account
	var status string
	err := row.Scan(
		&p.ID, &p.StudentID, &p.AccountID, &p.PaymentDate, &p.Note, &p.ProofRef,
		&status, &p.Total, &p.ValidatorID, &p.ValidatedAt, &p.CreatedAt, &p.UpdatedAt,
		&account.ID, &account.BankName, &account.HolderName, &account.AccountNumber,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.Status(status)
	p.Account = &account
	return &p, nil
}

// appendPaymentFilter translates a ReportFilter into WHERE fragments against
// the payments table aliased as "p". Every aggregation and listing query goes
// through this one translation so all report surfaces filter identically.
func appendPaymentFilter(where []string, args []interface{}, filter domain.ReportFilter) ([]string, []interface{}) {
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("p.payment_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("p.payment_date <= $%d", len(args)))
	}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		where = append(where, fmt.Sprintf("p.account_id = $%d", len(args)))
	}
	if len(filter.StudentIDs) > 0 {
		args = append(args, filter.StudentIDs)
		where = append(where, fmt.Sprintf("p.student_id = ANY($%d)", len(args)))
	}
	if filter.FeeTypeID != nil {
		args = append(args, *filter.FeeTypeID)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM payment_items li WHERE li.payment_id = p.id AND li.fee_type_id = $%d)", len(args)))
	}
	return where, args
}

func whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}

// CreatePaymentWithItems inserts a payment header and its line items atomically.
func (r *PostgresRepository) CreatePaymentWithItems(ctx context.Context, p *domain.Payment, items []domain.PaymentLineItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO payments (id, student_id, account_id, payment_date, note, proof_ref, status, total, validator_id, validated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		p.ID, p.StudentID, p.AccountID, p.PaymentDate, p.Note, p.ProofRef,
		string(p.Status), p.Total, p.ValidatorID, p.ValidatedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapPaymentWriteError(err)
	}

	if err := insertLineItems(ctx, tx, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ReplacePaymentWithItems updates a payment header and swaps the full
// line-item set in one transaction. Partial patching of line items is
// deliberately not supported.
func (r *PostgresRepository) ReplacePaymentWithItems(ctx context.Context, p *domain.Payment, items []domain.PaymentLineItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE payments
		SET student_id = $2, account_id = $3, payment_date = $4, note = $5, proof_ref = $6,
		    status = $7, total = $8, validator_id = $9, validated_at = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		p.ID, p.StudentID, p.AccountID, p.PaymentDate, p.Note, p.ProofRef,
		string(p.Status), p.Total, p.ValidatorID, p.ValidatedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return mapPaymentWriteError(err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM payment_items WHERE payment_id = $1`, p.ID); err != nil {
		return err
	}
	if err := insertLineItems(ctx, tx, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertLineItems(ctx context.Context, tx pgx.Tx, items []domain.PaymentLineItem) error {
	query := `
		INSERT INTO payment_items (id, payment_id, fee_type_id, amount, note)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, item := range items {
		if _, err := tx.Exec(ctx, query, item.ID, item.PaymentID, item.FeeTypeID, item.Amount, item.Note); err != nil {
			return mapPaymentWriteError(err)
		}
	}
	return nil
}

// mapPaymentWriteError converts foreign-key violations on payment writes into
// the matching sentinel so callers can report which reference was dangling.
func mapPaymentWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "account"):
			return ErrAccountNotFound
		case strings.Contains(pgErr.ConstraintName, "fee_type"):
			return ErrFeeTypeNotFound
		}
	}
	return err
}

// DeletePayment removes a payment header; line items cascade at the schema level.
func (r *PostgresRepository) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, paymentID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// FindPaymentByID retrieves a payment aggregate: header, destination account,
// and line items joined to their fee-type code and name.
func (r *PostgresRepository) FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments p
		JOIN accounts a ON a.id = p.account_id
		WHERE p.id = $1`
	p, err := scanPaymentRow(r.db.QueryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	items, err := r.findLineItems(ctx, []uuid.UUID{paymentID})
	if err != nil {
		return nil, err
	}
	p.Items = items[paymentID]
	return p, nil
}

// ListPayments returns filtered payment aggregates ordered most recent first.
// The rows carry resolved account and fee-type data so exporters and report
// screens can render without further queries.
func (r *PostgresRepository) ListPayments(ctx context.Context, filter domain.ReportFilter) ([]domain.Payment, error) {
	var where []string
	var args []interface{}
	where, args = appendPaymentFilter(where, args, filter)

	query := `SELECT ` + paymentColumns + `
		FROM payments p
		JOIN accounts a ON a.id = p.account_id` +
		whereClause(where) + `
		ORDER BY p.payment_date DESC, p.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	var ids []uuid.UUID
	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return payments, nil
	}

	itemsByPayment, err := r.findLineItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		payments[i].Items = itemsByPayment[payments[i].ID]
	}
	return payments, nil
}

func (r *PostgresRepository) findLineItems(ctx context.Context, paymentIDs []uuid.UUID) (map[uuid.UUID][]domain.PaymentLineItem, error) {
	query := `
		SELECT li.id, li.payment_id, li.fee_type_id, ft.code, ft.name, li.amount, li.note
		FROM payment_items li
		JOIN fee_types ft ON ft.id = li.fee_type_id
		WHERE li.payment_id = ANY($1)
		ORDER BY li.created_at ASC, li.id ASC
	`
	rows, err := r.db.Query(ctx, query, paymentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.PaymentLineItem)
	for rows.Next() {
		var item domain.PaymentLineItem
		if err := rows.Scan(&item.ID, &item.PaymentID, &item.FeeTypeID, &item.FeeTypeCode, &item.FeeTypeName, &item.Amount, &item.Note); err != nil {
			return nil, err
		}
		items[item.PaymentID] = append(items[item.PaymentID], item)
	}
	return items, rows.Err()
}

// UpdatePaymentStatus applies one workflow transition. Validator, timestamp,
// and note columns are only touched when the corresponding parameter is set;
// the whole field set changes in a single statement so a concurrent transition
// can never observe a half-applied row.
func (r *PostgresRepository) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, params StatusUpdateParams) (*domain.Payment, error) {
	query := `
		UPDATE payments p
		SET status = $2,
		    validator_id = COALESCE($3::uuid, p.validator_id),
		    validated_at = COALESCE($4::timestamptz, p.validated_at),
		    note = COALESCE($5::text, p.note),
		    updated_at = NOW()
		FROM accounts a
		WHERE p.id = $1 AND a.id = p.account_id
		RETURNING ` + paymentColumns
	p, err := scanPaymentRow(r.db.QueryRow(ctx, query,
		paymentID, string(params.Status), params.ValidatorID, params.ValidatedAt, params.Note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	items, err := r.findLineItems(ctx, []uuid.UUID{paymentID})
	if err != nil {
		return nil, err
	}
	p.Items = items[paymentID]
	return p, nil
}

// BulkUpdatePaymentStatus applies the same transition to every id in one
// set-based update. Ids with no matching row are silently skipped; the
// returned slice reflects only rows actually updated, with their previous
// status so the caller can emit per-row status-change facts.
func (r *PostgresRepository) BulkUpdatePaymentStatus(ctx context.Context, paymentIDs []uuid.UUID, params StatusUpdateParams) ([]StatusTransition, error) {
	if len(paymentIDs) == 0 {
		return nil, nil
	}

	query := `
		UPDATE payments p
		SET status = $1,
		    validator_id = COALESCE($2::uuid, p.validator_id),
		    validated_at = COALESCE($3::timestamptz, p.validated_at),
		    note = COALESCE($4::text, p.note),
		    updated_at = NOW()
		FROM (SELECT id, status FROM payments WHERE id = ANY($5) FOR UPDATE) old
		WHERE p.id = old.id
		RETURNING p.id, old.status, p.student_id, p.total
	`
	rows, err := r.db.Query(ctx, query,
		string(params.Status), params.ValidatorID, params.ValidatedAt, params.Note, paymentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updated []StatusTransition
	for rows.Next() {
		var t StatusTransition
		var previous string
		if err := rows.Scan(&t.PaymentID, &previous, &t.StudentID, &t.Total); err != nil {
			return nil, err
		}
		t.Previous = domain.Status(previous)
		updated = append(updated, t)
	}
	return updated, rows.Err()
}

// SummarizePayments computes the total and count over a filtered payment set.
func (r *PostgresRepository) SummarizePayments(ctx context.Context, filter domain.ReportFilter) (int64, int64, error) {
	var where []string
	var args []interface{}
	where, args = appendPaymentFilter(where, args, filter)

	query := `SELECT COALESCE(SUM(p.total), 0), COUNT(*) FROM payments p` + whereClause(where)

	var total, count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total, &count); err != nil {
		return 0, 0, err
	}
	return total, count, nil
}

// MonthlyPaymentTotals groups filtered payments by calendar month within
// [from, to]. Months with no activity produce no row here.
func (r *PostgresRepository) MonthlyPaymentTotals(ctx context.Context, filter domain.ReportFilter, from, to time.Time) ([]MonthTotalRow, error) {
	where := []string{"p.payment_date >= $1", "p.payment_date <= $2"}
	args := []interface{}{from, to}
	where, args = appendPaymentFilter(where, args, filter)

	query := `
		SELECT EXTRACT(YEAR FROM p.payment_date)::int,
		       EXTRACT(MONTH FROM p.payment_date)::int,
		       COALESCE(SUM(p.total), 0)
		FROM payments p` + whereClause(where) + `
		GROUP BY 1, 2
		ORDER BY 1, 2
	`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []MonthTotalRow
	for rows.Next() {
		var row MonthTotalRow
		if err := rows.Scan(&row.Year, &row.Month, &row.Total); err != nil {
			return nil, err
		}
		totals = append(totals, row)
	}
	return totals, rows.Err()
}

// TopFeeType returns the fee type with the highest summed line amount within
// the filter, or nil when no line item matches. Ties resolve deterministically
// by fee-type insertion order rather than leaving the order to the planner.
func (r *PostgresRepository) TopFeeType(ctx context.Context, filter domain.ReportFilter) (*domain.CategoryTotal, error) {
	var where []string
	var args []interface{}
	where, args = appendPaymentFilter(where, args, filter)

	query := `
		SELECT ft.id, ft.code, ft.name, COALESCE(SUM(li.amount), 0) AS line_total
		FROM payment_items li
		JOIN payments p ON p.id = li.payment_id
		JOIN fee_types ft ON ft.id = li.fee_type_id` +
		whereClause(where) + `
		GROUP BY ft.id, ft.code, ft.name, ft.created_at
		ORDER BY line_total DESC, ft.created_at ASC, ft.id ASC
		LIMIT 1
	`
	var top domain.CategoryTotal
	err := r.db.QueryRow(ctx, query, args...).Scan(&top.FeeTypeID, &top.Code, &top.Name, &top.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &top, nil
}
