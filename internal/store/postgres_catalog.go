/**
 * @description
 * PostgreSQL queries for the catalog reference entities: fee types and
 * destination accounts. Both carry the same removal guard: an entity
 * referenced by any posted payment cannot be deleted, only (for fee types)
 * deactivated.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

// CreateFeeType inserts a fee type. Codes are unique across the catalog.
func (r *PostgresRepository) CreateFeeType(ctx context.Context, ft *domain.FeeType) error {
	query := `
		INSERT INTO fee_types (id, code, name, default_amount, mandatory, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, ft.ID, ft.Code, ft.Name, ft.DefaultAmount, ft.Mandatory, ft.Active).
		Scan(&ft.CreatedAt, &ft.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateFeeTypeCode
	}
	return err
}

// ListFeeTypes returns the catalog in insertion order.
func (r *PostgresRepository) ListFeeTypes(ctx context.Context) ([]domain.FeeType, error) {
	query := `
		SELECT id, code, name, default_amount, mandatory, active, created_at, updated_at
		FROM fee_types
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeTypes []domain.FeeType
	for rows.Next() {
		var ft domain.FeeType
		if err := rows.Scan(&ft.ID, &ft.Code, &ft.Name, &ft.DefaultAmount, &ft.Mandatory, &ft.Active, &ft.CreatedAt, &ft.UpdatedAt); err != nil {
			return nil, err
		}
		feeTypes = append(feeTypes, ft)
	}
	return feeTypes, rows.Err()
}

// FindFeeTypeByID retrieves a single fee type.
func (r *PostgresRepository) FindFeeTypeByID(ctx context.Context, feeTypeID uuid.UUID) (*domain.FeeType, error) {
	var ft domain.FeeType
	query := `
		SELECT id, code, name, default_amount, mandatory, active, created_at, updated_at
		FROM fee_types
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, feeTypeID).
		Scan(&ft.ID, &ft.Code, &ft.Name, &ft.DefaultAmount, &ft.Mandatory, &ft.Active, &ft.CreatedAt, &ft.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFeeTypeNotFound
		}
		return nil, err
	}
	return &ft, nil
}

// FeeTypeReferenced reports whether any posted line item references the fee type.
func (r *PostgresRepository) FeeTypeReferenced(ctx context.Context, feeTypeID uuid.UUID) (bool, error) {
	var referenced bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_items WHERE fee_type_id = $1)`, feeTypeID).
		Scan(&referenced)
	return referenced, err
}

// SetFeeTypeActive flips the active flag. Deactivation is the supported way to
// retire a fee type that has posted line items.
func (r *PostgresRepository) SetFeeTypeActive(ctx context.Context, feeTypeID uuid.UUID, active bool) error {
	result, err := r.db.Exec(ctx,
		`UPDATE fee_types SET active = $2, updated_at = NOW() WHERE id = $1`, feeTypeID, active)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrFeeTypeNotFound
	}
	return nil
}

// DeleteFeeType removes an unreferenced fee type. A fee type with posted line
// items fails with ErrFeeTypeInUse.
func (r *PostgresRepository) DeleteFeeType(ctx context.Context, feeTypeID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var referenced bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_items WHERE fee_type_id = $1)`, feeTypeID).
		Scan(&referenced); err != nil {
		return err
	}
	if referenced {
		return ErrFeeTypeInUse
	}

	result, err := tx.Exec(ctx, `DELETE FROM fee_types WHERE id = $1`, feeTypeID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrFeeTypeNotFound
	}
	return tx.Commit(ctx)
}

// CreateAccount inserts a destination account. Account numbers are unique.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, bank_name, holder_name, account_number)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, account.ID, account.BankName, account.HolderName, account.AccountNumber).
		Scan(&account.CreatedAt, &account.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateAccountNumber
	}
	return err
}

// ListAccounts returns the registry in insertion order.
func (r *PostgresRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `
		SELECT id, bank_name, holder_name, account_number, created_at, updated_at
		FROM accounts
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.ID, &account.BankName, &account.HolderName, &account.AccountNumber, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// FindAccountByID retrieves a single destination account.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `
		SELECT id, bank_name, holder_name, account_number, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, accountID).
		Scan(&account.ID, &account.BankName, &account.HolderName, &account.AccountNumber, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// DeleteAccount removes an account no payment references. A referenced
// account fails with ErrAccountInUse.
func (r *PostgresRepository) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var referenced bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE account_id = $1)`, accountID).
		Scan(&referenced); err != nil {
		return err
	}
	if referenced {
		return ErrAccountInUse
	}

	result, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
