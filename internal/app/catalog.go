/**
 * @description
 * Catalog operations: fee types and destination accounts. Both are reference
 * data for the ledger; removal is guarded uniformly: an entity referenced by
 * any posted payment cannot be deleted.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

// CreateFeeType registers a fee type. Codes are normalized to upper case.
func (s *Service) CreateFeeType(ctx context.Context, in domain.CreateFeeTypeInput) (*domain.FeeType, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return nil, domain.NewValidationError("code", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if in.DefaultAmount < 0 {
		return nil, domain.NewValidationError("default_amount", "must not be negative")
	}

	feeType := &domain.FeeType{
		ID:            uuid.New(),
		Code:          code,
		Name:          strings.TrimSpace(in.Name),
		DefaultAmount: in.DefaultAmount,
		Mandatory:     in.Mandatory,
		Active:        true,
	}
	if err := s.repo.CreateFeeType(ctx, feeType); err != nil {
		return nil, fmt.Errorf("create fee type: %w", err)
	}

	log.Printf("level=info component=catalog msg=\"fee type created\" fee_type_id=%s code=%s", feeType.ID, feeType.Code)
	return feeType, nil
}

// ListFeeTypes returns the catalog in insertion order.
func (s *Service) ListFeeTypes(ctx context.Context) ([]domain.FeeType, error) {
	return s.repo.ListFeeTypes(ctx)
}

// DeactivateFeeType retires a fee type without removing it. Posted line items
// keep their reference; new submissions may still use it because it was
// previously used.
func (s *Service) DeactivateFeeType(ctx context.Context, feeTypeID uuid.UUID) error {
	if err := s.repo.SetFeeTypeActive(ctx, feeTypeID, false); err != nil {
		return fmt.Errorf("deactivate fee type: %w", err)
	}
	log.Printf("level=info component=catalog msg=\"fee type deactivated\" fee_type_id=%s", feeTypeID)
	return nil
}

// DeleteFeeType removes a fee type that no line item references.
func (s *Service) DeleteFeeType(ctx context.Context, feeTypeID uuid.UUID) error {
	if err := s.repo.DeleteFeeType(ctx, feeTypeID); err != nil {
		return fmt.Errorf("delete fee type: %w", err)
	}
	log.Printf("level=info component=catalog msg=\"fee type deleted\" fee_type_id=%s", feeTypeID)
	return nil
}

// CreateAccount registers a destination bank account.
func (s *Service) CreateAccount(ctx context.Context, in domain.CreateAccountInput) (*domain.Account, error) {
	if strings.TrimSpace(in.BankName) == "" {
		return nil, domain.NewValidationError("bank_name", "is required")
	}
	if strings.TrimSpace(in.HolderName) == "" {
		return nil, domain.NewValidationError("holder_name", "is required")
	}
	if strings.TrimSpace(in.AccountNumber) == "" {
		return nil, domain.NewValidationError("account_number", "is required")
	}

	account := &domain.Account{
		ID:            uuid.New(),
		BankName:      strings.TrimSpace(in.BankName),
		HolderName:    strings.TrimSpace(in.HolderName),
		AccountNumber: strings.TrimSpace(in.AccountNumber),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	log.Printf("level=info component=catalog msg=\"account created\" account_id=%s bank=%s", account.ID, account.BankName)
	return account, nil
}

// ListAccounts returns the registry in insertion order.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx)
}

// DeleteAccount removes an account no payment references.
func (s *Service) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	if err := s.repo.DeleteAccount(ctx, accountID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	log.Printf("level=info component=catalog msg=\"account deleted\" account_id=%s", accountID)
	return nil
}
