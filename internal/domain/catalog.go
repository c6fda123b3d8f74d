/**
 * @description
 * Catalog reference entities: fee types and destination accounts. Payments
 * reference these by id but never own them.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeeType is a named category of charge (e.g., monthly tuition "SPP") with a
// default amount and a mandatory flag. Fee types referenced by posted line
// items are never hard-deleted, only deactivated.
type FeeType struct {
	ID            uuid.UUID `json:"id"`
	Code          string    `json:"code"` // unique short code, e.g. "SPP"
	Name          string    `json:"name"`
	DefaultAmount int64     `json:"default_amount"`
	Mandatory     bool      `json:"mandatory"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Account is a bank destination a payment can be attributed to.
type Account struct {
	ID            uuid.UUID `json:"id"`
	BankName      string    `json:"bank_name"`
	HolderName    string    `json:"holder_name"`
	AccountNumber string    `json:"account_number"` // unique
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateFeeTypeInput is the input shape for registering a fee type.
type CreateFeeTypeInput struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	DefaultAmount int64  `json:"default_amount"`
	Mandatory     bool   `json:"mandatory"`
}

// CreateAccountInput is the input shape for registering a destination account.
type CreateAccountInput struct {
	BankName      string `json:"bank_name"`
	HolderName    string `json:"holder_name"`
	AccountNumber string `json:"account_number"`
}
