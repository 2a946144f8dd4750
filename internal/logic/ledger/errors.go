package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidTokenProgram = errors.New("account not owned by a token program")
	ErrOwnerMismatch       = errors.New("token account owner mismatch")
	ErrWrongVault          = errors.New("wrong vault")
	ErrAccountFrozen       = errors.New("token account is frozen")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrTransferMismatch    = errors.New("deposit transfer mismatch")
	ErrDuplicateDeposit    = errors.New("deposit transfer already credited")
)
