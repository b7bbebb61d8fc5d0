package service

import (
	"context"

	"registrar/internal/registry/events"
	"registrar/internal/registry/fees"
	id "registrar/pkg/domain"
)

// FeeCollector is the external capability that verifies and moves funds.
// The engine pre-checks balance and allowance, then charges; it never touches
// raw balances itself. The treasury destination is engine configuration and
// is passed explicitly so collectors stay free of registry state.
type FeeCollector interface {
	// Balance returns the payer's available funds.
	Balance(ctx context.Context, payer id.AccountID) (fees.Amount, error)

	// Allowance returns how much the payer has pre-approved the registry
	// to spend.
	Allowance(ctx context.Context, payer id.AccountID) (fees.Amount, error)

	// Charge moves amount from payer to the treasury. Implementations
	// return ErrInsufficientFunds-compatible errors when funds or
	// authorization are missing.
	Charge(ctx context.Context, payer, treasury id.AccountID, amount fees.Amount) error
}

// EventEmitter receives committed state changes. Emission is fire-and-forget;
// implementations must not block the caller.
type EventEmitter interface {
	Emit(ctx context.Context, event events.Event)
}
