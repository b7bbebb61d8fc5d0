// Package billing provides the funds backend consumed by the registry
// engine: account balances plus a spending allowance the account holder
// grants the registrar ahead of time. Charges move funds to the treasury
// and draw down the allowance in one step.
package billing

import (
	"context"
	"log/slog"
	"sync"

	"registrar/internal/registry/fees"
	id "registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

var (
	ErrNegativeAmount = dErrors.New(dErrors.CodeInvalidInput, "amount must not be negative")
	ErrInsufficient   = dErrors.New(dErrors.CodeInsufficientFunds, "insufficient funds or allowance")
	ErrUnknownAccount = dErrors.New(dErrors.CodeNotFound, "account not found")
)

type account struct {
	balance   fees.Amount
	allowance fees.Amount
}

// Ledger is an in-memory double-entry ledger keyed by account identity.
type Ledger struct {
	mu       sync.Mutex
	accounts map[id.AccountID]*account
	logger   *slog.Logger
}

// Option configures the Ledger.
type Option func(*Ledger)

// WithLogger sets a logger for charge activity.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// NewLedger builds an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{accounts: make(map[id.AccountID]*account)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) get(acct id.AccountID) *account {
	a, ok := l.accounts[acct]
	if !ok {
		a = &account{}
		l.accounts[acct] = a
	}
	return a
}

// Deposit credits an account.
func (l *Ledger) Deposit(acct id.AccountID, amount fees.Amount) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.get(acct).balance += amount
	return nil
}

// Approve sets the registrar's spending allowance for an account. Approvals
// replace, they do not accumulate.
func (l *Ledger) Approve(acct id.AccountID, amount fees.Amount) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.get(acct).allowance = amount
	return nil
}

// Balance implements the fee collector capability.
func (l *Ledger) Balance(_ context.Context, payer id.AccountID) (fees.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[payer]
	if !ok {
		return 0, nil
	}
	return a.balance, nil
}

// Allowance implements the fee collector capability.
func (l *Ledger) Allowance(_ context.Context, payer id.AccountID) (fees.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[payer]
	if !ok {
		return 0, nil
	}
	return a.allowance, nil
}

// Charge moves amount from payer to treasury and draws down the allowance.
// The funds and authorization checks repeat here under the ledger lock, so
// the transfer stays sound even if the caller's pre-checks raced.
func (l *Ledger) Charge(ctx context.Context, payer, treasury id.AccountID, amount fees.Amount) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	from, ok := l.accounts[payer]
	if !ok {
		return ErrUnknownAccount
	}
	if from.balance < amount || from.allowance < amount {
		return ErrInsufficient
	}
	from.balance -= amount
	from.allowance -= amount
	l.get(treasury).balance += amount

	if l.logger != nil {
		l.logger.InfoContext(ctx, "fee charged",
			"payer", payer.String(),
			"treasury", treasury.String(),
			"amount", int64(amount),
		)
	}
	return nil
}
