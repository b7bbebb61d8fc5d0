package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registrar/internal/registry/fees"
	id "registrar/pkg/domain"
)

func TestLedgerCharge(t *testing.T) {
	ctx := context.Background()
	payer := id.NewAccountID()
	treasury := id.NewAccountID()

	t.Run("moves funds and draws down the allowance", func(t *testing.T) {
		l := NewLedger()
		require.NoError(t, l.Deposit(payer, 1000))
		require.NoError(t, l.Approve(payer, 300))

		require.NoError(t, l.Charge(ctx, payer, treasury, 200))

		balance, err := l.Balance(ctx, payer)
		require.NoError(t, err)
		assert.Equal(t, fees.Amount(800), balance)

		allowance, err := l.Allowance(ctx, payer)
		require.NoError(t, err)
		assert.Equal(t, fees.Amount(100), allowance)

		got, err := l.Balance(ctx, treasury)
		require.NoError(t, err)
		assert.Equal(t, fees.Amount(200), got)
	})

	t.Run("allowance gates independently of balance", func(t *testing.T) {
		l := NewLedger()
		require.NoError(t, l.Deposit(payer, 1000))
		require.NoError(t, l.Approve(payer, 50))

		err := l.Charge(ctx, payer, treasury, 100)
		require.ErrorIs(t, err, ErrInsufficient)
	})

	t.Run("unknown payer", func(t *testing.T) {
		l := NewLedger()
		err := l.Charge(ctx, id.NewAccountID(), treasury, 1)
		require.ErrorIs(t, err, ErrUnknownAccount)
	})

	t.Run("zero charge is a no-op", func(t *testing.T) {
		l := NewLedger()
		require.NoError(t, l.Charge(ctx, payer, treasury, 0))
	})

	t.Run("negative amounts are rejected everywhere", func(t *testing.T) {
		l := NewLedger()
		require.ErrorIs(t, l.Deposit(payer, -1), ErrNegativeAmount)
		require.ErrorIs(t, l.Approve(payer, -1), ErrNegativeAmount)
		require.ErrorIs(t, l.Charge(ctx, payer, treasury, -1), ErrNegativeAmount)
	})

	t.Run("approvals replace rather than accumulate", func(t *testing.T) {
		l := NewLedger()
		require.NoError(t, l.Approve(payer, 500))
		require.NoError(t, l.Approve(payer, 100))

		allowance, err := l.Allowance(ctx, payer)
		require.NoError(t, err)
		assert.Equal(t, fees.Amount(100), allowance)
	})
}
