package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "registrar/pkg/domain-errors"
)

func TestParseAccountID(t *testing.T) {
	t.Run("valid uuid", func(t *testing.T) {
		raw := uuid.NewString()
		acct, err := ParseAccountID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, acct.String())
		assert.False(t, acct.IsNil())
	})

	t.Run("empty string", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("malformed uuid", func(t *testing.T) {
		_, err := ParseAccountID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("nil uuid is rejected", func(t *testing.T) {
		_, err := ParseAccountID(uuid.Nil.String())
		require.Error(t, err)
	})
}

func TestAccountIDJSON(t *testing.T) {
	acct := NewAccountID()

	raw, err := json.Marshal(acct)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+acct.String()+`"`, string(raw))

	var back AccountID
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, acct, back)
}

func TestNilAccount(t *testing.T) {
	assert.True(t, NilAccount.IsNil())
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", NilAccount.String())
}

func FuzzParseAccountID(f *testing.F) {
	f.Add(uuid.NewString())
	f.Add("")
	f.Add("not-a-uuid")
	f.Add(uuid.Nil.String())

	f.Fuzz(func(t *testing.T, raw string) {
		acct, err := ParseAccountID(raw)
		if err != nil {
			if !acct.IsNil() {
				t.Fatalf("error with non-nil id for %q", raw)
			}
			return
		}
		if acct.IsNil() {
			t.Fatalf("nil id accepted for %q", raw)
		}
		// Successful parses round-trip through String.
		again, err := ParseAccountID(acct.String())
		if err != nil {
			t.Fatalf("round trip failed for %q: %v", raw, err)
		}
		if again != acct {
			t.Fatalf("round trip changed value for %q", raw)
		}
	})
}
