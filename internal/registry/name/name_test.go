package name

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "registrar/pkg/domain-errors"
)

func TestCanonicalize(t *testing.T) {
	t.Run("lower-cases ASCII letters only", func(t *testing.T) {
		assert.Equal(t, "example", Canonicalize("ExAmPlE"))
		assert.Equal(t, "abc-123", Canonicalize("ABC-123"))
	})

	t.Run("leaves non-ASCII bytes unchanged", func(t *testing.T) {
		assert.Equal(t, "café", Canonicalize("café"))
		// Multi-byte sequences whose continuation bytes overlap ASCII letter
		// values must not be touched.
		raw := "\xc3\x89name" // É followed by ascii
		assert.Equal(t, "\xc3\x89name", Canonicalize(raw))
	})

	t.Run("is idempotent", func(t *testing.T) {
		inputs := []string{"Example", "café", "MiXeD-42", "\xe4\xb8\xad"}
		for _, in := range inputs {
			once := Canonicalize(in)
			assert.Equal(t, once, Canonicalize(once), "input %q", in)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts well-formed ASCII names", func(t *testing.T) {
		for _, s := range []string{"a", "abc", "a-b-c", "0123456789", strings.Repeat("x", 63)} {
			assert.NoError(t, Validate(s), "name %q", s)
		}
	})

	t.Run("accepts multi-byte sequences with correct continuations", func(t *testing.T) {
		cases := []string{
			"\xc3\xa9",             // 2-byte
			"\xe4\xb8\xad",         // 3-byte
			"\xf0\x9f\x98\x80",     // 4-byte
			"a\xc3\xa9b",           // mixed
			"\xe4\xb8\xad\xc3\xa9", // back to back
		}
		for _, s := range cases {
			assert.NoError(t, Validate(s), "name %q", s)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		err := Validate("")
		require.ErrorIs(t, err, ErrNameTooShort)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects names over 63 bytes", func(t *testing.T) {
		err := Validate(strings.Repeat("x", 64))
		require.ErrorIs(t, err, ErrNameTooLong)
	})

	t.Run("length bound counts bytes not characters", func(t *testing.T) {
		// 32 two-byte sequences are 64 bytes and must be rejected even though
		// only 32 characters are visible.
		err := Validate(strings.Repeat("\xc3\xa9", 32))
		require.ErrorIs(t, err, ErrNameTooLong)
	})

	t.Run("rejects disallowed ASCII bytes", func(t *testing.T) {
		for _, s := range []string{"a_b", "a.b", "a b", "a!", "a/b"} {
			err := Validate(s)
			require.ErrorIs(t, err, ErrInvalidCharacter, "name %q", s)
		}
	})

	t.Run("rejects continuation byte at position zero", func(t *testing.T) {
		err := Validate("\x80abc")
		require.ErrorIs(t, err, ErrInvalidCharacter)
	})

	t.Run("rejects continuation byte after plain ASCII", func(t *testing.T) {
		err := Validate("a\x80b")
		require.ErrorIs(t, err, ErrInvalidCharacter)
	})

	t.Run("shallow check accepts malformed sequence lengths", func(t *testing.T) {
		// A lone lead byte and an overlong run of continuations slip through
		// the single-byte lookback on purpose.
		assert.NoError(t, Validate("\xc3"))
		assert.NoError(t, Validate("\xc3\xa9\xa9\xa9"))
	})
}

func TestIsWellFormed(t *testing.T) {
	assert.True(t, IsWellFormed("valid-name"))
	assert.False(t, IsWellFormed(""))
	assert.False(t, IsWellFormed("bad name"))
}

func TestCountEffectiveChars(t *testing.T) {
	t.Run("ASCII string counts its byte length", func(t *testing.T) {
		assert.Equal(t, 7, CountEffectiveChars("example"))
		assert.Equal(t, 3, CountEffectiveChars("a-1"))
	})

	t.Run("multi-byte sequences count one per lead byte", func(t *testing.T) {
		assert.Equal(t, 1, CountEffectiveChars("\xc3\xa9"))
		assert.Equal(t, 1, CountEffectiveChars("\xe4\xb8\xad"))
		assert.Equal(t, 1, CountEffectiveChars("\xf0\x9f\x98\x80"))
		assert.Equal(t, 3, CountEffectiveChars("\xc3\xa9\xe4\xb8\xad\xf0\x9f\x98\x80"))
	})

	t.Run("mixed content sums ASCII and lead bytes", func(t *testing.T) {
		assert.Equal(t, 3, CountEffectiveChars("a\xc3\xa9b"))
	})

	t.Run("empty string counts zero", func(t *testing.T) {
		assert.Equal(t, 0, CountEffectiveChars(""))
	})
}
