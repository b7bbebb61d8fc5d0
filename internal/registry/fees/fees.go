// Package fees prices registrations by effective character count and duration.
package fees

import (
	"sync"

	"registrar/internal/registry/name"
	dErrors "registrar/pkg/domain-errors"
)

// Amount is a fee in USDC base units. Fee arithmetic never silently wraps:
// an overflowing total is a hard failure.
type Amount int64

// Duration bounds for a single registration or renewal, in years.
const (
	MinYears = 1
	MaxYears = 60
)

var (
	ErrInvalidDuration = dErrors.New(dErrors.CodeValidation, "duration must be between 1 and 60 years")
	ErrFeeOverflow     = dErrors.New(dErrors.CodeOverflow, "fee computation overflows")
	ErrNegativeFee     = dErrors.New(dErrors.CodeValidation, "fee must not be negative")
)

// Bucket is an effective-character-count pricing tier. The table prices
// counts 1, 3 and 4 explicitly; every other count (0, 2, and 5 or more)
// falls through to BucketDefault. The missing entry for 2 mirrors the
// original pricing table and is kept intact: changing it would be a product
// decision, not a porting one.
type Bucket int

const (
	BucketOne     Bucket = 1
	BucketThree   Bucket = 3
	BucketFour    Bucket = 4
	BucketDefault Bucket = 0
)

// IsValid reports whether b names a configurable tier.
func (b Bucket) IsValid() bool {
	switch b {
	case BucketOne, BucketThree, BucketFour, BucketDefault:
		return true
	}
	return false
}

// Label names a bucket for status output.
func (b Bucket) Label() string {
	switch b {
	case BucketOne:
		return "1"
	case BucketThree:
		return "3"
	case BucketFour:
		return "4"
	}
	return "default"
}

// BucketFor maps an effective character count onto its pricing tier.
func BucketFor(count int) Bucket {
	switch count {
	case 1:
		return BucketOne
	case 3:
		return BucketThree
	case 4:
		return BucketFour
	}
	return BucketDefault
}

// Table is the admin-mutable mapping from bucket to per-year price.
// Reads are safe concurrently with admin updates.
type Table struct {
	mu     sync.RWMutex
	prices map[Bucket]Amount
}

// Default per-year prices, in USDC base units.
const (
	DefaultPriceOne     Amount = 500
	DefaultPriceThree   Amount = 250
	DefaultPriceFour    Amount = 100
	DefaultPriceDefault Amount = 50
)

// NewTable builds a table with the default prices.
func NewTable() *Table {
	return &Table{
		prices: map[Bucket]Amount{
			BucketOne:     DefaultPriceOne,
			BucketThree:   DefaultPriceThree,
			BucketFour:    DefaultPriceFour,
			BucketDefault: DefaultPriceDefault,
		},
	}
}

// Price returns the per-year price for a bucket.
func (t *Table) Price(b Bucket) Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.prices[b]; ok {
		return p
	}
	return t.prices[BucketDefault]
}

// SetPrice updates the per-year price for a bucket.
func (t *Table) SetPrice(b Bucket, price Amount) error {
	if !b.IsValid() {
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown fee bucket %d", b)
	}
	if price < 0 {
		return ErrNegativeFee
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prices[b] = price
	return nil
}

// Snapshot returns a copy of the current prices for status endpoints.
func (t *Table) Snapshot() map[Bucket]Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[Bucket]Amount, len(t.prices))
	for b, p := range t.prices {
		out[b] = p
	}
	return out
}

// BaseFee returns the per-year fee for a canonical name.
func BaseFee(t *Table, canonical string) Amount {
	return t.Price(BucketFor(name.CountEffectiveChars(canonical)))
}

// ValidateYears bounds-checks a duration.
func ValidateYears(years int) error {
	if years < MinYears || years > MaxYears {
		return ErrInvalidDuration
	}
	return nil
}

// TotalFee computes baseFee*years with an explicit wraparound check.
// The multiplication is re-derived by division: if total/base != years the
// fixed-width product wrapped and the operation fails rather than clamps.
func TotalFee(t *Table, canonical string, years int) (Amount, error) {
	if err := ValidateYears(years); err != nil {
		return 0, err
	}
	base := BaseFee(t, canonical)
	if base == 0 {
		return 0, nil
	}
	total := base * Amount(years)
	if total/base != Amount(years) {
		return 0, ErrFeeOverflow
	}
	return total, nil
}

// CheckedAdd sums two amounts, failing on signed overflow. Used by the batch
// path where per-entry totals are accumulated before a single charge.
func CheckedAdd(a, b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrFeeOverflow
	}
	return sum, nil
}
