/*
Package credits provides a decimal-quantity inventory for account-style
balances.

PURPOSE:
  Demonstrates the generic engine beyond whole-number item stacks. The
  same serialized pipeline manages fractional balances:
  - In-game currency wallets (gold 12.5)
  - Crafting reagents measured by weight
  - Prepaid service credit pools

KEY DIFFERENCES FROM ITEMS:
  1. Quantities are decimals (shopspring/decimal), not int64
  2. No overflow clamp needed - decimals grow arbitrarily
  3. "Empty" means <= 0 exactly as for counts, so drained wallets are
     pruned from the map the same way
  4. JSON form is the decimal's own encoding, so save documents stay
     human-readable

EXAMPLE:
  ledger := credits.New()
  defer ledger.Close()
  ok, _ := ledger.Credit(ctx, "alice", credits.FromFloat(12.5))
  ok, _ = ledger.Debit(ctx, "alice", credits.FromFloat(20)) // false, short

SEE ALSO:
  - items/: Integer-count counterpart
  - generic/: The engine both wrap
*/
package credits

import (
	"github.com/shopspring/decimal"
	"github.com/warp/inventory-engine/generic"
)

// =============================================================================
// ACCOUNT AND BALANCE
// =============================================================================

// Account identifies a balance holder. Opaque to the engine.
type Account string

// Balance is a decimal quantity. The zero value is a zero balance.
type Balance struct {
	value decimal.Decimal
}

// FromFloat builds a balance from a float amount.
func FromFloat(f float64) Balance {
	return Balance{value: decimal.NewFromFloat(f)}
}

// FromDecimal builds a balance from an exact decimal.
func FromDecimal(d decimal.Decimal) Balance {
	return Balance{value: d}
}

// Decimal returns the underlying exact value.
func (b Balance) Decimal() decimal.Decimal { return b.value }

func (b Balance) String() string { return b.value.String() }

// Add returns the balance after applying the signed delta.
func (b Balance) Add(delta Balance) Balance {
	return Balance{value: b.value.Add(delta.value)}
}

// Check reports whether applying the delta keeps the balance non-negative.
func (b Balance) Check(delta Balance) bool {
	return !b.value.Add(delta.value).IsNegative()
}

// IsEmpty reports whether the balance is zero or below; such entries are
// pruned from the map.
func (b Balance) IsEmpty() bool {
	return !b.value.IsPositive()
}

// MarshalJSON encodes the balance as the decimal itself, keeping save
// documents free of wrapper structure.
func (b Balance) MarshalJSON() ([]byte, error) {
	return b.value.MarshalJSON()
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	return b.value.UnmarshalJSON(data)
}

// Compile-time check against the engine's value contract.
var _ generic.Value[Balance] = Balance{}
