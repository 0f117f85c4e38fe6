/*
ledger.go - The engine specialized to decimal account balances

SEE ALSO:
  - types.go: Account / Balance
  - items/inventory.go: The same wrapper shape for integer counts
*/
package credits

import (
	"context"

	"github.com/warp/inventory-engine/generic"
)

// Ledger is a balance ledger backed by the generic engine. Construct with
// New, release with Close.
type Ledger struct {
	*generic.Engine[Account, Balance]
}

// New creates a ledger and starts its processor.
func New(opts ...generic.Option[Account, Balance]) *Ledger {
	return &Ledger{Engine: generic.New(opts...)}
}

// Credit adds amount to the account, awaiting the processor. A positive
// credit always passes its check; it is routed checked so its ordering
// relative to debits is preserved.
func (l *Ledger) Credit(ctx context.Context, acct Account, amount Balance) (bool, error) {
	return l.Apply(ctx, generic.Delta[Account, Balance]{Key: acct, Amount: amount})
}

// Debit removes amount from the account. Returns false, with no effect,
// if the balance is short at processing time.
func (l *Ledger) Debit(ctx context.Context, acct Account, amount Balance) (bool, error) {
	neg := FromDecimal(amount.Decimal().Neg())
	return l.Apply(ctx, generic.Delta[Account, Balance]{Key: acct, Amount: neg})
}

// Transfer debits from and credits to as one atomic batch: if the source
// is short, neither side changes.
func (l *Ledger) Transfer(ctx context.Context, from, to Account, amount Balance) (bool, error) {
	neg := FromDecimal(amount.Decimal().Neg())
	return l.Apply(ctx,
		generic.Delta[Account, Balance]{Key: from, Amount: neg},
		generic.Delta[Account, Balance]{Key: to, Amount: amount},
	)
}

// ForceAdjust applies a signed correction without a balance check. An
// adjustment that drives the balance to zero or below removes the account
// entry.
func (l *Ledger) ForceAdjust(acct Account, amount Balance) error {
	return l.Force(generic.Delta[Account, Balance]{Key: acct, Amount: amount})
}

// BalanceOf returns the current balance, zero if the account is unknown.
func (l *Ledger) BalanceOf(acct Account) Balance {
	b, _ := l.Quantity(acct)
	return b
}
