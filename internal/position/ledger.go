package position

import (
	"sync"

	"main/internal/schema"
	"main/pkg/exception"
)

// Balance is the free/locked pair for one (account, asset).
type Balance struct {
	Free   schema.Amount
	Locked schema.Amount
}

// Total returns free plus locked.
func (b Balance) Total() schema.Amount { return b.Free + b.Locked }

type balanceKey struct {
	account schema.AccountID
	asset   schema.AssetID
}

// Ledger tracks free and locked balances per (account, asset). Mutations on
// the same pair never interleave partially: every operation validates and
// commits under one lock, so a failed call leaves the pair untouched.
//
// Steady-state mutation happens on the dispatcher thread; the lock exists for
// strategy code reading balances from other goroutines.
type Ledger struct {
	mu       sync.Mutex
	balances map[balanceKey]Balance
}

// NewLedger creates an empty balance ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[balanceKey]Balance)}
}

// Balance returns the current pair for an account and asset. Unknown pairs
// are zero.
func (l *Ledger) Balance(account schema.AccountID, asset schema.AssetID) Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{account: account, asset: asset}]
}

// Reserve moves amount from free to locked. Insufficient free balance fails
// without mutation.
func (l *Ledger) Reserve(account schema.AccountID, asset schema.AssetID, amount schema.Amount) error {
	if amount < 0 {
		return exception.ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{account: account, asset: asset}
	b := l.balances[key]
	if b.Free < amount {
		return exception.ErrInsufficientBalance
	}
	b.Free -= amount
	b.Locked += amount
	l.balances[key] = b
	return nil
}

// Release reverses a reservation, moving amount from locked back to free. It
// never drives locked negative.
func (l *Ledger) Release(account schema.AccountID, asset schema.AssetID, amount schema.Amount) error {
	if amount < 0 {
		return exception.ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{account: account, asset: asset}
	b := l.balances[key]
	if b.Locked < amount {
		return exception.ErrLockedUnderflow
	}
	b.Locked -= amount
	b.Free += amount
	l.balances[key] = b
	return nil
}

// SettleFill applies a confirmed fill. A credit adds the received amount to
// free; a debit consumes the reserved amount from locked, spilling into free
// when the venue settles more than was locked.
func (l *Ledger) SettleFill(account schema.AccountID, asset schema.AssetID, amount schema.Amount, direction schema.TransferDirection) error {
	if amount < 0 {
		return exception.ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{account: account, asset: asset}
	b := l.balances[key]
	switch direction {
	case schema.TransferCredit:
		b.Free += amount
	case schema.TransferDebit:
		if b.Total() < amount {
			return exception.ErrInsufficientBalance
		}
		if b.Locked >= amount {
			b.Locked -= amount
		} else {
			b.Free -= amount - b.Locked
			b.Locked = 0
		}
	default:
		return exception.ErrInvalidArgument
	}
	l.balances[key] = b
	return nil
}

// ApplyBalanceSnapshot overwrites the listed assets of one account with the
// venue's authoritative free/locked values.
func (l *Ledger) ApplyBalanceSnapshot(account schema.AccountID, batch *schema.BalanceBatch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 0; i < batch.Count && i < schema.BalanceBatchCapacity; i++ {
		key := balanceKey{account: account, asset: batch.Asset[i]}
		l.balances[key] = Balance{Free: batch.Free[i], Locked: batch.Locked[i]}
	}
}

// ApplyTransfer delta-adjusts an account's free balance from a confirmed
// transfer. A debit below zero fails without mutation.
func (l *Ledger) ApplyTransfer(account schema.AccountID, asset schema.AssetID, amount schema.Amount, direction schema.TransferDirection) error {
	if amount < 0 {
		return exception.ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{account: account, asset: asset}
	b := l.balances[key]
	switch direction {
	case schema.TransferCredit:
		b.Free += amount
	case schema.TransferDebit:
		if b.Free < amount {
			return exception.ErrInsufficientBalance
		}
		b.Free -= amount
	default:
		return exception.ErrInvalidArgument
	}
	l.balances[key] = b
	return nil
}

// SelectAccount scans candidates in the caller's order and returns the first
// whose free balance covers the requirement. The order is the routing policy;
// no reordering happens here.
func (l *Ledger) SelectAccount(candidates []schema.AccountID, asset schema.AssetID, required schema.Amount) (schema.AccountID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, account := range candidates {
		if l.balances[balanceKey{account: account, asset: asset}].Free >= required {
			return account, true
		}
	}
	return 0, false
}
