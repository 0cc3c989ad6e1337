package position

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
	"main/pkg/exception"
)

const (
	acct  schema.AccountID = 1
	asset schema.AssetID   = 1
)

func e8(v int64) schema.Amount { return schema.Amount(v * schema.E8) }

func TestReserveReleaseSettle(t *testing.T) {
	l := NewLedger()
	l.ApplyBalanceSnapshot(acct, balanceBatch(asset, e8(100), 0))

	require.NoError(t, l.Reserve(acct, asset, e8(40)))
	assert.Equal(t, Balance{Free: e8(60), Locked: e8(40)}, l.Balance(acct, asset))

	// insufficient free fails without mutation
	assert.ErrorIs(t, l.Reserve(acct, asset, e8(61)), exception.ErrInsufficientBalance)
	assert.Equal(t, Balance{Free: e8(60), Locked: e8(40)}, l.Balance(acct, asset))

	require.NoError(t, l.Release(acct, asset, e8(10)))
	assert.Equal(t, Balance{Free: e8(70), Locked: e8(30)}, l.Balance(acct, asset))

	// releasing more than locked never drives locked negative
	assert.ErrorIs(t, l.Release(acct, asset, e8(31)), exception.ErrLockedUnderflow)
	assert.Equal(t, Balance{Free: e8(70), Locked: e8(30)}, l.Balance(acct, asset))

	require.NoError(t, l.SettleFill(acct, asset, e8(30), schema.TransferDebit))
	assert.Equal(t, Balance{Free: e8(70), Locked: 0}, l.Balance(acct, asset))

	require.NoError(t, l.SettleFill(acct, asset, e8(5), schema.TransferCredit))
	assert.Equal(t, Balance{Free: e8(75), Locked: 0}, l.Balance(acct, asset))

	assert.ErrorIs(t, l.Reserve(acct, asset, e8(-1)), exception.ErrNegativeAmount)
}

func TestSettleDebitSpillsIntoFree(t *testing.T) {
	l := NewLedger()
	l.ApplyBalanceSnapshot(acct, balanceBatch(asset, e8(10), e8(5)))

	require.NoError(t, l.SettleFill(acct, asset, e8(8), schema.TransferDebit))
	assert.Equal(t, Balance{Free: e8(7), Locked: 0}, l.Balance(acct, asset))

	assert.ErrorIs(t, l.SettleFill(acct, asset, e8(8), schema.TransferDebit), exception.ErrInsufficientBalance)
	assert.Equal(t, Balance{Free: e8(7), Locked: 0}, l.Balance(acct, asset))
}

func TestApplyTransfer(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.ApplyTransfer(acct, asset, e8(20), schema.TransferCredit))
	require.NoError(t, l.ApplyTransfer(acct, asset, e8(5), schema.TransferDebit))
	assert.Equal(t, Balance{Free: e8(15), Locked: 0}, l.Balance(acct, asset))

	assert.ErrorIs(t, l.ApplyTransfer(acct, asset, e8(16), schema.TransferDebit), exception.ErrInsufficientBalance)
	assert.ErrorIs(t, l.ApplyTransfer(acct, asset, e8(1), schema.TransferUnknown), exception.ErrInvalidArgument)
}

// Conservation: free+locked only moves by net external credits/debits, and
// neither side ever goes negative.
func TestBalanceConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := NewLedger()
	l.ApplyBalanceSnapshot(acct, balanceBatch(asset, e8(1000), 0))

	var external schema.Amount
	for i := 0; i < 5000; i++ {
		amount := schema.Amount(rng.Int63n(int64(e8(50))))
		switch rng.Intn(4) {
		case 0:
			_ = l.Reserve(acct, asset, amount)
		case 1:
			_ = l.Release(acct, asset, amount)
		case 2:
			if l.SettleFill(acct, asset, amount, schema.TransferDebit) == nil {
				external -= amount
			}
		case 3:
			if l.SettleFill(acct, asset, amount, schema.TransferCredit) == nil {
				external += amount
			}
		}

		b := l.Balance(acct, asset)
		require.GreaterOrEqual(t, b.Free, schema.Amount(0), "iteration %d", i)
		require.GreaterOrEqual(t, b.Locked, schema.Amount(0), "iteration %d", i)
		require.Equal(t, e8(1000)+external, b.Total(), "iteration %d", i)
	}
}

func TestSelectAccountDeterministic(t *testing.T) {
	l := NewLedger()
	l.ApplyBalanceSnapshot(1, balanceBatch(asset, e8(5), 0))
	l.ApplyBalanceSnapshot(2, balanceBatch(asset, e8(20), 0))
	l.ApplyBalanceSnapshot(3, balanceBatch(asset, e8(20), 0))

	// first sufficient candidate in caller order, not the largest
	got, ok := l.SelectAccount([]schema.AccountID{1, 2, 3}, asset, e8(10))
	require.True(t, ok)
	assert.Equal(t, schema.AccountID(2), got)

	got, ok = l.SelectAccount([]schema.AccountID{3, 2}, asset, e8(10))
	require.True(t, ok)
	assert.Equal(t, schema.AccountID(3), got)

	_, ok = l.SelectAccount([]schema.AccountID{1, 2, 3}, asset, e8(100))
	assert.False(t, ok)
}

func TestSnapshotRoundTrip(t *testing.T) {
	l := NewLedger()
	l.ApplyBalanceSnapshot(1, balanceBatch(asset, e8(10), e8(1)))
	l.ApplyBalanceSnapshot(2, balanceBatch(asset, e8(20), 0))

	snap := l.SnapshotWithMeta(42, 1700000000)
	require.Len(t, snap.Balances, 2)
	assert.Equal(t, uint64(42), snap.LastSeq)

	path := filepath.Join(t.TempDir(), "balances.json")
	require.NoError(t, WriteSnapshot(path, snap))
	loaded, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.NoError(t, CompareSnapshots(snap, loaded))

	restored := NewLedger()
	restored.ApplySnapshot(loaded)
	assert.Equal(t, Balance{Free: e8(10), Locked: e8(1)}, restored.Balance(1, asset))
	assert.Equal(t, Balance{Free: e8(20), Locked: 0}, restored.Balance(2, asset))
}

func balanceBatch(id schema.AssetID, free, locked schema.Amount) *schema.BalanceBatch {
	var batch schema.BalanceBatch
	batch.Asset[0] = id
	batch.Free[0] = free
	batch.Locked[0] = locked
	batch.Count = 1
	return &batch
}
