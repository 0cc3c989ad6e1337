package position

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"

	"main/internal/schema"
)

// Snapshot captures the balance ledger at a point in time.
type Snapshot struct {
	Timestamp   int64          `json:"timestamp"`
	LastSeq     uint64         `json:"lastSeq"`
	LastEventTs int64          `json:"lastEventTs"`
	Balances    []BalanceEntry `json:"balances"`
}

// BalanceEntry is a single (account, asset) balance entry.
type BalanceEntry struct {
	AccountID schema.AccountID `json:"accountId"`
	AssetID   schema.AssetID   `json:"assetId"`
	Free      schema.Amount    `json:"free"`
	Locked    schema.Amount    `json:"locked"`
}

// Snapshot builds a snapshot from current balances.
func (l *Ledger) Snapshot() Snapshot {
	return l.SnapshotWithMeta(0, 0)
}

// SnapshotWithMeta builds a snapshot with event metadata.
func (l *Ledger) SnapshotWithMeta(lastSeq uint64, lastEventTs int64) Snapshot {
	l.mu.Lock()
	entries := make([]BalanceEntry, 0, len(l.balances))
	for key, b := range l.balances {
		entries = append(entries, BalanceEntry{
			AccountID: key.account,
			AssetID:   key.asset,
			Free:      b.Free,
			Locked:    b.Locked,
		})
	}
	l.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AccountID != entries[j].AccountID {
			return entries[i].AccountID < entries[j].AccountID
		}
		return entries[i].AssetID < entries[j].AssetID
	})
	return Snapshot{
		Timestamp:   time.Now().UTC().UnixNano(),
		LastSeq:     lastSeq,
		LastEventTs: lastEventTs,
		Balances:    entries,
	}
}

// ApplySnapshot replaces the ledger contents with a snapshot.
func (l *Ledger) ApplySnapshot(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.balances {
		delete(l.balances, key)
	}
	for _, entry := range snap.Balances {
		key := balanceKey{account: entry.AccountID, asset: entry.AssetID}
		l.balances[key] = Balance{Free: entry.Free, Locked: entry.Locked}
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snap Snapshot) error {
	data, err := sonic.ConfigStd.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := sonic.ConfigStd.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// CompareSnapshots checks if two snapshots hold the same balances.
func CompareSnapshots(expected, actual Snapshot) error {
	if len(expected.Balances) != len(actual.Balances) {
		return fmt.Errorf("snapshot length mismatch: expected=%d actual=%d", len(expected.Balances), len(actual.Balances))
	}
	expectedMap := make(map[balanceKey]Balance, len(expected.Balances))
	for _, entry := range expected.Balances {
		expectedMap[balanceKey{account: entry.AccountID, asset: entry.AssetID}] = Balance{Free: entry.Free, Locked: entry.Locked}
	}
	for _, entry := range actual.Balances {
		key := balanceKey{account: entry.AccountID, asset: entry.AssetID}
		want, ok := expectedMap[key]
		if !ok {
			return fmt.Errorf("snapshot missing pair: account=%d asset=%d", entry.AccountID, entry.AssetID)
		}
		if want.Free != entry.Free || want.Locked != entry.Locked {
			return fmt.Errorf("snapshot balance mismatch: account=%d asset=%d expected=%+v actual={Free:%d Locked:%d}",
				entry.AccountID, entry.AssetID, want, entry.Free, entry.Locked)
		}
	}
	return nil
}
