package book

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/schema"
)

const defaultRetryInterval = 250 * time.Millisecond

// SnapshotFetcher fetches a point-in-time depth snapshot for a sequenced
// venue. Implementations own their venue-facing timeout; the bootstrap task
// retries indefinitely on top of it.
type SnapshotFetcher interface {
	FetchDepthSnapshot(ctx context.Context, venue schema.VenueID, symbol schema.SymbolID) (Snapshot, error)
}

// Bootstrapper drives one book from Bootstrapping/Rebuilding to Synced using
// the snapshot+sequenced-increment protocol. It runs on a background
// goroutine and exclusively owns the book until it flips the state to Synced;
// the consumer thread keeps buffering increments the whole time.
type Bootstrapper struct {
	book    *Book
	fetcher SnapshotFetcher
	retry   time.Duration
}

// NewBootstrapper creates a bootstrapper for a book.
func NewBootstrapper(b *Book, fetcher SnapshotFetcher, retry time.Duration) *Bootstrapper {
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	return &Bootstrapper{book: b, fetcher: fetcher, retry: retry}
}

// Run fetches snapshots until one covers the first buffered increment, then
// replays the buffer and flips the book to Synced. It returns only on success
// or a done context.
func (bs *Bootstrapper) Run(ctx context.Context) error {
	b := bs.book
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// the first buffered increment sets the snapshot version floor
		first, ok := b.Buffer().First()
		if !ok {
			bs.sleep(ctx)
			continue
		}

		snap, err := bs.fetcher.FetchDepthSnapshot(ctx, b.Venue(), b.Symbol())
		if err != nil {
			logs.Errorf("depth snapshot fetch venue=%d symbol=%d, err: %+v", b.Venue(), b.Symbol(), err)
			bs.sleep(ctx)
			continue
		}
		if snap.Version < first.First {
			logs.Infof("depth snapshot too old venue=%d symbol=%d snapshot=%d need>=%d",
				b.Venue(), b.Symbol(), snap.Version, first.First)
			bs.sleep(ctx)
			continue
		}

		buffered := b.Buffer().Drain()
		b.ApplySnapshot(snap)

		replayed := 0
		var replayErr error
		for _, inc := range buffered {
			if inc.Final <= snap.Version {
				continue
			}
			if err := b.ApplyIncrement(inc); err != nil {
				replayErr = err
				break
			}
			replayed++
		}
		if replayErr != nil {
			logs.Errorf("depth replay venue=%d symbol=%d, err: %+v", b.Venue(), b.Symbol(), replayErr)
			b.Clear()
			b.SetState(StateBootstrapping)
			bs.sleep(ctx)
			continue
		}

		b.SetState(StateSynced)
		logs.Infof("book synced venue=%d symbol=%d version=%d replayed=%d",
			b.Venue(), b.Symbol(), b.Version(), replayed)
		return nil
	}
}

func (bs *Bootstrapper) sleep(ctx context.Context) {
	t := time.NewTimer(bs.retry)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Supervisor launches at most one bootstrap task per book.
type Supervisor struct {
	fetcher SnapshotFetcher
	retry   time.Duration

	mu      sync.Mutex
	running map[*Book]struct{}
	wg      sync.WaitGroup
}

// NewSupervisor creates a bootstrap supervisor.
func NewSupervisor(fetcher SnapshotFetcher, retry time.Duration) *Supervisor {
	return &Supervisor{
		fetcher: fetcher,
		retry:   retry,
		running: make(map[*Book]struct{}),
	}
}

// Ensure starts a bootstrap task for the book unless one is already running.
// The book must already be in Bootstrapping or Rebuilding.
func (s *Supervisor) Ensure(ctx context.Context, b *Book) {
	s.mu.Lock()
	if _, ok := s.running[b]; ok {
		s.mu.Unlock()
		return
	}
	s.running[b] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, b)
			s.mu.Unlock()
		}()
		if err := NewBootstrapper(b, s.fetcher, s.retry).Run(ctx); err != nil {
			logs.Infof("bootstrap canceled venue=%d symbol=%d: %v", b.Venue(), b.Symbol(), err)
		}
	}()
}

// Wait blocks until every bootstrap task has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
