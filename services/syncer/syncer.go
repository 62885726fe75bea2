// Package syncer drives the dataset lifecycle: fetch the source feed, parse
// it into reversed-label keys, rewrite the persistent store in batches, and
// rebuild the in-memory structures. It is the only writer to the store and is
// serialized against itself; overlapping requests coalesce into the run in
// flight.
package syncer

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/kvasov/domshield/common/clock"
	"github.com/kvasov/domshield/common/log"
	"github.com/kvasov/domshield/domain"
	"github.com/kvasov/domshield/repos/blockset"
	"github.com/kvasov/domshield/repos/blockset/parsers"
)

// FeedFetcher streams the source document. Implemented by gateways/feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string, progress func(bytes int64)) (io.ReadCloser, error)
}

// Options configures a Syncer. Zero durations and counts take the documented
// defaults.
type Options struct {
	Store   blockset.Store
	Sets    *blockset.Repo
	Fetcher FeedFetcher
	Clock   clock.Clock
	Logger  log.Logger

	FeedURL string

	// BatchSize is the number of keys committed per store transaction.
	// Batching keeps any single transaction bounded. Default 5000.
	BatchSize int
	// RefreshInterval is the staleness threshold that triggers a scheduled
	// sync. Default 6h.
	RefreshInterval time.Duration
	// HardRefreshInterval forces a sync regardless of apparent freshness.
	// Default 7d.
	HardRefreshInterval time.Duration
	// RetryInitial is the first retry delay after a failure; it doubles per
	// consecutive failure up to RetryMax. Defaults 5m and 1h. Backoff state
	// lives in memory only and resets on process restart.
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// Syncer is the dataset sync state machine:
//
//	idle → downloading → parsing → indexing → ready
//
// with retry-wait on any failure inside downloading/parsing/indexing.
type Syncer struct {
	opts Options

	mu       sync.Mutex
	state    domain.SyncState
	inFlight bool
	failures int

	forceCh  chan struct{}
	progress func(domain.ProgressEvent)
}

// New constructs a Syncer and applies defaults.
func New(opts Options) *Syncer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5000
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 6 * time.Hour
	}
	if opts.HardRefreshInterval <= 0 {
		opts.HardRefreshInterval = 7 * 24 * time.Hour
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = 5 * time.Minute
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Syncer{
		opts:    opts,
		state:   domain.SyncIdle,
		forceCh: make(chan struct{}, 1),
	}
}

// State returns the current state machine state.
func (s *Syncer) State() domain.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetProgress registers the progress event sink. Must be called before Run.
func (s *Syncer) SetProgress(fn func(domain.ProgressEvent)) {
	s.progress = fn
}

// ForceRefresh requests a manual sync. If a sync is already in flight the
// request coalesces into it; otherwise the run loop picks it up immediately.
func (s *Syncer) ForceRefresh() {
	select {
	case s.forceCh <- struct{}{}:
	default:
		// a request is already pending; coalesce
	}
}

// Run bootstraps the dataset and then keeps it fresh until the context ends.
// The retry timer honors context cancellation.
func (s *Syncer) Run(ctx context.Context) error {
	if s.bootstrap() {
		if err := s.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.opts.Logger.Warn(map[string]any{"error": err.Error()}, "initial sync failed")
		}
	}

	for {
		wait := s.nextWait()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.forceCh:
			timer.Stop()
		case <-timer.C:
			if !s.due() {
				continue
			}
		}

		if err := s.Sync(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if !errors.Is(err, domain.ErrSyncInFlight) {
				s.opts.Logger.Warn(map[string]any{"error": err.Error()}, "sync failed")
			}
		}
	}
}

// bootstrap implements the cold-start path. It returns true when a full sync
// is required:
//   - no prior successful sync recorded, or
//   - the store's key count disagrees with the recorded meta (partial write),
//     in which case a full downloading pass is forced.
//
// Otherwise it installs structures from the snapshot fast path, or failing
// that, a normal reindex of the store.
func (s *Syncer) bootstrap() (needSync bool) {
	meta, err := s.opts.Store.Meta()
	if err != nil {
		s.opts.Logger.Error(map[string]any{"error": err.Error()}, "bootstrap meta read failed")
		return true
	}
	if meta.IsZero() {
		s.opts.Logger.Info(nil, "no prior dataset, full sync required")
		return true
	}

	count, err := s.opts.Store.Count()
	if err != nil || count != meta.EntryCount {
		s.opts.Logger.Warn(map[string]any{
			"store_count": count,
			"meta_count":  meta.EntryCount,
		}, "store/meta mismatch, forcing full sync")
		return true
	}

	restored, err := s.opts.Sets.RestoreFromSnapshot()
	if err == nil && restored {
		s.setState(domain.SyncReady)
		s.opts.Logger.Info(map[string]any{
			"version": meta.Version,
			"entries": meta.EntryCount,
		}, "restored filter from snapshot")
		return false
	}

	if err := s.opts.Sets.RebuildFromStore(); err != nil {
		s.opts.Logger.Warn(map[string]any{"error": err.Error()}, "bootstrap reindex failed, forcing full sync")
		return true
	}
	s.setState(domain.SyncReady)
	s.opts.Logger.Info(map[string]any{
		"version": meta.Version,
		"entries": meta.EntryCount,
	}, "reindexed dataset from store")
	return false
}

// Sync runs one full pipeline pass. Returns domain.ErrSyncInFlight when
// another pass is already running; the two are never interleaved.
func (s *Syncer) Sync(ctx context.Context) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return domain.ErrSyncInFlight
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	err := s.runPipeline(ctx)
	s.mu.Lock()
	if err != nil {
		s.failures++
		s.state = domain.SyncRetryWait
	} else {
		s.failures = 0
		s.state = domain.SyncReady
	}
	s.mu.Unlock()
	if err == nil {
		s.emit(domain.ProgressEvent{Kind: domain.ProgressState, State: domain.SyncReady})
	}
	return err
}

func (s *Syncer) runPipeline(ctx context.Context) error {
	s.setState(domain.SyncDownloading)

	body, err := s.opts.Fetcher.Fetch(ctx, s.opts.FeedURL, func(bytes int64) {
		s.emit(domain.ProgressEvent{Kind: domain.ProgressDownload, State: domain.SyncDownloading, Bytes: bytes})
	})
	if err != nil {
		return err
	}
	defer body.Close()

	// The body streams through the parser; a mid-stream failure discards the
	// whole parse, nothing has been committed yet.
	s.setState(domain.SyncParsing)
	keys := make([]string, 0, 1<<17)
	count, err := parsers.ParseFeed(body, s.opts.Logger, func(key string) {
		keys = append(keys, key)
	})
	if err != nil {
		return err
	}

	s.setState(domain.SyncIndexing)
	if err := s.index(ctx, keys, count); err != nil {
		if errors.Is(err, domain.ErrStorage) {
			s.recoverStorage()
		}
		return err
	}

	if err := s.opts.Sets.RebuildFromStore(); err != nil {
		if errors.Is(err, domain.ErrStorage) {
			s.recoverStorage()
		}
		return err
	}

	meta := s.opts.Sets.Meta()
	s.opts.Logger.Info(map[string]any{
		"version": meta.Version,
		"entries": meta.EntryCount,
	}, "dataset sync complete")
	return nil
}

// index rewrites the store: clear, then fixed-size batches with a progress
// event per committed batch, then the meta record with an incremented version.
func (s *Syncer) index(ctx context.Context, keys []string, count uint64) error {
	prev, err := s.opts.Store.Meta()
	if err != nil {
		return err
	}
	if err := s.opts.Store.Clear(); err != nil {
		return err
	}

	batch := s.opts.BatchSize
	var done uint64
	for start := 0; start < len(keys); start += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batch
		if end > len(keys) {
			end = len(keys)
		}
		if err := s.opts.Store.PutBatch(keys[start:end]); err != nil {
			return err
		}
		done += uint64(end - start)
		s.emit(domain.ProgressEvent{Kind: domain.ProgressIndex, State: domain.SyncIndexing, Keys: done, Total: count})
	}

	return s.opts.Store.SetMeta(domain.ListMeta{
		EntryCount:     count,
		LastUpdateUnix: s.opts.Clock.Now().Unix(),
		Version:        prev.Version + 1,
	})
}

// recoverStorage is the destructive recovery path for a failed store
// transaction: drop whatever partial state exists so the next attempt is a
// clean full sync. This is the only path that can leave the engine with zero
// entries.
func (s *Syncer) recoverStorage() {
	s.opts.Logger.Error(nil, "storage failure, clearing store for full resync")
	if err := s.opts.Store.Clear(); err != nil {
		s.opts.Logger.Error(map[string]any{"error": err.Error()}, "recovery clear failed")
	}
	if err := s.opts.Store.SetMeta(domain.ListMeta{}); err != nil {
		s.opts.Logger.Error(map[string]any{"error": err.Error()}, "recovery meta reset failed")
	}
	s.ForceRefresh()
}

// due reports whether a scheduled sync should run now: never synced, stale
// past the refresh threshold, or past the hard ceiling.
func (s *Syncer) due() bool {
	meta := s.opts.Sets.Meta()
	if meta.IsZero() {
		return true
	}
	age := s.opts.Clock.Now().Sub(time.Unix(meta.LastUpdateUnix, 0))
	return age > s.opts.RefreshInterval || age > s.opts.HardRefreshInterval
}

// nextWait computes how long to sleep before the next scheduled check. After
// a failure this is the exponential backoff delay.
func (s *Syncer) nextWait() time.Duration {
	s.mu.Lock()
	failures := s.failures
	s.mu.Unlock()

	if failures > 0 {
		return s.backoff(failures)
	}

	meta := s.opts.Sets.Meta()
	if meta.IsZero() {
		return s.opts.RetryInitial
	}
	next := time.Unix(meta.LastUpdateUnix, 0).Add(s.opts.RefreshInterval)
	wait := next.Sub(s.opts.Clock.Now())
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

// backoff doubles the initial delay per consecutive failure, capped at the
// ceiling.
func (s *Syncer) backoff(failures int) time.Duration {
	d := s.opts.RetryInitial
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= s.opts.RetryMax {
			return s.opts.RetryMax
		}
	}
	if d > s.opts.RetryMax {
		d = s.opts.RetryMax
	}
	return d
}

func (s *Syncer) setState(st domain.SyncState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.emit(domain.ProgressEvent{Kind: domain.ProgressState, State: st})
}

func (s *Syncer) emit(ev domain.ProgressEvent) {
	if s.progress != nil {
		s.progress(ev)
	}
}
