// Package domshield is a client-side domain-reputation filter: it answers, in
// sub-millisecond time, whether a hostname belongs to a large periodically
// refreshed blocklist of phishing/malware domains, honoring a built-in + user
// whitelist and short-lived allow-once overrides.
//
// The engine is an embedded library: the host wires New, calls Start to keep
// the dataset fresh, and routes navigation/link checks through IsBlocked or
// CheckMany.
package domshield

import (
	"context"
	"fmt"
	"time"

	"github.com/kvasov/domshield/common/clock"
	"github.com/kvasov/domshield/common/log"
	"github.com/kvasov/domshield/config"
	"github.com/kvasov/domshield/domain"
	"github.com/kvasov/domshield/gateways/feed"
	"github.com/kvasov/domshield/repos/blockset"
	"github.com/kvasov/domshield/repos/blockset/approx"
	boltstore "github.com/kvasov/domshield/repos/blockset/bolt"
	"github.com/kvasov/domshield/repos/blockset/exact"
	"github.com/kvasov/domshield/repos/verdictcache"
	"github.com/kvasov/domshield/services/policy"
	"github.com/kvasov/domshield/services/syncer"
)

// Engine glues the persistent store, the membership structures, the sync
// state machine and the decision policy together behind the public surface.
type Engine struct {
	store  blockset.Store
	sets   *blockset.Repo
	policy *policy.Policy
	syncer *syncer.Syncer

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an Engine from configuration. The dataset is not touched until
// Start (or RefreshNow) is called.
func New(cfg *config.AppConfig, opts ...Option) (*Engine, error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("configure logging: %w", err)
		}
		b.logger = log.GetLogger()
	}
	if b.clk == nil {
		b.clk = clock.RealClock{}
	}
	if b.fetcher == nil {
		b.fetcher = feed.NewFetcher(feed.WithUserAgent("domshield/1"))
	}

	store, err := boltstore.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	sets := blockset.NewRepo(store, approx.NewFactory(), func() blockset.ExactIndex {
		return exact.New()
	}, cfg.FPRate, b.logger)

	sm := syncer.New(syncer.Options{
		Store:               store,
		Sets:                sets,
		Fetcher:             b.fetcher,
		Clock:               b.clk,
		Logger:              b.logger,
		FeedURL:             cfg.FeedURL,
		BatchSize:           int(cfg.BatchSize),
		RefreshInterval:     time.Duration(cfg.RefreshMinutes) * time.Minute,
		HardRefreshInterval: time.Duration(cfg.HardRefreshMinutes) * time.Minute,
		RetryInitial:        time.Duration(cfg.RetryInitialSeconds) * time.Second,
		RetryMax:            time.Duration(cfg.RetryMaxSeconds) * time.Second,
	})
	if b.progress != nil {
		sm.SetProgress(b.progress)
	}

	pol := policy.New(policy.Options{
		Sets:      sets,
		Cache:     verdictcache.New(int(cfg.CacheSize)),
		Store:     store,
		Clock:     b.clk,
		Logger:    b.logger,
		SyncState: sm.State,
	})
	sets.SetOnInstall(pol.DatasetInstalled)

	return &Engine{
		store:  store,
		sets:   sets,
		policy: pol,
		syncer: sm,
	}, nil
}

// Start launches the background sync loop: cold-start restore, an initial
// full sync when required, then scheduled refreshes. Safe to call once.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go func() {
		defer close(e.done)
		_ = e.syncer.Run(ctx)
	}()
}

// Close stops the background loop and releases the store.
func (e *Engine) Close() error {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
	return e.store.Close()
}

// IsBlocked decides whether the hostname should be blocked.
func (e *Engine) IsBlocked(hostname string) bool {
	return e.policy.IsBlocked(hostname)
}

// CheckMany returns the subset of hostnames that are blocked.
func (e *Engine) CheckMany(hostnames []string) []string {
	return e.policy.CheckMany(hostnames)
}

// AllowOnce grants a 5-minute override for the exact hostname.
func (e *Engine) AllowOnce(hostname string) {
	e.policy.AllowOnce(hostname)
}

// AddToWhitelist adds a domain to the user whitelist.
func (e *Engine) AddToWhitelist(name string) error {
	return e.policy.AddToWhitelist(name)
}

// RemoveFromWhitelist removes a domain from the user whitelist.
func (e *Engine) RemoveFromWhitelist(name string) error {
	return e.policy.RemoveFromWhitelist(name)
}

// SetWhitelist replaces the entire user whitelist.
func (e *Engine) SetWhitelist(domains []string) error {
	return e.policy.SetWhitelist(domains)
}

// UserWhitelist returns the user-added whitelist domains, sorted.
func (e *Engine) UserWhitelist() []string {
	return e.policy.UserWhitelist()
}

// ForceRefresh requests an immediate dataset sync; it coalesces with any
// sync already in flight.
func (e *Engine) ForceRefresh() {
	e.syncer.ForceRefresh()
}

// RefreshNow runs one synchronous sync pass. Mostly useful for hosts that
// manage their own scheduling.
func (e *Engine) RefreshNow(ctx context.Context) error {
	return e.syncer.Sync(ctx)
}

// Stats returns the telemetry snapshot.
func (e *Engine) Stats() domain.Stats {
	return e.policy.Stats()
}

// SyncState returns the dataset sync state machine's current state.
func (e *Engine) SyncState() domain.SyncState {
	return e.syncer.State()
}

// Subscribe registers a change listener; the returned func unsubscribes.
func (e *Engine) Subscribe(fn func(domain.ChangeEvent)) func() {
	return e.policy.Subscribe(fn)
}

// ChangeVersion returns the monotonic verdict-affecting change counter.
func (e *Engine) ChangeVersion() uint64 {
	return e.policy.ChangeVersion()
}
