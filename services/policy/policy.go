// Package policy implements the decision pipeline that turns a hostname into
// a blocked/not-blocked verdict. Evaluation order, short-circuiting at the
// first conclusive answer:
//
//	allow-once override → whitelist → verdict cache → blockset pipeline
//
// The policy owns the bounded verdict cache and purges it in full on any
// whitelist or allow-once mutation; a cached "blocked" could otherwise go
// stale.
package policy

import (
	"errors"
	"sync"
	"time"

	"github.com/kvasov/domshield/common/clock"
	"github.com/kvasov/domshield/common/log"
	"github.com/kvasov/domshield/common/utils"
	"github.com/kvasov/domshield/domain"
	"github.com/kvasov/domshield/repos/blockset"
	"github.com/kvasov/domshield/repos/verdictcache"
)

// AllowOnceTTL is how long an allow-once override stays live. Overrides are
// session-scoped and never persisted.
const AllowOnceTTL = 5 * time.Minute

// Blockset is the read-only membership pipeline the policy consults.
type Blockset interface {
	Lookup(hostname string) (domain.Verdict, error)
	Ready() bool
	Meta() domain.ListMeta
}

// StateStore persists the user whitelist and the running stats record.
type StateStore interface {
	LoadWhitelist() ([]string, error)
	SaveWhitelist(domains []string) error
	LoadStats() (domain.StatsRecord, error)
	SaveStats(rec domain.StatsRecord) error
}

// Policy evaluates verdicts and owns all user-mutable decision state.
type Policy struct {
	sets   Blockset
	cache  verdictcache.Interface
	store  StateStore
	clk    clock.Clock
	logger log.Logger

	// syncState lets the fail policy distinguish "no dataset because a first
	// sync is still indexing" from every other unavailable case.
	syncState func() domain.SyncState

	mu        sync.Mutex
	builtin   map[string]struct{}
	user      map[string]struct{} // nil until loaded from the store
	allowOnce map[string]time.Time

	statsMu sync.Mutex
	stats   domain.StatsRecord
	loaded  bool

	notifier notifier
}

// Options configures a Policy.
type Options struct {
	Sets      Blockset
	Cache     verdictcache.Interface
	Store     StateStore
	Clock     clock.Clock
	Logger    log.Logger
	SyncState func() domain.SyncState
}

// New constructs a Policy.
func New(opts Options) *Policy {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	if opts.SyncState == nil {
		opts.SyncState = func() domain.SyncState { return domain.SyncIdle }
	}
	return &Policy{
		sets:      opts.Sets,
		cache:     opts.Cache,
		store:     opts.Store,
		clk:       opts.Clock,
		logger:    opts.Logger,
		syncState: opts.SyncState,
		builtin:   builtinWhitelist(),
		allowOnce: make(map[string]time.Time),
	}
}

// IsBlocked decides whether the hostname should be blocked.
func (p *Policy) IsBlocked(hostname string) bool {
	v := p.Decide(hostname)
	if v.Blocked {
		p.recordBlocked()
	}
	return v.Blocked
}

// Decide runs the pipeline and returns the full verdict without touching the
// stats counters.
func (p *Policy) Decide(hostname string) domain.Verdict {
	cn := utils.CanonicalHostname(hostname)
	if cn == "" {
		return domain.Allowed(domain.ReasonUnknown)
	}

	if p.allowOnceLive(cn) {
		return domain.Allowed(domain.ReasonAllowOnce)
	}

	if p.whitelisted(cn) {
		v := domain.Allowed(domain.ReasonWhitelist)
		p.cache.Put(cn, v)
		return v
	}

	if v, ok := p.cache.Get(cn); ok {
		v.Reason = domain.ReasonCached
		return v
	}

	v, err := p.sets.Lookup(cn)
	if err != nil {
		if errors.Is(err, blockset.ErrNotReady) {
			return p.unavailableVerdict()
		}
		p.logger.Error(map[string]any{"host": cn, "error": err.Error()}, "lookup failed")
		return domain.Allowed(domain.ReasonUnknown)
	}
	p.cache.Put(cn, v)
	return v
}

// CheckMany returns the subset of hostnames that are blocked.
func (p *Policy) CheckMany(hostnames []string) []string {
	var blocked []string
	for _, h := range hostnames {
		if p.IsBlocked(h) {
			blocked = append(blocked, h)
		}
	}
	return blocked
}

// unavailableVerdict implements the documented fail policy: fail closed only
// while a first sync is inside indexing with no structures yet built; fail
// open otherwise so navigation is never held hostage by a refresh.
func (p *Policy) unavailableVerdict() domain.Verdict {
	if p.syncState() == domain.SyncIndexing {
		return domain.Verdict{Blocked: true, Reason: domain.ReasonUnavailable}
	}
	return domain.Allowed(domain.ReasonUnavailable)
}

// allowOnceLive reports whether a non-expired override exists for the exact
// hostname. Expired entries are purged on the way.
func (p *Policy) allowOnceLive(cn string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	exp, ok := p.allowOnce[cn]
	if !ok {
		return false
	}
	if p.clk.Now().After(exp) {
		delete(p.allowOnce, cn)
		return false
	}
	return true
}

// AllowOnce grants a short-lived override for the exact hostname and purges
// the verdict cache.
func (p *Policy) AllowOnce(hostname string) {
	cn := utils.CanonicalHostname(hostname)
	if cn == "" {
		return
	}
	p.mu.Lock()
	p.allowOnce[cn] = p.clk.Now().Add(AllowOnceTTL)
	p.mu.Unlock()
	p.cache.Purge()
	p.notifier.publish(domain.ChangeAllowOnce)
}

// DatasetInstalled is invoked when a new blocklist generation is swapped in.
// Cached verdicts reference the previous dataset, so the cache is purged.
func (p *Policy) DatasetInstalled(meta domain.ListMeta) {
	p.cache.Purge()
	p.notifier.publish(domain.ChangeDataset)
	p.logger.Debug(map[string]any{"version": meta.Version}, "verdict cache purged for new dataset")
}

// Subscribe registers a change listener and returns an unsubscribe func.
func (p *Policy) Subscribe(fn func(domain.ChangeEvent)) func() {
	return p.notifier.subscribe(fn)
}

// ChangeVersion returns the monotonic counter incremented on every
// verdict-affecting mutation.
func (p *Policy) ChangeVersion() uint64 {
	return p.notifier.version()
}

// Stats returns the telemetry snapshot, rolling the daily counter when the
// calendar day has changed.
func (p *Policy) Stats() domain.Stats {
	p.statsMu.Lock()
	p.ensureStatsLoaded()
	p.rollDay()
	rec := p.stats
	p.statsMu.Unlock()

	meta := p.sets.Meta()
	return domain.Stats{
		TotalBlockedEver: rec.TotalBlockedEver,
		BlockedToday:     rec.BlockedToday,
		BlocklistSize:    meta.EntryCount,
		LastUpdateUnix:   meta.LastUpdateUnix,
	}
}

// recordBlocked bumps the counters and persists them. Persist failures are
// logged; counters keep running in memory.
func (p *Policy) recordBlocked() {
	p.statsMu.Lock()
	p.ensureStatsLoaded()
	p.rollDay()
	p.stats.TotalBlockedEver++
	p.stats.BlockedToday++
	rec := p.stats
	p.statsMu.Unlock()

	if err := p.store.SaveStats(rec); err != nil {
		p.logger.Warn(map[string]any{"error": err.Error()}, "stats not persisted")
	}
}

// ensureStatsLoaded lazily loads the persisted record. Caller holds statsMu.
func (p *Policy) ensureStatsLoaded() {
	if p.loaded {
		return
	}
	rec, err := p.store.LoadStats()
	if err != nil {
		p.logger.Warn(map[string]any{"error": err.Error()}, "stats load failed, starting fresh")
	} else {
		p.stats = rec
	}
	p.loaded = true
}

// rollDay resets BlockedToday when the stored day differs from today.
// Caller holds statsMu.
func (p *Policy) rollDay() {
	day := p.clk.Now().Format("2006-01-02")
	if p.stats.DayKey != day {
		p.stats.DayKey = day
		p.stats.BlockedToday = 0
	}
}
