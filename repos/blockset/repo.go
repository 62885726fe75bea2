// Package blockset composes the approximate pre-filter, the exact suffix
// index and the persistent store into a single membership pipeline over
// reversed-label domain keys. Rebuilds publish a whole new generation with an
// atomic pointer swap so concurrent readers never observe a half-built
// structure.
package blockset

import (
	"errors"
	"sync/atomic"

	"github.com/kvasov/domshield/common/log"
	"github.com/kvasov/domshield/common/utils"
	"github.com/kvasov/domshield/domain"
)

// ErrNotReady is returned by Lookup before any dataset generation has been
// installed.
var ErrNotReady = errors.New("no dataset generation installed")

// ExactBuilder constructs an empty exact index for a rebuild. Injected so the
// repo does not depend on a concrete trie.
type ExactBuilder func() ExactIndex

// generation is one immutable, atomically published dataset view.
type generation struct {
	approx ApproxFilter
	exact  ExactIndex // nil when restored from a snapshot (store scan serves as fallback)
	meta   domain.ListMeta
}

// Repo is the membership pipeline: approx filter → exact index (or store
// prefix scan) on reads, wholesale generation swap on writes.
type Repo struct {
	store     Store
	factory   ApproxFactory
	newExact  ExactBuilder
	fpRate    float64
	logger    log.Logger
	gen       atomic.Pointer[generation]
	onInstall atomic.Pointer[func(domain.ListMeta)]
}

// NewRepo constructs a Repo. fpRate is the target false-positive rate used
// when sizing a rebuilt filter.
func NewRepo(store Store, factory ApproxFactory, newExact ExactBuilder, fpRate float64, logger log.Logger) *Repo {
	return &Repo{
		store:    store,
		factory:  factory,
		newExact: newExact,
		fpRate:   fpRate,
		logger:   logger,
	}
}

// SetOnInstall registers a callback invoked after each generation swap.
// Used by the policy layer to purge its verdict cache.
func (r *Repo) SetOnInstall(fn func(domain.ListMeta)) {
	r.onInstall.Store(&fn)
}

// Ready reports whether a generation is installed.
func (r *Repo) Ready() bool {
	return r.gen.Load() != nil
}

// Meta returns the installed generation's meta record, or a zero value.
func (r *Repo) Meta() domain.ListMeta {
	if g := r.gen.Load(); g != nil {
		return g.meta
	}
	return domain.ListMeta{}
}

// Lookup decides membership for a canonical hostname. The approximate filter
// is probed on every label-boundary prefix of the reversed key; a clean miss
// is definitive (no false negatives). A hit is confirmed by the exact index,
// falling back to a store prefix scan when no index is installed.
// Policy on internal store errors: prefer Allow.
func (r *Repo) Lookup(hostname string) (domain.Verdict, error) {
	g := r.gen.Load()
	if g == nil {
		return domain.Verdict{Reason: domain.ReasonUnavailable}, ErrNotReady
	}

	reversed := utils.ReverseLabels(hostname)

	maybe := false
	utils.LabelPrefixes(reversed, func(prefix string) bool {
		if g.approx.MightContain(prefix) {
			maybe = true
			return false
		}
		return true
	})
	if !maybe {
		return domain.Allowed(domain.ReasonApproxMiss), nil
	}

	if g.exact != nil {
		if matched, ok := g.exact.ContainsAnyPrefixOf(reversed); ok {
			return domain.BlockedBy(matched), nil
		}
		return domain.Allowed(domain.ReasonExact), nil
	}

	matched, ok, err := r.store.ContainsAnyPrefix(reversed)
	if err != nil {
		r.logger.Error(map[string]any{"host": hostname, "error": err.Error()}, "store fallback scan failed")
		return domain.Allowed(domain.ReasonExact), nil
	}
	if ok {
		return domain.BlockedBy(matched), nil
	}
	return domain.Allowed(domain.ReasonExact), nil
}

// RebuildFromStore scans the persistent store, builds a fresh filter and
// exact index, swaps them in as the new generation and persists a filter
// snapshot tagged with the store's meta. Snapshot persist failures are logged
// and swallowed; they only cost the next cold start.
func (r *Repo) RebuildFromStore() error {
	meta, err := r.store.Meta()
	if err != nil {
		return err
	}
	count, err := r.store.Count()
	if err != nil {
		return err
	}

	bf := r.factory.New(count, r.fpRate)
	ex := r.newExact()
	err = r.store.ScanAll(func(key string) bool {
		bf.Add(key)
		ex.Insert(key)
		return true
	})
	if err != nil {
		return err
	}

	r.install(&generation{approx: bf, exact: ex, meta: meta})

	snap, err := bf.Snapshot()
	if err == nil {
		err = r.store.SaveSnapshot(domain.SnapshotTag{Version: meta.Version, EntryCount: meta.EntryCount}, snap)
	}
	if err != nil {
		r.logger.Warn(map[string]any{"version": meta.Version, "error": err.Error()}, "filter snapshot not persisted")
	}
	return nil
}

// RestoreFromSnapshot attempts the cold-start fast path: deserialize the
// persisted filter when its tag matches the current meta. The exact index is
// left nil; lookups confirm against the store until the next full rebuild.
// Returns false when no usable snapshot exists.
func (r *Repo) RestoreFromSnapshot() (bool, error) {
	meta, err := r.store.Meta()
	if err != nil {
		return false, err
	}
	if meta.IsZero() {
		return false, nil
	}
	tag, data, err := r.store.LoadSnapshot()
	if err != nil || data == nil {
		return false, err
	}
	if !tag.Matches(meta) {
		r.logger.Debug(map[string]any{
			"tag_version":  tag.Version,
			"meta_version": meta.Version,
		}, "snapshot tag mismatch, ignoring")
		return false, nil
	}
	bf, err := r.factory.Restore(data)
	if err != nil {
		r.logger.Warn(map[string]any{"error": err.Error()}, "snapshot restore failed")
		return false, nil
	}
	r.install(&generation{approx: bf, exact: nil, meta: meta})
	return true, nil
}

func (r *Repo) install(g *generation) {
	r.gen.Store(g)
	if fn := r.onInstall.Load(); fn != nil {
		(*fn)(g.meta)
	}
}
