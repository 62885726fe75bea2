package blockset

import "github.com/kvasov/domshield/domain"

// ApproxFilter is the probabilistic pre-filter over reversed-label keys.
// MightContain never returns false for an added key; it may return true for a
// key never added, bounded by the target false-positive rate the filter was
// sized for. No deletion; removal means rebuilding from the store.
type ApproxFilter interface {
	Add(key string)
	MightContain(key string) bool
	// Snapshot serializes the filter (bit array, width, hash count) for
	// cold-start restore.
	Snapshot() ([]byte, error)
	// ApproxCount estimates the number of keys added.
	ApproxCount() uint64
}

// ApproxFactory sizes and constructs filters.
type ApproxFactory interface {
	// New returns a filter sized for capacity items at the target
	// false-positive rate.
	New(capacity uint64, fpRate float64) ApproxFilter
	// Restore deserializes a filter previously produced by Snapshot.
	Restore(data []byte) (ApproxFilter, error)
}

// ExactIndex confirms or refutes an approximate hit with no false positives.
// Keys are reversed-label domains; a stored key blocks itself and every
// subdomain (label-boundary prefix match on the reversed form).
type ExactIndex interface {
	Insert(reversedKey string)
	// ContainsAnyPrefixOf reports whether any label-boundary prefix of the
	// reversed query is a stored key, returning the matched key.
	ContainsAnyPrefixOf(reversedQuery string) (string, bool)
	Len() uint64
}

// Store is the durable source of truth the in-memory structures are rebuilt
// from. Keys are reversed-label domains. Batch operations are transactional:
// they fully apply or fail without effect.
type Store interface {
	PutBatch(keys []string) error
	Clear() error
	Count() (uint64, error)
	ScanAll(visit func(key string) bool) error

	// ContainsAnyPrefix is the slow fallback for exact confirmation when no
	// in-memory ExactIndex is installed.
	ContainsAnyPrefix(reversedQuery string) (string, bool, error)

	Meta() (domain.ListMeta, error)
	SetMeta(m domain.ListMeta) error

	SaveSnapshot(tag domain.SnapshotTag, data []byte) error
	LoadSnapshot() (domain.SnapshotTag, []byte, error)

	LoadStats() (domain.StatsRecord, error)
	SaveStats(rec domain.StatsRecord) error

	LoadWhitelist() ([]string, error)
	SaveWhitelist(domains []string) error

	Close() error
}
