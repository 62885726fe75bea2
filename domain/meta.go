package domain

import "fmt"

// ListMeta describes the currently installed blocklist dataset. It is written
// atomically after a successful sync and drives staleness and cold-start
// validation decisions.
type ListMeta struct {
	EntryCount     uint64 // number of keys in the persistent store
	LastUpdateUnix int64  // unix seconds of the last successful sync
	Version        uint64 // monotonically increasing dataset version
}

// IsZero reports whether no successful sync has ever been recorded.
func (m ListMeta) IsZero() bool {
	return m.Version == 0 && m.EntryCount == 0 && m.LastUpdateUnix == 0
}

// SnapshotTag ties a persisted approximate-filter snapshot to the dataset it
// was built from. A snapshot is only restorable when both fields match the
// current ListMeta.
type SnapshotTag struct {
	Version    uint64
	EntryCount uint64
}

// Matches reports whether the tag corresponds to the given meta record.
func (t SnapshotTag) Matches(m ListMeta) bool {
	return t.Version == m.Version && t.EntryCount == m.EntryCount
}

// Validate checks the meta record for internal consistency.
func (m ListMeta) Validate() error {
	if m.Version == 0 && m.EntryCount > 0 {
		return fmt.Errorf("meta has entries but no version")
	}
	if m.LastUpdateUnix < 0 {
		return fmt.Errorf("meta has negative update time")
	}
	return nil
}
