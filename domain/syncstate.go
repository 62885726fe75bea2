package domain

import "fmt"

// SyncState enumerates the dataset sync state machine.
//
//	idle → downloading → parsing → indexing → ready
//
// with a transition to retry-wait on any failure inside
// downloading/parsing/indexing.
type SyncState uint8

const (
	SyncIdle SyncState = iota
	SyncDownloading
	SyncParsing
	SyncIndexing
	SyncReady
	SyncRetryWait
)

// String returns a stable string representation of the state.
func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncDownloading:
		return "downloading"
	case SyncParsing:
		return "parsing"
	case SyncIndexing:
		return "indexing"
	case SyncReady:
		return "ready"
	case SyncRetryWait:
		return "retry-wait"
	default:
		return fmt.Sprintf("SyncState(%d)", s)
	}
}

// ProgressKind distinguishes progress event payloads.
type ProgressKind uint8

const (
	// ProgressDownload reports bytes received so far.
	ProgressDownload ProgressKind = iota
	// ProgressIndex reports keys committed so far.
	ProgressIndex
	// ProgressState reports a state machine transition.
	ProgressState
)

// ProgressEvent is emitted by the syncer as work advances. Collaborators
// subscribe for UI progress; the engine itself ignores them.
type ProgressEvent struct {
	Kind  ProgressKind
	State SyncState
	Bytes int64  // ProgressDownload: cumulative bytes received
	Keys  uint64 // ProgressIndex: cumulative keys committed
	Total uint64 // ProgressIndex: total keys to commit
}
