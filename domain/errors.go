package domain

import "errors"

// Failure taxonomy for the sync pipeline. Every failure is local-recoverable;
// none should crash the host process.
var (
	// ErrNetwork covers a rejected fetch or a non-success status. The syncer
	// retries with backoff; the currently installed structures keep serving.
	ErrNetwork = errors.New("network failure")

	// ErrParse covers a malformed feed. Treated like ErrNetwork for retry
	// purposes; partial parse results are discarded, never committed.
	ErrParse = errors.New("parse failure")

	// ErrStorage covers a failed durable-store transaction. Triggers a
	// destructive recovery: clear the store, force a full resync, rebuild.
	ErrStorage = errors.New("storage failure")

	// ErrSnapshot covers a failed filter snapshot persist. Logged and
	// swallowed; the snapshot is a cold-start optimization, not a
	// correctness requirement.
	ErrSnapshot = errors.New("snapshot failure")

	// ErrSyncInFlight is returned when a sync is requested while another is
	// already running. The caller's request is coalesced into the running one.
	ErrSyncInFlight = errors.New("sync already in flight")
)
