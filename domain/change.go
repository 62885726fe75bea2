package domain

// ChangeKind identifies what upstream state a change event refers to.
type ChangeKind uint8

const (
	// ChangeWhitelist means the user whitelist was mutated.
	ChangeWhitelist ChangeKind = iota
	// ChangeAllowOnce means an allow-once override was granted.
	ChangeAllowOnce
	// ChangeDataset means a new blocklist generation was installed.
	ChangeDataset
)

// String returns a stable string representation of the kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeWhitelist:
		return "whitelist"
	case ChangeAllowOnce:
		return "allow_once"
	case ChangeDataset:
		return "dataset"
	default:
		return "unknown"
	}
}

// ChangeEvent is published to subscribers whenever a verdict-affecting input
// changes. Version is a monotonic counter collaborators may compare instead
// of subscribing.
type ChangeEvent struct {
	Kind    ChangeKind
	Version uint64
}
