package domain

// Verdict represents the outcome of evaluating a hostname against the engine.
// Pure value type, no external dependencies.
type Verdict struct {
	Blocked bool   // true if the hostname matched a blocklist entry
	Reason  VerdictReason
	Matched string // reversed-label key that matched, when Blocked
}

// VerdictReason identifies which stage of the decision pipeline settled the verdict.
type VerdictReason uint8

const (
	ReasonUnknown VerdictReason = iota
	// ReasonAllowOnce means a live allow-once override matched.
	ReasonAllowOnce
	// ReasonWhitelist means the hostname or its registrable domain is whitelisted.
	ReasonWhitelist
	// ReasonCached means the verdict came from the bounded verdict cache.
	ReasonCached
	// ReasonApproxMiss means the approximate filter ruled out every suffix.
	ReasonApproxMiss
	// ReasonExact means the exact suffix structure settled the verdict.
	ReasonExact
	// ReasonUnavailable means no structures were installed; the fail policy decided.
	ReasonUnavailable
)

// String returns a stable string representation of the reason.
func (r VerdictReason) String() string {
	switch r {
	case ReasonAllowOnce:
		return "allow_once"
	case ReasonWhitelist:
		return "whitelist"
	case ReasonCached:
		return "cached"
	case ReasonApproxMiss:
		return "approx_miss"
	case ReasonExact:
		return "exact"
	case ReasonUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Allowed returns a not-blocked verdict with the given reason.
func Allowed(reason VerdictReason) Verdict {
	return Verdict{Blocked: false, Reason: reason}
}

// BlockedBy returns a blocked verdict attributed to the matched reversed key.
func BlockedBy(matched string) Verdict {
	return Verdict{Blocked: true, Reason: ReasonExact, Matched: matched}
}
