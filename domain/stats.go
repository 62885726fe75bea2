package domain

// Stats is the telemetry surface exposed to collaborators. Counters are
// maintained by the policy layer as a side effect of each verdict.
type Stats struct {
	TotalBlockedEver uint64 // cumulative blocked verdicts across all time
	BlockedToday     uint64 // blocked verdicts since the local calendar day began
	BlocklistSize    uint64 // entry count of the installed dataset
	LastUpdateUnix   int64  // unix seconds of the last successful sync
}

// StatsRecord is the persisted form of the running counters. BlockedToday is
// only meaningful while DayKey matches the current local day; on a day change
// it resets to zero.
type StatsRecord struct {
	TotalBlockedEver uint64 `json:"total_blocked_ever"`
	BlockedToday     uint64 `json:"blocked_today"`
	DayKey           string `json:"day_key"` // "2006-01-02" local date
}
