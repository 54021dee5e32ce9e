package domain

// SyncReport accumulates the outcome of one full-sync run. Item-level
// failures are appended to Errors and never abort the run.
type SyncReport struct {
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Removed int      `json:"removed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Committed reports whether any write reached the record store.
func (r *SyncReport) Committed() bool {
	return r.Added > 0 || r.Updated > 0 || r.Removed > 0
}

// Status derives the run outcome: success when every item went through,
// partial when some items committed and some failed, failed when nothing
// could be committed at all.
func (r *SyncReport) Status() SyncStatus {
	if len(r.Errors) == 0 {
		return SyncStatusSuccess
	}
	if r.Committed() {
		return SyncStatusPartial
	}
	return SyncStatusFailed
}
