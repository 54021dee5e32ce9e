package domain

import "testing"

func TestSyncReportStatus(t *testing.T) {
	cases := []struct {
		name   string
		report SyncReport
		want   SyncStatus
	}{
		{"clean run", SyncReport{Added: 3, Updated: 2}, SyncStatusSuccess},
		{"empty catalog", SyncReport{}, SyncStatusSuccess},
		{"some items failed", SyncReport{Added: 5, Skipped: 2, Errors: []string{"a", "b"}}, SyncStatusPartial},
		{"only removals committed", SyncReport{Removed: 1, Errors: []string{"a"}}, SyncStatusPartial},
		{"nothing committed", SyncReport{Skipped: 4, Errors: []string{"a"}}, SyncStatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.report.Status(); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}
