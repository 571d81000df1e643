package types

import "time"

// Task names registered by the server.
const (
	TaskExpireApprovals  = "expire-approvals"
	TaskSnapshotNetworks = "snapshot-networks"
)

// Job represents a scheduled job configuration
type Job struct {
	Name        string `json:"name"`
	Schedule    string `json:"schedule"`
	TaskName    string `json:"task"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// JobStatus is a scheduled job together with its run history.
type JobStatus struct {
	Job
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Runs      int        `json:"runs"`
	Failures  int        `json:"failures"`
	Skipped   int        `json:"skipped"`
}

// JobConfig represents the job scheduler configuration
type JobConfig struct {
	MaxConcurrent int   `json:"max_concurrent"`
	Predefined    []Job `json:"predefined"`
}

// DefaultJobConfig expires stale approvals every 30s and snapshots the
// network list every 5 minutes.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		MaxConcurrent: 2,
		Predefined: []Job{
			{
				Name:        "expire-approvals",
				Schedule:    "*/30 * * * * *",
				TaskName:    TaskExpireApprovals,
				Enabled:     true,
				Description: "Reject approval requests older than the approval timeout",
			},
			{
				Name:        "snapshot-networks",
				Schedule:    "0 */5 * * * *",
				TaskName:    TaskSnapshotNetworks,
				Enabled:     true,
				Description: "Write the custom network list to disk",
			},
		},
	}
}
