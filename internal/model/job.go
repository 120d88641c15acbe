// Package model defines the data structures for cupswatch's queue snapshots and configuration.
package model

import "time"

// Job is one pending or active spool entry reported by the spooler.
// ID is the spooler's own job token and is stable across polls until the
// job completes or is cancelled. SubmittedAt is zero when no recognizable
// timestamp was found in the listing text.
type Job struct {
	ID              string
	Owner           string
	StatusText      string
	FileDescription string
	SubmittedAt     time.Time
}

// HasSubmittedAt reports whether a submission timestamp was recovered
// from the listing text.
func (j Job) HasSubmittedAt() bool {
	return !j.SubmittedAt.IsZero()
}

// QueueState holds queue-level facts at the moment of a status query.
type QueueState struct {
	// RawStatusLine is the trimmed verbatim output of the short status query.
	RawStatusLine string
	// Disabled is derived by substring match against the raw text. The match
	// is intentionally the same free-text heuristic the CUPS CLI forces on
	// every consumer; there is no structured status channel.
	Disabled bool
}

// Summary returns the human status line shown for the queue.
func (s QueueState) Summary() string {
	summary := "Queue Status: ENABLED"
	if s.Disabled {
		summary = "Queue Status: DISABLED / PAUSED"
	}
	if s.RawStatusLine != "" {
		summary += "   (" + s.RawStatusLine + ")"
	}
	return summary
}

// AutoRecoveryAssessment is an advisory judgment about whether a disabled
// queue could safely be re-enabled. It never triggers a mutation.
type AutoRecoveryAssessment struct {
	QueueEmpty bool
	// ReasonHint is a label from the recognized low-risk cause allow-list,
	// empty when no cause matched.
	ReasonHint string
	Eligible   bool
}

// Snapshot is an immutable capture of queue state plus the ordered job list
// at one point in time. A Snapshot is published whole and never mutated;
// consumers hold a reference to one value and are never exposed to a torn
// read. Recovery is nil unless the queue was disabled at capture time.
type Snapshot struct {
	State      QueueState
	Jobs       []Job
	Recovery   *AutoRecoveryAssessment
	CapturedAt time.Time
}

// JobsByOwner returns the jobs in the snapshot owned by owner, in listing order.
func (s *Snapshot) JobsByOwner(owner string) []Job {
	var jobs []Job
	for _, j := range s.Jobs {
		if j.Owner == owner {
			jobs = append(jobs, j)
		}
	}
	return jobs
}
