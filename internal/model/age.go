package model

import (
	"fmt"
	"time"
)

// Age describes how long a job has been in the queue, derived from its
// recovered submission timestamp.
type Age struct {
	// Label is the human form: "unknown", "<1m", "42m", "3h 5m", "2d 17h".
	Label string
	// Minutes is the whole elapsed minutes, clamped to zero. Jobs without
	// a timestamp report zero minutes.
	Minutes int
	// Known is false when no submission timestamp was recovered.
	Known bool
}

// AgeOf computes the age of a job submitted at submittedAt as of now.
// A zero submittedAt yields the "unknown" age. Negative elapsed time
// (clock skew, a future timestamp) is clamped to zero.
func AgeOf(submittedAt, now time.Time) Age {
	if submittedAt.IsZero() {
		return Age{Label: "unknown"}
	}

	mins := int(now.Sub(submittedAt) / time.Minute)
	if mins < 0 {
		mins = 0
	}

	return Age{Label: formatAge(mins), Minutes: mins, Known: true}
}

// Highlighted reports whether this age crosses the caller's staleness
// threshold in minutes. A threshold of zero disables highlighting, and an
// unknown age is never highlighted.
func (a Age) Highlighted(threshold int) bool {
	return a.Known && threshold > 0 && a.Minutes >= threshold
}

func formatAge(mins int) string {
	if mins < 1 {
		return "<1m"
	}
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}

	hours := mins / 60
	rem := mins % 60
	if hours < 24 {
		return fmt.Sprintf("%dh %dm", hours, rem)
	}

	days := hours / 24
	hours = hours % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
