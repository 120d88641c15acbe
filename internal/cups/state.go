package cups

import (
	"strings"

	"github.com/msageha/cupswatch/internal/model"
)

// disabledMarker is the substring lpstat puts in the short status of a
// paused queue. Free-text matching is the only status channel CUPS
// offers; a job description containing the word would misclassify the
// queue, a limitation carried over unchanged from the matching this
// replaces.
const disabledMarker = "disabled"

// recoveryNeedles is the allow-list of low-risk disablement causes, in
// match priority order. Each needle is matched case-insensitively as a
// substring of the verbose status; the label is what gets reported.
// Extend the table, not the matching logic, for new spooler dialects.
var recoveryNeedles = []struct {
	needle string
	label  string
}{
	{"out of paper", "out of paper"},
	{"media-empty", "media-empty"},
	{"media empty", "media empty"},
}

// QueueDisabled reports whether the short status text marks the queue
// disabled.
func QueueDisabled(raw string) bool {
	return strings.Contains(raw, disabledMarker)
}

// RecoveryReasonHint searches the verbose status for a recognized
// low-risk disablement cause and returns its label, or "" when nothing
// on the allow-list matched.
func RecoveryReasonHint(verbose string) string {
	lowered := strings.ToLower(verbose)
	for _, n := range recoveryNeedles {
		if strings.Contains(lowered, n.needle) {
			return n.label
		}
	}
	return ""
}

// AssessAutoRecovery judges whether a disabled queue could safely be
// re-enabled: only an empty queue stopped for a recognized low-risk
// cause qualifies. The assessment is advisory; nothing in this package
// acts on it.
func AssessAutoRecovery(verbose string, jobs []model.Job) model.AutoRecoveryAssessment {
	hint := RecoveryReasonHint(verbose)
	empty := len(jobs) == 0
	return model.AutoRecoveryAssessment{
		QueueEmpty: empty,
		ReasonHint: hint,
		Eligible:   empty && hint != "",
	}
}
