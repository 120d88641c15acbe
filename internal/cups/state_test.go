package cups

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/msageha/cupswatch/internal/model"
)

func TestQueueDisabled(t *testing.T) {
	assert.True(t, QueueDisabled("printer HP_P1102w disabled since Mon 02 Jun 2025 10:00:00 -"))
	assert.False(t, QueueDisabled("printer HP_P1102w is idle.  enabled since Mon 02 Jun 2025 09:00:00"))
	assert.False(t, QueueDisabled(""))
}

func TestRecoveryReasonHint(t *testing.T) {
	assert.Equal(t, "media-empty", RecoveryReasonHint("printer stopped\n\tAlerts: media-empty-error"))
	assert.Equal(t, "out of paper", RecoveryReasonHint("Printer reports: Out Of Paper"))
	// Matching is case-insensitive substring search.
	assert.Equal(t, "media empty", RecoveryReasonHint("状態: MEDIA EMPTY"))
	assert.Empty(t, RecoveryReasonHint("printer stopped\n\tAlerts: toner-low"))
	assert.Empty(t, RecoveryReasonHint(""))
}

func TestAssessAutoRecovery_EligibleOnlyWhenEmptyAndMatched(t *testing.T) {
	verbose := "printer HP_P1102w disabled\n\tAlerts: media-empty-warning"

	got := AssessAutoRecovery(verbose, nil)
	assert.True(t, got.Eligible)
	assert.True(t, got.QueueEmpty)
	assert.Equal(t, "media-empty", got.ReasonHint)

	// Any pending job forces a negative verdict even with a matched reason.
	got = AssessAutoRecovery(verbose, []model.Job{{ID: "HP_P1102w-1"}})
	assert.False(t, got.Eligible)
	assert.False(t, got.QueueEmpty)
	assert.Equal(t, "media-empty", got.ReasonHint)

	// An unmatched reason forces a negative verdict even when empty.
	got = AssessAutoRecovery("printer stopped: fuser error", nil)
	assert.False(t, got.Eligible)
	assert.True(t, got.QueueEmpty)
	assert.Empty(t, got.ReasonHint)
}
