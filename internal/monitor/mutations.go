package monitor

import (
	"fmt"

	"github.com/msageha/cupswatch/internal/events"
)

// Mutations hold spoolMu across the command and the forced refresh that
// follows it, so a mutation issued during a scheduled refresh waits for
// that refresh, runs alone, and the caller observes its effect in the
// snapshot published immediately after.

// CancelJob cancels one job by id and refreshes. Cancelling a job the
// spooler has already finished surfaces as a warning, not a failure;
// the refreshed snapshot is the source of truth either way.
func (m *Monitor) CancelJob(id string) error {
	m.spoolMu.Lock()
	defer m.spoolMu.Unlock()

	m.logger.Printf("cancelling job %s", id)
	err := m.spooler.CancelJob(id)
	m.reportMutation("cancel "+id, err)
	m.refreshLocked()
	return err
}

// CancelAllByOwner cancels every job in the current snapshot owned by
// owner, one cancel command per job, sequentially — deliberately not the
// bulk cancel, and deliberately not atomic: a failure midway leaves the
// already-issued cancels standing and is not retried. Returns the number
// of cancel commands issued.
func (m *Monitor) CancelAllByOwner(owner string) (int, error) {
	m.spoolMu.Lock()
	defer m.spoolMu.Unlock()

	jobs := m.snapshot.Load().JobsByOwner(owner)
	m.logger.Printf("cancelling %d job(s) owned by %s", len(jobs), owner)

	var firstErr error
	for _, j := range jobs {
		if err := m.spooler.CancelJob(j.ID); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cancel %s: %w", j.ID, err)
		}
	}

	m.reportMutation(fmt.Sprintf("cancel %d job(s) of %s", len(jobs), owner), firstErr)
	m.refreshLocked()
	return len(jobs), firstErr
}

// CancelAll issues the spooler's bulk cancel and refreshes.
func (m *Monitor) CancelAll() error {
	m.spoolMu.Lock()
	defer m.spoolMu.Unlock()

	m.logger.Printf("cancelling all jobs")
	err := m.spooler.CancelAll()
	m.reportMutation("cancel all jobs", err)
	m.refreshLocked()
	return err
}

// PauseQueue disables the queue and refreshes. The command can fail
// silently without privilege; whether the queue actually paused shows up
// in the refreshed snapshot, not in the return value.
func (m *Monitor) PauseQueue() error {
	m.spoolMu.Lock()
	defer m.spoolMu.Unlock()

	m.logger.Printf("pausing queue")
	err := m.spooler.Pause()
	m.reportMutation("pause queue", err)
	m.refreshLocked()
	return err
}

// ResumeQueue re-enables the queue and refreshes.
func (m *Monitor) ResumeQueue() error {
	m.spoolMu.Lock()
	defer m.spoolMu.Unlock()

	m.logger.Printf("resuming queue")
	err := m.spooler.Resume()
	m.reportMutation("resume queue", err)
	m.refreshLocked()
	return err
}

func (m *Monitor) reportMutation(action string, err error) {
	if err != nil {
		m.logger.Printf("%s: %v", action, err)
		m.publish(events.TypeMutation, events.SeverityWarning,
			fmt.Sprintf("%s: %v", action, err), nil)
		return
	}
	m.publish(events.TypeMutation, events.SeveritySuccess, action+" requested", nil)
}
