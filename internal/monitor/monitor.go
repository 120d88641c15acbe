// Package monitor owns all access to the print spooler: it polls queue
// state into immutable snapshots, schedules refreshes, and issues
// mutations, keeping every spooler touch on one serialized path.
package monitor

import (
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/msageha/cupswatch/internal/cups"
	"github.com/msageha/cupswatch/internal/events"
	"github.com/msageha/cupswatch/internal/model"
)

// Spooler is the command surface the monitor consumes. cups.Client is
// the production implementation; tests inject fakes. Every call may
// block for a multi-second external command round trip.
type Spooler interface {
	QueueState() model.QueueState
	StatusVerbose() string
	Jobs() []model.Job
	CancelJob(id string) error
	CancelAll() error
	Pause() error
	Resume() error
}

// Monitor caches the latest queue snapshot and replaces it whole on each
// refresh. Readers take the current pointer and never need a lock; the
// value behind it is never mutated. spoolMu serializes every spooler
// command — scheduled refreshes, forced refreshes, and mutations — since
// the CLI tools underneath offer no transactional guarantees against
// interleaved invocation.
type Monitor struct {
	spooler Spooler
	bus     *events.Bus
	logger  *log.Logger

	spoolMu  sync.Mutex
	snapshot atomic.Pointer[model.Snapshot]

	threshold atomic.Int64

	schedMu  sync.Mutex
	timer    *time.Timer
	interval time.Duration
	gen      uint64
}

// New creates a monitor. bus may be nil when nobody listens; logger may
// be nil to discard.
func New(spooler Spooler, bus *events.Bus, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Monitor{spooler: spooler, bus: bus, logger: logger}
	m.snapshot.Store(&model.Snapshot{})
	return m
}

// Snapshot returns the latest published snapshot. Before the first
// refresh it is an empty snapshot with a zero CapturedAt.
func (m *Monitor) Snapshot() *model.Snapshot {
	return m.snapshot.Load()
}

// Refresh performs one full synchronous refresh cycle and publishes the
// resulting snapshot. It waits for any in-flight refresh or mutation to
// finish first; concurrent callers never produce overlapping queries.
func (m *Monitor) Refresh() *model.Snapshot {
	m.spoolMu.Lock()
	defer m.spoolMu.Unlock()
	return m.refreshLocked()
}

// refreshLocked runs the query → parse → evaluate → publish cycle.
// Callers must hold spoolMu.
func (m *Monitor) refreshLocked() *model.Snapshot {
	state := m.spooler.QueueState()
	jobs := m.spooler.Jobs()

	snap := &model.Snapshot{
		State:      state,
		Jobs:       jobs,
		CapturedAt: time.Now(),
	}

	if state.Disabled {
		assessment := cups.AssessAutoRecovery(m.spooler.StatusVerbose(), jobs)
		snap.Recovery = &assessment
	}

	prev := m.snapshot.Swap(snap)

	if prev.State.Disabled != state.Disabled {
		sev := events.SeveritySuccess
		if state.Disabled {
			sev = events.SeverityWarning
		}
		m.logger.Printf("queue state changed: %s", state.Summary())
		m.publish(events.TypeQueueStateChanged, sev, state.Summary(), map[string]any{
			"disabled": state.Disabled,
		})
	}

	m.publish(events.TypeSnapshot, events.SeverityInfo, state.Summary(), map[string]any{
		"jobs":     len(jobs),
		"disabled": state.Disabled,
		"snapshot": snap,
	})

	return snap
}

func (m *Monitor) publish(t events.Type, sev events.Severity, msg string, data map[string]any) {
	if m.bus != nil {
		m.bus.Publish(t, sev, msg, data)
	}
}

// SetHighlightThreshold sets the staleness threshold in minutes. Zero
// disables highlighting.
func (m *Monitor) SetHighlightThreshold(minutes int) {
	if minutes < 0 {
		minutes = 0
	}
	m.threshold.Store(int64(minutes))
}

// HighlightThreshold returns the current staleness threshold in minutes.
func (m *Monitor) HighlightThreshold() int {
	return int(m.threshold.Load())
}

// Row is one display-ready job line: the job plus its age and highlight
// verdict under the monitor's current threshold.
type Row struct {
	Job       model.Job
	Age       model.Age
	Highlight bool
}

// Rows renders the snapshot's jobs against the current threshold. Ages
// are recomputed from scratch on every call, so a threshold change takes
// effect on the next render without touching the snapshot.
func (m *Monitor) Rows(snap *model.Snapshot) []Row {
	return m.rowsAt(snap, time.Now())
}

func (m *Monitor) rowsAt(snap *model.Snapshot, now time.Time) []Row {
	threshold := m.HighlightThreshold()
	rows := make([]Row, 0, len(snap.Jobs))
	for _, j := range snap.Jobs {
		age := model.AgeOf(j.SubmittedAt, now)
		rows = append(rows, Row{
			Job:       j,
			Age:       age,
			Highlight: age.Highlighted(threshold),
		})
	}
	return rows
}
