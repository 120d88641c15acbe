package monitor

import "time"

// SetInterval configures the auto-refresh period. A positive interval
// (re)arms the scheduler, cancelling any previously armed tick — restart
// on reconfigure, not stack. An interval <= 0 stops it, same as Stop.
// Stopping only prevents future ticks; a refresh already in flight runs
// to completion and still publishes its snapshot.
func (m *Monitor) SetInterval(d time.Duration) {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()

	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	if d <= 0 {
		m.interval = 0
		return
	}

	m.interval = d
	gen := m.gen
	m.timer = time.AfterFunc(d, func() { m.tick(gen) })
}

// Stop halts the auto-refresh scheduler.
func (m *Monitor) Stop() {
	m.SetInterval(0)
}

// Interval returns the configured auto-refresh period, zero when stopped.
func (m *Monitor) Interval() time.Duration {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()
	return m.interval
}

// tick runs one scheduled refresh and re-arms. The refresh itself is
// serialized behind spoolMu, so a tick that fires while a forced refresh
// or mutation is underway waits its turn instead of running a parallel
// query; the next tick is armed only after this one's refresh finished,
// so a slow query stretches the schedule rather than piling up.
func (m *Monitor) tick(gen uint64) {
	m.schedMu.Lock()
	stale := gen != m.gen
	m.schedMu.Unlock()
	if stale {
		return
	}

	m.Refresh()

	m.schedMu.Lock()
	defer m.schedMu.Unlock()
	if gen == m.gen && m.interval > 0 {
		m.timer = time.AfterFunc(m.interval, func() { m.tick(gen) })
	}
}
