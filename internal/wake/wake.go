// Package wake keeps a sleepy printer reachable by periodically touching
// its raw print port. Entry-level printers drop off the network in deep
// sleep; a short TCP connection to the JetDirect port is enough to hold
// them awake without printing anything.
package wake

import (
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/msageha/cupswatch/internal/events"
)

// DialTimeout bounds each probe; printers answer this port fast or not
// at all.
const DialTimeout = 3 * time.Second

// Prober sends wake probes on a fixed interval. Start/Stop/reconfigure
// follow the same restart-on-reconfigure contract as the queue refresh
// scheduler: Start while running replaces the interval, an interval
// <= 0 stops.
type Prober struct {
	addr   string
	bus    *events.Bus
	logger *log.Logger
	dial   func(addr string, timeout time.Duration) (net.Conn, error)

	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	gen      uint64
}

// New creates a prober for host:port. bus and logger may be nil.
func New(host string, port int, bus *events.Bus, logger *log.Logger) *Prober {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Prober{
		addr:   fmt.Sprintf("%s:%d", host, port),
		bus:    bus,
		logger: logger,
		dial: func(addr string, timeout time.Duration) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, timeout)
		},
	}
}

// Start arms the prober at the given interval, replacing any previous
// schedule. The first probe fires after one full interval, matching the
// refresh scheduler's behavior.
func (p *Prober) Start(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}

	if interval <= 0 {
		p.interval = 0
		return
	}

	p.interval = interval
	gen := p.gen
	p.timer = time.AfterFunc(interval, func() { p.tick(gen) })
}

// Stop halts future probes. A probe already dialing completes.
func (p *Prober) Stop() {
	p.Start(0)
}

// Running reports whether the prober is armed.
func (p *Prober) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval > 0
}

func (p *Prober) tick(gen uint64) {
	p.mu.Lock()
	stale := gen != p.gen
	p.mu.Unlock()
	if stale {
		return
	}

	p.probe()

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.gen && p.interval > 0 {
		p.timer = time.AfterFunc(p.interval, func() { p.tick(gen) })
	}
}

// Probe performs one wake touch immediately, outside the schedule.
func (p *Prober) Probe() error {
	return p.probe()
}

func (p *Prober) probe() error {
	conn, err := p.dial(p.addr, DialTimeout)
	if err != nil {
		p.logger.Printf("wake probe %s failed: %v", p.addr, err)
		p.publish(events.SeverityWarning, fmt.Sprintf("wake probe %s failed: %v", p.addr, err))
		return fmt.Errorf("wake probe %s: %w", p.addr, err)
	}

	// A single CRLF is ignored by the print engine but resets the
	// printer's network idle timer.
	_, _ = io.WriteString(conn, "\r\n")
	_ = conn.Close()

	p.logger.Printf("wake probe %s ok", p.addr)
	p.publish(events.SeveritySuccess, fmt.Sprintf("wake probe %s ok", p.addr))
	return nil
}

func (p *Prober) publish(sev events.Severity, msg string) {
	if p.bus != nil {
		p.bus.Publish(events.TypeWake, sev, msg, map[string]any{"addr": p.addr})
	}
}
