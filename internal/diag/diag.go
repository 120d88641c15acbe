// Package diag runs one-shot health checks against the printer and the
// spooler and reports each as a short classified outcome.
package diag

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/msageha/cupswatch/internal/cups"
	"github.com/msageha/cupswatch/internal/events"
	"github.com/msageha/cupswatch/internal/model"
)

// Level classifies a check outcome.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Outcome is one completed check.
type Outcome struct {
	Name   string `json:"name"`
	Level  Level  `json:"level"`
	Detail string `json:"detail"`
}

// Spooler is the slice of the queue client the checks need.
type Spooler interface {
	Jobs() []model.Job
	SchedulerRunning() bool
}

// DefaultStuckAge is how old a queued job must be before the stuck-jobs
// check raises a warning.
const DefaultStuckAge = time.Hour

// Checker runs the diagnostic suite.
type Checker struct {
	spooler  Spooler
	host     string
	port     int
	stuckAge time.Duration
	run      cups.Runner
	bus      *events.Bus
}

// New creates a checker. host may be empty, which skips the network
// probes. A nil runner uses cups.ExecRunner; bus may be nil.
func New(spooler Spooler, host string, port int, bus *events.Bus) *Checker {
	return &Checker{
		spooler:  spooler,
		host:     host,
		port:     port,
		stuckAge: DefaultStuckAge,
		run:      cups.ExecRunner,
		bus:      bus,
	}
}

// SetStuckAge overrides the stuck-job threshold.
func (c *Checker) SetStuckAge(d time.Duration) {
	c.stuckAge = d
}

// Run executes the suite. The two network probes run concurrently; the
// spooler checks run sequentially since spooler access is one path.
// Results come back in a fixed order regardless of completion order.
func (c *Checker) Run(ctx context.Context) []Outcome {
	var ping, port Outcome

	if c.host != "" {
		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error {
			ping = c.checkPing()
			return nil
		})
		g.Go(func() error {
			port = c.checkPort()
			return nil
		})
		_ = g.Wait()
	} else {
		ping = Outcome{Name: "ping", Level: LevelWarning, Detail: "no printer host configured, skipped"}
		port = Outcome{Name: "print-port", Level: LevelWarning, Detail: "no printer host configured, skipped"}
	}

	outcomes := []Outcome{
		ping,
		port,
		c.checkScheduler(),
		c.checkStuckJobs(),
	}

	for _, o := range outcomes {
		c.publish(o)
	}
	return outcomes
}

func (c *Checker) checkPing() Outcome {
	if _, err := c.run("ping", "-c", "1", "-W", "2", c.host); err != nil {
		return Outcome{Name: "ping", Level: LevelError,
			Detail: fmt.Sprintf("%s unreachable: %v", c.host, err)}
	}
	return Outcome{Name: "ping", Level: LevelOK, Detail: c.host + " answers ping"}
}

func (c *Checker) checkPort() Outcome {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	conn, err := net.DialTimeout("tcp", addr, 3*time.Second)
	if err != nil {
		return Outcome{Name: "print-port", Level: LevelError,
			Detail: fmt.Sprintf("%s closed: %v", addr, err)}
	}
	_ = conn.Close()
	return Outcome{Name: "print-port", Level: LevelOK, Detail: addr + " open"}
}

func (c *Checker) checkScheduler() Outcome {
	if !c.spooler.SchedulerRunning() {
		return Outcome{Name: "scheduler", Level: LevelError,
			Detail: "CUPS scheduler is not answering lpstat -r"}
	}
	return Outcome{Name: "scheduler", Level: LevelOK, Detail: "CUPS scheduler is running"}
}

func (c *Checker) checkStuckJobs() Outcome {
	jobs := c.spooler.Jobs()
	now := time.Now()

	stuck := 0
	for _, j := range jobs {
		age := model.AgeOf(j.SubmittedAt, now)
		if age.Known && time.Duration(age.Minutes)*time.Minute >= c.stuckAge {
			stuck++
		}
	}

	switch {
	case stuck > 0:
		return Outcome{Name: "stuck-jobs", Level: LevelWarning,
			Detail: fmt.Sprintf("%d job(s) older than %s", stuck, c.stuckAge)}
	case len(jobs) > 0:
		return Outcome{Name: "stuck-jobs", Level: LevelOK,
			Detail: fmt.Sprintf("%d job(s) queued, none stuck", len(jobs))}
	default:
		return Outcome{Name: "stuck-jobs", Level: LevelOK, Detail: "queue empty"}
	}
}

func (c *Checker) publish(o Outcome) {
	if c.bus == nil {
		return
	}
	sev := events.SeveritySuccess
	switch o.Level {
	case LevelWarning:
		sev = events.SeverityWarning
	case LevelError:
		sev = events.SeverityError
	}
	c.bus.Publish(events.TypeDiagnostic, sev, o.Name+": "+o.Detail, nil)
}
