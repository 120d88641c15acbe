// Package cups wraps the CUPS command-line tools (lpstat, cancel,
// cupsenable, cupsdisable) for a single tracked queue and parses their
// human-oriented text output into typed records.
package cups

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/msageha/cupswatch/internal/model"
)

// Runner executes one external command and returns its combined
// stdout+stderr. CUPS tools report errors as text on a merged stream, so
// callers must inspect the output even when err is non-nil.
type Runner func(name string, args ...string) (string, error)

// ExecRunner is the production Runner backed by os/exec.
func ExecRunner(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

// Client issues queries and mutations against one CUPS queue. Every call
// is a synchronous external command round trip and can block for seconds;
// callers are expected to serialize access themselves (see monitor).
type Client struct {
	printer string
	useSudo bool
	run     Runner
}

// NewClient creates a client for the named queue. A nil runner uses ExecRunner.
// useSudo routes the enable/disable mutations through sudo, which CUPS
// requires for non-root users on most installs.
func NewClient(printer string, useSudo bool, run Runner) *Client {
	if run == nil {
		run = ExecRunner
	}
	return &Client{printer: printer, useSudo: useSudo, run: run}
}

// Printer returns the tracked queue name.
func (c *Client) Printer() string {
	return c.printer
}

// query runs lpstat and always returns text: when the command fails with
// no output at all, the error string stands in so downstream matching
// still has something to classify.
func (c *Client) query(args ...string) string {
	out, err := c.run("lpstat", args...)
	if out == "" && err != nil {
		return err.Error()
	}
	return out
}

// StatusRaw returns the trimmed short printer status (lpstat -p).
func (c *Client) StatusRaw() string {
	return strings.TrimSpace(c.query("-p", c.printer))
}

// StatusVerbose returns the long-form printer status (lpstat -l -p),
// which carries reason keywords like media-empty.
func (c *Client) StatusVerbose() string {
	return c.query("-l", "-p", c.printer)
}

// QueueState derives the queue-level facts from the short status text.
func (c *Client) QueueState() model.QueueState {
	raw := c.StatusRaw()
	return model.QueueState{
		RawStatusLine: raw,
		Disabled:      QueueDisabled(raw),
	}
}

// Jobs queries the job listing and parses it. The not-completed filter is
// preferred; older lpstat builds reject -W, which surfaces as an
// "Unknown option" complaint in the output text, so fall back to the
// unfiltered listing before parsing.
func (c *Client) Jobs() []model.Job {
	out := c.query("-W", "not-completed", "-o", "-l")
	if strings.Contains(out, "Unknown option") || strings.Contains(out, "invalid option") {
		out = c.query("-o", "-l")
	}
	return ParseJobs(out)
}

// FriendlyName extracts the human description of the printer from the
// verbose status, falling back to the queue name.
func (c *Client) FriendlyName() string {
	for _, line := range strings.Split(c.StatusVerbose(), "\n") {
		if idx := strings.Index(line, "Description:"); idx >= 0 {
			if desc := strings.TrimSpace(line[idx+len("Description:"):]); desc != "" {
				return desc
			}
		}
	}
	return c.printer
}

// SchedulerRunning reports whether the CUPS scheduler answers lpstat -r.
func (c *Client) SchedulerRunning() bool {
	return strings.Contains(c.query("-r"), "is running")
}

// CancelJob cancels one job by its spooler id. Cancelling a job the
// spooler no longer knows is reported in the output text, not as a
// distinct error; the next refresh is the source of truth.
func (c *Client) CancelJob(id string) error {
	out, err := c.run("cancel", id)
	if err != nil {
		return fmt.Errorf("cancel %s: %w: %s", id, err, strings.TrimSpace(out))
	}
	return nil
}

// CancelAll issues the spooler's bulk cancel for the queue.
func (c *Client) CancelAll() error {
	out, err := c.run("cancel", "-a", c.printer)
	if err != nil {
		return fmt.Errorf("cancel -a: %w: %s", err, strings.TrimSpace(out))
	}
	return nil
}

// Pause disables the queue (cupsdisable). May fail without privilege;
// the caller learns the actual outcome from the next status query.
func (c *Client) Pause() error {
	return c.control("cupsdisable")
}

// Resume re-enables the queue (cupsenable).
func (c *Client) Resume() error {
	return c.control("cupsenable")
}

func (c *Client) control(tool string) error {
	name, args := tool, []string{c.printer}
	if c.useSudo {
		name, args = "sudo", []string{tool, c.printer}
	}
	out, err := c.run(name, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", tool, c.printer, err, strings.TrimSpace(out))
	}
	return nil
}
