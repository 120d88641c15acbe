package diag

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/cupswatch/internal/model"
)

type fakeSpooler struct {
	jobs      []model.Job
	scheduler bool
}

func (f *fakeSpooler) Jobs() []model.Job      { return f.jobs }
func (f *fakeSpooler) SchedulerRunning() bool { return f.scheduler }

func outcomeByName(t *testing.T, outcomes []Outcome, name string) Outcome {
	t.Helper()
	for _, o := range outcomes {
		if o.Name == name {
			return o
		}
	}
	t.Fatalf("no outcome named %q in %+v", name, outcomes)
	return Outcome{}
}

func TestRun_AllHealthy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	c := New(&fakeSpooler{scheduler: true}, "127.0.0.1", port, nil)
	c.run = func(name string, args ...string) (string, error) { return "1 received", nil }

	outcomes := c.Run(context.Background())
	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.Equalf(t, LevelOK, o.Level, "%s: %s", o.Name, o.Detail)
	}
}

func TestRun_PingFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() // port probe will fail too

	c := New(&fakeSpooler{scheduler: true}, "127.0.0.1", port, nil)
	c.run = func(name string, args ...string) (string, error) {
		return "", errors.New("100% packet loss")
	}

	outcomes := c.Run(context.Background())
	assert.Equal(t, LevelError, outcomeByName(t, outcomes, "ping").Level)
	assert.Equal(t, LevelError, outcomeByName(t, outcomes, "print-port").Level)
}

func TestRun_NoHostSkipsNetworkChecks(t *testing.T) {
	c := New(&fakeSpooler{scheduler: true}, "", 9100, nil)

	outcomes := c.Run(context.Background())
	assert.Equal(t, LevelWarning, outcomeByName(t, outcomes, "ping").Level)
	assert.Equal(t, LevelWarning, outcomeByName(t, outcomes, "print-port").Level)
	assert.Equal(t, LevelOK, outcomeByName(t, outcomes, "scheduler").Level)
}

func TestRun_SchedulerDown(t *testing.T) {
	c := New(&fakeSpooler{scheduler: false}, "", 9100, nil)
	outcomes := c.Run(context.Background())
	assert.Equal(t, LevelError, outcomeByName(t, outcomes, "scheduler").Level)
}

func TestCheckStuckJobs(t *testing.T) {
	now := time.Now()
	fs := &fakeSpooler{scheduler: true, jobs: []model.Job{
		{ID: "HP-1", SubmittedAt: now.Add(-2 * time.Hour)},
		{ID: "HP-2", SubmittedAt: now.Add(-5 * time.Minute)},
		{ID: "HP-3"}, // unknown age is never counted as stuck
	}}

	c := New(fs, "", 9100, nil)
	o := c.checkStuckJobs()
	assert.Equal(t, LevelWarning, o.Level)
	assert.Contains(t, o.Detail, "1 job(s)")

	fs.jobs = fs.jobs[1:]
	o = c.checkStuckJobs()
	assert.Equal(t, LevelOK, o.Level)

	fs.jobs = nil
	o = c.checkStuckJobs()
	assert.Equal(t, LevelOK, o.Level)
	assert.Equal(t, "queue empty", o.Detail)
}
