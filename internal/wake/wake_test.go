package wake

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			_ = conn.Close()
		}
	}()
	return ln, &accepted
}

func proberFor(t *testing.T, ln net.Listener) *Prober {
	t.Helper()
	addr := ln.Addr().(*net.TCPAddr)
	return New("127.0.0.1", addr.Port, nil, nil)
}

func TestProbe_TouchesListener(t *testing.T) {
	ln, accepted := listen(t)
	p := proberFor(t, ln)

	require.NoError(t, p.Probe())

	deadline := time.Now().Add(2 * time.Second)
	for accepted.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, accepted.Load(), int32(1))
}

func TestProbe_FailsWhenNobodyListens(t *testing.T) {
	ln, _ := listen(t)
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	p := New("127.0.0.1", addr.Port, nil, nil)
	assert.Error(t, p.Probe())
}

func TestStart_ProbesOnInterval(t *testing.T) {
	ln, accepted := listen(t)
	p := proberFor(t, ln)

	p.Start(20 * time.Millisecond)
	defer p.Stop()
	assert.True(t, p.Running())

	deadline := time.Now().Add(5 * time.Second)
	for accepted.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, accepted.Load(), int32(2))
}

func TestStop_PreventsFutureProbes(t *testing.T) {
	ln, accepted := listen(t)
	p := proberFor(t, ln)

	p.Start(20 * time.Millisecond)
	deadline := time.Now().Add(5 * time.Second)
	for accepted.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	p.Stop()
	assert.False(t, p.Running())
	after := accepted.Load()
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, accepted.Load(), after+1)
}

func TestStart_NonPositiveIntervalStops(t *testing.T) {
	ln, accepted := listen(t)
	p := proberFor(t, ln)

	p.Start(0)
	assert.False(t, p.Running())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, accepted.Load())
}
