// Package events fans queue notifications out to any number of consumers
// (CLI, log file, desktop notifier, test harness) with a uniform
// severity-classified interface.
package events

import (
	"sync"
	"time"
)

// Type identifies what happened.
type Type string

const (
	// TypeSnapshot is published every time a new queue snapshot lands.
	TypeSnapshot Type = "snapshot"
	// TypeQueueStateChanged is published when the disabled flag flips
	// between two consecutive snapshots.
	TypeQueueStateChanged Type = "queue_state_changed"
	// TypeMutation is published after a cancel/pause/resume was issued.
	TypeMutation Type = "mutation"
	// TypeDiagnostic is published for each completed diagnostic check.
	TypeDiagnostic Type = "diagnostic"
	// TypeWake is published after each wake probe attempt.
	TypeWake Type = "wake"
)

// Severity classifies an event for display. It replaces the ad hoc
// info/ok/warn/err callback quartet this design grew out of.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one classified notification.
type Event struct {
	Type     Type
	Severity Severity
	Message  string
	Time     time.Time
	Data     map[string]any
}

// Subscriber receives events asynchronously.
type Subscriber func(Event)

// Bus is a non-blocking publish/subscribe fan-out. Each subscriber gets
// a buffered channel drained by its own goroutine; when a subscriber
// falls behind, events for it are dropped rather than stalling the
// refresh path.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]chan Event
	bufferSize  int
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		subscribers: make(map[Type][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers fn for one event type and returns an unsubscribe
// function. Delivery is asynchronous; a panicking subscriber is
// recovered so it cannot take the bus down with it.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers[t] = append(b.subscribers[t], ch)

	go func() {
		for ev := range ch {
			func() {
				defer func() { recover() }()
				fn(ev)
			}()
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[t]
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[t] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

// Publish delivers an event to every subscriber of its type without
// blocking; a full subscriber channel drops the event for that
// subscriber only.
func (b *Bus) Publish(t Type, sev Severity, message string, data map[string]any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ev := Event{
		Type:     t,
		Severity: sev,
		Message:  message,
		Time:     time.Now(),
		Data:     data,
	}

	for _, ch := range b.subscribers[t] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes all subscriber channels and clears subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for t, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, t)
	}
}
