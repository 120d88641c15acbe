package events

import (
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	unsub := bus.Subscribe(TypeSnapshot, func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})
	defer unsub()

	bus.Publish(TypeSnapshot, SeverityInfo, "queue refreshed", map[string]any{"jobs": 3})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if received[0].Type != TypeSnapshot {
		t.Errorf("type = %s", received[0].Type)
	}
	if received[0].Severity != SeverityInfo {
		t.Errorf("severity = %s", received[0].Severity)
	}
	if got, ok := received[0].Data["jobs"].(int); !ok || got != 3 {
		t.Errorf("data jobs = %v", received[0].Data["jobs"])
	}
}

func TestBus_TypeIsolation(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	var mu sync.Mutex
	var got []Type

	unsub := bus.Subscribe(TypeMutation, func(e Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})
	defer unsub()

	bus.Publish(TypeSnapshot, SeverityInfo, "ignored", nil)
	bus.Publish(TypeMutation, SeveritySuccess, "cancel requested", nil)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if got[0] != TypeMutation {
		t.Errorf("got %v", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	unsub := bus.Subscribe(TypeWake, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(TypeWake, SeverityInfo, "probe ok", nil)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	unsub()
	bus.Publish(TypeWake, SeverityInfo, "probe ok", nil)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("count = %d after unsubscribe", count)
	}
}

func TestBus_PanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	unsub1 := bus.Subscribe(TypeDiagnostic, func(Event) {
		panic("bad subscriber")
	})
	defer unsub1()
	unsub2 := bus.Subscribe(TypeDiagnostic, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer unsub2()

	bus.Publish(TypeDiagnostic, SeverityError, "ping failed", nil)
	bus.Publish(TypeDiagnostic, SeveritySuccess, "port open", nil)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 2
	})
}
