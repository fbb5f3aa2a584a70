package dispatcher

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skywatch/saucerdefense/pkg/core"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func ev(name string) Event {
	return Event{CombatEvent: core.CombatEvent{Name: name}}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register(":TEST:", func(e Event) (any, error) {
		called = true
		return "result", nil
	})

	result, err := d.Dispatch(ev(":TEST:"))

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
}

func TestDispatcher_UnknownEvent(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(ev(":UNKNOWN:"))

	if err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register(":BUFFERED:", func(e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(100))

	// Dispatch 3 events
	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(ev(":BUFFERED:"))
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	// Wait for processing
	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	// Block the handler so queue fills up
	block := make(chan struct{})
	d.Register(":FULL:", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(2))

	// Fill the queue (2 items) + 1 being processed
	d.Dispatch(ev(":FULL:")) // being processed
	d.Dispatch(ev(":FULL:")) // queued
	d.Dispatch(ev(":FULL:")) // queued

	// This should be dropped
	_, err := d.Dispatch(ev(":FULL:"))

	if err == nil {
		t.Error("expected error when queue is full")
	}

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register(":BLOCKING:", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	// First event starts processing
	d.Dispatch(ev(":BLOCKING:"))
	// Second event fills the queue
	d.Dispatch(ev(":BLOCKING:"))

	// Third event should block (test with timeout)
	done := make(chan struct{})
	go func() {
		d.Dispatch(ev(":BLOCKING:"))
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	close(block)
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":LOGGED:", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(ev(":LOGGED:"))

	// Give time for logging
	time.Sleep(10 * time.Millisecond)

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ERROR:", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(ev(":ERROR:"))

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":EXISTS:", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler(":EXISTS:") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler(":NOT_EXISTS:") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)

	d.Register(":COMBINED:", func(e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(ev(":COMBINED:"))

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "queued" {
		t.Errorf("expected 'queued', got %v", result)
	}

	wg.Wait()

	if processed.Load() != 1 {
		t.Errorf("expected 1 processed, got %d", processed.Load())
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_AnyEventSeesEverything(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var named, all []string
	d.Register(core.EventUFOHit, func(e Event) (any, error) {
		named = append(named, e.Name)
		return "named", nil
	})
	d.Register(AnyEvent, func(e Event) (any, error) {
		all = append(all, e.Name)
		return "all", nil
	})

	result, err := d.Dispatch(ev(core.EventUFOHit))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "named" {
		t.Errorf("expected named handler result, got %v", result)
	}

	result, err = d.Dispatch(ev(core.EventLaserFired))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "all" {
		t.Errorf("expected catch-all result, got %v", result)
	}

	if len(named) != 1 || len(all) != 2 {
		t.Errorf("expected 1 named and 2 catch-all calls, got %d and %d", len(named), len(all))
	}
}

func TestDispatcher_AnyEventErrorJoined(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(core.EventVictory, func(e Event) (any, error) { return nil, nil })
	d.Register(AnyEvent, func(e Event) (any, error) { return nil, fmt.Errorf("recorder down") })

	if _, err := d.Dispatch(ev(core.EventVictory)); err == nil {
		t.Error("expected catch-all error to surface")
	}
}

func TestDispatcher_StampsTimestamp(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got time.Time
	d.Register(":STAMP:", func(e Event) (any, error) {
		got = e.Timestamp
		return nil, nil
	})

	d.Dispatch(ev(":STAMP:"))
	if got.IsZero() {
		t.Error("expected dispatch to stamp the event")
	}
}

func TestDispatcher_CloseDrainsQueues(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(":DRAIN:", func(e Event) (any, error) {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil, nil
	}, Buffered(16), Blocking())

	for i := 0; i < 10; i++ {
		if _, err := d.Dispatch(ev(":DRAIN:")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	d.Close()

	if processed.Load() != 10 {
		t.Errorf("expected 10 processed after close, got %d", processed.Load())
	}
	if _, err := d.Dispatch(ev(":DRAIN:")); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	d.Close()
}

func TestDispatcher_ReregisterBufferedStopsOldWorker(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var first, second atomic.Int32
	d.Register(":SWAP:", func(e Event) (any, error) {
		first.Add(1)
		return nil, nil
	}, Buffered(4), Blocking())
	d.Dispatch(ev(":SWAP:"))

	d.Register(":SWAP:", func(e Event) (any, error) {
		second.Add(1)
		return nil, nil
	}, Buffered(4), Blocking())
	d.Dispatch(ev(":SWAP:"))
	d.Dispatch(ev(":SWAP:"))

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after re-registering a buffered handler")
	}

	if first.Load() != 1 {
		t.Errorf("expected 1 event on the replaced handler, got %d", first.Load())
	}
	if second.Load() != 2 {
		t.Errorf("expected 2 events on the new handler, got %d", second.Load())
	}
}

func TestDispatcher_RegisterAfterClose(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register(":LATE:", func(e Event) (any, error) { return nil, nil }, Buffered(1))
	d.Close()

	d.Register(":LATE:", func(e Event) (any, error) { return nil, nil }, Buffered(1))
	if _, err := d.Dispatch(ev(":LATE:")); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	d.Close()
}
