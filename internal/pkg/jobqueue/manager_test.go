package jobqueue

import (
	"testing"
	"time"
)

// Stop must leave the closed stop channel in place until Start replaces
// it. The flush worker re-reads the field on every loop iteration; a nil
// channel there blocks forever and hangs the waitgroup.
func TestManagerStopTerminates(t *testing.T) {
	setupTestRedis(t)

	m := &Manager{
		queue:  NewQueue(1, &fakePoller{}),
		stopCh: make(chan struct{}),
	}

	m.Start()
	if !m.IsRunning() {
		t.Fatal("manager not running after Start")
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return, flush worker deadlocked")
	}

	if m.IsRunning() {
		t.Fatal("manager still running after Stop")
	}
	if m.stopCh == nil {
		t.Fatal("stop channel cleared; a worker mid-flush would block on a nil channel")
	}
}
