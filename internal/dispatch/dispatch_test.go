package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu      sync.Mutex
	bound   map[string]bool
	sent    []string
	onSend  func(sessionID, commandID string)
}

func newFakeSender(bound ...string) *fakeSender {
	m := make(map[string]bool)
	for _, s := range bound {
		m[s] = true
	}
	return &fakeSender{bound: m}
}

func (f *fakeSender) SendCaptureCommand(sessionID, commandID, kind string, payload any) (bool, error) {
	f.mu.Lock()
	f.sent = append(f.sent, commandID)
	f.mu.Unlock()
	if f.onSend != nil {
		f.onSend(sessionID, commandID)
	}
	return f.bound[sessionID], nil
}

func TestRequestCapture_NoLiveConnection(t *testing.T) {
	d := New(newFakeSender())
	_, err := d.RequestCapture(context.Background(), "s1", "dom_subtree", nil)
	require.ErrorIs(t, err, ErrNoLiveConnection)
}

func TestRequestCapture_CompletesBeforeTimeout(t *testing.T) {
	sender := newFakeSender("s1")
	d := New(sender)
	sender.onSend = func(sessionID, commandID string) {
		go d.CompleteCapture(commandID, Result{OK: true, Data: json.RawMessage(`{"v":1}`)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := d.RequestCapture(ctx, "s1", "dom_subtree", nil)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.JSONEq(t, `{"v":1}`, string(res.Data))
}

// TestRequestCapture_TimesOut is Testable Property 5: for a capture command
// with timeout T and no result, the handler returns within T + 250ms.
func TestRequestCapture_TimesOut(t *testing.T) {
	sender := newFakeSender("s1")
	d := New(sender)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := d.RequestCapture(ctx, "s1", "dom_subtree", nil)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrCaptureTimeout)
	require.Less(t, elapsed, 300*time.Millisecond)
	require.Equal(t, 0, d.Snapshot().PendingWaiters)
}

func TestCompleteCapture_LateResultDropped(t *testing.T) {
	sender := newFakeSender("s1")
	d := New(sender)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.RequestCapture(ctx, "s1", "dom_subtree", nil)
	require.ErrorIs(t, err, ErrCaptureTimeout)

	sender.mu.Lock()
	commandID := sender.sent[0]
	sender.mu.Unlock()

	d.CompleteCapture(commandID, Result{OK: true})
	require.Equal(t, 1, d.Snapshot().LateResults)
}

func TestDropSessionConnection_ResolvesOutstandingWaiters(t *testing.T) {
	sender := newFakeSender("s1")
	d := New(sender)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := d.RequestCapture(ctx, "s1", "dom_subtree", nil)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return d.Snapshot().PendingWaiters == 1
	}, time.Second, 5*time.Millisecond)

	d.DropSessionConnection("s1")

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrNoLiveConnection)
	case <-time.After(time.Second):
		t.Fatal("RequestCapture did not resolve after DropSessionConnection")
	}
	require.Equal(t, 1, d.Snapshot().DroppedOnLoss)
}

func TestRequestCapture_MultipleInFlightPerSession(t *testing.T) {
	sender := newFakeSender("s1")
	d := New(sender)
	sender.onSend = func(sessionID, commandID string) {
		go d.CompleteCapture(commandID, Result{OK: true, Data: json.RawMessage(`{}`)})
	}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, err := d.RequestCapture(ctx, "s1", "dom_subtree", nil)
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
}
