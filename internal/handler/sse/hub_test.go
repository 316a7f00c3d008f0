package sse

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubBroadcastsInOrder(t *testing.T) {
	hub := NewHub(&Config{ClientBuffer: 8}, testLogger())
	a, cancelA := hub.Subscribe("a")
	b, cancelB := hub.Subscribe("b")
	defer cancelA()
	defer cancelB()

	hub.Publish("state", 1)
	hub.Publish("intent", 2)

	for _, ch := range []<-chan Event{a, b} {
		first, second := <-ch, <-ch
		if first.Name != "state" || second.Name != "intent" || first.ID >= second.ID {
			t.Errorf("events = %+v, %+v", first, second)
		}
	}
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := NewHub(&Config{ClientBuffer: 1}, testLogger())
	ch, cancel := hub.Subscribe("slow")
	defer cancel()

	hub.Publish("state", 1)
	hub.Publish("state", 2) // dropped, must not block

	if ev := <-ch; ev.Data != 1 {
		t.Errorf("event = %+v", ev)
	}
	select {
	case ev := <-ch:
		t.Errorf("unexpected event %+v", ev)
	default:
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(nil, testLogger())
	ch, cancel := hub.Subscribe("a")
	cancel()
	cancel()

	if _, open := <-ch; open {
		t.Error("channel should be closed")
	}
	if hub.Clients() != 0 {
		t.Errorf("clients = %d", hub.Clients())
	}
	hub.Publish("state", 1)
}

func TestWriterFramesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.WriteEvent(Event{ID: 7, Name: "intent", Data: map[string]string{"target": "network"}}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteKeepAlive(); err != nil {
		t.Fatal(err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	want := "id: 7\nevent: intent\ndata: {\"target\":\"network\"}\n\n: keepalive\n\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

type countingWriter struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (c *countingWriter) WriteKeepAlive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return errors.New("broken pipe")
	}
	return nil
}

func TestKeepAliveStopsOnWriteError(t *testing.T) {
	w := &countingWriter{fail: true}
	k := NewTickerKeepAlive(time.Millisecond)

	select {
	case <-k.Start(w, testLogger()):
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not stop after a failed write")
	}
	k.Stop()
	k.Stop()
}

func TestKeepAliveStop(t *testing.T) {
	w := &countingWriter{}
	k := NewTickerKeepAlive(time.Millisecond)
	stopped := k.Start(w, testLogger())

	time.Sleep(10 * time.Millisecond)
	k.Stop()
	<-stopped

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.calls == 0 {
		t.Error("expected at least one keep-alive")
	}
}
