package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marcus/taskbot/internal/events"
)

func TestBuildPayload(t *testing.T) {
	evs := []events.Event{
		events.New(events.EntityTasks, events.ActionCreated, 1, 10, nil),
		events.New(events.EntityTasks, events.ActionCompleted, 1, 11, nil),
	}

	p := BuildPayload("taskbot", evs)

	if p.Source != "taskbot" {
		t.Errorf("Source = %q, want taskbot", p.Source)
	}
	if len(p.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(p.Events))
	}
	if p.Events[1].Type != "task.completed" {
		t.Errorf("Events[1].Type = %q, want task.completed", p.Events[1].Type)
	}
	if p.Timestamp == "" {
		t.Error("Timestamp not set")
	}
}

func TestBuildPayload_Empty(t *testing.T) {
	p := BuildPayload("taskbot", nil)
	if len(p.Events) != 0 {
		t.Errorf("len(Events) = %d, want 0", len(p.Events))
	}
}

func TestDispatch_Success(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	payload := BuildPayload("taskbot", []events.Event{
		events.New(events.EntityUsers, events.ActionRegistered, 5, 5, nil),
	})

	if err := Dispatch(context.Background(), srv.URL, "", payload); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if gotHeaders.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotHeaders.Get("Content-Type"))
	}
	if gotHeaders.Get("X-Taskbot-Timestamp") == "" {
		t.Error("X-Taskbot-Timestamp header missing")
	}
	if gotHeaders.Get("X-Taskbot-Signature") != "" {
		t.Error("X-Taskbot-Signature should be absent without secret")
	}

	var p Payload
	if err := json.Unmarshal(gotBody, &p); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if len(p.Events) != 1 || p.Events[0].Type != "user.registered" {
		t.Errorf("body events = %+v, want one user.registered", p.Events)
	}
}

func TestDispatch_WithSecret(t *testing.T) {
	secret := "test-hmac-key"
	var gotBody []byte
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	if err := Dispatch(context.Background(), srv.URL, secret, BuildPayload("taskbot", nil)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	sig := gotHeaders.Get("X-Taskbot-Signature")
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("signature missing or wrong prefix: %q", sig)
	}

	expected := Sign(secret, gotHeaders.Get("X-Taskbot-Timestamp"), gotBody)
	if sig != expected {
		t.Errorf("signature mismatch:\n  got:  %s\n  want: %s", sig, expected)
	}
}

func TestDispatch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	err := Dispatch(context.Background(), srv.URL, "", Payload{})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %q, want to contain 'status 500'", err.Error())
	}
}

func TestPublisher_DeliversBatches(t *testing.T) {
	var mu sync.Mutex
	var received []events.Event

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Payload
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		received = append(received, p.Events...)
		mu.Unlock()
		w.WriteHeader(204)
	}))
	defer srv.Close()

	pub := NewPublisher(Config{URL: srv.URL, Secret: "k"}, "taskbot", nil)
	for i := int64(1); i <= 3; i++ {
		pub.Publish(events.New(events.EntityTasks, events.ActionCreated, i, 1, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pub.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("received %d events, want 3", len(received))
	}
	if received[0].EntityID != 1 || received[2].EntityID != 3 {
		t.Errorf("events out of order: %+v", received)
	}
}

func TestPublisher_DisabledIsNoop(t *testing.T) {
	pub := NewPublisher(Config{}, "taskbot", nil)
	pub.Publish(events.New(events.EntityTasks, events.ActionCreated, 1, 1, nil))
	if len(pub.queue) != 0 {
		t.Errorf("queue length = %d, want 0", len(pub.queue))
	}

	var nilPub *Publisher
	nilPub.Publish(events.New(events.EntityTasks, events.ActionCreated, 1, 1, nil))
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	pub := NewPublisher(Config{URL: "http://127.0.0.1:1", QueueSize: 2}, "taskbot", nil)
	for i := int64(0); i < 5; i++ {
		pub.Publish(events.New(events.EntityTasks, events.ActionCreated, i, 1, nil))
	}
	if len(pub.queue) != 2 {
		t.Errorf("queue length = %d, want 2", len(pub.queue))
	}
}

func TestPublisher_DropsInvalidEvents(t *testing.T) {
	pub := NewPublisher(Config{URL: "http://127.0.0.1:1"}, "taskbot", nil)
	pub.Publish(events.New(events.EntityUsers, events.ActionArchived, 1, 1, nil))
	pub.Publish(events.Event{EntityType: events.EntityTasks, Action: events.ActionCreated})
	if len(pub.queue) != 0 {
		t.Errorf("queue length = %d, want 0", len(pub.queue))
	}

	pub.Publish(events.New(events.EntityUsers, events.ActionRegistered, 1, 1, nil))
	if len(pub.queue) != 1 {
		t.Errorf("queue length = %d, want 1", len(pub.queue))
	}
}
