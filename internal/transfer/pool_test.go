package transfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	cache, err := NewCache(t.TempDir(), 1<<30, testLog())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TimeoutSecs == 0 {
		cfg.TimeoutSecs = 5
	}
	if cfg.ConnectSecs == 0 {
		cfg.ConnectSecs = 5
	}
	return NewPool(cache, cfg, testLog())
}

func collect(t *testing.T, p *Pool, n int) []Event {
	t.Helper()
	events := make([]Event, 0, n)
	timeout := time.After(10 * time.Second)
	for len(events) < n {
		select {
		case evt := <-p.Events():
			events = append(events, evt)
		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(events))
		}
	}
	return events
}

func TestPool_DownloadAndServe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	p := newTestPool(t, Config{Concurrency: 2, Retries: 1, BackoffMs: 1, BackoffMaxMs: 10})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	key := Key{SongID: 1, Br: 128}
	p.Commands() <- Command{Type: CmdRequest, Token: 10, Key: key, URL: srv.URL, Priority: PriorityHigh}

	events := collect(t, p, 1)
	if events[0].Type != EvtReady || events[0].Token != 10 {
		t.Fatalf("unexpected event: %+v", events[0])
	}

	// Second request is a cache hit, no new download.
	p.Commands() <- Command{Type: CmdRequest, Token: 11, Key: key, URL: srv.URL, Priority: PriorityHigh}
	events = collect(t, p, 1)
	if events[0].Type != EvtReady || events[0].Token != 11 {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestPool_SingleFlight(t *testing.T) {
	var downloads atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		<-release
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	p := newTestPool(t, Config{Concurrency: 4, Retries: 0, BackoffMs: 1, BackoffMaxMs: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	key := Key{SongID: 2, Br: 128}
	for tok := uint64(1); tok <= 3; tok++ {
		p.Commands() <- Command{Type: CmdRequest, Token: tok, Key: key, URL: srv.URL, Priority: PriorityHigh}
	}
	// Give the pool time to coalesce before releasing the download.
	time.Sleep(100 * time.Millisecond)
	close(release)

	events := collect(t, p, 3)
	seen := map[uint64]bool{}
	for _, evt := range events {
		if evt.Type != EvtReady {
			t.Fatalf("expected Ready for all waiters, got %+v", evt)
		}
		seen[evt.Token] = true
	}
	if !seen[1] || !seen[2] || !seen[3] {
		t.Errorf("missing waiter replies: %v", seen)
	}
	if got := downloads.Load(); got != 1 {
		t.Errorf("expected exactly one download, got %d", got)
	}
}

func TestPool_RetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestPool(t, Config{Concurrency: 1, Retries: 2, BackoffMs: 1, BackoffMaxMs: 5})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Commands() <- Command{Type: CmdRequest, Token: 5, Key: Key{SongID: 3, Br: 128}, URL: srv.URL, Priority: PriorityHigh}

	events := collect(t, p, 1)
	if events[0].Type != EvtFailed || events[0].Token != 5 {
		t.Fatalf("expected Failed event, got %+v", events[0])
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", got)
	}
}

func TestPool_CancelledWaiterGetsNoReply(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	p := newTestPool(t, Config{Concurrency: 1, Retries: 0, BackoffMs: 1, BackoffMaxMs: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	key := Key{SongID: 4, Br: 128}
	p.Commands() <- Command{Type: CmdRequest, Token: 7, Key: key, URL: srv.URL, Priority: PriorityHigh}
	p.Commands() <- Command{Type: CmdRequest, Token: 8, Key: key, URL: srv.URL, Priority: PriorityHigh}
	p.Commands() <- Command{Type: CmdCancel, Token: 7, Key: key}
	time.Sleep(100 * time.Millisecond)
	close(release)

	events := collect(t, p, 1)
	if events[0].Token != 8 {
		t.Fatalf("expected reply for remaining waiter 8, got %+v", events[0])
	}

	select {
	case evt := <-p.Events():
		t.Errorf("cancelled waiter should get no reply, got %+v", evt)
	case <-time.After(200 * time.Millisecond):
	}
}
