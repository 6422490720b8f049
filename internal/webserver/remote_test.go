package webserver

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tejzpr/eloy-nominator/internal/events"
	"github.com/tejzpr/eloy-nominator/internal/nomination"
)

func TestRemoteClientRoundTrip(t *testing.T) {
	ledger := setupTestLedger(t)
	fake := &fakeSubmitter{
		categories: []string{"Entrepreneur"},
		outcome:    nomination.Outcome{Success: true, Sent: true, Detail: "ok"},
		ledger:     ledger,
	}
	srv := httptest.NewServer(New(fake, ledger, nil, zap.NewNop()).Handler())
	defer srv.Close()

	c := NewRemoteClient(srv.URL+"/", 5*time.Second)
	ctx := context.Background()

	if !c.Healthy(ctx) {
		t.Fatal("expected healthy server")
	}

	cats, err := c.Categories(ctx)
	if err != nil {
		t.Fatalf("categories failed: %v", err)
	}
	if len(cats) != 1 || cats[0] != "Entrepreneur" {
		t.Errorf("unexpected categories %v", cats)
	}

	out, err := c.Submit(ctx, nomination.Request{NomineeFirst: "Jane", Category: "Entrepreneur"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !out.Success || out.Detail != "ok" {
		t.Errorf("unexpected outcome %+v", out)
	}

	subs, err := c.Submissions(ctx)
	if err != nil {
		t.Fatalf("submissions failed: %v", err)
	}
	if len(subs) != 1 || subs[0].NomineeFirst != "Jane" {
		t.Errorf("unexpected submissions %+v", subs)
	}
}

func TestRemoteClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	c := NewRemoteClient(url, time.Second)
	if c.Healthy(context.Background()) {
		t.Error("expected unhealthy for closed server")
	}
	if _, err := c.Categories(context.Background()); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := New(&fakeSubmitter{}, setupTestLedger(t), nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeShutsDownWithOpenEventStream(t *testing.T) {
	s := New(&fakeSubmitter{}, setupTestLedger(t), events.NewBroker(), zap.NewNop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/events")
	if err != nil {
		t.Fatalf("connect to event stream failed: %v", err)
	}
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatalf("read keepalive failed: %v", err)
	}
	if !strings.HasPrefix(line, ": keepalive") {
		t.Fatalf("expected keepalive, got %q", line)
	}

	start := time.Now()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("shutdown took %v with a stream open", elapsed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down with an open event stream")
	}
}
