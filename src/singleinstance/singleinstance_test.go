package singleinstance

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// freePort finds a loopback port nothing is listening on.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func testOptions(t *testing.T) Options {
	p := freePort(t)
	return Options{PortStart: p, PortEnd: p, Logger: zerolog.Nop()}
}

func TestServerClientRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	opts := testOptions(t)
	srv := NewServer(opts)
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback listener unavailable in this environment: %v", err)
	}
	defer srv.Close()

	if _, ok := DetectResidentPort(ctx, opts); !ok {
		t.Fatal("expected resident to answer PING")
	}

	client := NewClient(opts)
	delegatedCh := make(chan struct{})
	go func() {
		defer close(delegatedCh)
		delegated, detail, err := client.TryCapture(ctx, 2)
		if err != nil {
			t.Errorf("client: %v", err)
		}
		if !delegated {
			t.Errorf("expected delegation")
		}
		if detail != "ok" {
			t.Errorf("detail = %q, want ok", detail)
		}
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if conn.Request().Monitor != 2 {
		t.Errorf("expected monitor 2, got %d", conn.Request().Monitor)
	}
	if err := conn.RespondSuccess("ok"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	conn.Close()
	<-delegatedCh
}

func TestClientReportsResidentError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	opts := testOptions(t)
	srv := NewServer(opts)
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback listener unavailable in this environment: %v", err)
	}
	defer srv.Close()

	errCh := make(chan error, 1)
	go func() {
		_, _, err := NewClient(opts).TryCapture(ctx, 0)
		errCh <- err
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	_ = conn.RespondError("monitor not found")
	conn.Close()

	if err := <-errCh; err == nil || err.Error() != "monitor not found" {
		t.Errorf("expected resident error, got %v", err)
	}
}

func TestNoResident(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	delegated, _, err := NewClient(testOptions(t)).TryCapture(ctx, 0)
	if err != nil || delegated {
		t.Errorf("expected no delegation, got delegated=%v err=%v", delegated, err)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		line string
		want Request
		ok   bool
	}{
		{"CAPTURE\n", Request{}, true},
		{"CAPTURE 1\n", Request{Monitor: 1}, true},
		{"CAPTURE -1\n", Request{}, false},
		{"CAPTURE x\n", Request{}, false},
		{"STDOUT\n", Request{}, false},
		{"", Request{}, false},
	}
	for _, tt := range tests {
		got, ok := parseRequest(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseRequest(%q) = %+v, %v; want %+v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPortRange(t *testing.T) {
	t.Setenv("AI_SHOT_PORT_START", "")
	t.Setenv("AI_SHOT_PORT_END", "")
	if s, e := portRange(Options{}); s != defaultPortStart || e != defaultPortEnd {
		t.Errorf("defaults = %d-%d", s, e)
	}
	if s, e := portRange(Options{PortStart: 60010, PortEnd: 60000}); s != 60000 || e != 60010 {
		t.Errorf("swapped range = %d-%d", s, e)
	}
	t.Setenv("AI_SHOT_PORT_START", "80")
	if s, _ := portRange(Options{}); s != 1024 {
		t.Errorf("clamped start = %d", s)
	}
}
