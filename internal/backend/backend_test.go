package backend

import (
	"testing"
	"time"

	"github.com/mirusu400/wie/internal/log"
	"github.com/mirusu400/wie/internal/resource"
)

func TestClockAdvance(t *testing.T) {
	c := NewClock()
	if c.NowMillis() != 0 {
		t.Fatalf("expected 0 at epoch, got %d", c.NowMillis())
	}
	c.Advance(1500 * time.Millisecond)
	if c.NowMillis() != 1500 {
		t.Fatalf("expected 1500ms, got %d", c.NowMillis())
	}
}

func TestResolveLiteralIP(t *testing.T) {
	n := NewNetwork(log.NewNop())
	ip, err := n.Resolve("127.0.0.1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ip.String() != "127.0.0.1" {
		t.Fatalf("got %v", ip)
	}
}

func TestInputPollOrder(t *testing.T) {
	in := &Input{Log: log.NewNop()}
	in.Push(KeyEvent{Code: 1, Pressed: true})
	in.Push(KeyEvent{Code: 2, Pressed: false})

	e, ok := in.Poll()
	if !ok || e.Code != 1 {
		t.Fatalf("expected first event code 1, got %+v ok=%v", e, ok)
	}
	e, ok = in.Poll()
	if !ok || e.Code != 2 {
		t.Fatalf("expected second event code 2, got %+v ok=%v", e, ok)
	}
	if _, ok := in.Poll(); ok {
		t.Fatalf("expected queue empty")
	}
}

func TestNewBackend(t *testing.T) {
	res := resource.New()
	be := New(res, log.NewNop())
	if be.Resources != res {
		t.Fatalf("expected resource table to be wired through")
	}
	if be.Network == nil || be.Time == nil || be.Audio == nil || be.Gfx == nil || be.Input == nil {
		t.Fatalf("expected all services to be non-nil")
	}
}
