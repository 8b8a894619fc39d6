package trace

import "testing"

func TestDefaultEnricherTagsMalloc(t *testing.T) {
	e := NewEvent(0x1000, string(Kernel), "alloc", "size=16")
	DefaultEnricher(e)
	if !e.Tags.Has(Malloc) {
		t.Fatalf("expected malloc tag, got %v", e.Tags)
	}
}

func TestCollectorDrain(t *testing.T) {
	c := NewCollector()
	c.Add(NewEvent(0, string(Kernel), "alloc", ""))
	c.Add(NewEvent(0, string(Media), "clip_play", ""))

	events := c.Drain()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if more := c.Drain(); len(more) != 0 {
		t.Fatalf("expected drain to clear, got %d", len(more))
	}
}
