// Package trace provides types for collecting method-table call events
// during a run, for the CLI's --verbose output and for tests that assert
// on what an app called. Adapted from the teacher's trace event
// collector: same Tag/Event/Enricher shape, WIPI categories instead of
// Android-native ones.
package trace

import (
	"sync"
	"time"
)

// Tag categorizes a trace event. Stored without the '#' prefix; the
// prefix is added on rendering.
type Tag string

const (
	Kernel     Tag = "kernel"
	Media      Tag = "media"
	Graphics   Tag = "graphics"
	Network    Tag = "network"
	JavaCall   Tag = "java-call"
	ClassLoad  Tag = "class-load"
	FieldAccess Tag = "field-access"
	Resource   Tag = "resource"
	Timer      Tag = "timer"
	StringOp   Tag = "string"
	Malloc     Tag = "malloc"
	Fallback   Tag = "fallback"
)

// Tags is a collection of tags with helper methods.
type Tags []Tag

func (t Tags) Has(tag Tag) bool {
	for _, x := range t {
		if x == tag {
			return true
		}
	}
	return false
}

func (t *Tags) Add(tag Tag) {
	if !t.Has(tag) {
		*t = append(*t, tag)
	}
}

// Strings returns tags as strings with '#' prefix, for display.
func (t Tags) Strings() []string {
	out := make([]string, len(t))
	for i, tag := range t {
		out[i] = "#" + string(tag)
	}
	return out
}

func (t Tags) Primary() Tag {
	if len(t) > 0 {
		return t[0]
	}
	return ""
}

// Annotations holds key-value metadata for a trace event.
type Annotations map[string]string

func (a Annotations) Set(k, v string) { a[k] = v }
func (a Annotations) Get(k string) string { return a[k] }

// Event is a single method-table call observed during a run.
type Event struct {
	PC          uint64
	Tags        Tags
	Name        string
	Detail      string
	Annotations Annotations
	Timestamp   time.Time
}

// NewEvent creates an event tagged with category.
func NewEvent(pc uint64, category, name, detail string) *Event {
	return &Event{
		PC:          pc,
		Tags:        Tags{Tag(category)},
		Name:        name,
		Detail:      detail,
		Annotations: make(Annotations),
		Timestamp:   time.Now(),
	}
}

func (e *Event) AddTag(tag Tag) {
	e.Tags.Add(tag)
}

func (e *Event) Annotate(k, v string) {
	if e.Annotations == nil {
		e.Annotations = make(Annotations)
	}
	e.Annotations.Set(k, v)
}

func (e *Event) PrimaryTag() string {
	if len(e.Tags) > 0 {
		return "#" + string(e.Tags[0])
	}
	return ""
}

// Enricher adds derived tags to an event based on its category and name.
type Enricher func(e *Event)

// DefaultEnricher mirrors the teacher's category-to-tag heuristics,
// retargeted at WIPI method-table categories instead of Android-native
// import categories.
func DefaultEnricher(e *Event) {
	if len(e.Tags) == 0 {
		return
	}

	switch e.Tags[0] {
	case Kernel:
		switch e.Name {
		case "alloc", "calloc", "free":
			e.AddTag(Malloc)
		case "get_resource", "get_resource_id":
			e.AddTag(Resource)
		case "def_timer", "cancel_timer":
			e.AddTag(Timer)
		}
	case ClassLoad:
		e.AddTag(JavaCall)
	case FieldAccess:
		e.AddTag(JavaCall)
	}
}

// Collector accumulates events as they're reported and hands them back
// in batches. Guarded by a mutex since tasks (internal/sched) can report
// events from different goroutines even though only one runs at a time.
type Collector struct {
	mu     sync.Mutex
	events []*Event
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Add(e *Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Drain returns accumulated events and clears the collector.
func (c *Collector) Drain() []*Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.events
	c.events = nil
	return events
}
