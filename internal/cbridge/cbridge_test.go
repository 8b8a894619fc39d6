package cbridge

import (
	"testing"

	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/log"
	"github.com/mirusu400/wie/internal/resource"
)

func newTestContext(t *testing.T) (*Context, *core.Core) {
	t.Helper()
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	res := resource.New()
	res.Add("binary.mod", []byte{1, 2, 3, 4})

	return NewContext(c, res, log.NewNop()), c
}

func TestAllocFree(t *testing.T) {
	ctx, c := newTestContext(t)

	id, err := ctx.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	data, err := c.ReadU32(id)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if data == 0 {
		t.Fatalf("expected id cell to hold a data pointer")
	}

	if err := ctx.Free(id); err != nil {
		t.Fatalf("Free: %v", err)
	}
}

func TestGetResourceID(t *testing.T) {
	ctx, c := newTestContext(t)

	ptrSize, err := c.Malloc(4)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}

	id, err := ctx.GetResourceID("binary.mod", ptrSize)
	if err != nil {
		t.Fatalf("GetResourceID: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected id 0, got %d", id)
	}

	size, err := c.ReadU32(ptrSize)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if size != 4 {
		t.Fatalf("expected size 4, got %d", size)
	}

	missing, err := ctx.GetResourceID("nope", ptrSize)
	if err != nil {
		t.Fatalf("GetResourceID: %v", err)
	}
	if missing != -1 {
		t.Fatalf("expected -1 for missing resource, got %d", missing)
	}
}

func TestGetResource(t *testing.T) {
	ctx, c := newTestContext(t)

	bufPtr, err := c.Malloc(4)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	dest, err := c.Malloc(16)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := c.WriteU32(bufPtr, dest); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}

	status, err := ctx.GetResource(0, bufPtr, 16)
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if status != 0 {
		t.Fatalf("expected status 0, got %d", status)
	}

	got, err := c.Read(dest, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDefTimer(t *testing.T) {
	ctx, _ := newTestContext(t)

	id := ctx.DefTimer(1000, 0x1234, 0x5678)
	timers := ctx.Timers()
	timer, ok := timers[id]
	if !ok {
		t.Fatalf("expected timer %d to be registered", id)
	}
	if timer.Interval != 1000 || timer.Callback != 0x1234 || timer.Param != 0x5678 {
		t.Fatalf("unexpected timer contents: %+v", timer)
	}

	ctx.CancelTimer(id)
	if _, ok := ctx.Timers()[id]; ok {
		t.Fatalf("expected timer to be canceled")
	}
}

func TestResolveHostWithoutNetwork(t *testing.T) {
	ctx, c := newTestContext(t)

	hostPtr, err := c.Malloc(16)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := c.WriteCString(hostPtr, "example.com"); err != nil {
		t.Fatalf("WriteCString: %v", err)
	}
	addrOut, err := c.Malloc(4)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}

	status, err := ctx.ResolveHost(hostPtr, addrOut)
	if err != nil {
		t.Fatalf("ResolveHost: %v", err)
	}
	if status != -1 {
		t.Fatalf("expected -1 with no Network configured, got %d", status)
	}
}

func TestMethodTableInstall(t *testing.T) {
	_, c := newTestContext(t)

	var called bool
	hooks := []func(*core.Core){
		func(c *core.Core) {
			called = true
			c.SetR(0, 42)
		},
		nil,
	}
	names := []string{"first", "second"}

	tbl, err := Install(c, log.NewNop(), "test", names, hooks)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if tbl.Count != 2 {
		t.Fatalf("expected 2 entries, got %d", tbl.Count)
	}

	addr0, err := c.ReadU32(tbl.Base)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}

	ret, err := c.RunFunction(addr0, nil)
	if err != nil {
		t.Fatalf("RunFunction: %v", err)
	}
	if !called || ret != 42 {
		t.Fatalf("expected hook to run and return 42, called=%v ret=%d", called, ret)
	}
}
