package wipic

import (
	"testing"

	"github.com/mirusu400/wie/internal/cbridge"
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/log"
	"github.com/mirusu400/wie/internal/resource"
)

func TestInstallAll(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	res := resource.New()
	ctx := cbridge.NewContext(c, res, log.NewNop())

	tables, err := InstallAll(ctx)
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}

	kernel, ok := tables["kernel"]
	if !ok {
		t.Fatalf("expected kernel table to be installed")
	}
	if kernel.Count != 34 {
		t.Fatalf("expected 34 kernel ordinals, got %d", kernel.Count)
	}

	media, ok := tables["media"]
	if !ok {
		t.Fatalf("expected media table to be installed")
	}
	if media.Count != 27 {
		t.Fatalf("expected 27 media ordinals, got %d", media.Count)
	}

	network, ok := tables["network"]
	if !ok {
		t.Fatalf("expected network table to be installed")
	}
	if network.Count != 3 {
		t.Fatalf("expected 3 network ordinals, got %d", network.Count)
	}
}

func TestNetworkResolveWithNoBackend(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	res := resource.New()
	ctx := cbridge.NewContext(c, res, log.NewNop())

	tbl := buildNetworkTable(ctx)
	idx := -1
	for i, n := range tbl.Names {
		if n == "resolve_host" {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.Fatalf("resolve_host ordinal not found")
	}

	addr, err := c.RegisterFunction(tbl.Hooks[idx])
	if err != nil {
		t.Fatalf("RegisterFunction: %v", err)
	}

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

	ret, err := c.RunFunction(addr, []uint32{hostPtr, addrOut})
	if err != nil {
		t.Fatalf("RunFunction: %v", err)
	}
	if ret != 0xFFFFFFFF {
		t.Fatalf("expected failure status with no Network backend, got %#x", ret)
	}
}

func TestKernelAllocThroughTable(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	res := resource.New()
	ctx := cbridge.NewContext(c, res, log.NewNop())

	tbl := buildKernelTable(ctx)
	idx := -1
	for i, n := range tbl.Names {
		if n == "alloc" {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.Fatalf("alloc ordinal not found")
	}

	addr, err := c.RegisterFunction(tbl.Hooks[idx])
	if err != nil {
		t.Fatalf("RegisterFunction: %v", err)
	}

	ret, err := c.RunFunction(addr, []uint32{64})
	if err != nil {
		t.Fatalf("RunFunction: %v", err)
	}
	if ret == 0 {
		t.Fatalf("expected non-zero allocation id")
	}
}
