package wipic

import (
	"github.com/mirusu400/wie/internal/cbridge"
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/marshal"
)

func init() {
	register(buildKernelTable)
}

// buildKernelTable mirrors the WIPI kernel method table: 20 reserved
// ordinals, then alloc/calloc/free, a couple more reserved slots,
// def_timer, two reserved, current_time, two reserved, get_resource_id,
// get_resource, and a trailing reserved slot for a vendor extension ordinal.
func buildKernelTable(ctx *cbridge.Context) Table {
	names := make([]string, 0, 34)
	hooks := make([]func(*core.Core), 0, 34)

	add := func(name string, hook func(*core.Core)) {
		names = append(names, name)
		hooks = append(hooks, hook)
	}

	for i := 0; i < 20; i++ {
		add("reserved", nil)
	}

	add("alloc", marshal.Adapt1(func(_ *core.Core, size uint32) uint32 {
		ptr, err := ctx.Alloc(size)
		if err != nil {
			return 0
		}
		return ptr
	}, marshal.Word))

	add("calloc", marshal.Adapt1(func(_ *core.Core, size uint32) uint32 {
		ptr, err := ctx.Alloc(size)
		if err != nil {
			return 0
		}
		return ptr
	}, marshal.Word))

	add("free", marshal.Adapt1(func(_ *core.Core, ptr uint32) uint32 {
		_ = ctx.Free(ptr)
		return ptr
	}, marshal.Word))

	add("reserved", nil)
	add("reserved", nil)

	add("def_timer", marshal.Adapt2(func(_ *core.Core, interval, callback uint32) uint32 {
		ctx.DefTimer(interval, callback, 0)
		return 0
	}, marshal.Word, marshal.Word))

	add("reserved", nil)
	add("reserved", nil)

	add("current_time", marshal.Adapt0(func(_ *core.Core) uint32 {
		return ctx.CurrentTime()
	}))

	add("reserved", nil)
	add("reserved", nil)

	add("get_resource_id", marshal.Adapt2(func(_ *core.Core, name string, ptrSize uint32) uint32 {
		id, err := ctx.GetResourceID(name, ptrSize)
		if err != nil {
			return 0xffffffff
		}
		return uint32(id)
	}, marshal.CString, marshal.Word))

	add("get_resource", marshal.Adapt3(func(_ *core.Core, id, buf, bufSize uint32) uint32 {
		status, err := ctx.GetResource(id, buf, bufSize)
		if err != nil {
			return 0xffffffff
		}
		return uint32(status)
	}, marshal.Word, marshal.Word, marshal.Word))

	add("reserved", nil)

	return Table{Category: "kernel", Names: names, Hooks: hooks}
}
