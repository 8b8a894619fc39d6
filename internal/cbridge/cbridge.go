// Package cbridge implements the WIPI C method-table bridge: the interface
// native (ARM) WIPI binaries use to call back into the platform for memory,
// resource, timer and kernel services. Method tables are plain arrays of
// guest-visible function pointers; this package builds those arrays out of
// host Go functions and the "C memory id" allocation discipline WIPI C code
// expects from kernel alloc/free.
package cbridge

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mirusu400/wie/internal/backend"
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/log"
	"github.com/mirusu400/wie/internal/resource"
)

// Timer is the record def_timer keeps for one registered kernel timer.
type Timer struct {
	Interval uint32
	Callback uint32
	Param    uint32
}

// Context is the host-side state backing the C method tables: guest memory
// access, the resource table, and kernel bookkeeping (timers, start time).
type Context struct {
	Core      *core.Core
	Resources *resource.Table
	Log       *log.Logger
	Network   *backend.Network

	start  time.Time
	timers map[uint32]*Timer
	nextID uint32
}

// NewContext wires a C bridge context to a running core and its resource
// table.
func NewContext(c *core.Core, res *resource.Table, logger *log.Logger) *Context {
	return &Context{
		Core:      c,
		Resources: res,
		Log:       logger,
		start:     time.Now(),
		timers:    make(map[uint32]*Timer),
	}
}

// Alloc implements kernel alloc/calloc: it reserves a 4-byte indirection
// cell (the "id" WIPI C code passes around as the pointer) plus a separate
// data block of size+8 bytes (an 8-byte safety margin for apps that write a
// little past what they asked for, matching what shipped WIPI binaries
// assume), and writes the data block's address into the id cell.
func (c *Context) Alloc(size uint32) (uint32, error) {
	id, err := c.Core.Malloc(4)
	if err != nil {
		return 0, err
	}
	data, err := c.Core.Malloc(size + 8)
	if err != nil {
		return 0, err
	}
	if err := c.Core.WriteU32(id, data); err != nil {
		return 0, err
	}
	return id, nil
}

// Free releases both the data block an id cell points at and the cell
// itself.
func (c *Context) Free(id uint32) error {
	data, err := c.Core.ReadU32(id)
	if err != nil {
		return err
	}
	if err := c.Core.Free(data); err != nil {
		return err
	}
	return c.Core.Free(id)
}

// GetResourceID resolves name to a resource id and writes its size to
// ptrSize. It returns -1 (not an error) when the resource does not exist,
// matching the C calling convention's signed-return-as-status idiom.
func (c *Context) GetResourceID(name string, ptrSize uint32) (int32, error) {
	id, ok := c.Resources.ID(name)
	if !ok {
		return -1, nil
	}
	if err := c.Core.WriteU32(ptrSize, c.Resources.Size(id)); err != nil {
		return 0, err
	}
	return int32(id), nil
}

// GetResource copies resource id's bytes into the guest buffer pointed to
// by buf (itself a pointer-to-pointer: *buf holds the destination
// address), failing with -1 if it does not fit in bufSize.
func (c *Context) GetResource(id, buf, bufSize uint32) (int32, error) {
	if int(id) >= c.Resources.Len() {
		return -1, nil
	}
	size := c.Resources.Size(id)
	if size > bufSize {
		return -1, nil
	}

	dest, err := c.Core.ReadU32(buf)
	if err != nil {
		return 0, err
	}
	if err := c.Core.Write(dest, c.Resources.Data(id)); err != nil {
		return 0, err
	}
	return 0, nil
}

// CurrentTime returns milliseconds since the context was created.
func (c *Context) CurrentTime() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// DefTimer records a timer (interval in milliseconds, callback, param) and
// returns its id for a later CancelTimer. It only stores the record: nothing
// in the runtime fires registered timers or invokes their callbacks.
func (c *Context) DefTimer(interval, callback, param uint32) uint32 {
	id := c.nextID
	c.nextID++
	c.timers[id] = &Timer{Interval: interval, Callback: callback, Param: param}
	return id
}

// CancelTimer removes a previously registered timer.
func (c *Context) CancelTimer(id uint32) {
	delete(c.timers, id)
}

// Timers returns every currently registered timer, keyed by id.
func (c *Context) Timers() map[uint32]*Timer {
	return c.timers
}

// ResolveHost backs the network method table's connect/resolve ordinals:
// it reads a NUL-terminated hostname out of guest memory, resolves it
// through the backend's Network service, and writes the resulting IPv4
// address (network byte order) to addrOut. Returns -1 when there is no
// Network, the name cannot be read or resolved, or the result is not IPv4,
// matching the rest of this bridge's signed-status convention; a failure to
// write addrOut is returned as an error instead.
func (c *Context) ResolveHost(hostPtr, addrOut uint32) (int32, error) {
	if c.Network == nil {
		return -1, nil
	}
	host, err := c.Core.ReadCString(hostPtr)
	if err != nil {
		return -1, nil
	}

	ip, err := c.Network.Resolve(host)
	if err != nil {
		c.Log.Debug("resolve failed", log.Fn(host))
		return -1, nil
	}
	v4 := ip.To4()
	if v4 == nil {
		return -1, nil
	}
	if err := c.Core.Write(addrOut, v4); err != nil {
		return 0, err
	}
	return 0, nil
}

// MethodTable is a guest-resident array of function pointers: ordinal i's
// address lives at Base + i*4, matching how WIPI binaries index into their
// interface structs.
type MethodTable struct {
	Base  uint32
	Count int
}

// Install allocates a guest array big enough for len(hooks) pointer slots,
// registers each hook as a trampoline via core.RegisterFunction, and writes
// the trampoline addresses into the array in order. hooks[i] may be nil for
// an unimplemented ordinal, in which case the slot resolves to a stub that
// logs and returns 0.
func Install(c *core.Core, logger *log.Logger, category string, names []string, hooks []func(*core.Core)) (*MethodTable, error) {
	if len(names) != len(hooks) {
		return nil, fmt.Errorf("wie: method table %s: %d names but %d hooks", category, len(names), len(hooks))
	}

	base, err := c.Malloc(uint32(len(hooks)) * 4)
	if err != nil {
		return nil, err
	}

	for i, hook := range hooks {
		h := hook
		name := names[i]
		if h == nil {
			h = func(c *core.Core) {
				detail := "unimplemented"
				if insn, err := c.Disassemble(c.LR()); err == nil {
					detail = "unimplemented, called from " + insn
				}
				logger.Trace(uint64(c.PC()), category, name, detail)
				c.SetR(0, 0)
			}
		}
		addr, err := c.RegisterFunction(h)
		if err != nil {
			return nil, fmt.Errorf("register %s.%s: %w", category, name, err)
		}
		if err := c.WriteU32(base+uint32(i)*4, addr); err != nil {
			return nil, err
		}
	}

	return &MethodTable{Base: base, Count: len(hooks)}, nil
}

// WriteWordSlice emits a raw array of pre-resolved words (e.g. building a
// class's vtable from already registered trampolines) instead of going
// through Install.
func WriteWordSlice(c *core.Core, base uint32, words []uint32) error {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return c.Write(base, buf)
}
