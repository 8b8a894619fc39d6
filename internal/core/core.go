// Package core provides ARM32 emulation of WIPI native binaries using
// Unicorn Engine, plus the guest-call machinery (trampolines, AAPCS argument
// marshalling, return-address traps) that the rest of the runtime is built
// on top of.
package core

import (
	"encoding/binary"
	"fmt"
	"sync"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/mirusu400/wie/internal/heap"
)

// Memory layout. WIPI binaries are small (typically under a megabyte of
// code) so generous regions cost nothing and avoid ever having to grow a
// mapping mid-run.
const (
	CodeBase  = 0x00010000
	CodeSize  = 0x00800000 // 8MB for code + static data
	StackBase = 0x70000000
	StackSize = 0x00100000 // 1MB stack
	HeapBase  = 0x80000000
	HeapSize  = 0x00100000 // 1MB guest heap
	// StubBase is where host-implemented functions get a guest-visible
	// address. Each registered function occupies StubSlotSize bytes; the
	// actual body there is a single `bx lr` so that if something ever
	// branches into one without going through RegisterFunction's call
	// path, it returns harmlessly instead of faulting.
	StubBase     = 0xF0000000
	StubSize     = 0x00100000
	StubSlotSize = 4
	// ReturnTrampoline is the address RunFunction points lr at. It is
	// never real code; a code hook traps execution there and reports the
	// call complete instead of actually running it.
	ReturnTrampoline = 0xFFFF0000
)

// AddressHookFunc runs when execution reaches a registered address. A
// boolean return of true halts emulation immediately after the hook runs.
type AddressHookFunc func(c *Core) bool

// Core wraps a Unicorn ARM32 context together with the guest heap and the
// host-function trampoline table.
type Core struct {
	mu uc.Unicorn

	Heap *heap.Heap

	hooksMu   sync.RWMutex
	addrHooks map[uint32]AddressHookFunc

	nextStub uint32

	stopped   bool
	callDepth int
}

// New creates an ARM32 core with code, stack and heap regions mapped.
func New() (*Core, error) {
	mu, err := uc.NewUnicorn(uc.ARCH_ARM, uc.MODE_ARM)
	if err != nil {
		return nil, fmt.Errorf("create unicorn: %w", err)
	}

	c := &Core{
		mu:        mu,
		addrHooks: make(map[uint32]AddressHookFunc),
		nextStub:  StubBase,
	}

	regions := []struct{ base, size uint64 }{
		{CodeBase, CodeSize},
		{StackBase, StackSize},
		{HeapBase, HeapSize},
		{StubBase, StubSize},
		{ReturnTrampoline, 0x1000},
	}
	for _, r := range regions {
		if err := mu.MemMap(r.base, r.size); err != nil {
			mu.Close()
			return nil, fmt.Errorf("map region %#x: %w", r.base, err)
		}
	}

	if err := mu.RegWrite(uc.ARM_REG_SP, StackBase+StackSize-0x10); err != nil {
		mu.Close()
		return nil, fmt.Errorf("init sp: %w", err)
	}

	// A `bx lr` at the return trampoline, in case anything falls through
	// to it without the hook catching it first.
	if err := mu.MemWrite(ReturnTrampoline, []byte{0x1e, 0xff, 0x2f, 0xe1}); err != nil {
		mu.Close()
		return nil, fmt.Errorf("write return trampoline: %w", err)
	}

	heapInst, err := heap.New(c, HeapBase, HeapSize)
	if err != nil {
		mu.Close()
		return nil, fmt.Errorf("init heap: %w", err)
	}
	c.Heap = heapInst

	if err := c.installDispatchHook(); err != nil {
		mu.Close()
		return nil, err
	}

	return c, nil
}

// Close releases the underlying Unicorn context.
func (c *Core) Close() error {
	return c.mu.Close()
}

func (c *Core) installDispatchHook() error {
	_, err := c.mu.HookAdd(uc.HOOK_CODE, func(mu uc.Unicorn, addr uint64, size uint32) {
		if c.stopped {
			c.mu.Stop()
			return
		}

		c.hooksMu.RLock()
		hook, ok := c.addrHooks[uint32(addr)]
		c.hooksMu.RUnlock()

		if ok && hook(c) {
			c.Stop()
		}
	}, 1, 0)
	return err
}

// Stop halts the emulation loop at the next instruction boundary.
func (c *Core) Stop() {
	c.stopped = true
	c.mu.Stop()
}

// Load copies data into guest memory at addr, growing the destination
// implicitly (the region must already be mapped by New).
func (c *Core) Load(data []byte, addr uint32) error {
	return c.mu.MemWrite(uint64(addr), data)
}

// Read implements heap.Memory and is the general-purpose guest memory reader.
func (c *Core) Read(addr uint32, size int) ([]byte, error) {
	return c.mu.MemRead(uint64(addr), uint64(size))
}

// Write implements heap.Memory and is the general-purpose guest memory writer.
func (c *Core) Write(addr uint32, data []byte) error {
	return c.mu.MemWrite(uint64(addr), data)
}

// ReadU32 reads a little-endian word.
func (c *Core) ReadU32(addr uint32) (uint32, error) {
	data, err := c.Read(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// WriteU32 writes a little-endian word.
func (c *Core) WriteU32(addr, val uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], val)
	return c.Write(addr, buf[:])
}

// ReadCString reads a NUL-terminated string starting at addr.
func (c *Core) ReadCString(addr uint32) (string, error) {
	const chunk = 64
	var out []byte
	for {
		data, err := c.Read(addr, chunk)
		if err != nil {
			return "", err
		}
		if i := indexZero(data); i >= 0 {
			out = append(out, data[:i]...)
			return string(out), nil
		}
		out = append(out, data...)
		addr += chunk
	}
}

func indexZero(b []byte) int {
	for i, v := range b {
		if v == 0 {
			return i
		}
	}
	return -1
}

// WriteCString writes s followed by a NUL terminator at addr.
func (c *Core) WriteCString(addr uint32, s string) error {
	return c.Write(addr, append([]byte(s), 0))
}

// Malloc allocates n bytes from the guest heap.
func (c *Core) Malloc(n uint32) (uint32, error) {
	return c.Heap.Alloc(n)
}

// Free releases a block previously returned by Malloc.
func (c *Core) Free(ptr uint32) error {
	return c.Heap.Free(ptr)
}

// R reads general-purpose register n (0-12).
func (c *Core) R(n int) uint32 {
	val, _ := c.mu.RegRead(uc.ARM_REG_R0 + n)
	return uint32(val)
}

// SetR writes general-purpose register n (0-12).
func (c *Core) SetR(n int, val uint32) {
	_ = c.mu.RegWrite(uc.ARM_REG_R0+n, uint64(val))
}

// SP returns the stack pointer.
func (c *Core) SP() uint32 {
	val, _ := c.mu.RegRead(uc.ARM_REG_SP)
	return uint32(val)
}

// SetSP sets the stack pointer.
func (c *Core) SetSP(val uint32) {
	_ = c.mu.RegWrite(uc.ARM_REG_SP, uint64(val))
}

// LR returns the link register.
func (c *Core) LR() uint32 {
	val, _ := c.mu.RegRead(uc.ARM_REG_LR)
	return uint32(val)
}

// SetLR sets the link register.
func (c *Core) SetLR(val uint32) {
	_ = c.mu.RegWrite(uc.ARM_REG_LR, uint64(val))
}

// PC returns the program counter.
func (c *Core) PC() uint32 {
	val, _ := c.mu.RegRead(uc.ARM_REG_PC)
	return uint32(val)
}

// SetPC sets the program counter. The low bit selects Thumb mode, matching
// the convention WIPI loaders use for entry points (entry | 1).
func (c *Core) SetPC(val uint32) {
	_ = c.mu.RegWrite(uc.ARM_REG_PC, uint64(val))
}

// HookAddress installs hook at addr, replacing any hook already there.
func (c *Core) HookAddress(addr uint32, hook AddressHookFunc) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.addrHooks[addr] = hook
}

// RemoveAddressHook removes a previously installed address hook.
func (c *Core) RemoveAddressHook(addr uint32) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	delete(c.addrHooks, addr)
}

// RegisterFunction allocates a fresh trampoline address in the stub region
// and wires fn to run whenever execution reaches it. It returns the
// guest-visible address callers should treat as a function pointer.
func (c *Core) RegisterFunction(fn func(c *Core)) (uint32, error) {
	addr := c.nextStub
	if addr+StubSlotSize > StubBase+StubSize {
		return 0, fmt.Errorf("wie: stub table exhausted")
	}
	c.nextStub += StubSlotSize

	// `bx lr` placeholder so a stray branch into the slot (rather than
	// through the dispatch hook) still returns instead of executing
	// garbage.
	if err := c.mu.MemWrite(uint64(addr), []byte{0x1e, 0xff, 0x2f, 0xe1}); err != nil {
		return 0, err
	}

	c.HookAddress(addr, func(c *Core) bool {
		fn(c)
		c.returnFromCall()
		return false
	})

	return addr, nil
}

// returnFromCall pops the call back to whatever lr held on entry, the same
// way a real `bx lr` would.
func (c *Core) returnFromCall() {
	c.SetPC(c.LR())
}

// RunFunction invokes the guest function at addr with args placed per AAPCS
// (r0-r3, then the stack for any remainder) and runs until the call returns,
// i.e. until execution reaches ReturnTrampoline. It is not reentrant from
// within a hook running on the same Core; nested guest calls made from a
// stub body must use this same method recursively, which works because each
// call saves and restores its own lr/sp checkpoint.
func (c *Core) RunFunction(addr uint32, args []uint32) (uint32, error) {
	savedSP := c.SP()
	savedLR := c.LR()
	savedPC := c.PC()

	sp := savedSP
	if extra := len(args) - 4; extra > 0 {
		sp -= uint32(extra) * 4
		sp &^= 0x7
		for i, v := range args[4:] {
			if err := c.WriteU32(sp+uint32(i)*4, v); err != nil {
				return 0, err
			}
		}
	}
	c.SetSP(sp)

	for i := 0; i < len(args) && i < 4; i++ {
		c.SetR(i, args[i])
	}

	c.SetLR(ReturnTrampoline)

	done := false
	c.HookAddress(ReturnTrampoline, func(c *Core) bool {
		done = true
		return true
	})
	defer c.RemoveAddressHook(ReturnTrampoline)

	c.callDepth++
	defer func() { c.callDepth-- }()

	c.stopped = false
	if err := c.mu.Start(uint64(addr), uint64(ReturnTrampoline)); err != nil {
		return 0, fmt.Errorf("run function %#x: %w", addr, err)
	}
	_ = done

	ret := c.R(0)

	c.SetSP(savedSP)
	c.SetLR(savedLR)
	c.SetPC(savedPC)

	return ret, nil
}
