// Package heap implements the guest-side allocator used by emulated WIPI
// binaries. The whole arena starts as one free block; each allocation
// carves a block off the front of a free one it fits in (first-fit) and
// writes back whatever's left over as a new free block, so a walk from
// base always covers exactly the whole arena - this is not an
// optimization target, it mirrors the allocator the emulated C runtime
// itself used and WIPI binaries were built and tested against it.
package heap

import (
	"encoding/binary"
	"fmt"

	"github.com/mirusu400/wie/internal/wieerr"
)

const headerSize = 8

// Memory is the narrow view of guest memory the allocator needs. internal/core's
// CPU satisfies it directly.
type Memory interface {
	Read(addr uint32, size int) ([]byte, error)
	Write(addr uint32, data []byte) error
}

// Heap is a first-fit allocator over [base, base+size), with each block
// carrying an inline 8-byte header (size, inUse). A block's size always
// includes its own header, so the headers found by walking from base sum
// to exactly size.
type Heap struct {
	mem  Memory
	base uint32
	size uint32
}

// New creates a heap managing the byte range [base, base+size) of mem and
// writes the single free header covering it.
func New(mem Memory, base, size uint32) (*Heap, error) {
	h := &Heap{mem: mem, base: base, size: size}
	if err := h.writeHeader(base, size, false); err != nil {
		return nil, err
	}
	return h, nil
}

func roundUp4(n uint32) uint32 {
	return (n + 3) &^ 3
}

func (h *Heap) readHeader(addr uint32) (size uint32, inUse bool, err error) {
	raw, err := h.mem.Read(addr, headerSize)
	if err != nil {
		return 0, false, err
	}
	size = binary.LittleEndian.Uint32(raw[0:4])
	inUse = binary.LittleEndian.Uint32(raw[4:8]) != 0
	return size, inUse, nil
}

func (h *Heap) writeHeader(addr, size uint32, inUse bool) error {
	var raw [headerSize]byte
	binary.LittleEndian.PutUint32(raw[0:4], size)
	if inUse {
		binary.LittleEndian.PutUint32(raw[4:8], 1)
	}
	return h.mem.Write(addr, raw[:])
}

// findFree returns the address of the first free block whose size is at
// least need (a whole-block size, header included), scanning blocks by
// jumping header.size bytes at a time so every byte of the arena is
// accounted for by exactly one header.
func (h *Heap) findFree(need uint32) (uint32, error) {
	cursor := h.base
	for {
		size, inUse, err := h.readHeader(cursor)
		if err != nil {
			return 0, err
		}
		if !inUse && size >= need {
			return cursor, nil
		}
		cursor += size
		if cursor >= h.base+h.size {
			return 0, fmt.Errorf("%w: requested %d bytes", wieerr.ErrOutOfMemory, need)
		}
	}
}

// Alloc reserves at least n bytes and returns the address of the usable
// payload (past the header). allocSize is round_up(n+8, 4): the header's
// size field always counts the header itself, never just the payload.
func (h *Heap) Alloc(n uint32) (uint32, error) {
	allocSize := roundUp4(n + headerSize)

	address, err := h.findFree(allocSize)
	if err != nil {
		return 0, err
	}

	freeSize, _, err := h.readHeader(address)
	if err != nil {
		return 0, err
	}

	if err := h.writeHeader(address, allocSize, true); err != nil {
		return 0, err
	}

	if freeSize > allocSize {
		if err := h.writeHeader(address+allocSize, freeSize-allocSize, false); err != nil {
			return 0, err
		}
	}

	return address + headerSize, nil
}

// Free marks the block backing ptr (an address previously returned by Alloc)
// as unused. It does not merge the block with its neighbours.
func (h *Heap) Free(ptr uint32) error {
	if ptr < h.base+headerSize {
		return fmt.Errorf("wie: free of invalid pointer %#x", ptr)
	}
	headerAddr := ptr - headerSize
	size, inUse, err := h.readHeader(headerAddr)
	if err != nil {
		return err
	}
	if !inUse {
		return fmt.Errorf("wie: double free of pointer %#x", ptr)
	}
	return h.writeHeader(headerAddr, size, false)
}

// Size returns the block size backing ptr, header included (the spec's
// "size" field - not the payload size requested by the caller, which the
// allocator does not retain once rounded into the block).
func (h *Heap) Size(ptr uint32) (uint32, error) {
	size, _, err := h.readHeader(ptr - headerSize)
	return size, err
}

// Stats reports coarse utilization, mostly useful for diagnostics and tests.
type Stats struct {
	Used uint32
	Free uint32
}

// Stats walks every block from base and reports how the arena is
// partitioned. Used+Free always equals the heap's total size.
func (h *Heap) Stats() (Stats, error) {
	var st Stats
	cursor := h.base
	for cursor < h.base+h.size {
		size, inUse, err := h.readHeader(cursor)
		if err != nil {
			return Stats{}, err
		}
		if inUse {
			st.Used += size
		} else {
			st.Free += size
		}
		cursor += size
	}
	return st, nil
}
