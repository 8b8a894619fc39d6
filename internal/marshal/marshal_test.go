package marshal

import (
	"testing"

	"github.com/mirusu400/wie/internal/core"
)

func TestAdapt2WithCString(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	var gotName string
	var gotLen uint32
	hook := Adapt2(func(_ *core.Core, name string, n uint32) uint32 {
		gotName = name
		gotLen = n
		return 1
	}, CString, Word)

	strAddr := core.HeapBase + 0x10
	if err := c.WriteCString(strAddr, "hello"); err != nil {
		t.Fatalf("WriteCString: %v", err)
	}
	c.SetR(0, strAddr)
	c.SetR(1, 5)

	hook(c)

	if gotName != "hello" || gotLen != 5 {
		t.Fatalf("got name=%q len=%d", gotName, gotLen)
	}
	if c.R(0) != 1 {
		t.Fatalf("expected r0=1, got %d", c.R(0))
	}
}

func TestAdapt5SpillsToStack(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	var sum uint32
	hook := Adapt5(func(_ *core.Core, a, b, d, e, f uint32) uint32 {
		sum = a + b + d + e + f
		return sum
	}, Word, Word, Word, Word, Word)

	c.SetR(0, 1)
	c.SetR(1, 2)
	c.SetR(2, 3)
	c.SetR(3, 4)

	sp := c.SP() - 4
	if err := c.WriteU32(sp, 5); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
	c.SetSP(sp)

	hook(c)

	if sum != 15 {
		t.Fatalf("expected 15, got %d", sum)
	}
}
