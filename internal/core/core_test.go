package core

import "testing"

func TestCoreBasicExecution(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	// mov r0, #5 ; mov r1, #7 ; add r0, r0, r1 ; bx lr
	code := []byte{
		0x05, 0x00, 0xa0, 0xe3,
		0x07, 0x10, 0xa0, 0xe3,
		0x01, 0x00, 0x80, 0xe0,
		0x1e, 0xff, 0x2f, 0xe1,
	}
	if err := c.Load(code, CodeBase); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ret, err := c.RunFunction(CodeBase, nil)
	if err != nil {
		t.Fatalf("RunFunction: %v", err)
	}
	if ret != 12 {
		t.Fatalf("expected r0=12, got %d", ret)
	}
}

func TestCoreMemoryReadWrite(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.WriteU32(HeapBase, 0xdeadbeef); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
	val, err := c.ReadU32(HeapBase)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if val != 0xdeadbeef {
		t.Fatalf("expected 0xdeadbeef, got %#x", val)
	}

	if err := c.WriteCString(HeapBase+0x100, "hello"); err != nil {
		t.Fatalf("WriteCString: %v", err)
	}
	s, err := c.ReadCString(HeapBase + 0x100)
	if err != nil {
		t.Fatalf("ReadCString: %v", err)
	}
	if s != "hello" {
		t.Fatalf("expected %q, got %q", "hello", s)
	}
}

func TestCoreMalloc(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	p1, err := c.Malloc(64)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	p2, err := c.Malloc(64)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("expected distinct allocations")
	}

	if err := c.Free(p1); err != nil {
		t.Fatalf("Free: %v", err)
	}
}

func TestCoreRegisterFunction(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	var gotArg uint32
	stub, err := c.RegisterFunction(func(c *Core) {
		gotArg = c.R(0)
		c.SetR(0, gotArg*2)
	})
	if err != nil {
		t.Fatalf("RegisterFunction: %v", err)
	}

	// mov r0, #21 ; mov r4, lr ; ldr r1, [pc, #4] ; blx r1 ; bx r4 ; .word stub
	// The stub region is far outside bl's +/-32MB reach, so the call goes
	// through a register loaded from a literal; lr is kept in r4 because
	// blx overwrites it.
	code := make([]byte, 0, 24)
	code = append(code, 0x15, 0x00, 0xa0, 0xe3) // mov r0, #21
	code = append(code, 0x0e, 0x40, 0xa0, 0xe1) // mov r4, lr
	code = append(code, 0x04, 0x10, 0x9f, 0xe5) // ldr r1, [pc, #4]
	code = append(code, 0x31, 0xff, 0x2f, 0xe1) // blx r1
	code = append(code, 0x14, 0xff, 0x2f, 0xe1) // bx r4
	code = append(code, byte(stub), byte(stub>>8), byte(stub>>16), byte(stub>>24))

	if err := c.Load(code, CodeBase); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ret, err := c.RunFunction(CodeBase, nil)
	if err != nil {
		t.Fatalf("RunFunction: %v", err)
	}
	if gotArg != 21 {
		t.Fatalf("expected stub to observe r0=21, got %d", gotArg)
	}
	if ret != 42 {
		t.Fatalf("expected r0=42 after return, got %d", ret)
	}
}
