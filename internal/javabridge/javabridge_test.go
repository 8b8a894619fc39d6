package javabridge

import (
	"testing"

	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/log"
)

func newTestContext(t *testing.T) (*Context, *core.Core) {
	t.Helper()
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	reg := NewRegistry()
	return NewContext(c, reg, log.NewNop()), c
}

func TestClassLoadAndMethodLookup(t *testing.T) {
	ctx, c := newTestContext(t)

	var called bool
	name := FullName{Name: "bar", Descriptor: "()V"}
	Provide("test/Foo", func(r *Registry, c *core.Core) (*Class, error) {
		m := &Method{
			Name: name,
			Native: func(ctx *Context, args []uint32) (uint32, error) {
				called = true
				return 0, nil
			},
		}
		return r.Define(c, "test/Foo", nil, nil, 0, map[string]*Method{name.String(): m})
	})

	ptrTarget, err := c.Malloc(4)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	status := ctx.ClassLoad(ptrTarget, "test/Foo")
	if status != 0 {
		t.Fatalf("expected status 0, got %d", status)
	}

	ptrClass, err := c.ReadU32(ptrTarget)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}

	nameBytes := name.Bytes()
	ptrFullName, err := c.Malloc(uint32(len(nameBytes)))
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := c.Write(ptrFullName, nameBytes); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// GetJavaMethod is the guest's own lookup path: it must resolve to a
	// real, installed trampoline, not the always-zero handle a never-wired
	// Native body would produce.
	methodAddr, err := ctx.GetJavaMethod(ptrClass, ptrFullName)
	if err != nil {
		t.Fatalf("GetJavaMethod: %v", err)
	}
	if methodAddr == 0 {
		t.Fatalf("expected a non-zero trampoline address")
	}

	// Exercise the method the way guest code compiled against
	// get_java_method's result actually invokes it: a direct jump to the
	// resolved address with `this` in r0, not by reaching into
	// Method.Native directly.
	if _, err := ctx.JavaJump1(0, methodAddr); err != nil {
		t.Fatalf("JavaJump1: %v", err)
	}
	if !called {
		t.Fatalf("expected native method to run via a direct jump to its resolved address")
	}

	// call_method/call_static_method are the bridge's own dispatch entry
	// points and must resolve and run the same method through an instance.
	called = false
	inst, err := ctx.New("test/Foo")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := ctx.CallMethod(inst.PtrInstance, ptrFullName, 0, 0); err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
	if !called {
		t.Fatalf("expected native method to run via call_method")
	}
}

func TestFieldStaticStorage(t *testing.T) {
	_, c := newTestContext(t)

	name := FullName{Name: "count", Descriptor: "I"}
	f, err := NewField(c, 0, name, FieldAccessStatic, 0)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	addr, err := f.StaticAddress(c)
	if err != nil {
		t.Fatalf("StaticAddress: %v", err)
	}
	if err := c.WriteU32(addr, 42); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}

	val, err := c.ReadU32(addr)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if val != 42 {
		t.Fatalf("expected 42, got %d", val)
	}

	if _, err := f.Offset(c); err == nil {
		t.Fatalf("expected error asking for instance offset of a static field")
	}
}

func TestRegisterJavaStringWithLengthPrefix(t *testing.T) {
	ctx, c := newTestContext(t)

	Provide("java/lang/String", func(r *Registry, c *core.Core) (*Class, error) {
		return r.Define(c, "java/lang/String", nil, nil, 0, nil)
	})

	text := []uint16{'h', 'i'}
	addr, err := c.Malloc(2 + uint32(len(text))*2)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := c.Write(addr, []byte{2, 0}); err != nil { // u16 length prefix = 2
		t.Fatalf("Write: %v", err)
	}
	for i, u := range text {
		if err := c.Write(addr+2+uint32(i)*2, []byte{byte(u), byte(u >> 8)}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	ptrInstance, err := ctx.RegisterJavaString(addr, 0xffffffff)
	if err != nil {
		t.Fatalf("RegisterJavaString: %v", err)
	}
	if ptrInstance == 0 {
		t.Fatalf("expected non-zero instance pointer")
	}
}

func TestCheckCast(t *testing.T) {
	ctx, c := newTestContext(t)

	Provide("test/Base", func(r *Registry, c *core.Core) (*Class, error) {
		return r.Define(c, "test/Base", nil, nil, 0, nil)
	})

	base, err := ctx.Classes.Load(c, "test/Base")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	inst, err := ctx.New("test/Base")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	status, err := ctx.CheckCast(base.PtrRaw, inst.PtrInstance)
	if err != nil {
		t.Fatalf("CheckCast: %v", err)
	}
	if status != 0 {
		t.Fatalf("expected cast to succeed, got status %d", status)
	}
}
