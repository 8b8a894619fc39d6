package javaproto

import (
	"testing"

	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/javabridge"
	"github.com/mirusu400/wie/internal/log"
)

func TestThreadClassLoadsWithObjectParent(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	reg := javabridge.NewRegistry()
	ctx := javabridge.NewContext(c, reg, log.NewNop())

	cl, err := reg.Load(c, "java/lang/Thread")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cl.Parent == nil || cl.Parent.Name != "java/lang/Object" {
		t.Fatalf("expected Thread's parent to be java.lang.Object, got %v", cl.Parent)
	}
	if len(cl.Vtable) == 0 {
		t.Fatalf("expected a non-empty vtable")
	}

	inst, err := ctx.New("java/lang/Thread")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	full := javabridge.FullName{Name: "start", Descriptor: "()V"}
	nameBytes := full.Bytes()
	ptrFullName, err := c.Malloc(uint32(len(nameBytes)))
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := c.Write(ptrFullName, nameBytes); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := ctx.CallMethod(inst.PtrInstance, ptrFullName, 0, 0); err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
}

func TestHandsetPropertyReturnsString(t *testing.T) {
	c, err := core.New()
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	defer c.Close()

	reg := javabridge.NewRegistry()
	ctx := javabridge.NewContext(c, reg, log.NewNop())

	cl, err := reg.Load(c, "org/kwis/msp/handset/HandsetProperty")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	full := javabridge.FullName{Name: "getSystemProperty", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;"}
	nameBytes := full.Bytes()
	ptrFullName, err := c.Malloc(uint32(len(nameBytes)))
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := c.Write(ptrFullName, nameBytes); err != nil {
		t.Fatalf("Write: %v", err)
	}

	ptrArgs, err := c.Malloc(4)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := c.WriteU32(ptrArgs, 0); err != nil { // a null String argument
		t.Fatalf("WriteU32: %v", err)
	}

	ret, err := ctx.CallStaticMethod(cl.PtrRaw, ptrFullName, ptrArgs, 1)
	if err != nil {
		t.Fatalf("CallStaticMethod: %v", err)
	}
	if ret == 0 {
		t.Fatalf("expected a non-null string instance")
	}
}
