package javabridge

import (
	"encoding/binary"
	"fmt"

	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/log"
	"github.com/mirusu400/wie/internal/wieerr"
)

// Instance is a live Java object: the class it was built from, and the
// guest memory holding its instance fields contiguously from offset 0.
type Instance struct {
	PtrInstance uint32
	Class       *Class
}

// Context is the host-side state behind the Java method-table bridge:
// guest memory access, the class registry, and string interning.
type Context struct {
	Core      *core.Core
	Classes   *Registry
	Log       *log.Logger
	instances map[uint32]*Instance
}

// NewContext wires a Java bridge context to a running core. Classes'
// native method trampolines are installed lazily against this context,
// since class providers (see internal/methods/javaproto) only receive a
// *Registry and *core.Core, not a *Context.
func NewContext(c *core.Core, classes *Registry, logger *log.Logger) *Context {
	ctx := &Context{
		Core:      c,
		Classes:   classes,
		Log:       logger,
		instances: make(map[uint32]*Instance),
	}
	classes.ctx = ctx
	return ctx
}

// ClassLoad resolves name (already '/'-separated) and writes its handle to
// ptrTarget, returning 0 on success or 1 on failure - the same inverted
// boolean-as-word convention the rest of the C/Java bridge uses for status.
func (ctx *Context) ClassLoad(ptrTarget uint32, name string) uint32 {
	cl, err := ctx.Classes.Load(ctx.Core, name)
	if err != nil {
		ctx.Log.Debug("class load failed", log.Fn(name))
		return 1
	}
	if err := ctx.Core.WriteU32(ptrTarget, cl.PtrRaw); err != nil {
		return 1
	}
	return 0
}

// GetJavaMethod resolves a method on ptrClass by its encoded full name
// pointer and returns its guest-callable address - the trampoline wrapping
// Native if the method hasn't been installed yet, or the ARM entry point
// for a method compiled into the app itself. This is what guest code
// passes to call_native to actually invoke the method.
func (ctx *Context) GetJavaMethod(ptrClass, ptrFullName uint32) (uint32, error) {
	fullName, err := FullNameFromPtr(ctx.Core, ptrFullName)
	if err != nil {
		return 0, err
	}
	cl, ok := ctx.Classes.ClassFromRaw(ptrClass)
	if !ok {
		return 0, fmt.Errorf("%w: ptr=%#x", wieerr.ErrClassNotFound, ptrClass)
	}
	m, ok := cl.Method(fullName.String())
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s", wieerr.ErrMethodNotFound, fullName, cl.Name)
	}
	if m.NativeFn == 0 {
		if err := ctx.Classes.installMethod(ctx.Core, m); err != nil {
			return 0, err
		}
	}
	return m.NativeFn, nil
}

// CallMethod resolves a method on the instance at ptrInstance by full name,
// searching the instance's class and then its ancestors (so an override
// wins, the same method its vtable slot holds), and invokes it with this
// plus argCount argument words read from ptrArgs, per spec.md §4.6's
// call_method.
func (ctx *Context) CallMethod(ptrInstance, ptrFullName, ptrArgs, argCount uint32) (uint32, error) {
	fullName, err := FullNameFromPtr(ctx.Core, ptrFullName)
	if err != nil {
		return 0, err
	}
	inst, ok := ctx.instances[ptrInstance]
	if !ok {
		return 0, fmt.Errorf("%w: instance ptr=%#x", wieerr.ErrClassNotFound, ptrInstance)
	}
	m, ok := inst.Class.Method(fullName.String())
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s", wieerr.ErrMethodNotFound, fullName, inst.Class.Name)
	}
	args, err := ctx.readWords(ptrArgs, argCount)
	if err != nil {
		return 0, err
	}
	full := append([]uint32{ptrInstance}, args...)
	return ctx.invokeMethod(m, full)
}

// CallStaticMethod resolves a static method on ptrClass directly (no
// vtable, no implicit this) and invokes it with argCount argument words
// read from ptrArgs, per spec.md §4.6's call_static_method.
func (ctx *Context) CallStaticMethod(ptrClass, ptrFullName, ptrArgs, argCount uint32) (uint32, error) {
	fullName, err := FullNameFromPtr(ctx.Core, ptrFullName)
	if err != nil {
		return 0, err
	}
	cl, ok := ctx.Classes.ClassFromRaw(ptrClass)
	if !ok {
		return 0, fmt.Errorf("%w: ptr=%#x", wieerr.ErrClassNotFound, ptrClass)
	}
	m, ok := cl.Method(fullName.String())
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s", wieerr.ErrMethodNotFound, fullName, cl.Name)
	}
	args, err := ctx.readWords(ptrArgs, argCount)
	if err != nil {
		return 0, err
	}
	return ctx.invokeMethod(m, args)
}

func (ctx *Context) readWords(addr, count uint32) ([]uint32, error) {
	out := make([]uint32, count)
	for i := range out {
		w, err := ctx.Core.ReadU32(addr + uint32(i)*4)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// invokeMethod runs m with args already including any implicit this,
// preferring the Go implementation if present (avoids a pointless
// guest round-trip through its own trampoline) and otherwise running the
// guest body directly.
func (ctx *Context) invokeMethod(m *Method, args []uint32) (uint32, error) {
	if m.Native != nil {
		return m.Native(ctx, args)
	}
	if m.NativeFn != 0 {
		return ctx.Core.RunFunction(m.NativeFn, args)
	}
	return 0, fmt.Errorf("%w: %s has no body", wieerr.ErrMethodNotFound, m.Name)
}

// GetStaticField resolves a static field on ptrClass by its encoded full
// name pointer and returns the field's guest handle.
func (ctx *Context) GetStaticField(ptrClass, ptrFieldName uint32) (uint32, error) {
	fullName, err := FullNameFromPtr(ctx.Core, ptrFieldName)
	if err != nil {
		return 0, err
	}
	cl, ok := ctx.Classes.ClassFromRaw(ptrClass)
	if !ok {
		return 0, fmt.Errorf("%w: ptr=%#x", wieerr.ErrClassNotFound, ptrClass)
	}
	f, ok := cl.Field(fullName.Name)
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s", wieerr.ErrFieldNotFound, fullName.Name, cl.Name)
	}
	return f.PtrRaw, nil
}

// RegisterClass attaches an already-allocated class handle (built by an
// archive's class file loader) to the registry.
func (ctx *Context) RegisterClass(ptrClass uint32) error {
	_, err := ctx.Classes.RegisterClass(ctx.Core, ptrClass)
	return err
}

// RegisterJavaString decodes a UTF-16LE string living at offset and returns
// a new java.lang.String instance wrapping it. A length of 0xffffffff means
// the string is length-prefixed: a u16 character count immediately
// precedes the character data instead of being passed by the caller.
func (ctx *Context) RegisterJavaString(offset, length uint32) (uint32, error) {
	cursor := offset
	if length == 0xffffffff {
		word, err := ctx.Core.Read(offset, 2)
		if err != nil {
			return 0, err
		}
		length = uint32(binary.LittleEndian.Uint16(word))
		cursor += 2
	}

	raw, err := ctx.Core.Read(cursor, int(length)*2)
	if err != nil {
		return 0, err
	}
	units := make([]uint16, length)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}

	inst, err := ctx.NewString(units)
	if err != nil {
		return 0, err
	}
	return inst.PtrInstance, nil
}

// stringClassName is the class java.lang.String instances are created
// against; kept as a constant since RegisterJavaString and NewString both
// need it and it must match whatever internal/methods/javaproto registers
// java.lang.String under.
const stringClassName = "java/lang/String"

// NewString allocates a java.lang.String instance backed by units. The
// instance layout is: [0:4] class ptr, [4:8] char count, [8:] UTF-16LE data.
func (ctx *Context) NewString(units []uint16) (*Instance, error) {
	cl, err := ctx.Classes.Load(ctx.Core, stringClassName)
	if err != nil {
		return nil, err
	}

	size := uint32(8 + len(units)*2)
	ptr, err := ctx.Core.Malloc(size)
	if err != nil {
		return nil, err
	}
	if err := ctx.Core.WriteU32(ptr, cl.PtrRaw); err != nil {
		return nil, err
	}
	if err := ctx.Core.WriteU32(ptr+4, uint32(len(units))); err != nil {
		return nil, err
	}
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	if err := ctx.Core.Write(ptr+8, buf); err != nil {
		return nil, err
	}

	inst := &Instance{PtrInstance: ptr, Class: cl}
	ctx.instances[ptr] = inst
	return inst, nil
}

// New instantiates className, allocating sizeof(class fields) + header,
// zero-initialized, and writing the class pointer into the header word.
// Go implementations of that class's constructor (if any) are expected to
// run separately (via CallMethod/invokeMethod) and populate the fields.
func (ctx *Context) New(className string) (*Instance, error) {
	cl, err := ctx.Classes.Load(ctx.Core, className)
	if err != nil {
		return nil, err
	}

	size := 4 + cl.FieldLayoutSize
	ptr, err := ctx.Core.Malloc(size)
	if err != nil {
		return nil, err
	}
	if err := ctx.Core.Write(ptr, make([]byte, size)); err != nil {
		return nil, err
	}
	if err := ctx.Core.WriteU32(ptr, cl.PtrRaw); err != nil {
		return nil, err
	}
	inst := &Instance{PtrInstance: ptr, Class: cl}
	ctx.instances[ptr] = inst
	return inst, nil
}

// JavaNew implements the bridge's generic "new" entry point: resolve
// ptrClass's name and instantiate it.
func (ctx *Context) JavaNew(ptrClass uint32) (uint32, error) {
	cl, ok := ctx.Classes.ClassFromRaw(ptrClass)
	if !ok {
		return 0, fmt.Errorf("%w: ptr=%#x", wieerr.ErrClassNotFound, ptrClass)
	}
	inst, err := ctx.New(cl.Name)
	if err != nil {
		return 0, err
	}
	return inst.PtrInstance, nil
}

// ArrayInstance is a Java array: element type name, length, and the flat
// element storage following the header.
type ArrayInstance struct {
	PtrInstance uint32
	ElementType string
	Length      uint32
}

// elementSize returns how many bytes one array element occupies. Only
// primitive element types have a fixed size here; anything else (object
// arrays) is word-sized, holding a reference.
func elementSize(elementType string) uint32 {
	switch elementType {
	case "B", "Z":
		return 1
	case "S", "C":
		return 2
	default:
		return 4
	}
}

// NewArray allocates a new array instance of elementType and count,
// zero-initialized.
func (ctx *Context) NewArray(elementType string, count uint32) (*ArrayInstance, error) {
	elemSize := elementSize(elementType)
	size := 8 + count*elemSize
	ptr, err := ctx.Core.Malloc(size)
	if err != nil {
		return nil, err
	}
	if err := ctx.Core.Write(ptr, make([]byte, size)); err != nil {
		return nil, err
	}
	if err := ctx.Core.WriteU32(ptr, 0); err != nil { // arrays have no class ptr in this layout
		return nil, err
	}
	if err := ctx.Core.WriteU32(ptr+4, count); err != nil {
		return nil, err
	}
	return &ArrayInstance{PtrInstance: ptr, ElementType: elementType, Length: count}, nil
}

// JavaArrayNew implements the bridge's array-new entry point. elementType
// is either a raw ASCII primitive type tag (when < 0x100) or a class
// pointer whose name is the element type.
func (ctx *Context) JavaArrayNew(elementType, count uint32) (uint32, error) {
	var typeName string
	if elementType > 0x100 {
		cl, ok := ctx.Classes.ClassFromRaw(elementType)
		if !ok {
			return 0, fmt.Errorf("%w: ptr=%#x", wieerr.ErrClassNotFound, elementType)
		}
		typeName = cl.Name
	} else {
		typeName = string(rune(byte(elementType)))
	}

	arr, err := ctx.NewArray(typeName, count)
	if err != nil {
		return 0, err
	}
	return arr.PtrInstance, nil
}

// CheckCast reports whether the instance at ptrInstance is assignable to
// ptrClass by walking the instance's actual class ancestry.
func (ctx *Context) CheckCast(ptrClass, ptrInstance uint32) (uint32, error) {
	target, ok := ctx.Classes.ClassFromRaw(ptrClass)
	if !ok {
		return 0, fmt.Errorf("%w: ptr=%#x", wieerr.ErrClassNotFound, ptrClass)
	}
	inst, ok := ctx.instances[ptrInstance]
	if !ok {
		return 1, nil // unknown instance: original reference stubbed this the same way
	}
	if inst.Class.IsSubclassOf(target) {
		return 0, nil
	}
	return 1, nil
}

// CallNative runs a native method at address with ptrData as its argument,
// then writes the result word and a trailing zero at ptrData/ptrData+4 -
// the calling convention native-method trampolines expect their return
// value delivered through rather than in a register.
func (ctx *Context) CallNative(address, ptrData uint32) (uint32, error) {
	result, err := ctx.Core.RunFunction(address, []uint32{ptrData})
	if err != nil {
		return 0, err
	}
	if err := ctx.Core.WriteU32(ptrData, result); err != nil {
		return 0, err
	}
	if err := ctx.Core.WriteU32(ptrData+4, 0); err != nil {
		return 0, err
	}
	return ptrData, nil
}

// JavaJump1 runs a native-compiled Java method taking one argument.
func (ctx *Context) JavaJump1(arg1, address uint32) (uint32, error) {
	return ctx.Core.RunFunction(address, []uint32{arg1})
}

// JavaJump2 runs a native-compiled Java method taking two arguments.
func (ctx *Context) JavaJump2(arg1, arg2, address uint32) (uint32, error) {
	return ctx.Core.RunFunction(address, []uint32{arg1, arg2})
}

// JavaJump3 runs a native-compiled Java method taking three arguments.
func (ctx *Context) JavaJump3(arg1, arg2, arg3, address uint32) (uint32, error) {
	return ctx.Core.RunFunction(address, []uint32{arg1, arg2, arg3})
}

// Throw reports a Java exception raised from native code. The caller's run
// is aborted; there is no guest-visible exception object, matching the
// bridge's own behavior of treating this as an unrecoverable host error
// rather than unwinding guest frames.
func (ctx *Context) Throw(class string, detail uint32) error {
	return fmt.Errorf("wie: java exception %s (%#x)", class, detail)
}
