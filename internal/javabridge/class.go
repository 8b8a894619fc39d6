package javabridge

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/log"
	"github.com/mirusu400/wie/internal/marshal"
)

// rawClassSize is sizeof(ptr_name, ptr_method_table, ptr_field_table,
// ptr_vtable, ptr_parent, field_layout_size) - six words, per spec.md §3's
// guest-resident class record.
const rawClassSize = 24

// classMethodTable/classFieldTable entries are zero-terminated arrays of
// record pointers; classVtable is a fixed-length array of callable
// addresses with no terminator, since its length is always cl.Vtable's.
const classRecordNameOffset = 0
const classRecordMethodTableOffset = 4
const classRecordFieldTableOffset = 8
const classRecordVtableOffset = 12
const classRecordParentOffset = 16
const classRecordFieldLayoutSizeOffset = 20

// MethodAccessStatic marks a method record static, same bit convention
// FieldAccessStatic uses.
const MethodAccessStatic uint32 = 8

// rawMethodSize is sizeof(access_flags, ptr_class, ptr_name, body_or_native_addr).
const rawMethodSize = 16

// Method is a resolvable Java method: either backed by a Go implementation
// (the common case for runtime library classes) or an ARM entry point for
// methods compiled into the app binary itself.
type Method struct {
	PtrRaw      uint32 // guest method record, once installed
	Name        FullName
	Class       *Class
	AccessFlags uint32

	Native   func(ctx *Context, args []uint32) (uint32, error)
	NativeFn uint32 // guest trampoline wrapping Native, installed on first resolution
}

// isVirtual reports whether m participates in vtable dispatch: static
// methods and constructors/initializers are always called directly by
// name, never through a vtable slot.
func (m *Method) isVirtual() bool {
	return m.AccessFlags&MethodAccessStatic == 0 && !strings.HasPrefix(m.Name.Name, "<")
}

// classState tracks the class-loading state machine from spec.md §4.6:
// Unknown -> Loaded -> Registered, or Failed (sticky) if <clinit> errors.
type classState int

const (
	stateLoaded classState = iota
	stateRegistered
	stateFailed
)

// Class is a loaded Java class: its ancestry, declared fields and methods,
// and the guest handle other bridge calls pass around as ptr_class.
type Class struct {
	PtrRaw          uint32
	Name            string
	Parent          *Class
	Fields          map[string]*Field
	Methods         map[string]*Method
	Vtable          []string // full names, in slot order; inherited slots first
	FieldLayoutSize uint32   // bytes of instance fields, own plus inherited

	state   classState
	failErr error

	mu sync.Mutex
}

// IsSubclassOf walks the ancestry chain looking for other.
func (c *Class) IsSubclassOf(other *Class) bool {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur == other || cur.Name == other.Name {
			return true
		}
	}
	return false
}

// Field looks up a declared field by name, including inherited ones.
func (c *Class) Field(name string) (*Field, bool) {
	for cur := c; cur != nil; cur = cur.Parent {
		if f, ok := cur.Fields[name]; ok {
			return f, true
		}
	}
	return nil, false
}

// Method looks up a declared method by its full name (name:descriptor),
// including inherited ones.
func (c *Class) Method(fullName string) (*Method, bool) {
	for cur := c; cur != nil; cur = cur.Parent {
		if m, ok := cur.Methods[fullName]; ok {
			return m, true
		}
	}
	return nil, false
}

// State reports the class-loading state machine's current state as a
// lowercase name, mostly for diagnostics.
func (c *Class) State() string {
	switch c.state {
	case stateRegistered:
		return "registered"
	case stateFailed:
		return "failed"
	default:
		return "loaded"
	}
}

// FieldSpec declares a field to attach to a class being built with Define.
// It is resolved into a real Field record once the owning class's guest
// address is known, since a field record stores ptr_class.
type FieldSpec struct {
	Name          FullName
	AccessFlag    uint32
	OffsetOrValue uint32
}

// Registry tracks every loaded class by name and by its guest-resident
// handle, so native calls holding nothing but a raw pointer can still
// resolve back to the Class that owns it.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*Class
	byPtr  map[uint32]*Class

	// ctx is set once by NewContext. Method native trampolines are
	// installed lazily (the first time a method is resolved or a class is
	// registered) and need a *Context to invoke Method.Native against;
	// providers only receive (*Registry, *core.Core), so the registry
	// keeps the back-reference.
	ctx *Context
}

// NewRegistry creates an empty class registry. Every provider registered
// via Provide (process-wide, usually from an init() in the package that
// implements the class) is visible to it immediately, including ones
// registered after the registry was constructed.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Class),
		byPtr:  make(map[uint32]*Class),
	}
}

// providers is populated by init() in the classes built into this runtime
// (see internal/methods/javaproto); Provide is how a class implementation
// registers its loader.
var providers = make(map[string]func(r *Registry, c *core.Core) (*Class, error))

// Provide registers a class loader under name, callable lazily the first
// time Load(name) is asked for it.
func Provide(name string, fn func(r *Registry, c *core.Core) (*Class, error)) {
	providers[name] = fn
}

// ClassFromRaw resolves a previously registered guest handle back to its
// Class.
func (r *Registry) ClassFromRaw(ptr uint32) (*Class, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cl, ok := r.byPtr[ptr]
	return cl, ok
}

// Load resolves name to a Class, loading it via a registered provider (or a
// generic empty-shell class for anything unrecognized - most app-defined
// classes never need bridge-visible native methods) if it has not been
// loaded yet. A class whose <clinit> previously failed stays Failed: Load
// returns the cached error again rather than retrying the provider.
func (r *Registry) Load(c *core.Core, name string) (*Class, error) {
	r.mu.Lock()
	if cl, ok := r.byName[name]; ok {
		r.mu.Unlock()
		if cl.state == stateFailed {
			return nil, cl.failErr
		}
		return cl, nil
	}
	provider, hasProvider := providers[name]
	r.mu.Unlock()

	var cl *Class
	var err error
	if hasProvider {
		cl, err = provider(r, c)
	} else {
		cl, err = r.defineShell(c, name, nil)
		if err == nil {
			err = r.finalize(c, cl)
		}
	}
	if cl == nil {
		return nil, fmt.Errorf("load class %s: %w", name, err)
	}

	r.mu.Lock()
	r.byName[name] = cl
	r.byPtr[cl.PtrRaw] = cl
	r.mu.Unlock()

	if cl.state == stateFailed {
		return nil, cl.failErr
	}
	if err != nil {
		return nil, fmt.Errorf("load class %s: %w", name, err)
	}
	return cl, nil
}

// Define builds a Class from its declared shape: its own instance fields
// (fieldLayoutSize bytes, appended after whatever the parent already
// occupies), and its methods. It interns the class's vtable and runs
// <clinit> (if the methods map declares one) before returning, per
// spec.md §4.6's registration step.
func (r *Registry) Define(c *core.Core, name string, parent *Class, fields map[string]FieldSpec, fieldLayoutSize uint32, methods map[string]*Method) (*Class, error) {
	cl, err := r.defineShell(c, name, parent)
	if err != nil {
		return nil, err
	}

	if parent != nil {
		cl.FieldLayoutSize = parent.FieldLayoutSize
	}
	cl.FieldLayoutSize += fieldLayoutSize

	for key, spec := range fields {
		f, err := NewField(c, cl.PtrRaw, spec.Name, spec.AccessFlag, spec.OffsetOrValue)
		if err != nil {
			return nil, err
		}
		cl.Fields[key] = f
	}

	if methods != nil {
		cl.Methods = methods
		for _, m := range methods {
			m.Class = cl
		}
	}

	if err := r.finalize(c, cl); err != nil {
		return cl, err
	}
	return cl, nil
}

func (r *Registry) defineShell(c *core.Core, name string, parent *Class) (*Class, error) {
	ptrRaw, err := c.Malloc(rawClassSize)
	if err != nil {
		return nil, err
	}

	ptrName, err := c.Malloc(uint32(len(name) + 1))
	if err != nil {
		return nil, err
	}
	if err := c.WriteCString(ptrName, name); err != nil {
		return nil, err
	}
	if err := c.WriteU32(ptrRaw+classRecordNameOffset, ptrName); err != nil {
		return nil, err
	}

	var parentPtr uint32
	if parent != nil {
		parentPtr = parent.PtrRaw
	}
	if err := c.WriteU32(ptrRaw+classRecordParentOffset, parentPtr); err != nil {
		return nil, err
	}

	return &Class{
		PtrRaw:  ptrRaw,
		Name:    name,
		Parent:  parent,
		Fields:  make(map[string]*Field),
		Methods: make(map[string]*Method),
		state:   stateLoaded,
	}, nil
}

// buildVtable walks parent's vtable (inherited slots keep their slot index)
// then appends any of cl's own virtual methods not already present,
// overriding the slot in place when a declared method reuses an inherited
// name:descriptor.
func buildVtable(parent *Class, methods map[string]*Method) []string {
	var vt []string
	if parent != nil {
		vt = append(vt, parent.Vtable...)
	}
	slot := make(map[string]int, len(vt))
	for i, name := range vt {
		slot[name] = i
	}

	names := make([]string, 0, len(methods))
	for name, m := range methods {
		if m.isVirtual() {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := slot[name]; ok {
			continue
		}
		slot[name] = len(vt)
		vt = append(vt, name)
	}
	return vt
}

// finalize is the class-registration step: build the vtable, install and
// write out the guest-resident method/field/vtable tables, run <clinit>,
// and settle the class into Registered or (sticky) Failed.
func (r *Registry) finalize(c *core.Core, cl *Class) error {
	cl.Vtable = buildVtable(cl.Parent, cl.Methods)

	for _, m := range cl.Methods {
		if err := r.installMethod(c, m); err != nil {
			cl.state = stateFailed
			cl.failErr = fmt.Errorf("install method %s on %s: %w", m.Name, cl.Name, err)
			return cl.failErr
		}
	}

	if err := r.writeClassTables(c, cl); err != nil {
		cl.state = stateFailed
		cl.failErr = fmt.Errorf("write class tables for %s: %w", cl.Name, err)
		return cl.failErr
	}

	if err := r.invokeClinit(c, cl); err != nil {
		cl.state = stateFailed
		cl.failErr = fmt.Errorf("<clinit> failed for %s: %w", cl.Name, err)
		return cl.failErr
	}

	cl.state = stateRegistered
	return nil
}

// installMethod wires m.Native through a core.RegisterFunction trampoline
// the same way WIPI C method tables install their stubs: guest calls land
// on the trampoline, which extracts args per AAPCS via internal/marshal and
// hands them to the Go implementation. A method without a Native body (an
// ARM-compiled method attached via RegisterClass) is left alone; its
// NativeFn already holds the address the class file loader recorded.
func (r *Registry) installMethod(c *core.Core, m *Method) error {
	if m.Native == nil || m.NativeFn != 0 {
		return nil
	}

	argc := ParamCount(m.Name.Descriptor)
	if m.AccessFlags&MethodAccessStatic == 0 {
		argc++ // implicit `this`
	}

	fn := func(c *core.Core) {
		words := marshal.Args(c, argc)
		if r.ctx == nil {
			c.SetR(0, 0)
			return
		}
		ret, err := m.Native(r.ctx, words)
		if err != nil {
			r.ctx.Log.Debug("native method failed", log.Fn(m.Name.String()))
			ret = 0
		}
		c.SetR(0, ret)
	}

	addr, err := c.RegisterFunction(fn)
	if err != nil {
		return err
	}
	m.NativeFn = addr
	return nil
}

// writeClassTables allocates and writes the guest-resident method table,
// field table, and vtable described by spec.md §3's class record, and
// patches their addresses into the class record itself. Method and field
// tables are zero-terminated arrays of record pointers; the vtable is a
// fixed-length array of callable addresses sized to len(cl.Vtable).
func (r *Registry) writeClassTables(c *core.Core, cl *Class) error {
	methodPtrs := make([]uint32, 0, len(cl.Methods))
	for _, m := range cl.Methods {
		ptr, err := writeMethodRecord(c, cl.PtrRaw, m)
		if err != nil {
			return err
		}
		methodPtrs = append(methodPtrs, ptr)
	}
	ptrMethodTable, err := writeZeroTerminated(c, methodPtrs)
	if err != nil {
		return err
	}

	fieldPtrs := make([]uint32, 0, len(cl.Fields))
	for _, f := range cl.Fields {
		fieldPtrs = append(fieldPtrs, f.PtrRaw)
	}
	ptrFieldTable, err := writeZeroTerminated(c, fieldPtrs)
	if err != nil {
		return err
	}

	vtableWords := make([]uint32, len(cl.Vtable))
	for i, name := range cl.Vtable {
		if m, ok := cl.Method(name); ok {
			vtableWords[i] = m.NativeFn
		}
	}
	var ptrVtable uint32
	if len(vtableWords) > 0 {
		ptrVtable, err = c.Malloc(uint32(len(vtableWords) * 4))
		if err != nil {
			return err
		}
		for i, w := range vtableWords {
			if err := c.WriteU32(ptrVtable+uint32(i*4), w); err != nil {
				return err
			}
		}
	}

	if err := c.WriteU32(cl.PtrRaw+classRecordMethodTableOffset, ptrMethodTable); err != nil {
		return err
	}
	if err := c.WriteU32(cl.PtrRaw+classRecordFieldTableOffset, ptrFieldTable); err != nil {
		return err
	}
	if err := c.WriteU32(cl.PtrRaw+classRecordVtableOffset, ptrVtable); err != nil {
		return err
	}
	if err := c.WriteU32(cl.PtrRaw+classRecordFieldLayoutSizeOffset, cl.FieldLayoutSize); err != nil {
		return err
	}

	return nil
}

func writeZeroTerminated(c *core.Core, ptrs []uint32) (uint32, error) {
	if len(ptrs) == 0 {
		return 0, nil
	}
	addr, err := c.Malloc(uint32((len(ptrs) + 1) * 4))
	if err != nil {
		return 0, err
	}
	for i, p := range ptrs {
		if err := c.WriteU32(addr+uint32(i*4), p); err != nil {
			return 0, err
		}
	}
	if err := c.WriteU32(addr+uint32(len(ptrs)*4), 0); err != nil {
		return 0, err
	}
	return addr, nil
}

func writeMethodRecord(c *core.Core, ptrClass uint32, m *Method) (uint32, error) {
	nameBytes := m.Name.Bytes()
	ptrName, err := c.Malloc(uint32(len(nameBytes)))
	if err != nil {
		return 0, err
	}
	if err := c.Write(ptrName, nameBytes); err != nil {
		return 0, err
	}

	ptrRaw, err := c.Malloc(rawMethodSize)
	if err != nil {
		return 0, err
	}
	if err := c.WriteU32(ptrRaw+0, m.AccessFlags); err != nil {
		return 0, err
	}
	if err := c.WriteU32(ptrRaw+4, ptrClass); err != nil {
		return 0, err
	}
	if err := c.WriteU32(ptrRaw+8, ptrName); err != nil {
		return 0, err
	}
	if err := c.WriteU32(ptrRaw+12, m.NativeFn); err != nil {
		return 0, err
	}

	m.PtrRaw = ptrRaw
	return ptrRaw, nil
}

// invokeClinit runs the class's own (non-inherited) <clinit> exactly once,
// if it declares one. A failure here is what sends the class to the sticky
// Failed state.
func (r *Registry) invokeClinit(c *core.Core, cl *Class) error {
	m, ok := cl.Methods[(FullName{Name: "<clinit>", Descriptor: "()V"}).String()]
	if !ok || m.Native == nil {
		return nil
	}
	if r.ctx == nil {
		return fmt.Errorf("wie: no context to run <clinit>")
	}
	_, err := m.Native(r.ctx, nil)
	return err
}

// RegisterClass is the bridge-facing counterpart of Define: it is how
// app-loaded classes (parsed from the archive rather than built in by a
// provider) get attached to the registry. ptrClass must already hold a
// valid rawClassSize handle, with its method/field tables (if any) already
// populated as zero-terminated pointer arrays by the class file loader.
func (r *Registry) RegisterClass(c *core.Core, ptrClass uint32) (*Class, error) {
	ptrName, err := c.ReadU32(ptrClass + classRecordNameOffset)
	if err != nil {
		return nil, err
	}
	name, err := c.ReadCString(ptrName)
	if err != nil {
		return nil, err
	}
	ptrParent, err := c.ReadU32(ptrClass + classRecordParentOffset)
	if err != nil {
		return nil, err
	}
	fieldLayoutSize, err := c.ReadU32(ptrClass + classRecordFieldLayoutSizeOffset)
	if err != nil {
		return nil, err
	}

	var parent *Class
	if ptrParent != 0 {
		parent, _ = r.ClassFromRaw(ptrParent)
	}

	cl := &Class{
		PtrRaw:          ptrClass,
		Name:            name,
		Parent:          parent,
		Fields:          make(map[string]*Field),
		Methods:         make(map[string]*Method),
		FieldLayoutSize: fieldLayoutSize,
		state:           stateLoaded,
	}

	ptrMethodTable, err := c.ReadU32(ptrClass + classRecordMethodTableOffset)
	if err != nil {
		return nil, err
	}
	methodPtrs, err := readZeroTerminated(c, ptrMethodTable)
	if err != nil {
		return nil, err
	}
	for _, ptr := range methodPtrs {
		m, err := methodFromRaw(c, ptr)
		if err != nil {
			return nil, err
		}
		m.Class = cl
		cl.Methods[m.Name.String()] = m
	}

	ptrFieldTable, err := c.ReadU32(ptrClass + classRecordFieldTableOffset)
	if err != nil {
		return nil, err
	}
	fieldPtrs, err := readZeroTerminated(c, ptrFieldTable)
	if err != nil {
		return nil, err
	}
	for _, ptr := range fieldPtrs {
		f := FieldFromRaw(ptr)
		fname, err := f.Name(c)
		if err != nil {
			return nil, err
		}
		cl.Fields[fname.Name] = f
	}

	if err := r.finalize(c, cl); err != nil {
		r.mu.Lock()
		r.byName[name] = cl
		r.byPtr[ptrClass] = cl
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	r.byName[name] = cl
	r.byPtr[ptrClass] = cl
	r.mu.Unlock()

	return cl, nil
}

func readZeroTerminated(c *core.Core, addr uint32) ([]uint32, error) {
	if addr == 0 {
		return nil, nil
	}
	var out []uint32
	for {
		word, err := c.ReadU32(addr + uint32(len(out)*4))
		if err != nil {
			return nil, err
		}
		if word == 0 {
			return out, nil
		}
		out = append(out, word)
	}
}

func methodFromRaw(c *core.Core, ptrRaw uint32) (*Method, error) {
	accessFlags, err := c.ReadU32(ptrRaw + 0)
	if err != nil {
		return nil, err
	}
	ptrName, err := c.ReadU32(ptrRaw + 8)
	if err != nil {
		return nil, err
	}
	name, err := FullNameFromPtr(c, ptrName)
	if err != nil {
		return nil, err
	}
	nativeFn, err := c.ReadU32(ptrRaw + 12)
	if err != nil {
		return nil, err
	}
	return &Method{PtrRaw: ptrRaw, Name: name, AccessFlags: accessFlags, NativeFn: nativeFn}, nil
}
