package javabridge

import (
	"fmt"

	"github.com/mirusu400/wie/internal/core"
)

// Access flag bits used in a field's raw record. Only STATIC is meaningful
// today; instance fields simply omit it.
const (
	FieldAccessNone   uint32 = 0
	FieldAccessStatic uint32 = 8
)

// rawFieldSize is sizeof(access_flag, ptr_class, ptr_name, offset_or_value) -
// four words.
const rawFieldSize = 16

// Field is a handle to a field record living in guest memory: access flag,
// owning class pointer, a pointer to its encoded FullName, and either an
// instance offset or (for statics) the storage cell itself.
type Field struct {
	PtrRaw uint32
}

// NewField allocates and writes a field record for class ptrClass.
// offsetOrValue is the instance field's byte offset, or - for a static
// field - the initial value of the storage cell, since the record's own
// offset_or_value slot doubles as the static storage (see StaticAddress).
func NewField(c *core.Core, ptrClass uint32, name FullName, accessFlag uint32, offsetOrValue uint32) (*Field, error) {
	nameBytes := name.Bytes()
	ptrName, err := c.Malloc(uint32(len(nameBytes)))
	if err != nil {
		return nil, err
	}
	if err := c.Write(ptrName, nameBytes); err != nil {
		return nil, err
	}

	ptrRaw, err := c.Malloc(rawFieldSize)
	if err != nil {
		return nil, err
	}

	if err := c.WriteU32(ptrRaw+0, accessFlag); err != nil {
		return nil, err
	}
	if err := c.WriteU32(ptrRaw+4, ptrClass); err != nil {
		return nil, err
	}
	if err := c.WriteU32(ptrRaw+8, ptrName); err != nil {
		return nil, err
	}
	if err := c.WriteU32(ptrRaw+12, offsetOrValue); err != nil {
		return nil, err
	}

	return &Field{PtrRaw: ptrRaw}, nil
}

// FieldFromRaw wraps an existing field record.
func FieldFromRaw(ptrRaw uint32) *Field {
	return &Field{PtrRaw: ptrRaw}
}

func (f *Field) accessFlag(c *core.Core) (uint32, error) {
	return c.ReadU32(f.PtrRaw)
}

// Name decodes the field's FullName.
func (f *Field) Name(c *core.Core) (FullName, error) {
	ptrName, err := c.ReadU32(f.PtrRaw + 8)
	if err != nil {
		return FullName{}, err
	}
	return FullNameFromPtr(c, ptrName)
}

// IsStatic reports whether the field carries the STATIC access bit.
func (f *Field) IsStatic(c *core.Core) (bool, error) {
	flag, err := f.accessFlag(c)
	if err != nil {
		return false, err
	}
	return flag&FieldAccessStatic != 0, nil
}

// Offset returns an instance field's byte offset from its instance base.
// It errors if the field is static.
func (f *Field) Offset(c *core.Core) (uint32, error) {
	static, err := f.IsStatic(c)
	if err != nil {
		return 0, err
	}
	if static {
		return 0, fmt.Errorf("wie: field is static")
	}
	return c.ReadU32(f.PtrRaw + 12)
}

// StaticAddress returns the guest address backing a static field's storage.
// It is simply the record's offset_or_value slot: static storage lives
// in-place inside the field record rather than in a separately allocated
// cell.
func (f *Field) StaticAddress(c *core.Core) (uint32, error) {
	static, err := f.IsStatic(c)
	if err != nil {
		return 0, err
	}
	if !static {
		return 0, fmt.Errorf("wie: field is not static")
	}
	return f.PtrRaw + 12, nil
}
