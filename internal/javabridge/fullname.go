package javabridge

import (
	"fmt"

	"github.com/mirusu400/wie/internal/core"
)

// FullName identifies a Java method or field the way the guest-side vtable
// lookup does: a one-byte tag (reserved, always 0 for anything this runtime
// produces) followed by the NUL-terminated name and the NUL-terminated
// JVM-style type descriptor.
type FullName struct {
	Tag        byte
	Name       string
	Descriptor string
}

func (f FullName) String() string {
	return fmt.Sprintf("%s:%s", f.Name, f.Descriptor)
}

// Bytes encodes f the way a guest-resident full name record is laid out.
func (f FullName) Bytes() []byte {
	out := make([]byte, 0, 1+len(f.Name)+1+len(f.Descriptor)+1)
	out = append(out, f.Tag)
	out = append(out, []byte(f.Name)...)
	out = append(out, 0)
	out = append(out, []byte(f.Descriptor)...)
	out = append(out, 0)
	return out
}

// FullNameFromPtr decodes a FullName starting at addr in guest memory.
func FullNameFromPtr(c *core.Core, addr uint32) (FullName, error) {
	raw, err := c.Read(addr, 1)
	if err != nil {
		return FullName{}, err
	}
	tag := raw[0]

	name, err := c.ReadCString(addr + 1)
	if err != nil {
		return FullName{}, err
	}
	descAddr := addr + 1 + uint32(len(name)) + 1
	desc, err := c.ReadCString(descAddr)
	if err != nil {
		return FullName{}, err
	}

	return FullName{Tag: tag, Name: name, Descriptor: desc}, nil
}

// WriteFullName allocates nothing; it writes f's encoded bytes at addr,
// which the caller must have already sized via Bytes's length.
func WriteFullName(c *core.Core, addr uint32, f FullName) error {
	return c.Write(addr, f.Bytes())
}

// ParamCount counts the parameters encoded in a JVM-style method descriptor
// "(args)return", e.g. "(ILjava/lang/String;)V" has 2. Every parameter
// occupies one guest word in this runtime's calling convention regardless
// of its JVM type (no separate long/double word-pair widening), matching
// how every other bridge entry point here treats guest arguments.
func ParamCount(descriptor string) int {
	open := -1
	closeIdx := -1
	for i, r := range descriptor {
		if r == '(' {
			open = i
		}
		if r == ')' {
			closeIdx = i
			break
		}
	}
	if open < 0 || closeIdx < 0 || closeIdx <= open+1 {
		return 0
	}

	count := 0
	args := descriptor[open+1 : closeIdx]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case 'L':
			for i < len(args) && args[i] != ';' {
				i++
			}
			count++
		case '[':
			for i < len(args) && args[i] == '[' {
				i++
			}
			if i < len(args) && args[i] == 'L' {
				for i < len(args) && args[i] != ';' {
					i++
				}
			}
			count++
		default:
			count++
		}
	}
	return count
}
