// Package javaproto implements the Java standard-library and platform
// classes apps expect to find already loaded: java.lang.Object/String/
// Thread, java.util.Vector, and the WIPI-specific org.kwis.msp.* classes.
// Each class registers itself with internal/javabridge from an init(), the
// same self-registering pattern internal/methods/wipic uses for C method
// tables.
package javaproto

import (
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/javabridge"
)

// method is a small builder helper so each class file reads as a flat list
// of (name, descriptor, implementation) rather than hand-building
// javabridge.Method/FullName values inline.
func method(name, descriptor string, fn func(ctx *javabridge.Context, args []uint32) (uint32, error)) (string, *javabridge.Method) {
	full := javabridge.FullName{Name: name, Descriptor: descriptor}
	return full.String(), &javabridge.Method{Name: full, Native: fn}
}

// staticMethod is method for a static native - no implicit `this` is
// marshalled into args.
func staticMethod(name, descriptor string, fn func(ctx *javabridge.Context, args []uint32) (uint32, error)) (string, *javabridge.Method) {
	key, m := method(name, descriptor, fn)
	m.AccessFlags |= javabridge.MethodAccessStatic
	return key, m
}

// field is the field-side counterpart of method: declares an instance
// field at byte offset (from the instance base, header word included) for
// defineWithFields to resolve into a real record.
func field(name, descriptor string, offset uint32) (string, javabridge.FieldSpec) {
	full := javabridge.FullName{Name: name, Descriptor: descriptor}
	return name, javabridge.FieldSpec{Name: full, OffsetOrValue: offset}
}

func defineWithMethods(r *javabridge.Registry, c *core.Core, name string, parentName string, methods map[string]*javabridge.Method) (*javabridge.Class, error) {
	return defineWithFields(r, c, name, parentName, nil, 0, methods)
}

func defineWithFields(r *javabridge.Registry, c *core.Core, name string, parentName string, fields map[string]javabridge.FieldSpec, fieldLayoutSize uint32, methods map[string]*javabridge.Method) (*javabridge.Class, error) {
	var parent *javabridge.Class
	if parentName != "" {
		p, err := r.Load(c, parentName)
		if err != nil {
			return nil, err
		}
		parent = p
	}
	return r.Define(c, name, parent, fields, fieldLayoutSize, methods)
}
