// Package marshal adapts ordinary typed Go functions into the raw
// (*core.Core) hooks core.RegisterFunction expects, handling the AAPCS
// argument shuffle (r0-r3 then stack) and result placement in r0. Each
// arity gets its own small generic adapter rather than one function walking
// a slice of reflect.Values - this is the Go-idiomatic substitute for the
// per-arity trait implementations a language with variadic generics or
// macros would reach for.
package marshal

import "github.com/mirusu400/wie/internal/core"

// Decoder converts the raw 32-bit argument word (or, for multi-word types,
// the word at the argument's starting slot) into a Go value. Most decoders
// only need raw; CString needs c to dereference the pointer.
type Decoder[T any] func(c *core.Core, raw uint32) T

// Word passes the argument through unchanged.
func Word(_ *core.Core, raw uint32) uint32 { return raw }

// SWord reinterprets the argument as a signed 32-bit integer.
func SWord(_ *core.Core, raw uint32) int32 { return int32(raw) }

// Bool treats any non-zero word as true.
func Bool(_ *core.Core, raw uint32) bool { return raw != 0 }

// CString dereferences raw as a guest pointer to a NUL-terminated string.
// On a bad pointer it yields the empty string rather than propagating an
// error - method table stubs log and continue instead of crashing the
// guest over a malformed argument.
func CString(c *core.Core, raw uint32) string {
	s, err := c.ReadCString(raw)
	if err != nil {
		return ""
	}
	return s
}

// Ptr is an identity decoder with a name that documents intent at call
// sites that pass raw guest addresses through.
func Ptr(_ *core.Core, raw uint32) uint32 { return raw }

func args(c *core.Core, n int) []uint32 {
	out := make([]uint32, n)
	sp := c.SP()
	for i := 0; i < n; i++ {
		if i < 4 {
			out[i] = c.R(i)
			continue
		}
		word, _ := c.ReadU32(sp + uint32(i-4)*4)
		out[i] = word
	}
	return out
}

// Args extracts n raw argument words per AAPCS (r0-r3, then the stack),
// for callers that need variable arity the Adapt0-5 ladder can't express -
// Java method dispatch, whose arity comes from a parsed descriptor rather
// than a Go function signature.
func Args(c *core.Core, n int) []uint32 {
	return args(c, n)
}

// Adapt0 wraps a zero-argument host function.
func Adapt0(fn func(c *core.Core) uint32) func(*core.Core) {
	return func(c *core.Core) {
		c.SetR(0, fn(c))
	}
}

// Adapt1 wraps a one-argument host function.
func Adapt1[A any](fn func(c *core.Core, a A) uint32, da Decoder[A]) func(*core.Core) {
	return func(c *core.Core) {
		a := args(c, 1)
		c.SetR(0, fn(c, da(c, a[0])))
	}
}

// Adapt2 wraps a two-argument host function.
func Adapt2[A, B any](fn func(c *core.Core, a A, b B) uint32, da Decoder[A], db Decoder[B]) func(*core.Core) {
	return func(c *core.Core) {
		a := args(c, 2)
		c.SetR(0, fn(c, da(c, a[0]), db(c, a[1])))
	}
}

// Adapt3 wraps a three-argument host function.
func Adapt3[A, B, D any](fn func(c *core.Core, a A, b B, d D) uint32, da Decoder[A], db Decoder[B], dd Decoder[D]) func(*core.Core) {
	return func(c *core.Core) {
		a := args(c, 3)
		c.SetR(0, fn(c, da(c, a[0]), db(c, a[1]), dd(c, a[2])))
	}
}

// Adapt4 wraps a four-argument host function.
func Adapt4[A, B, D, E any](fn func(c *core.Core, a A, b B, d D, e E) uint32, da Decoder[A], db Decoder[B], dd Decoder[D], de Decoder[E]) func(*core.Core) {
	return func(c *core.Core) {
		a := args(c, 4)
		c.SetR(0, fn(c, da(c, a[0]), db(c, a[1]), dd(c, a[2]), de(c, a[3])))
	}
}

// Adapt5 wraps a five-argument host function (the fifth arg spills to the
// stack per AAPCS).
func Adapt5[A, B, D, E, F any](fn func(c *core.Core, a A, b B, d D, e E, f F) uint32, da Decoder[A], db Decoder[B], dd Decoder[D], de Decoder[E], df Decoder[F]) func(*core.Core) {
	return func(c *core.Core) {
		a := args(c, 5)
		c.SetR(0, fn(c, da(c, a[0]), db(c, a[1]), dd(c, a[2]), de(c, a[3]), df(c, a[4])))
	}
}
