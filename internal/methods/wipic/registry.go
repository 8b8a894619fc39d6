// Package wipic builds the WIPI C method tables (kernel, media, ...) that
// native ARM binaries call into. Each table is an ordinal-indexed vector of
// host functions, mirroring how the platform's own C interface structs are
// laid out. Unimplemented ordinals fall back to a logging stub rather than
// a hard failure, the same as the reserved/unknown slots in the originals.
package wipic

import (
	"github.com/mirusu400/wie/internal/cbridge"
	"github.com/mirusu400/wie/internal/core"
)

// Table is a named, ordered list of method-table entries ready for
// cbridge.Install.
type Table struct {
	Category string
	Names    []string
	Hooks    []func(*core.Core)
}

// builder constructs a Table against a live bridge context. Each category
// file in this package registers one via an init-time call to register.
type builder func(ctx *cbridge.Context) Table

var builders []builder

func register(b builder) {
	builders = append(builders, b)
}

// BuildAll constructs every registered method table against ctx.
func BuildAll(ctx *cbridge.Context) []Table {
	tables := make([]Table, 0, len(builders))
	for _, b := range builders {
		tables = append(tables, b(ctx))
	}
	return tables
}

// InstallAll builds and installs every registered method table, returning
// them keyed by category name.
func InstallAll(ctx *cbridge.Context) (map[string]*cbridge.MethodTable, error) {
	out := make(map[string]*cbridge.MethodTable)
	for _, tbl := range BuildAll(ctx) {
		installed, err := cbridge.Install(ctx.Core, ctx.Log, tbl.Category, tbl.Names, tbl.Hooks)
		if err != nil {
			return nil, err
		}
		out[tbl.Category] = installed
	}
	return out, nil
}
