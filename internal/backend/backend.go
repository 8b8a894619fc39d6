// Package backend composes the host-side services a running app talks to
// through the method tables: resources, clock, network, and narrow
// audio/graphics/input surfaces. It mirrors the teacher's emulator state
// being shared by reference rather than copied — a Backend is cheap to
// pass around because it is a pointer to a small struct of pointers.
package backend

import (
	"github.com/mirusu400/wie/internal/log"
	"github.com/mirusu400/wie/internal/resource"
)

// Backend is the composite service set every method table category
// (kernel, media, network, graphics) reaches into.
type Backend struct {
	Resources *resource.Table
	Time      *Clock
	Network   *Network
	Audio     *Audio
	Gfx       *Gfx
	Input     *Input
	Log       *log.Logger
}

// New builds a Backend around an already-populated resource table (the
// one an archive.App produced).
func New(resources *resource.Table, logger *log.Logger) *Backend {
	return &Backend{
		Resources: resources,
		Time:      NewClock(),
		Network:   NewNetwork(logger),
		Audio:     &Audio{Log: logger},
		Gfx:       &Gfx{Log: logger},
		Input:     &Input{Log: logger},
		Log:       logger,
	}
}
