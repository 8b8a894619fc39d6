package core

import (
	"fmt"

	"golang.org/x/arch/arm/armasm"
)

// Disassemble decodes one ARM-mode instruction at addr, for the trace
// output the CLI prints around an unimplemented method-table call. WIPI
// entry points are reached through the Thumb-bit convention (entry | 1)
// but code bodies run in ARM mode once past the interworking branch;
// armasm does not decode Thumb, so a Thumb-mode address here just reports
// that instead of guessing at a wrong instruction.
func (c *Core) Disassemble(addr uint32) (string, error) {
	data, err := c.Read(addr&^1, 4)
	if err != nil {
		return "", err
	}
	if addr&1 != 0 {
		return "(thumb, undecoded)", nil
	}

	inst, err := armasm.Decode(data, armasm.ModeARM)
	if err != nil {
		return "", fmt.Errorf("decode %#x: %w", addr, err)
	}
	return armasm.GNUSyntax(inst), nil
}
