package core

import (
	"debug/elf"
	"fmt"

	"github.com/mirusu400/wie/internal/wieerr"
)

// LoadImage loads a statically linked ARM32 ET_EXEC binary with no program
// headers, the shape WIPI native modules ship in: every section whose
// sh_addr is non-zero is copied verbatim to that address, there is no
// relocation or PLT/GOT to resolve, and the entry point is whatever the ELF
// header names directly. It returns the entry point address (without the
// Thumb low bit set - callers decide whether to OR it in before jumping).
func (c *Core) LoadImage(data []byte) (entry uint32, err error) {
	f, err := elf.NewFile(bytesReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", wieerr.ErrInvalidImage, err)
	}
	defer f.Close()

	if f.Machine != elf.EM_ARM {
		return 0, fmt.Errorf("%w: machine %s, want ARM", wieerr.ErrInvalidImage, f.Machine)
	}
	if f.Type != elf.ET_EXEC {
		return 0, fmt.Errorf("%w: type %s, want ET_EXEC", wieerr.ErrInvalidImage, f.Type)
	}
	if f.Class != elf.ELFCLASS32 {
		return 0, fmt.Errorf("%w: class %s, want ELFCLASS32", wieerr.ErrInvalidImage, f.Class)
	}
	if len(f.Progs) != 0 {
		return 0, fmt.Errorf("%w: expected no program headers, found %d", wieerr.ErrInvalidImage, len(f.Progs))
	}

	for _, sec := range f.Sections {
		if sec.Addr == 0 {
			continue
		}
		if sec.Type == elf.SHT_NOBITS {
			zeros := make([]byte, sec.Size)
			if err := c.Load(zeros, uint32(sec.Addr)); err != nil {
				return 0, fmt.Errorf("zero section %s at %#x: %w", sec.Name, sec.Addr, err)
			}
			continue
		}

		sdata, err := sec.Data()
		if err != nil {
			return 0, fmt.Errorf("read section %s: %w", sec.Name, err)
		}
		if err := c.Load(sdata, uint32(sec.Addr)); err != nil {
			return 0, fmt.Errorf("load section %s at %#x: %w", sec.Name, sec.Addr, err)
		}
	}

	return uint32(f.Entry), nil
}

type byteReaderAt struct {
	data []byte
}

func (b *byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		return 0, fmt.Errorf("eof")
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("short read")
	}
	return n, nil
}

func bytesReader(data []byte) *byteReaderAt {
	return &byteReaderAt{data: data}
}
