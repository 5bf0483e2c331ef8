// Package loader provides program loading for RV32 executables: ELF32
// RISC-V binaries and flat raw images.
package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNotELF32 is returned for ELF files of the wrong class.
	ErrNotELF32 = errors.New("not a 32-bit ELF file")

	// ErrNotRISCV is returned for ELF files built for another machine.
	ErrNotRISCV = errors.New("not a RISC-V ELF file")
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment.
type Segment struct {
	// VirtAddr is the address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
}

// Memory is the destination a Program is installed into. *emu.Bus
// satisfies it.
type Memory interface {
	LoadBytes(addr uint32, data []byte) error
}

// LoadInto copies every segment into mem and zero-fills the BSS tail.
func (p *Program) LoadInto(mem Memory) error {
	for _, seg := range p.Segments {
		if err := mem.LoadBytes(seg.VirtAddr, seg.Data); err != nil {
			return fmt.Errorf("segment at 0x%x: %w", seg.VirtAddr, err)
		}

		if seg.MemSize > uint32(len(seg.Data)) {
			bss := make([]byte, seg.MemSize-uint32(len(seg.Data)))
			if err := mem.LoadBytes(seg.VirtAddr+uint32(len(seg.Data)), bss); err != nil {
				return fmt.Errorf("bss of segment at 0x%x: %w", seg.VirtAddr, err)
			}
		}
	}
	return nil
}

// Load parses an RV32 ELF binary and returns a Program ready for loading
// into the emulator's memory.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return fromFile(f)
}

// Parse reads an RV32 ELF binary from r.
func Parse(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}

	return fromFile(f)
}

func fromFile(f *elf.File) (*Program, error) {
	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%w (class: %v)", ErrNotELF32, f.Class)
	}

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w (machine type: %v)", ErrNotRISCV, f.Machine)
	}

	prog := &Program{EntryPoint: uint32(f.Entry)}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    flags,
		})
	}

	return prog, nil
}

// LoadRaw reads a flat binary image that is placed at base and entered at
// its first byte.
func LoadRaw(path string, base uint32) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw image: %w", err)
	}

	return RawProgram(data, base), nil
}

// RawProgram wraps an in-memory image as a single read/write/execute
// segment at base.
func RawProgram(data []byte, base uint32) *Program {
	return &Program{
		EntryPoint: base,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     data,
			MemSize:  uint32(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}
}
