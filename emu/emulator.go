package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
)

// DefaultMemorySize is the memory size used when none is configured.
const DefaultMemorySize uint32 = 1 << 20

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// PC is the address the word was fetched from.
	PC uint32

	// Word is the fetched instruction word.
	Word uint32

	// Outcome is the dispatch result.
	Outcome Outcome

	// Handler names the engine that claimed the word.
	Handler string

	// Exited is true if the program terminated (via exit syscall).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int32

	// Breakpoint is true if the step executed ebreak.
	Breakpoint bool

	// Err is set if an error occurred during execution.
	Err error
}

// Halted reports whether Run would stop after this step.
func (r StepResult) Halted() bool {
	return r.Exited || r.Breakpoint || r.Err != nil
}

// Emulator drives the base engine and the installed extensions one
// instruction at a time.
type Emulator struct {
	base           *Base
	bus            *Bus
	candidates     []Extension
	syscallHandler SyscallHandler
	fds            *FDTable

	// I/O
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	log logr.Logger

	memorySize uint32
	memoryBase uint32

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	skipUnsupported  bool
	unsupported      uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemorySize sets the memory size in bytes. It must be a multiple of 4.
func WithMemorySize(size uint32) EmulatorOption {
	return func(e *Emulator) {
		e.memorySize = size
	}
}

// WithMemoryBase maps memory at the given bus address.
func WithMemoryBase(base uint32) EmulatorOption {
	return func(e *Emulator) {
		e.memoryBase = base
	}
}

// WithExtensions installs extensions, tried in the given order after the
// base engine.
func WithExtensions(exts ...Extension) EmulatorOption {
	return func(e *Emulator) {
		e.candidates = append(e.candidates, exts...)
	}
}

// WithStdin sets the reader behind guest descriptor 0.
func WithStdin(r io.Reader) EmulatorOption {
	return func(e *Emulator) {
		e.stdin = r
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.log = log
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithSkipUnsupported makes Run log and step over words no engine claims
// instead of stopping. Combine it with WithMaxInstructions to bound runs
// that fall into unmapped or zeroed memory.
func WithSkipUnsupported(skip bool) EmulatorOption {
	return func(e *Emulator) {
		e.skipUnsupported = skip
	}
}

// NewEmulator creates a new RV32 emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		candidates: []Extension{baseExtension{}},
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		log:        logr.Discard(),
		memorySize: DefaultMemorySize,
		memoryBase: DRAMBase,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.bus = NewBus(NewMemory(e.memorySize),
		WithDRAMBase(e.memoryBase),
		WithBusLogger(e.log.WithName("bus")))
	e.base = NewBase(e.bus)

	if e.syscallHandler == nil {
		e.fds = NewFDTable(e.stdin, e.stdout, e.stderr)
		e.syscallHandler = NewDefaultSyscallHandler(e.fds, e.log.WithName("syscall"))
	}

	return e
}

// Base returns the base execution engine.
func (e *Emulator) Base() *Base {
	return e.base
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.base.RegFile()
}

// Bus returns the emulator's bus.
func (e *Emulator) Bus() *Bus {
	return e.bus
}

// Extensions returns the installed extensions, excluding the base engine.
func (e *Emulator) Extensions() []Extension {
	return e.candidates[1:]
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// UnsupportedCount returns the number of words no engine claimed.
func (e *Emulator) UnsupportedCount() uint64 {
	return e.unsupported
}

// LoadProgram copies an image into memory at entry and points PC at it.
func (e *Emulator) LoadProgram(entry uint32, image []byte) error {
	if err := e.bus.LoadBytes(entry, image); err != nil {
		return fmt.Errorf("loading program: %w", err)
	}
	e.base.SetPC(entry)
	return nil
}

// LoadWords stores instruction words at consecutive addresses from addr.
func (e *Emulator) LoadWords(addr uint32, words ...uint32) error {
	for i, w := range words {
		a := addr + uint32(i)*4
		if !e.bus.Contains(a, Word) {
			return fmt.Errorf("%w: word at 0x%X", ErrImageOutOfRange, a)
		}
		e.bus.Store(a, Word, w)
	}
	return nil
}

// Reset clears memory and registers and zeroes the counters. Installed
// extensions keep their private state.
func (e *Emulator) Reset() {
	e.bus = NewBus(NewMemory(e.memorySize),
		WithDRAMBase(e.memoryBase),
		WithBusLogger(e.log.WithName("bus")))
	e.base = NewBase(e.bus)
	e.instructionCount = 0
	e.unsupported = 0
}

// SkipsUnsupported reports whether Run steps over unclaimed words.
func (e *Emulator) SkipsUnsupported() bool {
	return e.skipUnsupported
}

// Close releases host files opened by the guest.
func (e *Emulator) Close() {
	if e.fds != nil {
		e.fds.CloseAll()
	}
}

// Step fetches one word and dispatches it to the base engine and then to
// each extension in order.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{
			PC:  e.base.PC(),
			Err: fmt.Errorf("%w: %d", ErrMaxInstructions, e.maxInstructions),
		}
	}

	pc := e.base.PC()
	word := e.base.Fetch()
	outcome, handler := Dispatch(word, e.base, e.candidates)

	e.instructionCount++

	result := StepResult{
		PC:      pc,
		Word:    word,
		Outcome: outcome,
		Handler: handler,
	}

	switch outcome {
	case NotRecognized:
		e.unsupported++
		result.Err = fmt.Errorf("%w 0x%08X at PC=0x%X", ErrUnsupportedInstruction, word, pc)
	case EnvironmentCall:
		sys := e.syscallHandler.Handle(e.base)
		result.Exited = sys.Exited
		result.ExitCode = sys.ExitCode
	case EnvironmentBreak:
		result.Breakpoint = true
	}

	return result
}

// Run executes instructions until the program exits, hits a breakpoint or
// an error occurs. It returns the last step's result.
func (e *Emulator) Run() StepResult {
	for {
		result := e.Step()

		if e.skipUnsupported && errors.Is(result.Err, ErrUnsupportedInstruction) {
			e.log.Info("skipping unsupported instruction",
				"pc", fmt.Sprintf("0x%08X", result.PC), "word", fmt.Sprintf("0x%08X", result.Word))
			continue
		}

		if result.Halted() {
			return result
		}
	}
}
