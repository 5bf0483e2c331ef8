package emu_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/emu"
)

// stubExtension claims the words accepted by its claim function.
type stubExtension struct {
	name    string
	claim   func(word uint32) bool
	outcome emu.Outcome
	calls   int
}

func (s *stubExtension) Name() string { return s.name }

func (s *stubExtension) Execute(word uint32, base *emu.Base) emu.Outcome {
	s.calls++
	if s.claim != nil && s.claim(word) {
		return s.outcome
	}
	return emu.NotRecognized
}

func claimsEverything(uint32) bool { return true }

// recordingHandler records environment calls and exits on request.
type recordingHandler struct {
	calls int
	exit  bool
}

func (h *recordingHandler) Handle(base *emu.Base) emu.SyscallResult {
	h.calls++
	return emu.SyscallResult{Exited: h.exit, ExitCode: base.Get(emu.RegA0)}
}

var _ = Describe("Emulator", func() {
	var (
		e         *emu.Emulator
		stdoutBuf *bytes.Buffer
	)

	BeforeEach(func() {
		stdoutBuf = &bytes.Buffer{}
		e = emu.NewEmulator(
			emu.WithMemorySize(4096),
			emu.WithStdout(stdoutBuf),
			emu.WithLogger(GinkgoLogr),
		)
	})

	Describe("NewEmulator", func() {
		It("should create an emulator with initialized components", func() {
			Expect(e.RegFile()).NotTo(BeNil())
			Expect(e.Bus().Size()).To(Equal(uint32(4096)))
			Expect(e.RegFile().Get(emu.RegSP)).To(Equal(int32(4096)))
			Expect(e.Extensions()).To(BeEmpty())
		})
	})

	Describe("LoadProgram", func() {
		It("should load bytes and set the PC to the entry point", func() {
			Expect(e.LoadProgram(0x200, []byte{0xDE, 0xAD, 0xBE, 0xEF})).To(Succeed())

			Expect(e.RegFile().PC()).To(Equal(uint32(0x200)))
			Expect(e.Bus().Load(0x200, emu.Word)).To(Equal(uint32(0xEFBEADDE)))
		})

		It("should fail when the image does not fit", func() {
			err := e.LoadProgram(4094, []byte{1, 2, 3, 4})
			Expect(errors.Is(err, emu.ErrImageOutOfRange)).To(BeTrue())
		})
	})

	Describe("PC-relative loop", func() {
		BeforeEach(func() {
			Expect(e.LoadWords(0,
				addi(5, 6, 1),
				addi(6, 5, 1),
				jal(0, -8),
			)).To(Succeed())
		})

		It("should return to address 0 after three steps", func() {
			for i := 0; i < 3; i++ {
				Expect(e.Step().Err).NotTo(HaveOccurred())
			}

			Expect(e.RegFile().PC()).To(BeZero())
			Expect(e.RegFile().Get(5)).To(Equal(int32(1)))
			Expect(e.RegFile().Get(6)).To(Equal(int32(2)))
		})

		It("should increment both registers once per iteration", func() {
			for i := 0; i < 9; i++ {
				Expect(e.Step().Err).NotTo(HaveOccurred())
			}

			Expect(e.RegFile().PC()).To(BeZero())
			Expect(e.RegFile().Get(5)).To(Equal(int32(5)))
			Expect(e.RegFile().Get(6)).To(Equal(int32(6)))
			Expect(e.InstructionCount()).To(Equal(uint64(9)))
		})
	})

	Describe("dispatch priority", func() {
		var first, second *stubExtension

		BeforeEach(func() {
			first = &stubExtension{name: "first"}
			second = &stubExtension{name: "second", claim: claimsEverything, outcome: emu.Handled}
			e = emu.NewEmulator(
				emu.WithMemorySize(4096),
				emu.WithExtensions(first, second),
			)
		})

		It("should never offer base-owned words to extensions", func() {
			Expect(e.LoadWords(0, addi(1, 0, 7))).To(Succeed())

			result := e.Step()

			Expect(result.Handler).To(Equal(emu.BaseName))
			Expect(first.calls).To(BeZero())
			Expect(second.calls).To(BeZero())
			Expect(e.RegFile().Get(1)).To(Equal(int32(7)))
		})

		It("should fall through to the extension that claims the word", func() {
			Expect(e.LoadWords(0, custom0Word)).To(Succeed())

			result := e.Step()

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(emu.Handled))
			Expect(result.Handler).To(Equal("second"))
			Expect(first.calls).To(Equal(1))
			Expect(second.calls).To(Equal(1))
		})

		It("should stop at the first claiming extension", func() {
			first.claim = claimsEverything
			first.outcome = emu.Handled
			Expect(e.LoadWords(0, custom0Word)).To(Succeed())

			result := e.Step()

			Expect(result.Handler).To(Equal("first"))
			Expect(second.calls).To(BeZero())
		})
	})

	Describe("unsupported instructions", func() {
		It("should report the word and skip past it", func() {
			Expect(e.LoadWords(0, custom0Word, addi(1, 0, 3))).To(Succeed())

			result := e.Step()

			Expect(errors.Is(result.Err, emu.ErrUnsupportedInstruction)).To(BeTrue())
			Expect(result.Outcome).To(Equal(emu.NotRecognized))
			Expect(result.PC).To(BeZero())
			Expect(result.Word).To(Equal(custom0Word))
			Expect(e.UnsupportedCount()).To(Equal(uint64(1)))

			Expect(e.Step().Err).NotTo(HaveOccurred())
			Expect(e.RegFile().Get(1)).To(Equal(int32(3)))
		})

		It("should halt Run by default", func() {
			Expect(e.LoadWords(0, addi(1, 0, 1), custom0Word)).To(Succeed())

			result := e.Run()

			Expect(errors.Is(result.Err, emu.ErrUnsupportedInstruction)).To(BeTrue())
			Expect(result.PC).To(Equal(uint32(4)))
		})

		It("should let Run skip them when asked", func() {
			e = emu.NewEmulator(
				emu.WithMemorySize(4096),
				emu.WithSkipUnsupported(true),
				emu.WithLogger(GinkgoLogr),
			)
			Expect(e.LoadWords(0, custom0Word, ebreakWord)).To(Succeed())

			result := e.Run()

			Expect(result.Breakpoint).To(BeTrue())
			Expect(e.UnsupportedCount()).To(Equal(uint64(1)))
		})
	})

	Describe("trap propagation", func() {
		var (
			ext     *stubExtension
			handler *recordingHandler
		)

		BeforeEach(func() {
			ext = &stubExtension{name: "greedy", claim: claimsEverything, outcome: emu.Handled}
			handler = &recordingHandler{}
			e = emu.NewEmulator(
				emu.WithMemorySize(4096),
				emu.WithExtensions(ext),
				emu.WithSyscallHandler(handler),
			)
		})

		It("should surface ecall to the driver without trying extensions", func() {
			Expect(e.LoadWords(0, ecallWord)).To(Succeed())

			result := e.Step()

			Expect(result.Outcome).To(Equal(emu.EnvironmentCall))
			Expect(result.Breakpoint).To(BeFalse())
			Expect(handler.calls).To(Equal(1))
			Expect(ext.calls).To(BeZero())
		})

		It("should surface ebreak to the driver without trying extensions", func() {
			Expect(e.LoadWords(0, ebreakWord)).To(Succeed())

			result := e.Step()

			Expect(result.Outcome).To(Equal(emu.EnvironmentBreak))
			Expect(result.Breakpoint).To(BeTrue())
			Expect(handler.calls).To(BeZero())
			Expect(ext.calls).To(BeZero())
		})

		It("should stop Run on an exiting environment call", func() {
			handler.exit = true
			Expect(e.LoadWords(0, addi(emu.RegA0, 0, 42), ecallWord)).To(Succeed())

			result := e.Run()

			Expect(result.Exited).To(BeTrue())
			Expect(result.ExitCode).To(Equal(int32(42)))
		})
	})

	Describe("instruction limit", func() {
		It("should stop after the configured number of instructions", func() {
			e = emu.NewEmulator(
				emu.WithMemorySize(4096),
				emu.WithMaxInstructions(5),
			)
			Expect(e.LoadWords(0, jal(0, 0))).To(Succeed())

			result := e.Run()

			Expect(errors.Is(result.Err, emu.ErrMaxInstructions)).To(BeTrue())
			Expect(e.InstructionCount()).To(Equal(uint64(5)))
		})
	})

	Describe("Run with the default syscall handler", func() {
		It("should write to stdout and exit", func() {
			msg := []byte("hi\n")
			Expect(e.Bus().LoadBytes(0x400, msg)).To(Succeed())
			Expect(e.LoadWords(0,
				addi(emu.RegA0, 0, 1),
				addi(emu.RegA1, 0, 0x400),
				addi(emu.RegA2, 0, int32(len(msg))),
				addi(emu.RegA7, 0, 64),
				ecallWord,
				addi(emu.RegA0, 0, 7),
				addi(emu.RegA7, 0, 93),
				ecallWord,
			)).To(Succeed())

			result := e.Run()

			Expect(result.Exited).To(BeTrue())
			Expect(result.ExitCode).To(Equal(int32(7)))
			Expect(stdoutBuf.String()).To(Equal("hi\n"))
		})
	})

	Describe("Reset", func() {
		It("should clear registers, memory and counters", func() {
			Expect(e.LoadWords(0, addi(1, 0, 9))).To(Succeed())
			e.Step()

			e.Reset()

			Expect(e.RegFile().Get(1)).To(BeZero())
			Expect(e.RegFile().PC()).To(BeZero())
			Expect(e.Bus().Load(0, emu.Word)).To(BeZero())
			Expect(e.InstructionCount()).To(BeZero())
		})
	})
})
