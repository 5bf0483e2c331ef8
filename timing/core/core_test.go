package core_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/asm"
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/ext/zicsr"
	"github.com/sarchlab/rv32sim/timing/cache"
	"github.com/sarchlab/rv32sim/timing/core"
)

const countdown = `
        addi t0, zero, 3
loop:   addi a0, a0, 1
        addi t0, t0, -1
        bne t0, zero, loop
        addi a7, zero, 93
        ecall
`

func newEmulator(src string, opts ...emu.EmulatorOption) *emu.Emulator {
	words, err := asm.AssembleProgram(src, 0)
	Expect(err).NotTo(HaveOccurred())

	opts = append([]emu.EmulatorOption{emu.WithLogger(GinkgoLogr)}, opts...)
	e := emu.NewEmulator(opts...)
	Expect(e.LoadWords(0, words...)).To(Succeed())
	return e
}

var _ = Describe("Core", func() {
	It("should not be halted initially", func() {
		c := core.NewCore(newEmulator("ecall"))
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Stats().CPI()).To(BeZero())
	})

	It("should set and get PC", func() {
		c := core.NewCore(newEmulator("ecall"))
		c.SetPC(0x1000)
		Expect(c.PC()).To(Equal(uint32(0x1000)))
	})

	It("should charge one cycle per ALU instruction", func() {
		c := core.NewCore(newEmulator(`
			addi a0, zero, 5
			addi a7, zero, 93
			ecall
		`), core.WithLogger(GinkgoLogr))

		result := c.Run()

		Expect(result.Exited).To(BeTrue())
		Expect(c.Halted()).To(BeTrue())
		Expect(c.ExitCode()).To(Equal(int32(5)))
		Expect(c.Stats().Cycles).To(Equal(uint64(3)))
		Expect(c.Stats().Instructions).To(Equal(uint64(3)))
		Expect(c.Stats().CPI()).To(BeNumerically("~", 1.0))
	})

	It("should charge the taken-branch penalty", func() {
		c := core.NewCore(newEmulator(countdown))
		c.Run()

		stats := c.Stats()
		Expect(c.ExitCode()).To(Equal(int32(3)))
		Expect(stats.Instructions).To(Equal(uint64(12)))
		Expect(stats.BranchesTaken).To(Equal(uint64(2)))
		Expect(stats.Cycles).To(Equal(uint64(16)))
		Expect(stats.CPI()).To(BeNumerically(">=", 1.0))
	})

	It("should hit in the instruction cache on repeated fetches", func() {
		c := core.NewCore(newEmulator(countdown),
			core.WithICache(cache.DefaultL1IConfig()),
			core.WithMemoryLatency(100))
		c.Run()

		stats := c.Stats()
		Expect(stats.ICache).NotTo(BeNil())
		Expect(stats.ICache.Misses).To(Equal(uint64(1)))
		Expect(stats.ICache.Hits).To(Equal(uint64(11)))
		Expect(stats.FetchStalls).To(Equal(uint64(101)))
		Expect(stats.Cycles).To(Equal(uint64(16 + 11 + 101)))
		Expect(stats.DCache).To(BeNil())
	})

	It("should route loads and stores through the data cache", func() {
		c := core.NewCore(newEmulator(`
			addi t0, zero, 256
			sw t0, 0(t0)
			lw t1, 0(t0)
			lw t2, 4(t0)
			addi a7, zero, 93
			ecall
		`), core.WithDCache(cache.DefaultL1DConfig()))
		result := c.Run()
		Expect(result.Exited).To(BeTrue())

		stats := c.Stats()
		Expect(stats.Loads).To(Equal(uint64(2)))
		Expect(stats.Stores).To(Equal(uint64(1)))
		Expect(stats.DCache.Writes).To(Equal(uint64(1)))
		Expect(stats.DCache.Reads).To(Equal(uint64(2)))
		Expect(stats.DCache.Misses).To(Equal(uint64(1)))
		Expect(stats.DCache.Hits).To(Equal(uint64(2)))
		Expect(c.Emulator().RegFile().Get(6)).To(Equal(int32(256)))
	})

	It("should send L1 misses through the L2", func() {
		c := core.NewCore(newEmulator(countdown),
			core.WithICache(cache.DefaultL1IConfig()),
			core.WithL2(cache.DefaultL2Config()))
		c.Run()

		Expect(c.Stats().L2).NotTo(BeNil())
		Expect(c.Stats().L2.Misses).To(Equal(uint64(1)))
	})

	It("should publish counters to the CSR extension", func() {
		c := core.NewCore(newEmulator(`
			addi t0, zero, 1
			addi t0, zero, 2
			csrrs a0, 3072, zero
			csrrs a1, 3074, zero
			addi a7, zero, 93
			ecall
		`, emu.WithExtensions(zicsr.New())))
		c.Run()

		regs := c.Emulator().RegFile()
		Expect(regs.Get(emu.RegA0)).To(Equal(int32(2)))
		Expect(regs.Get(emu.RegA1)).To(Equal(int32(3)))
	})

	It("should stop at the instruction limit without charging it", func() {
		c := core.NewCore(newEmulator("self: jal zero, self",
			emu.WithMaxInstructions(5)))

		result := c.Run()

		Expect(errors.Is(result.Err, emu.ErrMaxInstructions)).To(BeTrue())
		Expect(c.Stats().Instructions).To(Equal(uint64(5)))
		Expect(c.Stats().Cycles).To(Equal(uint64(10)))
	})

	It("should halt on an unsupported word", func() {
		e := newEmulator("ecall")
		Expect(e.LoadWords(0, 0x0000000B)).To(Succeed())
		c := core.NewCore(e)

		result := c.Run()

		Expect(errors.Is(result.Err, emu.ErrUnsupportedInstruction)).To(BeTrue())
		Expect(c.Halted()).To(BeTrue())
		Expect(c.Stats().Unsupported).To(Equal(uint64(1)))
		Expect(c.Stats().Instructions).To(BeZero())
	})

	It("should step over unsupported words when the emulator skips them", func() {
		e := newEmulator(`
			ecall
			addi a7, zero, 93
			ecall
		`, emu.WithSkipUnsupported(true))
		Expect(e.LoadWords(0, 0x0000000B)).To(Succeed())
		c := core.NewCore(e)

		result := c.Run()

		Expect(result.Exited).To(BeTrue())
		Expect(c.Stats().Unsupported).To(Equal(uint64(1)))
		Expect(c.Stats().Instructions).To(Equal(uint64(2)))
		Expect(c.Stats().Cycles).To(Equal(uint64(3)))
	})

	It("should run for specified cycles and return running status", func() {
		c := core.NewCore(newEmulator("self: jal zero, self"))

		Expect(c.RunCycles(10)).To(BeTrue())
		Expect(c.Stats().Cycles).To(Equal(uint64(10)))
		Expect(c.Stats().Instructions).To(Equal(uint64(5)))
	})

	It("should stop running cycles when halted", func() {
		c := core.NewCore(newEmulator("addi a7, zero, 93\necall"))

		Expect(c.RunCycles(100)).To(BeFalse())
		Expect(c.Stats().Cycles).To(Equal(uint64(2)))
	})

	It("should reset core state", func() {
		c := core.NewCore(newEmulator(countdown), core.WithICache(cache.DefaultL1IConfig()))
		c.Run()

		c.Reset()

		Expect(c.Halted()).To(BeFalse())
		Expect(c.Stats().Cycles).To(BeZero())
		Expect(c.Stats().ICache.Reads).To(BeZero())
		Expect(c.Emulator().InstructionCount()).To(BeZero())
	})
})
