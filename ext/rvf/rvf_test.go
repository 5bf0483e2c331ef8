package rvf_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/ext/rvf"
	"github.com/sarchlab/rv32sim/insts"
)

func opFP(funct5, rm, rd, rs1, rs2 uint8) uint32 {
	return insts.Assemble(insts.OpcodeOpFP,
		insts.RType{Funct7: funct5 << 2, Rs2: rs2, Rs1: rs1, Funct3: rm, Rd: rd})
}

var _ = Describe("F extension", func() {
	var (
		base *emu.Base
		ext  *rvf.Extension
		regs *rvf.RegFile
	)

	BeforeEach(func() {
		base = emu.NewBase(emu.NewBus(emu.NewMemory(4096)))
		ext = rvf.New(rvf.WithLogger(GinkgoLogr))
		regs = ext.RegFile()
	})

	exec := func(word uint32) {
		Expect(ext.Execute(word, base)).To(Equal(emu.Handled))
	}

	Describe("arithmetic", func() {
		It("should add, subtract, multiply and divide", func() {
			regs.Set(1, 1.5)
			regs.Set(2, 2.25)

			exec(opFP(0, 0, 3, 1, 2))
			exec(opFP(1, 0, 4, 1, 2))
			exec(opFP(2, 0, 5, 1, 2))
			exec(opFP(3, 0, 6, 2, 1))

			Expect(regs.Get(3)).To(Equal(float32(3.75)))
			Expect(regs.Get(4)).To(Equal(float32(-0.75)))
			Expect(regs.Get(5)).To(Equal(float32(3.375)))
			Expect(regs.Get(6)).To(Equal(float32(1.5)))
		})

		It("should take square roots", func() {
			regs.Set(1, 6.25)
			exec(opFP(11, 0, 2, 1, 0))
			Expect(regs.Get(2)).To(Equal(float32(2.5)))
		})

		It("should canonicalise NaN results", func() {
			regs.Set(1, 0)
			regs.Set(2, -1)

			exec(opFP(3, 0, 3, 1, 1))
			exec(opFP(11, 0, 4, 2, 0))

			Expect(regs.Bits(3)).To(Equal(rvf.CanonicalNaN))
			Expect(regs.Bits(4)).To(Equal(rvf.CanonicalNaN))
		})
	})

	Describe("sign injection", func() {
		BeforeEach(func() {
			regs.Set(1, 2)
			regs.Set(2, -3)
		})

		It("should copy, negate and xor the sign", func() {
			exec(opFP(4, 0, 3, 1, 2))
			exec(opFP(4, 1, 4, 1, 2))
			exec(opFP(4, 2, 5, 2, 2))

			Expect(regs.Get(3)).To(Equal(float32(-2)))
			Expect(regs.Get(4)).To(Equal(float32(2)))
			Expect(regs.Get(5)).To(Equal(float32(3)))
		})
	})

	Describe("min and max", func() {
		It("should return the non-NaN operand", func() {
			regs.SetBits(1, rvf.CanonicalNaN)
			regs.Set(2, 4)

			exec(opFP(5, 0, 3, 1, 2))
			exec(opFP(5, 1, 4, 2, 1))

			Expect(regs.Get(3)).To(Equal(float32(4)))
			Expect(regs.Get(4)).To(Equal(float32(4)))
		})

		It("should order -0 below +0", func() {
			regs.SetBits(1, 0x80000000)
			regs.SetBits(2, 0)

			exec(opFP(5, 0, 3, 1, 2))
			exec(opFP(5, 1, 4, 1, 2))

			Expect(regs.Bits(3)).To(Equal(uint32(0x80000000)))
			Expect(regs.Bits(4)).To(Equal(uint32(0)))
		})
	})

	Describe("comparisons", func() {
		It("should report feq.s of NaN with itself as false", func() {
			regs.SetBits(1, rvf.CanonicalNaN)
			base.Set(5, 9)

			exec(opFP(20, 2, 5, 1, 1))

			Expect(base.Get(5)).To(BeZero())
		})

		It("should compare ordered values", func() {
			regs.Set(1, 1)
			regs.Set(2, 2)

			exec(opFP(20, 1, 5, 1, 2))
			exec(opFP(20, 0, 6, 2, 2))
			exec(opFP(20, 2, 7, 1, 2))

			Expect(base.Get(5)).To(Equal(int32(1)))
			Expect(base.Get(6)).To(Equal(int32(1)))
			Expect(base.Get(7)).To(BeZero())
		})
	})

	DescribeTable("Classify",
		func(bits, expected uint32) {
			Expect(rvf.Classify(bits)).To(Equal(expected))
		},
		Entry("+0", uint32(0x00000000), uint32(rvf.ClassPosZero)),
		Entry("-0", uint32(0x80000000), uint32(rvf.ClassNegZero)),
		Entry("+inf", uint32(0x7F800000), uint32(rvf.ClassPosInf)),
		Entry("-inf", uint32(0xFF800000), uint32(rvf.ClassNegInf)),
		Entry("+normal", math.Float32bits(1), uint32(rvf.ClassPosNormal)),
		Entry("-normal", math.Float32bits(-1), uint32(rvf.ClassNegNormal)),
		Entry("+subnormal", uint32(0x00000001), uint32(rvf.ClassPosSubnormal)),
		Entry("-subnormal", uint32(0x80000001), uint32(rvf.ClassNegSubnormal)),
		Entry("quiet NaN", rvf.CanonicalNaN, uint32(rvf.ClassQuietNaN)),
		Entry("signaling NaN", uint32(0x7F800001), uint32(rvf.ClassSignalingNaN)),
	)

	It("should set exactly the positive-zero bit for fclass.s of +0", func() {
		regs.SetBits(1, 0)
		exec(opFP(28, 1, 5, 1, 0))
		Expect(base.Get(5)).To(Equal(int32(1 << 4)))
	})

	Describe("conversions", func() {
		DescribeTable("fcvt.w.s rounding",
			func(v float32, rm uint8, expected int32) {
				regs.Set(1, v)
				exec(opFP(24, rm, 5, 1, 0))
				Expect(base.Get(5)).To(Equal(expected))
			},
			Entry("2.5 rne", float32(2.5), uint8(0), int32(2)),
			Entry("2.5 rtz", float32(2.5), uint8(1), int32(2)),
			Entry("2.5 rdn", float32(2.5), uint8(2), int32(2)),
			Entry("2.5 rup", float32(2.5), uint8(3), int32(3)),
			Entry("2.5 rmm", float32(2.5), uint8(4), int32(3)),
			Entry("-2.5 rne", float32(-2.5), uint8(0), int32(-2)),
			Entry("-2.5 rtz", float32(-2.5), uint8(1), int32(-2)),
			Entry("-2.5 rdn", float32(-2.5), uint8(2), int32(-3)),
			Entry("-2.5 rup", float32(-2.5), uint8(3), int32(-2)),
			Entry("-2.5 rmm", float32(-2.5), uint8(4), int32(-3)),
			Entry("invalid mode falls back to rne", float32(2.5), uint8(5), int32(2)),
			Entry("dynamic mode falls back to rne", float32(3.5), uint8(7), int32(4)),
			Entry("NaN saturates high", float32(math.NaN()), uint8(0), int32(math.MaxInt32)),
			Entry("large saturates high", float32(3e9), uint8(0), int32(math.MaxInt32)),
			Entry("small saturates low", float32(-3e9), uint8(0), int32(math.MinInt32)),
		)

		DescribeTable("fcvt.wu.s",
			func(v float32, expected uint32) {
				regs.Set(1, v)
				exec(opFP(24, 1, 5, 1, 1))
				Expect(uint32(base.Get(5))).To(Equal(expected))
			},
			Entry("in range", float32(3e9), uint32(3000000000)),
			Entry("negative clamps to 0", float32(-1), uint32(0)),
			Entry("NaN saturates", float32(math.NaN()), uint32(math.MaxUint32)),
		)

		DescribeTable("fcvt.s.w rounding of inexact integers",
			func(v int32, rm uint8, expected float32) {
				base.Set(1, v)
				exec(opFP(26, rm, 5, 1, 0))
				Expect(regs.Get(5)).To(Equal(expected))
			},
			Entry("exact", int32(-7), uint8(0), float32(-7)),
			Entry("tie rne", int32(16777217), uint8(0), float32(16777216)),
			Entry("tie rmm", int32(16777217), uint8(4), float32(16777218)),
			Entry("rtz", int32(16777219), uint8(1), float32(16777218)),
			Entry("rup", int32(16777217), uint8(3), float32(16777218)),
			Entry("rdn negative", int32(-16777217), uint8(2), float32(-16777218)),
		)

		It("should convert unsigned integers", func() {
			base.Set(1, -1)
			exec(opFP(26, 1, 5, 1, 1))
			Expect(regs.Get(5)).To(Equal(float32(4294967040)))
		})
	})

	Describe("moves, loads and stores", func() {
		It("should move raw bits in both directions", func() {
			base.Set(1, 0x7F800123)
			exec(opFP(30, 0, 2, 1, 0))
			exec(opFP(28, 0, 3, 2, 0))

			Expect(regs.Bits(2)).To(Equal(uint32(0x7F800123)))
			Expect(base.Get(3)).To(Equal(int32(0x7F800123)))
		})

		It("should load and store through the bus using an integer base", func() {
			base.Set(1, 0x100)
			base.Bus().Store(0x104, emu.Word, math.Float32bits(1.25))

			exec(insts.Assemble(insts.OpcodeLoadFP,
				insts.IType{Imm: 4, Rs1: 1, Funct3: 2, Rd: 7}))
			exec(insts.Assemble(insts.OpcodeStoreFP,
				insts.SType{Imm: -4, Rs2: 7, Rs1: 1, Funct3: 2}))

			Expect(regs.Get(7)).To(Equal(float32(1.25)))
			Expect(base.Bus().Load(0xFC, emu.Word)).To(Equal(math.Float32bits(1.25)))
		})
	})

	Describe("dispatch", func() {
		It("should decline words outside its opcodes", func() {
			for _, w := range []uint32{
				insts.Assemble(insts.OpcodeOp, insts.RType{Funct7: 1}),
				insts.Assemble(insts.OpcodeLoadFP, insts.IType{Funct3: 3}),
				opFP(31, 0, 1, 1, 1),
			} {
				Expect(ext.Execute(w, base)).To(Equal(emu.NotRecognized))
			}
		})

		It("should run through the emulator after the base declines", func() {
			e := emu.NewEmulator(emu.WithMemorySize(4096), emu.WithExtensions(ext))
			regs.Set(1, 1)
			regs.Set(2, 2)
			Expect(e.LoadWords(0, opFP(0, 0, 3, 1, 2))).To(Succeed())

			result := e.Step()

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Handler).To(Equal(rvf.Name))
			Expect(regs.Get(3)).To(Equal(float32(3)))
		})
	})
})
