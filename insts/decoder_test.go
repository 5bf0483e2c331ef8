package insts_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	DescribeTable("classifies instruction words",
		func(word uint32, op insts.Op, format insts.Format, class insts.Class) {
			inst := decoder.Decode(word)
			Expect(inst.Op).To(Equal(op))
			Expect(inst.Format).To(Equal(format))
			Expect(inst.Info().Class).To(Equal(class))
		},
		Entry("addi", uint32(0x00130293), insts.OpADDI, insts.FormatI, insts.ClassALU),
		Entry("sub", uint32(0x402081B3), insts.OpSUB, insts.FormatR, insts.ClassALU),
		Entry("mul", uint32(0x022081B3), insts.OpMUL, insts.FormatR, insts.ClassMultiply),
		Entry("remu", uint32(0x0220F1B3), insts.OpREMU, insts.FormatR, insts.ClassDivide),
		Entry("srai", uint32(0x4030D093), insts.OpSRAI, insts.FormatI, insts.ClassALU),
		Entry("jal", uint32(0xFF9FF06F), insts.OpJAL, insts.FormatJ, insts.ClassJump),
		Entry("beq", uint32(0x00208863), insts.OpBEQ, insts.FormatB, insts.ClassBranch),
		Entry("sw", uint32(0xFE242E23), insts.OpSW, insts.FormatS, insts.ClassStore),
		Entry("lui", uint32(0x123450B7), insts.OpLUI, insts.FormatU, insts.ClassALU),
		Entry("lui with immediate bits in 14:12", uint32(0xFFFFF0B7), insts.OpLUI, insts.FormatU, insts.ClassALU),
		Entry("auipc with immediate bits in 14:12", uint32(0x12345297), insts.OpAUIPC, insts.FormatU, insts.ClassALU),
		Entry("jal forward", uint32(0x0080706F), insts.OpJAL, insts.FormatJ, insts.ClassJump),
		Entry("ecall", uint32(0x00000073), insts.OpECALL, insts.FormatI, insts.ClassSystem),
		Entry("ebreak", uint32(0x00100073), insts.OpEBREAK, insts.FormatI, insts.ClassSystem),
		Entry("fence", uint32(0x0FF0000F), insts.OpFENCE, insts.FormatI, insts.ClassFence),
		Entry("csrrw", uint32(0x30029073), insts.OpCSRRW, insts.FormatI, insts.ClassCSR),
		Entry("flw", uint32(0x0040A087), insts.OpFLW, insts.FormatI, insts.ClassLoad),
		Entry("fadd.s rne", uint32(0x002081D3), insts.OpFADDS, insts.FormatR, insts.ClassFloat),
		Entry("fadd.s rtz", uint32(0x002091D3), insts.OpFADDS, insts.FormatR, insts.ClassFloat),
		Entry("fsqrt.s", uint32(0x580081D3), insts.OpFSQRTS, insts.FormatR, insts.ClassFloatSqrt),
		Entry("fclass.s", uint32(0xE00091D3), insts.OpFCLASSS, insts.FormatR, insts.ClassFloat),
		Entry("fmv.x.w", uint32(0xE00081D3), insts.OpFMVXW, insts.FormatR, insts.ClassFloat),
		Entry("feq.s", uint32(0xA020A1D3), insts.OpFEQS, insts.FormatR, insts.ClassFloat),
	)

	It("should decode without allocating", func() {
		allocs := testing.AllocsPerRun(100, func() {
			_ = decoder.Decode(0xFF9FF06F)
			_ = decoder.Decode(0x002081D3)
		})
		Expect(allocs).To(BeZero())
	})

	It("should return OpUnknown for an unused opcode", func() {
		inst := decoder.Decode(0xFFFFFFFF)
		Expect(inst.Op).To(Equal(insts.OpUnknown))
		Expect(inst.Format).To(Equal(insts.FormatUnknown))
		Expect(inst.Op.String()).To(Equal("?"))
	})

	It("should return OpUnknown for an unclaimed funct3", func() {
		// OP-IMM is fully populated, but LOAD funct3=3 (ld) is RV64 only.
		Expect(decoder.Decode(0x0000B083).Op).To(Equal(insts.OpUnknown))
	})

	It("should reject system words with a non-zero rd for ecall", func() {
		Expect(decoder.Decode(0x000000F3).Op).To(Equal(insts.OpUnknown))
	})

	It("should reject fsqrt.s with a non-zero rs2", func() {
		Expect(decoder.Decode(0x581081D3).Op).To(Equal(insts.OpUnknown))
	})

	It("should expose the CSR address unsigned", func() {
		inst := decoder.Decode(0xF1402573) // csrrs x10, mhartid(0xF14), x0
		Expect(inst.Op).To(Equal(insts.OpCSRRS))
		Expect(inst.CSR()).To(Equal(uint16(0xF14)))
		Expect(inst.Imm).To(BeNumerically("<", 0))
	})

	It("should expose the shift amount of slli", func() {
		inst := decoder.Decode(0x01F09093) // slli x1, x1, 31
		Expect(inst.Op).To(Equal(insts.OpSLLI))
		Expect(inst.Shamt()).To(Equal(uint8(31)))
	})

	It("should find operations by mnemonic", func() {
		op, ok := insts.Lookup("fcvt.wu.s")
		Expect(ok).To(BeTrue())
		Expect(op).To(Equal(insts.OpFCVTWUS))

		_, ok = insts.Lookup("vadd.vv")
		Expect(ok).To(BeFalse())
	})
})
