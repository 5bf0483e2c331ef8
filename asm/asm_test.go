package asm_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/asm"
)

var _ = Describe("Assemble", func() {
	DescribeTable("known encodings",
		func(text string, word uint32) {
			got, err := asm.Assemble(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(word), "0x%08X", got)
		},
		Entry(nil, "addi x5, x6, 1", uint32(0x00130293)),
		Entry(nil, "addi x6, x5, -1", uint32(0xFFF28313)),
		Entry(nil, "jal x0, -8", uint32(0xFF9FF06F)),
		Entry(nil, "sw x2, -4(x8)", uint32(0xFE242E23)),
		Entry(nil, "beq x1, x2, 16", uint32(0x00208863)),
		Entry(nil, "lui x1, 74565", uint32(0x123450B7)),
		Entry(nil, "sub x3, x1, x2", uint32(0x402081B3)),
		Entry(nil, "ecall", uint32(0x00000073)),
		Entry(nil, "ebreak", uint32(0x00100073)),
		Entry(nil, "fence 15, 3", uint32(0x0F30000F)),
		Entry(nil, "fence.tso", uint32(0x8330000F)),
		Entry(nil, "pause", uint32(0x0100000F)),
		Entry("ABI register names", "addi a0, zero, 1", uint32(0x00100513)),
		Entry("tab separated mnemonic", "addi\tx5, x6, 1", uint32(0x00130293)),
		Entry("memory operand without offset", "lw x1, (x2)", uint32(0x00012083)),
	)

	DescribeTable("text round trip",
		func(text string) {
			word, err := asm.Assemble(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(asm.Disassemble(word)).To(Equal(text))
		},
		Entry(nil, "lui x1, -1"),
		Entry(nil, "auipc x2, 524287"),
		Entry(nil, "jal x1, -1048576"),
		Entry(nil, "jalr x1, -2048(x2)"),
		Entry(nil, "beq x1, x2, -4096"),
		Entry(nil, "bne x1, x2, 4094"),
		Entry(nil, "blt x3, x4, 8"),
		Entry(nil, "bge x3, x4, 8"),
		Entry(nil, "bltu x3, x4, 8"),
		Entry(nil, "bgeu x3, x4, 8"),
		Entry(nil, "lb x1, 0(x2)"),
		Entry(nil, "lh x1, 2(x2)"),
		Entry(nil, "lw x1, 2047(x2)"),
		Entry(nil, "lbu x1, -1(x2)"),
		Entry(nil, "lhu x1, 6(x2)"),
		Entry(nil, "sb x1, 0(x2)"),
		Entry(nil, "sh x1, -2(x2)"),
		Entry(nil, "sw x31, 12(x30)"),
		Entry(nil, "addi x1, x2, -2048"),
		Entry(nil, "slti x1, x2, 5"),
		Entry(nil, "sltiu x1, x2, -1"),
		Entry(nil, "xori x1, x2, 255"),
		Entry(nil, "ori x1, x2, 1"),
		Entry(nil, "andi x1, x2, 15"),
		Entry(nil, "slli x1, x2, 31"),
		Entry(nil, "srli x1, x2, 1"),
		Entry(nil, "srai x1, x2, 7"),
		Entry(nil, "add x1, x2, x3"),
		Entry(nil, "sub x1, x2, x3"),
		Entry(nil, "sll x1, x2, x3"),
		Entry(nil, "slt x1, x2, x3"),
		Entry(nil, "sltu x1, x2, x3"),
		Entry(nil, "xor x1, x2, x3"),
		Entry(nil, "srl x1, x2, x3"),
		Entry(nil, "sra x1, x2, x3"),
		Entry(nil, "or x1, x2, x3"),
		Entry(nil, "and x1, x2, x3"),
		Entry(nil, "fence 3, 12"),
		Entry(nil, "ecall"),
		Entry(nil, "ebreak"),
		Entry(nil, "mul x1, x2, x3"),
		Entry(nil, "mulh x1, x2, x3"),
		Entry(nil, "mulhsu x1, x2, x3"),
		Entry(nil, "mulhu x1, x2, x3"),
		Entry(nil, "div x1, x2, x3"),
		Entry(nil, "divu x1, x2, x3"),
		Entry(nil, "rem x1, x2, x3"),
		Entry(nil, "remu x1, x2, x3"),
		Entry(nil, "flw f1, 4(x2)"),
		Entry(nil, "fsw f1, -4(x2)"),
		Entry(nil, "fadd.s f1, f2, f3"),
		Entry(nil, "fsub.s f1, f2, f3, rtz"),
		Entry(nil, "fmul.s f1, f2, f3, rmm"),
		Entry(nil, "fdiv.s f1, f2, f3"),
		Entry(nil, "fsqrt.s f1, f2, rup"),
		Entry(nil, "fsgnj.s f1, f2, f3"),
		Entry(nil, "fsgnjn.s f1, f2, f3"),
		Entry(nil, "fsgnjx.s f1, f2, f3"),
		Entry(nil, "fmin.s f1, f2, f3"),
		Entry(nil, "fmax.s f1, f2, f3"),
		Entry(nil, "fcvt.w.s x1, f2, rtz"),
		Entry(nil, "fcvt.wu.s x1, f2"),
		Entry(nil, "fmv.x.w x1, f2"),
		Entry(nil, "feq.s x1, f2, f3"),
		Entry(nil, "flt.s x1, f2, f3"),
		Entry(nil, "fle.s x1, f2, f3"),
		Entry(nil, "fclass.s x1, f2"),
		Entry(nil, "fcvt.s.w f1, x2, rdn"),
		Entry(nil, "fcvt.s.wu f1, x2"),
		Entry(nil, "fmv.w.x f1, x2"),
		Entry(nil, "csrrw x1, 768, x2"),
		Entry(nil, "csrrs x1, 3072, x0"),
		Entry(nil, "csrrc x1, 4095, x2"),
		Entry(nil, "csrrwi x1, 1, 31"),
		Entry(nil, "csrrsi x1, 833, 0"),
		Entry(nil, "csrrci x1, 0, 5"),
	)

	DescribeTable("word round trip",
		func(word uint32) {
			text := asm.Disassemble(word)
			Expect(text).NotTo(Equal(asm.Placeholder))
			back, err := asm.Assemble(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(back).To(Equal(word), text)
		},
		Entry(nil, uint32(0x00130293)),
		Entry(nil, uint32(0xFF9FF06F)),
		Entry(nil, uint32(0xFE242E23)),
		Entry(nil, uint32(0x00208863)),
		Entry(nil, uint32(0x123450B7)),
		Entry(nil, uint32(0x402081B3)),
		Entry(nil, uint32(0x4020D093)),
		Entry(nil, uint32(0x0F30000F)),
	)

	DescribeTable("errors",
		func(text string, expected error) {
			_, err := asm.Assemble(text)
			Expect(errors.Is(err, expected)).To(BeTrue(), "%v", err)
		},
		Entry("unknown mnemonic", "frobnicate x1, x2", asm.ErrUnknownMnemonic),
		Entry("12-bit immediate too large", "addi x1, x2, 2048", asm.ErrImmediateRange),
		Entry("12-bit immediate too small", "addi x1, x2, -2049", asm.ErrImmediateRange),
		Entry("store offset too large", "sw x1, 2048(x2)", asm.ErrImmediateRange),
		Entry("branch offset odd", "beq x1, x2, 3", asm.ErrImmediateRange),
		Entry("branch offset too far", "beq x1, x2, 4096", asm.ErrImmediateRange),
		Entry("jal offset too far", "jal x1, 1048576", asm.ErrImmediateRange),
		Entry("lui immediate too large", "lui x1, 524288", asm.ErrImmediateRange),
		Entry("shift amount too large", "slli x1, x2, 32", asm.ErrImmediateRange),
		Entry("csr address too large", "csrrw x1, 4096, x2", asm.ErrImmediateRange),
		Entry("csr immediate too large", "csrrwi x1, 1, 32", asm.ErrImmediateRange),
		Entry("negative fence mask", "fence -1, 0", asm.ErrImmediateRange),
		Entry("fence mask too large", "fence 16, 0", asm.ErrImmediateRange),
		Entry("register out of range", "add x1, x2, x32", asm.ErrSyntax),
		Entry("float register where integer expected", "add x1, f2, x3", asm.ErrSyntax),
		Entry("missing operand", "add x1, x2", asm.ErrSyntax),
		Entry("extra operand", "ecall x1", asm.ErrSyntax),
		Entry("non-decimal immediate", "addi x1, x2, 0x10", asm.ErrSyntax),
		Entry("malformed memory operand", "lw x1, 4x2", asm.ErrSyntax),
		Entry("empty line", "   ", asm.ErrSyntax),
	)
})

var _ = Describe("Disassemble", func() {
	It("should render unknown words as the placeholder", func() {
		Expect(asm.Disassemble(0x00000000)).To(Equal(asm.Placeholder))
		Expect(asm.Disassemble(0xFFFFFFFF)).To(Equal(asm.Placeholder))
		Expect(asm.Disassemble(0x0000000B)).To(Equal(asm.Placeholder))
	})

	It("should render a numbered listing", func() {
		listing := asm.DisassembleProgram([]uint32{0x00130293, 0}, 0x100)
		Expect(listing).To(Equal(
			"00000100:  00130293  addi x5, x6, 1\n" +
				"00000104:  00000000  ?\n"))
	})
})

var _ = Describe("AssembleProgram", func() {
	It("should skip blank lines and comments and resolve labels", func() {
		src := `
# count down from 3
        addi x1, x0, 3
loop:   addi x1, x1, -1   # decrement
        bne x1, x0, loop
done:
        jal x0, done
`
		words, err := asm.AssembleProgram(src, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(words).To(HaveLen(4))
		Expect(asm.Disassemble(words[2])).To(Equal("bne x1, x0, -4"))
		Expect(asm.Disassemble(words[3])).To(Equal("jal x0, 0"))
	})

	It("should report the failing line", func() {
		_, err := asm.AssembleProgram("addi x1, x0, 1\naddi x1, x0, 5000\n", 0)
		Expect(errors.Is(err, asm.ErrImmediateRange)).To(BeTrue())
		Expect(err.Error()).To(HavePrefix("line 2:"))
	})

	It("should reject undefined labels", func() {
		_, err := asm.AssembleProgram("jal x0, nowhere", 0)
		Expect(errors.Is(err, asm.ErrUnknownLabel)).To(BeTrue())
	})

	It("should reject duplicate labels", func() {
		_, err := asm.AssembleProgram("a: ecall\na: ecall", 0)
		Expect(errors.Is(err, asm.ErrSyntax)).To(BeTrue())
	})

	It("should lay words out little-endian", func() {
		Expect(asm.Bytes([]uint32{0x11223344})).To(Equal([]byte{0x44, 0x33, 0x22, 0x11}))
	})
})
