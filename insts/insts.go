// Package insts provides RISC-V RV32 instruction encoding, decoding and
// classification.
//
// This package implements the bit-exact codec for the six RV32 encoding
// shapes and a table-driven decoder that classifies machine words into
// operations. It supports:
//   - Shapes: R, I, S, B, U, J with sign-extended immediates
//   - Base integer ISA (RV32I) including fence, ecall and ebreak
//   - M, F and Zicsr extension operations (classification only)
//
// Usage:
//
//	i := insts.DecodeI(0x00130293) // addi x5, x6, 1
//	fmt.Printf("rd: %d, rs1: %d, imm: %d\n", i.Rd, i.Rs1, i.Imm)
//
//	inst := insts.NewDecoder().Decode(0x00130293)
//	fmt.Println(inst.Op) // addi
package insts
