package insts

// Shape is one of the six RV32 field layouts. Encode returns the field bits
// with the opcode bits left zero.
type Shape interface {
	Encode() uint32
}

const (
	regMask    = 0x1F
	funct3Mask = 0x7
	funct7Mask = 0x7F
)

func rdOf(word uint32) uint8     { return uint8((word >> 7) & regMask) }
func rs1Of(word uint32) uint8    { return uint8((word >> 15) & regMask) }
func rs2Of(word uint32) uint8    { return uint8((word >> 20) & regMask) }
func funct3Of(word uint32) uint8 { return uint8((word >> 12) & funct3Mask) }
func funct7Of(word uint32) uint8 { return uint8((word >> 25) & funct7Mask) }

func putRd(v uint8) uint32     { return uint32(v&regMask) << 7 }
func putRs1(v uint8) uint32    { return uint32(v&regMask) << 15 }
func putRs2(v uint8) uint32    { return uint32(v&regMask) << 20 }
func putFunct3(v uint8) uint32 { return uint32(v&funct3Mask) << 12 }
func putFunct7(v uint8) uint32 { return uint32(v&funct7Mask) << 25 }

// RType is the register-register layout: funct7|rs2|rs1|funct3|rd.
type RType struct {
	Funct7 uint8
	Rs2    uint8
	Rs1    uint8
	Funct3 uint8
	Rd     uint8
}

// DecodeR extracts R-type fields.
func DecodeR(word uint32) RType {
	return RType{
		Funct7: funct7Of(word),
		Rs2:    rs2Of(word),
		Rs1:    rs1Of(word),
		Funct3: funct3Of(word),
		Rd:     rdOf(word),
	}
}

// Encode packs the R-type fields.
func (r RType) Encode() uint32 {
	return putFunct7(r.Funct7) | putRs2(r.Rs2) | putRs1(r.Rs1) |
		putFunct3(r.Funct3) | putRd(r.Rd)
}

// IType carries a 12-bit signed immediate in bits [31:20].
type IType struct {
	Imm    int32
	Rs1    uint8
	Funct3 uint8
	Rd     uint8
}

// DecodeI extracts I-type fields.
func DecodeI(word uint32) IType {
	return IType{
		Imm:    SignExtend(word>>20, 12),
		Rs1:    rs1Of(word),
		Funct3: funct3Of(word),
		Rd:     rdOf(word),
	}
}

// Encode packs the I-type fields, truncating the immediate to 12 bits.
func (i IType) Encode() uint32 {
	return (uint32(i.Imm)&0xFFF)<<20 | putRs1(i.Rs1) | putFunct3(i.Funct3) | putRd(i.Rd)
}

// SType splits a 12-bit signed immediate across bits [31:25] and [11:7].
type SType struct {
	Imm    int32
	Rs2    uint8
	Rs1    uint8
	Funct3 uint8
}

// DecodeS extracts S-type fields.
func DecodeS(word uint32) SType {
	imm := (word>>25)<<5 | (word>>7)&0x1F
	return SType{
		Imm:    SignExtend(imm, 12),
		Rs2:    rs2Of(word),
		Rs1:    rs1Of(word),
		Funct3: funct3Of(word),
	}
}

// Encode packs the S-type fields, truncating the immediate to 12 bits.
func (s SType) Encode() uint32 {
	imm := uint32(s.Imm)
	return (imm>>5&0x7F)<<25 | (imm&0x1F)<<7 |
		putRs2(s.Rs2) | putRs1(s.Rs1) | putFunct3(s.Funct3)
}

// BType scatters a 13-bit signed, even immediate across bits
// [31], [7], [30:25] and [11:8].
type BType struct {
	Imm    int32
	Rs2    uint8
	Rs1    uint8
	Funct3 uint8
}

// DecodeB extracts B-type fields.
func DecodeB(word uint32) BType {
	imm := (word>>31&1)<<12 |
		(word>>7&1)<<11 |
		(word>>25&0x3F)<<5 |
		(word>>8&0xF)<<1
	return BType{
		Imm:    SignExtend(imm, 13),
		Rs2:    rs2Of(word),
		Rs1:    rs1Of(word),
		Funct3: funct3Of(word),
	}
}

// Encode packs the B-type fields. Bit 0 of the immediate is dropped.
func (b BType) Encode() uint32 {
	imm := uint32(b.Imm)
	return (imm>>12&1)<<31 |
		(imm>>5&0x3F)<<25 |
		(imm>>1&0xF)<<8 |
		(imm>>11&1)<<7 |
		putRs2(b.Rs2) | putRs1(b.Rs1) | putFunct3(b.Funct3)
}

// UType holds the 20-bit immediate found in bits [31:12]. Imm is the signed
// 20-bit value; the architectural operand is Imm << 12.
type UType struct {
	Imm int32
	Rd  uint8
}

// DecodeU extracts U-type fields.
func DecodeU(word uint32) UType {
	return UType{
		Imm: SignExtend(word>>12, 20),
		Rd:  rdOf(word),
	}
}

// Encode packs the U-type fields, truncating the immediate to 20 bits.
func (u UType) Encode() uint32 {
	return (uint32(u.Imm)&0xFFFFF)<<12 | putRd(u.Rd)
}

// JType scatters a 21-bit signed, even immediate across bits
// [31], [19:12], [20] and [30:21].
type JType struct {
	Imm int32
	Rd  uint8
}

// DecodeJ extracts J-type fields.
func DecodeJ(word uint32) JType {
	imm := (word>>31&1)<<20 |
		(word>>12&0xFF)<<12 |
		(word>>20&1)<<11 |
		(word>>21&0x3FF)<<1
	return JType{
		Imm: SignExtend(imm, 21),
		Rd:  rdOf(word),
	}
}

// Encode packs the J-type fields. Bit 0 of the immediate is dropped.
func (j JType) Encode() uint32 {
	imm := uint32(j.Imm)
	return (imm>>20&1)<<31 |
		(imm>>1&0x3FF)<<21 |
		(imm>>11&1)<<20 |
		(imm>>12&0xFF)<<12 |
		putRd(j.Rd)
}

// Fence is the MISC-MEM view of an I-type word.
type Fence struct {
	FM     uint8 // fence mode, bits [31:28]
	Pred   uint8 // predecessor set PI|PO|PR|PW, bits [27:24]
	Succ   uint8 // successor set SI|SO|SR|SW, bits [23:20]
	Rs1    uint8
	Funct3 uint8
	Rd     uint8
}

// Fence modes.
const (
	FenceModeNormal uint8 = 0b0000
	FenceModeTSO    uint8 = 0b1000
)

// DecodeFence extracts the fence fields.
func DecodeFence(word uint32) Fence {
	return Fence{
		FM:     uint8(word >> 28 & 0xF),
		Pred:   uint8(word >> 24 & 0xF),
		Succ:   uint8(word >> 20 & 0xF),
		Rs1:    rs1Of(word),
		Funct3: funct3Of(word),
		Rd:     rdOf(word),
	}
}

// Encode packs the fence fields.
func (f Fence) Encode() uint32 {
	return uint32(f.FM&0xF)<<28 | uint32(f.Pred&0xF)<<24 | uint32(f.Succ&0xF)<<20 |
		putRs1(f.Rs1) | putFunct3(f.Funct3) | putRd(f.Rd)
}

// IsTSO reports whether the fence is fence.tso (FM=1000, RW,RW).
func (f Fence) IsTSO() bool {
	return f.FM == FenceModeTSO && f.Pred == 0b0011 && f.Succ == 0b0011
}

// IsPause reports whether the fence is the Zihintpause hint (pred=W, succ=0).
func (f Fence) IsPause() bool {
	return f.FM == FenceModeNormal && f.Pred == 0b0001 && f.Succ == 0 &&
		f.Rs1 == 0 && f.Rd == 0
}
