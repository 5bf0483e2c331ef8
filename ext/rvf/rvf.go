// Package rvf implements the RV32F single-precision floating-point
// extension.
//
// Arithmetic results are rounded to nearest-even and NaN results are
// canonicalised. Integer conversions honour the instruction's rounding
// mode; unknown modes fall back to nearest-even and are logged.
package rvf

import (
	"math"

	"github.com/go-logr/logr"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

// Name is the extension name used for dispatch reporting.
const Name = "f"

// CanonicalNaN is the bit pattern produced for every NaN result.
const CanonicalNaN uint32 = 0x7FC00000

// fclass result bits.
const (
	ClassNegInf = 1 << iota
	ClassNegNormal
	ClassNegSubnormal
	ClassNegZero
	ClassPosZero
	ClassPosSubnormal
	ClassPosNormal
	ClassPosInf
	ClassSignalingNaN
	ClassQuietNaN
)

// Extension executes LOAD-FP, STORE-FP and OP-FP words.
type Extension struct {
	regs *RegFile
	log  logr.Logger
}

// Option configures the extension.
type Option func(*Extension)

// WithLogger sets the logger used for rounding-mode diagnostics.
func WithLogger(log logr.Logger) Option {
	return func(x *Extension) {
		x.log = log
	}
}

// New creates the F extension with a zeroed register file.
func New(opts ...Option) *Extension {
	x := &Extension{
		regs: &RegFile{},
		log:  logr.Discard(),
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// Name returns the extension name.
func (x *Extension) Name() string {
	return Name
}

// RegFile returns the float register file.
func (x *Extension) RegFile() *RegFile {
	return x.regs
}

// Execute runs an F-extension word.
func (x *Extension) Execute(word uint32, base *emu.Base) emu.Outcome {
	switch insts.OpcodeOf(word) {
	case insts.OpcodeLoadFP, insts.OpcodeStoreFP, insts.OpcodeOpFP:
	default:
		return emu.NotRecognized
	}

	inst := base.Decode(word)

	switch inst.Op {
	case insts.OpFLW:
		addr := uint32(base.Get(inst.Rs1) + inst.Imm)
		x.regs.SetBits(inst.Rd, base.Bus().Load(addr, emu.Word))
	case insts.OpFSW:
		addr := uint32(base.Get(inst.Rs1) + inst.Imm)
		base.Bus().Store(addr, emu.Word, x.regs.Bits(inst.Rs2))
	case insts.OpFADDS, insts.OpFSUBS, insts.OpFMULS, insts.OpFDIVS, insts.OpFSQRTS:
		x.mode(&inst)
		x.setResult(inst.Rd, arith(inst.Op, x.regs.Get(inst.Rs1), x.regs.Get(inst.Rs2)))
	case insts.OpFSGNJS, insts.OpFSGNJNS, insts.OpFSGNJXS:
		x.regs.SetBits(inst.Rd, signInject(inst.Op, x.regs.Bits(inst.Rs1), x.regs.Bits(inst.Rs2)))
	case insts.OpFMINS, insts.OpFMAXS:
		x.regs.SetBits(inst.Rd, minMax(inst.Op == insts.OpFMAXS, x.regs.Bits(inst.Rs1), x.regs.Bits(inst.Rs2)))
	case insts.OpFCVTWS:
		base.Set(inst.Rd, ToInt32(x.regs.Get(inst.Rs1), x.mode(&inst)))
	case insts.OpFCVTWUS:
		base.Set(inst.Rd, int32(ToUint32(x.regs.Get(inst.Rs1), x.mode(&inst))))
	case insts.OpFCVTSW:
		x.regs.Set(inst.Rd, RoundToFloat32(float64(base.Get(inst.Rs1)), x.mode(&inst)))
	case insts.OpFCVTSWU:
		x.regs.Set(inst.Rd, RoundToFloat32(float64(uint32(base.Get(inst.Rs1))), x.mode(&inst)))
	case insts.OpFMVXW:
		base.Set(inst.Rd, int32(x.regs.Bits(inst.Rs1)))
	case insts.OpFMVWX:
		x.regs.SetBits(inst.Rd, uint32(base.Get(inst.Rs1)))
	case insts.OpFEQS, insts.OpFLTS, insts.OpFLES:
		base.Set(inst.Rd, compare(inst.Op, x.regs.Get(inst.Rs1), x.regs.Get(inst.Rs2)))
	case insts.OpFCLASSS:
		base.Set(inst.Rd, int32(Classify(x.regs.Bits(inst.Rs1))))
	default:
		return emu.NotRecognized
	}

	return emu.Handled
}

// mode returns the instruction's rounding mode, substituting RNE for
// modes that are not statically valid.
func (x *Extension) mode(inst *insts.Instruction) RoundingMode {
	m := RoundingMode(inst.Funct3)
	if !m.Valid() {
		x.log.V(1).Info("unsupported rounding mode, using rne",
			"rm", int(m), "op", inst.Op.String())
		return RNE
	}
	return m
}

func (x *Extension) setResult(rd uint8, v float32) {
	if math.IsNaN(float64(v)) {
		x.regs.SetBits(rd, CanonicalNaN)
		return
	}
	x.regs.Set(rd, v)
}

func arith(op insts.Op, a, b float32) float32 {
	switch op {
	case insts.OpFADDS:
		return a + b
	case insts.OpFSUBS:
		return a - b
	case insts.OpFMULS:
		return a * b
	case insts.OpFDIVS:
		return a / b
	default:
		return float32(math.Sqrt(float64(a)))
	}
}

const signBit uint32 = 1 << 31

func signInject(op insts.Op, a, b uint32) uint32 {
	mag := a &^ signBit
	switch op {
	case insts.OpFSGNJNS:
		return mag | (^b & signBit)
	case insts.OpFSGNJXS:
		return mag | ((a ^ b) & signBit)
	default:
		return mag | (b & signBit)
	}
}

func minMax(isMax bool, a, b uint32) uint32 {
	fa, fb := math.Float32frombits(a), math.Float32frombits(b)
	aNaN, bNaN := math.IsNaN(float64(fa)), math.IsNaN(float64(fb))

	switch {
	case aNaN && bNaN:
		return CanonicalNaN
	case aNaN:
		return b
	case bNaN:
		return a
	}

	if fa == fb {
		// Only ±0 compare equal with different bits; -0 orders below +0.
		if isMax {
			return a & b
		}
		return a | b
	}

	if (fa > fb) == isMax {
		return a
	}
	return b
}

func compare(op insts.Op, a, b float32) int32 {
	var r bool
	switch op {
	case insts.OpFEQS:
		r = a == b
	case insts.OpFLTS:
		r = a < b
	default:
		r = a <= b
	}
	if r {
		return 1
	}
	return 0
}

// Classify returns the fclass.s one-hot mask for raw single-precision bits.
func Classify(bits uint32) uint32 {
	neg := bits&signBit != 0
	exp := (bits >> 23) & 0xFF
	frac := bits & 0x7FFFFF

	pick := func(negClass, posClass uint32) uint32 {
		if neg {
			return negClass
		}
		return posClass
	}

	switch {
	case exp == 0xFF && frac == 0:
		return pick(ClassNegInf, ClassPosInf)
	case exp == 0xFF && frac&0x400000 != 0:
		return ClassQuietNaN
	case exp == 0xFF:
		return ClassSignalingNaN
	case exp == 0 && frac == 0:
		return pick(ClassNegZero, ClassPosZero)
	case exp == 0:
		return pick(ClassNegSubnormal, ClassPosSubnormal)
	default:
		return pick(ClassNegNormal, ClassPosNormal)
	}
}
