package rvf

import "math"

// RoundingMode is the 3-bit rm field of an OP-FP instruction.
type RoundingMode uint8

// Rounding modes.
const (
	RNE RoundingMode = 0 // round to nearest, ties to even
	RTZ RoundingMode = 1 // round toward zero
	RDN RoundingMode = 2 // round down
	RUP RoundingMode = 3 // round up
	RMM RoundingMode = 4 // round to nearest, ties away from zero
	DYN RoundingMode = 7 // dynamic; no fcsr is modelled
)

// Valid reports whether m names a static rounding mode.
func (m RoundingMode) Valid() bool {
	return m <= RMM
}

func (m RoundingMode) String() string {
	switch m {
	case RNE:
		return "rne"
	case RTZ:
		return "rtz"
	case RDN:
		return "rdn"
	case RUP:
		return "rup"
	case RMM:
		return "rmm"
	case DYN:
		return "dyn"
	default:
		return "invalid"
	}
}

// RoundToIntegral rounds v to an integral value using mode. Invalid modes
// round to nearest-even.
func RoundToIntegral(v float64, mode RoundingMode) float64 {
	switch mode {
	case RTZ:
		return math.Trunc(v)
	case RDN:
		return math.Floor(v)
	case RUP:
		return math.Ceil(v)
	case RMM:
		return math.Round(v)
	default:
		return math.RoundToEven(v)
	}
}

// RoundToFloat32 narrows v to single precision using mode.
func RoundToFloat32(v float64, mode RoundingMode) float32 {
	r := float32(v)
	if math.IsNaN(v) || math.IsInf(v, 0) || float64(r) == v {
		return r
	}

	switch mode {
	case RTZ:
		if math.Abs(float64(r)) > math.Abs(v) {
			r = math.Nextafter32(r, 0)
		}
	case RDN:
		if float64(r) > v {
			r = math.Nextafter32(r, float32(math.Inf(-1)))
		}
	case RUP:
		if float64(r) < v {
			r = math.Nextafter32(r, float32(math.Inf(1)))
		}
	case RMM:
		other := math.Nextafter32(r, float32(math.Inf(1)))
		if float64(r) > v {
			other = math.Nextafter32(r, float32(math.Inf(-1)))
		}
		tie := math.Abs(float64(r)-v) == math.Abs(float64(other)-v)
		if tie && math.Abs(float64(other)) > math.Abs(float64(r)) {
			r = other
		}
	}

	return r
}

// ToInt32 converts with RISC-V saturation: NaN and values above the range
// give MaxInt32, values below give MinInt32.
func ToInt32(f float32, mode RoundingMode) int32 {
	v := float64(f)
	if math.IsNaN(v) {
		return math.MaxInt32
	}

	r := RoundToIntegral(v, mode)
	switch {
	case r >= math.MaxInt32+1:
		return math.MaxInt32
	case r < math.MinInt32:
		return math.MinInt32
	default:
		return int32(r)
	}
}

// ToUint32 converts with RISC-V saturation: NaN and values above the range
// give MaxUint32, negative values give 0.
func ToUint32(f float32, mode RoundingMode) uint32 {
	v := float64(f)
	if math.IsNaN(v) {
		return math.MaxUint32
	}

	r := RoundToIntegral(v, mode)
	switch {
	case r >= math.MaxUint32+1:
		return math.MaxUint32
	case r <= 0:
		return 0
	default:
		return uint32(r)
	}
}
