package rtreeindex

import (
	"encoding/binary"
	"math"
	"math/big"
)

// MBR is a Minimum Bounding Rectangle: D closed intervals [lo_i, hi_i] in
// the dimension's datatype, laid out flat as lo_0,hi_0,...,lo_{D-1},hi_{D-1}
// (§3). Data is packed at the datatype's natural byte width, not padded —
// this is the "raw pointer array" layout from §9, preserved here as a
// typed view over a contiguous byte buffer rather than unsafe pointer
// arithmetic.
type MBR struct {
	Dim      int
	Datatype Datatype
	Data     []byte
}

// NewMBR builds an MBR of the given datatype from 2*dim coordinates
// supplied in application order (lo_0,hi_0,...). It does not validate
// lo_i <= hi_i; callers that need the §3 invariant enforced should go
// through Build or AddRange, which do.
func NewMBR[T coordinate](dt Datatype, coords []T) MBR {
	dim := len(coords) / 2
	width := dt.ByteWidth()
	data := make([]byte, 2*dim*width)
	for i, c := range coords {
		encodeOne(data[i*width:(i+1)*width], dt, c)
	}
	return MBR{Dim: dim, Datatype: dt, Data: data}
}

func encodeOne[T coordinate](b []byte, dt Datatype, v T) {
	switch dt {
	case Int8:
		b[0] = byte(int8(v))
	case Uint8:
		b[0] = byte(v)
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v)))
	default:
		panic("rtreeindex: unknown datatype")
	}
}

func decodeOne[T coordinate](b []byte, dt Datatype) T {
	switch dt {
	case Int8:
		return T(int8(b[0]))
	case Uint8:
		return T(b[0])
	case Int16:
		return T(int16(binary.LittleEndian.Uint16(b)))
	case Uint16:
		return T(binary.LittleEndian.Uint16(b))
	case Int32:
		return T(int32(binary.LittleEndian.Uint32(b)))
	case Uint32:
		return T(binary.LittleEndian.Uint32(b))
	case Int64:
		return T(int64(binary.LittleEndian.Uint64(b)))
	case Uint64:
		return T(binary.LittleEndian.Uint64(b))
	case Float32:
		return T(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return T(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	default:
		panic("rtreeindex: unknown datatype")
	}
}

// Coords decodes an MBR's flat coordinate buffer into a typed slice of
// length 2*Dim. T must match the MBR's Datatype; callers obtain T by
// switching once on Datatype at the entry point of a public operation
// (§9 "dispatch once per query").
func Coords[T coordinate](m MBR) []T {
	width := m.Datatype.ByteWidth()
	out := make([]T, 2*m.Dim)
	for i := range out {
		out[i] = decodeOne[T](m.Data[i*width:(i+1)*width], m.Datatype)
	}
	return out
}

// Lo returns coordinate lo_i of m as type T.
func Lo[T coordinate](m MBR, i int) T {
	width := m.Datatype.ByteWidth()
	off := 2 * i * width
	return decodeOne[T](m.Data[off:off+width], m.Datatype)
}

// Hi returns coordinate hi_i of m as type T.
func Hi[T coordinate](m MBR, i int) T {
	width := m.Datatype.ByteWidth()
	off := (2*i + 1) * width
	return decodeOne[T](m.Data[off:off+width], m.Datatype)
}

// Valid reports whether lo_i <= hi_i for every dimension (§3 MBR
// invariant).
func Valid[T coordinate](m MBR) bool {
	c := Coords[T](m)
	for i := 0; i < m.Dim; i++ {
		if c[2*i] > c[2*i+1] {
			return false
		}
	}
	return true
}

// Intersects reports whether A and B overlap in every dimension (§4.1).
func Intersects[T coordinate](a, b MBR) bool {
	ac, bc := Coords[T](a), Coords[T](b)
	for i := 0; i < a.Dim; i++ {
		if !(ac[2*i+1] >= bc[2*i] && bc[2*i+1] >= ac[2*i]) {
			return false
		}
	}
	return true
}

// Contains reports whether A fully contains B in every dimension (§4.1).
func Contains[T coordinate](a, b MBR) bool {
	ac, bc := Coords[T](a), Coords[T](b)
	for i := 0; i < a.Dim; i++ {
		if !(ac[2*i] <= bc[2*i] && ac[2*i+1] >= bc[2*i+1]) {
			return false
		}
	}
	return true
}

// Union returns the tight per-dimension union of A and B (§4.1, §4.3).
func Union[T coordinate](a, b MBR) MBR {
	ac, bc := Coords[T](a), Coords[T](b)
	out := make([]T, len(ac))
	for i := 0; i < a.Dim; i++ {
		out[2*i] = minT(ac[2*i], bc[2*i])
		out[2*i+1] = maxT(ac[2*i+1], bc[2*i+1])
	}
	return NewMBR(a.Datatype, out)
}

// OverlapMBR returns the per-dimension intersection of A and B. The
// result is only meaningful when Intersects(A,B) holds (§4.1).
func OverlapMBR[T coordinate](a, b MBR) MBR {
	ac, bc := Coords[T](a), Coords[T](b)
	out := make([]T, len(ac))
	for i := 0; i < a.Dim; i++ {
		out[2*i] = maxT(ac[2*i], bc[2*i])
		out[2*i+1] = minT(ac[2*i+1], bc[2*i+1])
	}
	return NewMBR(a.Datatype, out)
}

func minT[T coordinate](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func maxT[T coordinate](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Volume computes A's volume per §4.1: for integer types, the product of
// (hi_i - lo_i + 1) using a widened accumulator; for float types, the
// product of (hi_i - lo_i) under half-open semantics, 0 if any extent is
// non-positive. A volume that does not fit (integer: beyond 64 bits;
// float: above math.MaxInt64) is returned as math.MaxUint64 and reported
// via the second return value.
func Volume[T coordinate](m MBR) (uint64, bool) {
	if m.Datatype.IsFloat() {
		c := Coords[T](m)
		vol := 1.0
		for i := 0; i < m.Dim; i++ {
			extent := float64(c[2*i+1]) - float64(c[2*i])
			if extent <= 0 {
				return 0, false
			}
			vol *= extent
		}
		if vol > float64(math.MaxInt64) {
			return math.MaxUint64, true
		}
		return uint64(vol), false
	}

	c := Coords[T](m)
	acc := big.NewInt(1)
	for i := 0; i < m.Dim; i++ {
		extent := int64(c[2*i+1]) - int64(c[2*i]) + 1
		acc.Mul(acc, big.NewInt(extent))
	}
	if !acc.IsUint64() {
		return math.MaxUint64, true
	}
	return acc.Uint64(), false
}

// The functions below are the non-generic dispatch points referenced in
// §9: each switches once on Datatype, then delegates to the generic,
// monomorphized routine above. Callers of rtree.go/subarray.go never
// need to know the concrete coordinate type.

func intersectsDispatch(a, b MBR) bool {
	switch a.Datatype {
	case Int8:
		return Intersects[int8](a, b)
	case Int16:
		return Intersects[int16](a, b)
	case Int32:
		return Intersects[int32](a, b)
	case Int64:
		return Intersects[int64](a, b)
	case Uint8:
		return Intersects[uint8](a, b)
	case Uint16:
		return Intersects[uint16](a, b)
	case Uint32:
		return Intersects[uint32](a, b)
	case Uint64:
		return Intersects[uint64](a, b)
	case Float32:
		return Intersects[float32](a, b)
	case Float64:
		return Intersects[float64](a, b)
	default:
		panic("rtreeindex: unknown datatype")
	}
}

func containsDispatch(a, b MBR) bool {
	switch a.Datatype {
	case Int8:
		return Contains[int8](a, b)
	case Int16:
		return Contains[int16](a, b)
	case Int32:
		return Contains[int32](a, b)
	case Int64:
		return Contains[int64](a, b)
	case Uint8:
		return Contains[uint8](a, b)
	case Uint16:
		return Contains[uint16](a, b)
	case Uint32:
		return Contains[uint32](a, b)
	case Uint64:
		return Contains[uint64](a, b)
	case Float32:
		return Contains[float32](a, b)
	case Float64:
		return Contains[float64](a, b)
	default:
		panic("rtreeindex: unknown datatype")
	}
}

func unionDispatch(a, b MBR) MBR {
	switch a.Datatype {
	case Int8:
		return Union[int8](a, b)
	case Int16:
		return Union[int16](a, b)
	case Int32:
		return Union[int32](a, b)
	case Int64:
		return Union[int64](a, b)
	case Uint8:
		return Union[uint8](a, b)
	case Uint16:
		return Union[uint16](a, b)
	case Uint32:
		return Union[uint32](a, b)
	case Uint64:
		return Union[uint64](a, b)
	case Float32:
		return Union[float32](a, b)
	case Float64:
		return Union[float64](a, b)
	default:
		panic("rtreeindex: unknown datatype")
	}
}

func volumeDispatch(m MBR) (uint64, bool) {
	switch m.Datatype {
	case Int8:
		return Volume[int8](m)
	case Int16:
		return Volume[int16](m)
	case Int32:
		return Volume[int32](m)
	case Int64:
		return Volume[int64](m)
	case Uint8:
		return Volume[uint8](m)
	case Uint16:
		return Volume[uint16](m)
	case Uint32:
		return Volume[uint32](m)
	case Uint64:
		return Volume[uint64](m)
	case Float32:
		return Volume[float32](m)
	case Float64:
		return Volume[float64](m)
	default:
		panic("rtreeindex: unknown datatype")
	}
}

func rangeOverlapRatioDispatch(rng, mbr MBR) (float64, bool) {
	switch rng.Datatype {
	case Int8:
		return RangeOverlapRatio[int8](rng, mbr)
	case Int16:
		return RangeOverlapRatio[int16](rng, mbr)
	case Int32:
		return RangeOverlapRatio[int32](rng, mbr)
	case Int64:
		return RangeOverlapRatio[int64](rng, mbr)
	case Uint8:
		return RangeOverlapRatio[uint8](rng, mbr)
	case Uint16:
		return RangeOverlapRatio[uint16](rng, mbr)
	case Uint32:
		return RangeOverlapRatio[uint32](rng, mbr)
	case Uint64:
		return RangeOverlapRatio[uint64](rng, mbr)
	case Float32:
		return RangeOverlapRatio[float32](rng, mbr)
	case Float64:
		return RangeOverlapRatio[float64](rng, mbr)
	default:
		panic("rtreeindex: unknown datatype")
	}
}

func validDispatch(m MBR) bool {
	switch m.Datatype {
	case Int8:
		return Valid[int8](m)
	case Int16:
		return Valid[int16](m)
	case Int32:
		return Valid[int32](m)
	case Int64:
		return Valid[int64](m)
	case Uint8:
		return Valid[uint8](m)
	case Uint16:
		return Valid[uint16](m)
	case Uint32:
		return Valid[uint32](m)
	case Uint64:
		return Valid[uint64](m)
	case Float32:
		return Valid[float32](m)
	case Float64:
		return Valid[float64](m)
	default:
		panic("rtreeindex: unknown datatype")
	}
}

// RangeOverlapRatio computes volume(overlap_mbr(range,mbr)) / volume(mbr)
// per §4.2: 0 when disjoint, 1 when range contains mbr. Overflow in
// either volume computation clamps the ratio to 1.0 and is reported via
// the second return value (§4.1 overflow policy).
func RangeOverlapRatio[T coordinate](rng, mbr MBR) (float64, bool) {
	if !Intersects[T](rng, mbr) {
		return 0, false
	}
	if Contains[T](rng, mbr) {
		return 1, false
	}
	overlap := OverlapMBR[T](rng, mbr)
	ov, ovOverflow := Volume[T](overlap)
	full, fullOverflow := Volume[T](mbr)
	if ovOverflow || fullOverflow {
		return 1.0, true
	}
	if full == 0 {
		return 0, false
	}
	ratio := float64(ov) / float64(full)
	if ratio > 1.0 {
		return 1.0, false
	}
	return ratio, false
}
