package rtreeindex

import "encoding/binary"

// Range is a pair [lo, hi] in type T with lo <= hi (§3). A point range has
// lo == hi. Range shares MBR's flat, width-packed byte layout so that a
// Subarray's per-dimension range lists can be sliced directly into MBR
// buffers when building Cartesian sub-ranges (see subarray.go).
type Range struct {
	Datatype Datatype
	Data     []byte // 2 coordinates, packed at Datatype.ByteWidth()

	// LoBits/HiBits cache the raw bit pattern for cheap hashing and
	// equality checks (hash.go) without re-decoding through Datatype.
	LoBits, HiBits uint64
}

// NewRange constructs a Range from lo/hi of type T.
func NewRange[T coordinate](dt Datatype, lo, hi T) Range {
	width := dt.ByteWidth()
	data := make([]byte, 2*width)
	encodeOne(data[0:width], dt, lo)
	encodeOne(data[width:2*width], dt, hi)
	return Range{
		Datatype: dt,
		Data:     data,
		LoBits:   widenBits(dt, data[0:width]),
		HiBits:   widenBits(dt, data[width:2*width]),
	}
}

func widenBits(dt Datatype, b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

// RangeLo returns r's lower bound as type T.
func RangeLo[T coordinate](r Range) T {
	width := r.Datatype.ByteWidth()
	return decodeOne[T](r.Data[0:width], r.Datatype)
}

// RangeHi returns r's upper bound as type T.
func RangeHi[T coordinate](r Range) T {
	width := r.Datatype.ByteWidth()
	return decodeOne[T](r.Data[width:2*width], r.Datatype)
}

// rangeToMBR lifts a single-dimension Range into a 1-D MBR, used when the
// planner needs to feed a sub-range dimension through the MBR overlap
// machinery.
func rangeToMBR(r Range) MBR {
	return MBR{Dim: 1, Datatype: r.Datatype, Data: r.Data}
}

// IsPoint reports whether the range is a single point (lo == hi).
func (r Range) IsPoint() bool {
	return r.LoBits == r.HiBits
}
