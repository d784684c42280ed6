// Package rtreeindex implements a bulk-loaded, read-optimized R-tree over
// tile minimum bounding rectangles, and the subarray/query-planner
// machinery that resolves multi-range queries against it.
package rtreeindex

import "golang.org/x/exp/constraints"

// Datatype is a tagged enum over the coordinate types a dimension may use.
// All dimensions of a single index share one Datatype (§3 invariant).
type Datatype uint8

const (
	UnknownDatatype Datatype = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

func (t Datatype) String() string {
	switch t {
	case Int8:
		return "i8"
	case Int16:
		return "i16"
	case Int32:
		return "i32"
	case Int64:
		return "i64"
	case Uint8:
		return "u8"
	case Uint16:
		return "u16"
	case Uint32:
		return "u32"
	case Uint64:
		return "u64"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the datatype uses half-open volume semantics
// (§4.1) rather than closed-interval cell counting.
func (t Datatype) IsFloat() bool {
	return t == Float32 || t == Float64
}

// ByteWidth returns the on-disk size in bytes of a single coordinate of
// this datatype, used by the length-prefixed serialize format (§6).
func (t Datatype) ByteWidth() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// datatypeOf identifies which Datatype tag corresponds to the generic
// type parameter T, used to validate that a caller's chosen T matches an
// index's fixed Datatype at the entry point of a generic operation.
func datatypeOf[T coordinate]() Datatype {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		return UnknownDatatype
	}
}

// coordinate is the constraint satisfied by every concrete datatype's Go
// representation; the generic MBR routines in mbr.go are instantiated
// per Datatype and selected by the *Dispatch wrappers there. Those
// wrappers switch on Datatype on every call, so GetTileOverlap switches
// once per MBR operation on each node it visits, not once per query.
type coordinate interface {
	constraints.Integer | constraints.Float
}

// Domain is the global domain hyper-rectangle that bounds every
// dimension's valid range. It is expressed generically over T but stored
// on Subarray/RTree in its flat MBR form (see MBR).
type Domain struct {
	DimNum   int
	Datatype Datatype
	// Extent holds the flat lo_0,hi_0,...,lo_{D-1},hi_{D-1} domain bounds
	// encoded the same way an MBR is (see MBR.Coords).
	Extent MBR
}
