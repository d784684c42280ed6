package rtreeindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMBRIntersectsAndContains(t *testing.T) {
	a := NewMBR(Int32, []int32{0, 10, 0, 10})
	b := NewMBR(Int32, []int32{5, 15, 5, 15})
	c := NewMBR(Int32, []int32{20, 30, 20, 30})

	assert.True(t, Intersects[int32](a, b))
	assert.True(t, Intersects[int32](b, a))
	assert.False(t, Intersects[int32](a, c))

	inner := NewMBR(Int32, []int32{2, 4, 2, 4})
	assert.True(t, Contains[int32](a, inner))
	assert.False(t, Contains[int32](inner, a))
}

func TestMBRUnionAndOverlap(t *testing.T) {
	a := NewMBR(Int32, []int32{0, 10, 0, 10})
	b := NewMBR(Int32, []int32{5, 15, -5, 5})

	u := Union[int32](a, b)
	assert.Equal(t, []int32{0, 15, -5, 10}, Coords[int32](u))

	ov := OverlapMBR[int32](a, b)
	assert.Equal(t, []int32{5, 10, 0, 5}, Coords[int32](ov))
}

func TestVolumeIntegerClosedInterval(t *testing.T) {
	m := NewMBR(Int32, []int32{0, 9, 0, 9})
	vol, overflow := Volume[int32](m)
	assert.False(t, overflow)
	assert.Equal(t, uint64(100), vol)
}

func TestVolumeFloatHalfOpen(t *testing.T) {
	m := NewMBR(Float64, []float64{0, 10, 0, 10})
	vol, overflow := Volume[float64](m)
	assert.False(t, overflow)
	assert.Equal(t, uint64(100), vol)

	degenerate := NewMBR(Float64, []float64{0, 0, 0, 10})
	_, overflow2 := Volume[float64](degenerate)
	assert.False(t, overflow2)
	vol2, _ := Volume[float64](degenerate)
	assert.Equal(t, uint64(0), vol2)
}

func TestRangeOverlapRatio(t *testing.T) {
	mbr := NewMBR(Int32, []int32{0, 9, 0, 9})

	disjoint := NewMBR(Int32, []int32{100, 110, 100, 110})
	ratio, overflow := RangeOverlapRatio[int32](disjoint, mbr)
	assert.False(t, overflow)
	assert.Equal(t, 0.0, ratio)

	full := NewMBR(Int32, []int32{-5, 20, -5, 20})
	ratio, _ = RangeOverlapRatio[int32](full, mbr)
	assert.Equal(t, 1.0, ratio)

	half := NewMBR(Int32, []int32{0, 4, 0, 9})
	ratio, _ = RangeOverlapRatio[int32](half, mbr)
	assert.InDelta(t, 0.5, ratio, 1e-9)
}

func TestValidRejectsInvertedBounds(t *testing.T) {
	ok := NewMBR(Int32, []int32{0, 10})
	assert.True(t, Valid[int32](ok))

	bad := NewMBR(Int32, []int32{10, 0})
	assert.False(t, Valid[int32](bad))
}

func TestDispatchMatchesGeneric(t *testing.T) {
	a := NewMBR(Uint16, []uint16{0, 10, 0, 10})
	b := NewMBR(Uint16, []uint16{5, 15, 5, 15})

	assert.Equal(t, Intersects[uint16](a, b), intersectsDispatch(a, b))
	assert.Equal(t, Contains[uint16](a, b), containsDispatch(a, b))

	genericVol, genericOverflow := Volume[uint16](a)
	dispatchVol, dispatchOverflow := volumeDispatch(a)
	assert.Equal(t, genericVol, dispatchVol)
	assert.Equal(t, genericOverflow, dispatchOverflow)
}
