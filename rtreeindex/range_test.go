package rtreeindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeLoHiRoundTrip(t *testing.T) {
	r := NewRange[int32](Int32, -5, 20)
	assert.Equal(t, int32(-5), RangeLo[int32](r))
	assert.Equal(t, int32(20), RangeHi[int32](r))
}

func TestRangeIsPoint(t *testing.T) {
	point := NewRange[int32](Int32, 7, 7)
	assert.True(t, point.IsPoint())

	span := NewRange[int32](Int32, 7, 8)
	assert.False(t, span.IsPoint())
}

func TestRangeToMBRPreservesBounds(t *testing.T) {
	r := NewRange[int32](Int32, 2, 9)
	m := rangeToMBR(r)
	assert.Equal(t, 1, m.Dim)
	assert.Equal(t, Int32, m.Datatype)
	assert.Equal(t, int32(2), Lo[int32](m, 0))
	assert.Equal(t, int32(9), Hi[int32](m, 0))
}

func TestRangeFloatIsPoint(t *testing.T) {
	point := NewRange[float64](Float64, 1.5, 1.5)
	assert.True(t, point.IsPoint())
}
