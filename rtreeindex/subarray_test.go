package rtreeindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointDomain(lo, hi int32) Domain {
	return Domain{DimNum: 1, Datatype: Int32, Extent: NewMBR(Int32, []int32{lo, hi})}
}

func TestAddRangeRejectsInverted(t *testing.T) {
	s := NewSubarray(pointDomain(0, 100))
	err := AddRange[int32](s, 0, 10, 5)
	require.Error(t, err)
	ie, ok := AsIndexError(err)
	require.True(t, ok)
	assert.Equal(t, InvalidArgument, ie.Kind)
}

func TestAddRangeRejectsWhollyOutOfDomain(t *testing.T) {
	s := NewSubarray(pointDomain(0, 100))
	err := AddRange[int32](s, 0, 200, 300)
	require.Error(t, err)
	ie, ok := AsIndexError(err)
	require.True(t, ok)
	assert.Equal(t, OutOfDomain, ie.Kind)
}

func TestAddRangeClampsPartialOverlap(t *testing.T) {
	s := NewSubarray(pointDomain(0, 100))
	require.NoError(t, AddRange[int32](s, 0, -50, 10))

	r := s.Range(0, 0)
	assert.Equal(t, int32(0), RangeLo[int32](r))
	assert.Equal(t, int32(10), RangeHi[int32](r))
}

func TestAddRangeDoesNotCoalesce(t *testing.T) {
	s := NewSubarray(pointDomain(0, 100))
	require.NoError(t, AddRange[int32](s, 0, 0, 5))
	require.NoError(t, AddRange[int32](s, 0, 0, 5))
	assert.Equal(t, 2, s.RangeNum(0))
	assert.Equal(t, 2, s.NumCombos())
}

func TestDefaultRangeIsFullDomain(t *testing.T) {
	s := NewSubarray(pointDomain(0, 100))
	assert.Equal(t, 0, s.RangeNum(0))
	assert.Equal(t, 1, s.NumCombos())

	effective := s.effectiveRanges(0)
	require.Len(t, effective, 1)
	assert.Equal(t, int32(0), RangeLo[int32](effective[0]))
	assert.Equal(t, int32(100), RangeHi[int32](effective[0]))
}

func TestNumCombosIsCartesianProduct(t *testing.T) {
	domain := Domain{DimNum: 2, Datatype: Int32, Extent: NewMBR(Int32, []int32{0, 100, 0, 100})}
	s := NewSubarray(domain)
	require.NoError(t, AddRange[int32](s, 0, 0, 10))
	require.NoError(t, AddRange[int32](s, 0, 20, 30))
	require.NoError(t, AddRange[int32](s, 1, 0, 50))

	assert.Equal(t, 2, s.NumCombos())
}

func TestEstResultSizeSumsOverCartesianProduct(t *testing.T) {
	tree, err := Build(2, gridLeaves(8), nil)
	require.NoError(t, err)

	src := newFakeSource(8, 4)
	s := NewSubarray(pointDomain(0, 7))
	require.NoError(t, AddRange[int32](s, 0, 2, 5))

	size, err := s.EstResultSize(tree, src, "val")
	require.NoError(t, err)
	// 4 fully-covered single-cell leaves x 4 bytes/cell.
	assert.Equal(t, uint64(16), size)
}

func TestFullTileSetUnionsAcrossCartesianProduct(t *testing.T) {
	tree, err := Build(2, gridLeaves(8), nil)
	require.NoError(t, err)

	s := NewSubarray(pointDomain(0, 7))
	require.NoError(t, AddRange[int32](s, 0, 0, 1))
	require.NoError(t, AddRange[int32](s, 0, 5, 6))

	bitmap := s.FullTileSet(tree)
	assert.Equal(t, uint64(4), bitmap.GetCardinality())
	for _, leaf := range []uint64{0, 1, 5, 6} {
		assert.True(t, bitmap.Contains(leaf))
	}
}
