package rtreeindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLineQuery(t *testing.T, bufCells int) (*Query, []byte) {
	t.Helper()
	tree, err := Build(2, gridLeaves(8), nil)
	require.NoError(t, err)

	src := newFakeSource(8, 4)
	sub := NewSubarray(pointDomain(0, 7))
	require.NoError(t, AddRange[int32](sub, 0, 2, 5))

	q := NewQuery(tree, src)
	q.SetSubarray(sub)
	buf := make([]byte, bufCells*4)
	q.SetBuffer("val", buf)
	return q, buf
}

func TestQueryCompletesInOneSubmitWhenBufferFits(t *testing.T) {
	q, buf := buildLineQuery(t, 4)

	state, err := q.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Complete, state)
	assert.Equal(t, Complete, q.State())

	elems := q.ResultBufferElements()
	assert.Equal(t, 4, elems["val"].ValuesLen)

	got := []int32{decodeInt32(buf[0:4]), decodeInt32(buf[4:8]), decodeInt32(buf[8:12]), decodeInt32(buf[12:16])}
	assert.Equal(t, []int32{2, 3, 4, 5}, got)
}

func TestQueryResumesAcrossIncompleteSubmits(t *testing.T) {
	q, buf := buildLineQuery(t, 2)

	state, err := q.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Incomplete, state)
	first := []int32{decodeInt32(buf[0:4]), decodeInt32(buf[4:8])}
	assert.Equal(t, []int32{2, 3}, first)
	assert.Equal(t, 2, q.ResultBufferElements()["val"].ValuesLen)

	state, err = q.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Complete, state)
	second := []int32{decodeInt32(buf[0:4]), decodeInt32(buf[4:8])}
	assert.Equal(t, []int32{4, 5}, second)
	assert.Equal(t, 2, q.ResultBufferElements()["val"].ValuesLen)
}

func TestQueryForwardProgressGuaranteeAcrossBufferSizes(t *testing.T) {
	// Resuming with a differently-sized buffer after an INCOMPLETE must
	// still reach COMPLETE and visit every matching cell exactly once,
	// regardless of how the caller chooses to size successive buffers
	// (§8 determinism property).
	tree, err := Build(2, gridLeaves(8), nil)
	require.NoError(t, err)
	src := newFakeSource(8, 4)
	sub := NewSubarray(pointDomain(0, 7))
	require.NoError(t, AddRange[int32](sub, 0, 2, 5))

	q := NewQuery(tree, src)
	q.SetSubarray(sub)

	var collected []int32

	buf1 := make([]byte, 1*4)
	q.SetBuffer("val", buf1)
	state, err := q.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Incomplete, state)
	collected = append(collected, decodeInt32(buf1[0:4]))

	buf2 := make([]byte, 3*4)
	q.SetBuffer("val", buf2)
	state, err = q.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Complete, state)
	for i := 0; i < 3; i++ {
		collected = append(collected, decodeInt32(buf2[i*4:i*4+4]))
	}

	assert.Equal(t, []int32{2, 3, 4, 5}, collected)
}

func TestQueryFailsWithBufferTooSmall(t *testing.T) {
	q, _ := buildLineQuery(t, 0)

	state, err := q.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, Failed, state)
	ie, ok := AsIndexError(err)
	require.True(t, ok)
	assert.Equal(t, BufferTooSmall, ie.Kind)
}

func TestQueryCancelTransitionsToFailed(t *testing.T) {
	q, _ := buildLineQuery(t, 4)
	q.Cancel()

	state, err := q.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, Failed, state)
	ie, ok := AsIndexError(err)
	require.True(t, ok)
	assert.Equal(t, Cancelled, ie.Kind)
}

func TestQueryPlanSignatureStableAcrossBufferResizing(t *testing.T) {
	q1, _ := buildLineQuery(t, 1)
	_, err := q1.Submit(context.Background())
	require.NoError(t, err)

	q2, _ := buildLineQuery(t, 4)
	_, err = q2.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, q1.PlanSignature(), q2.PlanSignature())
}

func TestQueryGlobalOrderMatchesLeafIndexOrder(t *testing.T) {
	tree, err := Build(2, gridLeaves(8), nil)
	require.NoError(t, err)
	src := newFakeSource(8, 4)

	domain := pointDomain(0, 7)
	sub := NewSubarray(domain)
	// Two disjoint ranges on the same dimension, added in descending
	// order: global order must still visit tiles in ascending leaf-index
	// order rather than in range insertion order.
	require.NoError(t, AddRange[int32](sub, 0, 4, 5))
	require.NoError(t, AddRange[int32](sub, 0, 0, 3))

	q := NewQuery(tree, src)
	q.SetSubarray(sub)
	q.SetLayout(GlobalOrder)
	buf := make([]byte, 6*4)
	q.SetBuffer("val", buf)

	state, err := q.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Complete, state)

	var got []int32
	for i := 0; i < 6; i++ {
		got = append(got, decodeInt32(buf[i*4:i*4+4]))
	}
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, got)
}
