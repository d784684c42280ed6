package rtreeindex

import (
	"context"
	"encoding/binary"
)

// fakeSource is a dense, one-cell-per-leaf TileSource backing the
// package's tests: leaf i stores the int32 value leaf i. It never
// touches disk, matching this package's "no I/O" boundary (§5) — the
// real storage layer's TileSource implementations live outside this
// package.
type fakeSource struct {
	values   []int32
	cellSize uint32
}

func newFakeSource(n int, cellSize uint32) *fakeSource {
	values := make([]int32, n)
	for i := range values {
		values[i] = int32(i)
	}
	return &fakeSource{values: values, cellSize: cellSize}
}

func (f *fakeSource) FetchLeafTile(ctx context.Context, leafIndex uint64) ([]byte, error) {
	buf := make([]byte, f.cellSize)
	binary.LittleEndian.PutUint32(buf, uint32(f.values[leafIndex]))
	return buf, nil
}

func (f *fakeSource) CellsPerTile(leafIndex uint64) uint64 {
	return 1
}

func (f *fakeSource) AttributeCellSize(attr string) CellSize {
	return CellSize{Fixed: f.cellSize}
}

func decodeInt32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}
