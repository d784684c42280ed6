package rtreeindex

import "github.com/RoaringBitmap/roaring/roaring64"

// TileOverlap is the result of a range query against an RTree (§3).
// Order is ascending by leaf tile index across both slices combined
// (§4.4); FullTiles and PartialTiles are kept as separate ordered
// slices, the primary representation required by the determinism
// property in §8.
type TileOverlap struct {
	FullTiles    []uint64
	PartialTiles []PartialTile

	fullBitmap *roaring64.Bitmap // lazily built view, §4.2.1
}

// PartialTile pairs a leaf tile index with its overlap ratio in (0,1].
type PartialTile struct {
	LeafIndex uint64
	Ratio     float64
}

// FullTilesBitmap returns a roaring64.Bitmap view of FullTiles, built
// lazily and cached. Useful for callers that union or intersect full-tile
// sets across many Cartesian sub-ranges without re-sorting slices each
// time (§4.2.1).
func (t *TileOverlap) FullTilesBitmap() *roaring64.Bitmap {
	if t.fullBitmap == nil {
		b := roaring64.New()
		b.AddMany(t.FullTiles)
		t.fullBitmap = b
	}
	return t.fullBitmap
}

// unionFullTileSets merges the full-tile bitmaps of several TileOverlap
// results. Its caller is Subarray.FullTileSet (§4.2.1); EstResultSize
// and the Query planner work on the FullTiles slices directly.
func unionFullTileSets(overlaps []TileOverlap) *roaring64.Bitmap {
	out := roaring64.New()
	for i := range overlaps {
		out.Or(overlaps[i].FullTilesBitmap())
	}
	return out
}
