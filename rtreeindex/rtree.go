package rtreeindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// RTree is a height-balanced, bottom-up constructed tree of MBRs with
// configurable fanout (§3). It is immutable after Build; deep copies
// (Clone) are independent.
type RTree struct {
	dim      int
	fanout   int
	datatype Datatype
	levels   []Level // levels[0] is the root, levels[height] is the leaf level
	checksum uint64
}

// Build bulk-constructs an R-tree from a pre-sorted sequence of leaf MBRs
// (§4.3). All leaf MBRs must share the same dimension count and
// datatype. Fails InvalidArgument if fanout < 2, dim == 0, or any MBR
// violates lo <= hi; fails Empty if leaves is empty.
func Build(fanout int, leaves []MBR, progress ProgressWriter) (*RTree, error) {
	start := time.Now()
	if len(leaves) == 0 {
		return nil, errEmpty("build requires at least one leaf MBR")
	}
	if fanout < 2 {
		return nil, errInvalidArgument("fanout must be >= 2, got %d", fanout)
	}
	dim := leaves[0].Dim
	dt := leaves[0].Datatype
	if dim == 0 {
		return nil, errInvalidArgument("dimension count must be > 0")
	}
	for i, m := range leaves {
		if m.Dim != dim || m.Datatype != dt {
			return nil, errInvalidArgument("leaf %d has mismatched dim/datatype", i)
		}
		if !validDispatch(m) {
			return nil, errInvalidArgument("leaf %d violates lo <= hi", i)
		}
	}

	if progress == nil {
		progress = getProgressWriter()
	}

	leafLevel := newLevel(dim, dt, len(leaves))
	for i, m := range leaves {
		leafLevel.setMBR(i, m)
	}

	levels := []Level{leafLevel}
	bar := progress.NewCountProgress(int64(len(leaves)), "building r-tree")
	defer bar.Close()

	cur := leafLevel
	for cur.MBRNum > 1 {
		parentCount := (cur.MBRNum + fanout - 1) / fanout
		parent := newLevel(dim, dt, parentCount)
		for g := 0; g < parentCount; g++ {
			lo := g * fanout
			hi := lo + fanout
			if hi > cur.MBRNum {
				hi = cur.MBRNum
			}
			union := cur.mbrAt(lo)
			for c := lo + 1; c < hi; c++ {
				union = unionDispatch(union, cur.mbrAt(c))
			}
			parent.setMBR(g, union)
			bar.Add(1)
		}
		levels = append(levels, parent)
		cur = parent
	}

	// levels is currently leaf-first; reverse to root-first so
	// levels[0] is L_0 per §3.
	reversed := make([]Level, len(levels))
	for i, l := range levels {
		reversed[len(levels)-1-i] = l
	}

	tree := &RTree{
		dim:      dim,
		fanout:   fanout,
		datatype: dt,
		levels:   reversed,
		checksum: checksumLevels(reversed),
	}

	getMetrics().observeBuild(time.Since(start).Seconds(), len(leaves))
	return tree, nil
}

// DimNum returns D.
func (r *RTree) DimNum() int { return r.dim }

// Fanout returns F.
func (r *RTree) Fanout() int { return r.fanout }

// Type returns the shared coordinate Datatype.
func (r *RTree) Type() Datatype { return r.datatype }

// Height returns H. H == 0 iff the tree has a single leaf (§8 invariant 1).
func (r *RTree) Height() int { return len(r.levels) - 1 }

// Checksum returns the tree's derived fingerprint (§3).
func (r *RTree) Checksum() uint64 { return r.checksum }

// LeafCount returns N, the number of leaf MBRs the tree was built from.
func (r *RTree) LeafCount() int { return r.levels[r.Height()].MBRNum }

// SubtreeLeafNum returns F^(H-k), the full-subtree leaf count at level k
// (§4.2). This over-counts the right-most subtree when N is not a
// perfect power of F — it is an estimate for sizing only, never an exact
// bound (§9 open question).
func (r *RTree) SubtreeLeafNum(level int) uint64 {
	h := r.Height()
	if level < 0 || level > h {
		return 0
	}
	n := uint64(1)
	for i := 0; i < h-level; i++ {
		n *= uint64(r.fanout)
	}
	return n
}

// LeafMBR returns the leaf MBR at the given leaf index.
func (r *RTree) LeafMBR(leafIndex uint64) MBR {
	return r.levels[r.Height()].mbrAt(int(leafIndex))
}

// Clone returns a deep, independent copy of the tree (§3 lifecycle).
func (r *RTree) Clone() *RTree {
	levels := make([]Level, len(r.levels))
	for i, l := range r.levels {
		data := make([]byte, len(l.Data))
		copy(data, l.Data)
		levels[i] = Level{MBRNum: l.MBRNum, Data: data, Dim: l.Dim, Datatype: l.Datatype}
	}
	return &RTree{dim: r.dim, fanout: r.fanout, datatype: r.datatype, levels: levels, checksum: r.checksum}
}

// frame is a stack entry in the depth-first GetTileOverlap traversal
// (§4.4).
type frame struct {
	level   int
	mbrIdx  int
	covered bool // true once an ancestor's MBR was fully contained by Q
}

// GetTileOverlap decomposes a query hyper-rectangle into fully and
// partially covered leaf tiles (§4.4). Traversal is depth-first,
// children visited in ascending index order so results are emitted in
// strict ascending leaf-index order (§4.4, §8 invariant 3 & 5).
func (r *RTree) GetTileOverlap(query MBR) TileOverlap {
	var out TileOverlap
	h := r.Height()

	stack := []frame{{level: 0, mbrIdx: 0, covered: false}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		level := r.levels[f.level]
		m := level.mbrAt(f.mbrIdx)

		if f.covered {
			first, count := r.subtreeLeafRange(f.level, f.mbrIdx)
			for i := uint64(0); i < count; i++ {
				out.FullTiles = append(out.FullTiles, first+i)
			}
			continue
		}

		if !intersectsDispatch(query, m) {
			continue
		}

		if containsDispatch(query, m) {
			stack = append(stack, frame{level: f.level, mbrIdx: f.mbrIdx, covered: true})
			continue
		}

		if f.level == h {
			ratio, _ := rangeOverlapRatioDispatch(query, m)
			out.PartialTiles = append(out.PartialTiles, PartialTile{LeafIndex: uint64(f.mbrIdx), Ratio: ratio})
			continue
		}

		// Push children in descending order so popping the stack
		// visits them in ascending order (§4.4).
		first, last := r.childRange(f.level, f.mbrIdx)
		for c := last; c >= first; c-- {
			stack = append(stack, frame{level: f.level + 1, mbrIdx: c, covered: false})
		}
	}

	return out
}

// childRange returns the [first, last] inclusive child indices at
// level+1 belonging to the node at (level, idx).
func (r *RTree) childRange(level, idx int) (int, int) {
	first := idx * r.fanout
	last := first + r.fanout - 1
	childLevel := r.levels[level+1]
	if last >= childLevel.MBRNum {
		last = childLevel.MBRNum - 1
	}
	return first, last
}

// subtreeLeafRange returns the leaf-index span [first, first+count)
// rooted at (level, idx), clamped to the actual (possibly short)
// right-most subtree (§4.4 "clamped at the right-most partial subtree").
func (r *RTree) subtreeLeafRange(level, idx int) (uint64, uint64) {
	h := r.Height()
	first := idx
	for l := level; l < h; l++ {
		first *= r.fanout
	}
	estimate := r.SubtreeLeafNum(level)
	leafLevel := r.levels[h]
	remaining := uint64(leafLevel.MBRNum - first)
	if estimate > remaining {
		estimate = remaining
	}
	return uint64(first), estimate
}

// RangeOverlapRatio computes volume(overlap_mbr(range,mbr)) / volume(mbr)
// (§4.2), delegating to the datatype-dispatched generic routine.
func (r *RTree) RangeOverlapRatio(rng, mbr MBR) float64 {
	ratio, _ := rangeOverlapRatioDispatch(rng, mbr)
	return ratio
}

// --- Serialization (§6) ---
//
// u64 level_count, for each level: u64 mbr_count, raw bytes[mbr_count *
// 2 * D * sizeof(T)]. D, F, and T are not part of the payload — the
// storage layer already knows them from fragment metadata and passes
// them back into Deserialize.

// Serialize encodes the tree per the length-prefixed per-level format in
// §6. The result begins with an 8-byte xxhash checksum so Deserialize
// can fail fast on truncated input.
func (r *RTree) Serialize() []byte {
	var buf bytes.Buffer
	var tmp [8]byte

	binary.LittleEndian.PutUint64(tmp[:], r.checksum)
	buf.Write(tmp[:])

	binary.LittleEndian.PutUint64(tmp[:], uint64(len(r.levels)))
	buf.Write(tmp[:])

	for _, l := range r.levels {
		binary.LittleEndian.PutUint64(tmp[:], uint64(l.MBRNum))
		buf.Write(tmp[:])
		buf.Write(l.Data)
	}
	return buf.Bytes()
}

// Deserialize decodes bytes produced by Serialize, given the dimension
// count, fanout, and datatype the storage layer already knows from
// fragment metadata. Returns IoError if the buffer is short, Internal if
// the embedded checksum does not match (§7).
func Deserialize(data []byte, dim, fanout int, dt Datatype) (*RTree, error) {
	r := bytes.NewReader(data)

	wantChecksum, err := readUint64(r)
	if err != nil {
		return nil, errIoError(err, "reading checksum")
	}
	levelCount, err := readUint64(r)
	if err != nil {
		return nil, errIoError(err, "reading level count")
	}

	levels := make([]Level, levelCount)
	for i := range levels {
		mbrNum, err := readUint64(r)
		if err != nil {
			return nil, errIoError(err, "reading level %d mbr count", i)
		}
		width := dt.ByteWidth()
		byteLen := int(mbrNum) * 2 * dim * width
		payload := make([]byte, byteLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errIoError(err, "reading level %d payload", i)
		}
		levels[i] = Level{MBRNum: int(mbrNum), Data: payload, Dim: dim, Datatype: dt}
	}

	got := checksumLevels(levels)
	if got != wantChecksum {
		return nil, errInternal("checksum mismatch: archive may be corrupt (want %x got %x)", wantChecksum, got)
	}

	return &RTree{dim: dim, fanout: fanout, datatype: dt, levels: levels, checksum: got}, nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (r *RTree) String() string {
	return fmt.Sprintf("RTree{dim=%d fanout=%d type=%s height=%d leaves=%d}",
		r.dim, r.fanout, r.datatype, r.Height(), r.LeafCount())
}
