package rtreeindex

import "github.com/RoaringBitmap/roaring/roaring64"

// Subarray is a query region composed of per-dimension lists of ranges,
// representing the Cartesian product of those per-dimension range sets
// (§3, §4.5). A Subarray is mutable until submitted to a Query; after
// submission it is read-only for the query's lifetime (§3 lifecycle).
//
// Ranges on the same dimension may overlap; the index does not
// coalesce them, so the Cartesian product may visit the same cell more
// than once (§8 "no dedup" — an open question in §9 resolved by
// preserving this observable behavior).
type Subarray struct {
	domain Domain
	ranges [][]Range // ranges[dim] == nil means "full domain" for that dim
}

// NewSubarray creates an empty Subarray over domain; every dimension
// defaults to the full domain interval until AddRange is called.
func NewSubarray(domain Domain) *Subarray {
	return &Subarray{domain: domain, ranges: make([][]Range, domain.DimNum)}
}

// AddRange appends [lo,hi] on dimension dim (§4.5). Fails InvalidArgument
// if lo > hi. Fails OutOfDomain if the range lies wholly outside the
// domain. Otherwise clamps lo/hi to the domain bounds on the permissive
// side and appends — it does not coalesce with existing ranges on the
// same dimension.
func AddRange[T coordinate](s *Subarray, dim int, lo, hi T) error {
	if dim < 0 || dim >= s.domain.DimNum {
		return errInvalidArgument("dimension %d out of range [0,%d)", dim, s.domain.DimNum)
	}
	if datatypeOf[T]() != s.domain.Datatype {
		return errInvalidArgument("range datatype does not match domain datatype %s", s.domain.Datatype)
	}
	if lo > hi {
		return errInvalidArgument("range [%v,%v] has lo > hi", lo, hi)
	}

	domainLo := Lo[T](s.domain.Extent, dim)
	domainHi := Hi[T](s.domain.Extent, dim)
	if hi < domainLo || lo > domainHi {
		return errOutOfDomain("range [%v,%v] lies wholly outside domain [%v,%v] on dim %d", lo, hi, domainLo, domainHi, dim)
	}
	if lo < domainLo {
		lo = domainLo
	}
	if hi > domainHi {
		hi = domainHi
	}

	s.ranges[dim] = append(s.ranges[dim], NewRange(s.domain.Datatype, lo, hi))
	return nil
}

// RangeNum returns the number of ranges explicitly added on dim (0 means
// the dimension still defaults to the full domain interval).
func (s *Subarray) RangeNum(dim int) int {
	return len(s.ranges[dim])
}

// Range returns the j-th range added on dimension dim.
func (s *Subarray) Range(dim, j int) Range {
	return s.ranges[dim][j]
}

// effectiveRanges returns the ranges to enumerate on dim: the explicit
// list if non-empty, else a single synthetic range covering the full
// domain interval (§3 default).
func (s *Subarray) effectiveRanges(dim int) []Range {
	if len(s.ranges[dim]) > 0 {
		return s.ranges[dim]
	}
	return []Range{fullDomainRange(s.domain, dim)}
}

func fullDomainRange(d Domain, dim int) Range {
	width := d.Datatype.ByteWidth()
	lo := d.Extent.Data[2*dim*width : (2*dim+1)*width]
	hi := d.Extent.Data[(2*dim+1)*width : (2*dim+2)*width]
	data := make([]byte, 2*width)
	copy(data[0:width], lo)
	copy(data[width:2*width], hi)
	return Range{
		Datatype: d.Datatype,
		Data:     data,
		LoBits:   widenBits(d.Datatype, lo),
		HiBits:   widenBits(d.Datatype, hi),
	}
}

// comboCounts returns the per-dimension count of effective ranges, used
// to size the Cartesian product.
func (s *Subarray) comboCounts() []int {
	counts := make([]int, s.domain.DimNum)
	for i := range counts {
		counts[i] = len(s.effectiveRanges(i))
	}
	return counts
}

// NumCombos returns the total size of the Cartesian product of
// per-dimension range lists (§3).
func (s *Subarray) NumCombos() int {
	total := 1
	for _, c := range s.comboCounts() {
		total *= c
	}
	return total
}

// subRangeMBR assembles the dim-dimensional MBR for Cartesian combo
// index flatIdx under the given decoder — purely a byte concatenation of
// each dimension's chosen Range, since Range and MBR share the same
// flat, width-packed layout (§9).
func (s *Subarray) subRangeMBR(decoder comboDecoder, flatIdx int) MBR {
	idxs := decoder.indices(flatIdx)
	width := s.domain.Datatype.ByteWidth()
	data := make([]byte, 2*s.domain.DimNum*width)
	for dim := 0; dim < s.domain.DimNum; dim++ {
		r := s.effectiveRanges(dim)[idxs[dim]]
		copy(data[2*dim*width:(2*dim+2)*width], r.Data)
	}
	return MBR{Dim: s.domain.DimNum, Datatype: s.domain.Datatype, Data: data}
}

// EstResultSize estimates the result size in bytes for attr (§4.5): for
// each sub-range of the Cartesian product, sum cells_per_tile x 1 over
// full tiles and cells_per_tile x ratio over partial tiles, multiplied
// by the attribute's per-cell size. For variable-sized attributes this
// is a conservative upper bound, never an exactness guarantee (§8).
func (s *Subarray) EstResultSize(tree *RTree, src TileSource, attr string) (uint64, error) {
	cellSize := src.AttributeCellSize(attr)
	decoder := newComboDecoder(s.comboCounts(), RowMajor)

	var total uint64
	for i := 0; i < decoder.total; i++ {
		sub := s.subRangeMBR(decoder, i)
		overlap := tree.GetTileOverlap(sub)

		var cells float64
		for _, leaf := range overlap.FullTiles {
			cells += float64(src.CellsPerTile(leaf))
		}
		for _, pt := range overlap.PartialTiles {
			cells += float64(src.CellsPerTile(pt.LeafIndex)) * pt.Ratio
		}

		perCell := float64(cellSize.BytesPerCell())
		total += uint64(cells * perCell)
	}
	return total, nil
}

// FullTileSet returns the union, across every sub-range of the
// Cartesian product, of leaf tiles fully contained by at least one
// sub-range (§4.2.1). Useful for a caller deciding which tiles can be
// prefetched or cached whole without re-checking overlap per sub-range.
func (s *Subarray) FullTileSet(tree *RTree) *roaring64.Bitmap {
	decoder := newComboDecoder(s.comboCounts(), RowMajor)
	overlaps := make([]TileOverlap, decoder.total)
	for i := 0; i < decoder.total; i++ {
		overlaps[i] = tree.GetTileOverlap(s.subRangeMBR(decoder, i))
	}
	return unionFullTileSets(overlaps)
}
