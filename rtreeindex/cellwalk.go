package rtreeindex

// tileCellOffsets enumerates, in row-major in-tile order (last dimension
// fastest-varying — the dense cell layout convention assumed for a leaf
// tile, §4.4), the local offsets of tile whose absolute coordinate falls
// inside query. This is coordinate-arithmetic filtering, not tile I/O: it
// never reads or decodes the tile's attribute bytes (those come from
// TileSource.FetchLeafTile) and relies only on the two MBRs already held
// by the planner.
//
// A leaf tile is assumed dense: CellsPerTile equals Volume(tile's MBR).
// Sparse leaf tiles are a documented extension point, not implemented
// here (see DESIGN.md).
func tileCellOffsets(query, tile MBR) []uint64 {
	switch tile.Datatype {
	case Int8:
		return tileCellOffsetsT[int8](query, tile)
	case Int16:
		return tileCellOffsetsT[int16](query, tile)
	case Int32:
		return tileCellOffsetsT[int32](query, tile)
	case Int64:
		return tileCellOffsetsT[int64](query, tile)
	case Uint8:
		return tileCellOffsetsT[uint8](query, tile)
	case Uint16:
		return tileCellOffsetsT[uint16](query, tile)
	case Uint32:
		return tileCellOffsetsT[uint32](query, tile)
	case Uint64:
		return tileCellOffsetsT[uint64](query, tile)
	case Float32:
		return tileCellOffsetsT[float32](query, tile)
	case Float64:
		return tileCellOffsetsT[float64](query, tile)
	default:
		panic("rtreeindex: unknown datatype")
	}
}

func tileCellOffsetsT[T coordinate](query, tile MBR) []uint64 {
	dim := tile.Dim
	tc := Coords[T](tile)
	qc := Coords[T](query)

	shape := make([]int, dim)
	total := 1
	for i := 0; i < dim; i++ {
		shape[i] = int(tc[2*i+1]-tc[2*i]) + 1
		total *= shape[i]
	}

	offsets := make([]uint64, 0, total)
	idx := make([]int, dim)
	for lin := 0; lin < total; lin++ {
		rem := lin
		for d := dim - 1; d >= 0; d-- {
			idx[d] = rem % shape[d]
			rem /= shape[d]
		}

		inside := true
		for d := 0; d < dim; d++ {
			coord := tc[2*d] + T(idx[d])
			if coord < qc[2*d] || coord > qc[2*d+1] {
				inside = false
				break
			}
		}
		if inside {
			offsets = append(offsets, uint64(lin))
		}
	}
	return offsets
}
