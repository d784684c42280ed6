package rtreeindex

import "context"

// QueryState is the state machine driving the incomplete-result protocol
// (§4.6): UNINITIALIZED -> IN_PROGRESS -> {INCOMPLETE, COMPLETE, FAILED}.
// Calling Submit again from INCOMPLETE re-enters IN_PROGRESS.
type QueryState uint8

const (
	Uninitialized QueryState = iota
	InProgress
	Incomplete
	Complete
	Failed
)

func (s QueryState) String() string {
	switch s {
	case InProgress:
		return "IN_PROGRESS"
	case Incomplete:
		return "INCOMPLETE"
	case Complete:
		return "COMPLETE"
	case Failed:
		return "FAILED"
	default:
		return "UNINITIALIZED"
	}
}

// QueryBuffer is a caller-supplied bounded buffer for one attribute
// (§6 Query.set_buffer). Data is the backing store the query copies
// decoded cells into; its length, divided by the attribute's cell size,
// is the buffer's capacity in cells for a single Submit call.
type QueryBuffer struct {
	Attr     string
	Data     []byte
	cellSize CellSize
	written  int // cells written during the most recent Submit call
}

// Written returns the number of cells copied into this buffer during the
// most recent Submit call (§6 Query.result_buffer_elements).
func (b *QueryBuffer) Written() int { return b.written }

func (b *QueryBuffer) capacityCells() int {
	perCell := b.cellSize.BytesPerCell()
	if perCell == 0 {
		return 0
	}
	return len(b.Data) / int(perCell)
}

// ResultCount reports how many elements a buffer received during the
// most recent Submit call (§6 Query.result_buffer_elements).
type ResultCount struct {
	OffsetsLen int // always 0: no variable-length offset buffers are produced
	ValuesLen  int
}

// planStep is one entry in a Query's cached, ordered execution plan: a
// single leaf tile touched by one Cartesian sub-range (§4.6 cursors).
type planStep struct {
	comboIdx  int
	leafIndex uint64
	full      bool
	offsets   []uint64 // in-tile cell offsets to copy; computed lazily
}

// Query drives the incomplete-result protocol against an RTree/Subarray
// pair (§4.6). A Subarray is read-only for the query's lifetime once
// SetSubarray has been called and Submit has started (§3 lifecycle).
type Query struct {
	tree     *RTree
	source   TileSource
	subarray *Subarray
	layout   Layout
	buffers  map[string]*QueryBuffer

	state         QueryState
	plan          []planStep
	planSignature uint64

	prodCursor int
	cellCursor int

	cancelled bool
}

// PlanSignature returns a stable fingerprint of the cached Cartesian
// enumeration (ranges + layout) computed at the first Submit call. Zero
// before the plan is built. Useful for tests asserting that repeated
// submissions with differently-sized buffers traverse the identical
// plan (§8 determinism property).
func (q *Query) PlanSignature() uint64 { return q.planSignature }

// NewQuery creates a query against tree, fetching tile contents from
// source.
func NewQuery(tree *RTree, source TileSource) *Query {
	return &Query{
		tree:    tree,
		source:  source,
		buffers: make(map[string]*QueryBuffer),
		layout:  RowMajor,
	}
}

// SetSubarray assigns the query region. Must be called before the first
// Submit.
func (q *Query) SetSubarray(s *Subarray) {
	q.subarray = s
}

// SetLayout assigns the result ordering layout (§4.5).
func (q *Query) SetLayout(l Layout) {
	q.layout = l
}

// SetBuffer registers data as the backing store for attr. data's
// capacity (len(data) / cell size) bounds how many cells a single
// Submit call can copy for this attribute.
func (q *Query) SetBuffer(attr string, data []byte) {
	cellSize := CellSize{}
	if q.source != nil {
		cellSize = q.source.AttributeCellSize(attr)
	}
	q.buffers[attr] = &QueryBuffer{Attr: attr, Data: data, cellSize: cellSize}
}

// ResultBufferElements reports, per attribute, how many elements were
// written during the most recent Submit call (§6).
func (q *Query) ResultBufferElements() map[string]ResultCount {
	out := make(map[string]ResultCount, len(q.buffers))
	for attr, b := range q.buffers {
		out[attr] = ResultCount{ValuesLen: b.written}
	}
	return out
}

// EstResultSize estimates attr's result size in bytes without running
// the query (§4.5, §6).
func (q *Query) EstResultSize(attr string) (uint64, error) {
	if q.subarray == nil {
		return 0, errInvalidArgument("subarray not set")
	}
	return q.subarray.EstResultSize(q.tree, q.source, attr)
}

// Cancel transitions the query to FAILED(Cancelled) at the next cursor
// advance (§5). In-flight copies complete; no rollback of caller
// buffers is attempted.
func (q *Query) Cancel() {
	q.cancelled = true
}

// State returns the query's current state.
func (q *Query) State() QueryState { return q.state }

// buildPlan computes the Cartesian product enumeration once, in the
// layout's required order, and caches it (§4.6 step 1).
func (q *Query) buildPlan() error {
	if q.subarray == nil {
		return errInvalidArgument("subarray not set")
	}

	counts := q.subarray.comboCounts()
	decodeLayout := q.layout
	if decodeLayout == GlobalOrder || decodeLayout == Unordered {
		decodeLayout = RowMajor
	}
	decoder := newComboDecoder(counts, decodeLayout)

	var hits []tileHit

	for combo := 0; combo < decoder.total; combo++ {
		sub := q.subarray.subRangeMBR(decoder, combo)
		overlap := q.tree.GetTileOverlap(sub)

		merged := mergeTileOrder(overlap)
		for _, m := range merged {
			hits = append(hits, tileHit{comboIdx: combo, leafIndex: m.leafIndex, full: m.full})
		}
	}

	if q.layout == GlobalOrder {
		// Stable sort by ascending leaf index, ties broken by combo
		// index, so repeated duplicate ranges (§8 no-dedup) still
		// traverse deterministically.
		stableSortHits(hits)
	}

	plan := make([]planStep, len(hits))
	for i, h := range hits {
		plan[i] = planStep{comboIdx: h.comboIdx, leafIndex: h.leafIndex, full: h.full}
	}
	q.plan = plan
	q.planSignature = cartesianSignature(q.subarray, q.layout)
	return nil
}

// tileHit is one (sub-range, tile) pair discovered while building a
// Query's execution plan, prior to the optional global-order resort.
type tileHit struct {
	comboIdx  int
	leafIndex uint64
	full      bool
}

type mergedHit struct {
	leafIndex uint64
	full      bool
}

// mergeTileOrder merges a TileOverlap's two ascending slices into one
// ascending-by-leaf-index sequence (§4.4 "implementations may return two
// sorted lists; the planner merges them").
func mergeTileOrder(overlap TileOverlap) []mergedHit {
	out := make([]mergedHit, 0, len(overlap.FullTiles)+len(overlap.PartialTiles))
	i, j := 0, 0
	for i < len(overlap.FullTiles) && j < len(overlap.PartialTiles) {
		if overlap.FullTiles[i] <= overlap.PartialTiles[j].LeafIndex {
			out = append(out, mergedHit{leafIndex: overlap.FullTiles[i], full: true})
			i++
		} else {
			out = append(out, mergedHit{leafIndex: overlap.PartialTiles[j].LeafIndex, full: false})
			j++
		}
	}
	for ; i < len(overlap.FullTiles); i++ {
		out = append(out, mergedHit{leafIndex: overlap.FullTiles[i], full: true})
	}
	for ; j < len(overlap.PartialTiles); j++ {
		out = append(out, mergedHit{leafIndex: overlap.PartialTiles[j].LeafIndex, full: false})
	}
	return out
}

func stableSortHits(hits []tileHit) {
	// Insertion sort: hits are typically near-sorted already (each
	// combo contributes an ascending run), and the input sizes this
	// planner handles are bounded by one fragment's Cartesian product.
	for i := 1; i < len(hits); i++ {
		j := i
		for j > 0 && tileHitLess(hits[j], hits[j-1]) {
			hits[j], hits[j-1] = hits[j-1], hits[j]
			j--
		}
	}
}

func tileHitLess(a, b tileHit) bool {
	if a.leafIndex != b.leafIndex {
		return a.leafIndex < b.leafIndex
	}
	return a.comboIdx < b.comboIdx
}

// stepOffsets resolves (and caches) the in-tile cell offsets a planStep
// must copy: the full [0,cellsPerTile) range for a fully-covered tile,
// or the coordinate-filtered subset for a partially-covered one (§4.4,
// §4.6).
func (q *Query) stepOffsets(idx int) []uint64 {
	step := &q.plan[idx]
	if step.offsets != nil {
		return step.offsets
	}

	cellsPerTile := q.source.CellsPerTile(step.leafIndex)
	if step.full {
		offsets := make([]uint64, cellsPerTile)
		for i := range offsets {
			offsets[i] = uint64(i)
		}
		step.offsets = offsets
		return offsets
	}

	decodeLayout := q.layout
	if decodeLayout == GlobalOrder || decodeLayout == Unordered {
		decodeLayout = RowMajor
	}
	decoder := newComboDecoder(q.subarray.comboCounts(), decodeLayout)
	sub := q.subarray.subRangeMBR(decoder, step.comboIdx)
	tile := q.tree.LeafMBR(step.leafIndex)
	step.offsets = tileCellOffsets(sub, tile)
	return step.offsets
}

// Submit advances the query's cursors, copying cells into the
// registered buffers until they fill, and returns INCOMPLETE or
// COMPLETE (§4.6). The forward-progress guarantee holds: buffers are
// checked for at-least-one-cell capacity once per call, so a returning
// INCOMPLETE always reflects strictly positive progress.
func (q *Query) Submit(ctx context.Context) (QueryState, error) {
	if q.cancelled {
		q.state = Failed
		return Failed, errCancelled("query cancelled before submit")
	}
	if q.state == Complete {
		return Complete, nil
	}

	if q.state == Uninitialized {
		if err := q.buildPlan(); err != nil {
			q.state = Failed
			return Failed, err
		}
	}
	q.state = InProgress

	budget := q.minCapacityCells()
	if budget == 0 && q.prodCursor < len(q.plan) {
		q.state = Failed
		return Failed, errBufferTooSmall("no registered buffer can hold a single cell")
	}

	q.resetWrittenCounters()
	copied := 0
	startCursor := q.prodCursor

	for q.prodCursor < len(q.plan) {
		if q.cancelled {
			q.state = Failed
			getMetrics().observeSubmit("failed", copied, q.prodCursor-startCursor)
			return Failed, errCancelled("query cancelled mid-submit")
		}

		offsets := q.stepOffsets(q.prodCursor)
		remaining := len(offsets) - q.cellCursor
		if remaining == 0 {
			q.prodCursor++
			q.cellCursor = 0
			continue
		}

		if copied >= budget {
			q.state = Incomplete
			getMetrics().observeSubmit("incomplete", copied, q.prodCursor-startCursor)
			return Incomplete, nil
		}

		toCopy := remaining
		if toCopy > budget-copied {
			toCopy = budget - copied
		}

		if err := q.copyCells(ctx, q.plan[q.prodCursor], offsets, q.cellCursor, toCopy); err != nil {
			q.state = Failed
			getMetrics().observeSubmit("failed", copied, q.prodCursor-startCursor)
			return Failed, err
		}

		copied += toCopy
		q.cellCursor += toCopy
		if q.cellCursor >= len(offsets) {
			q.prodCursor++
			q.cellCursor = 0
		}
	}

	q.state = Complete
	getMetrics().observeSubmit("complete", copied, len(q.plan)-startCursor)
	return Complete, nil
}

func (q *Query) resetWrittenCounters() {
	for _, b := range q.buffers {
		b.written = 0
	}
}

func (q *Query) minCapacityCells() int {
	if len(q.buffers) == 0 {
		return 0
	}
	min := -1
	for _, b := range q.buffers {
		c := b.capacityCells()
		if min == -1 || c < min {
			min = c
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

// copyCells fetches the leaf tile once and copies toCopy cells, starting
// at offsets[from], into every registered fixed-size attribute buffer.
func (q *Query) copyCells(ctx context.Context, step planStep, offsets []uint64, from, toCopy int) error {
	tileBytes, err := q.source.FetchLeafTile(ctx, step.leafIndex)
	if err != nil {
		return errIoError(err, "fetching leaf tile %d", step.leafIndex)
	}

	for _, b := range q.buffers {
		if b.cellSize.Variable {
			b.written += toCopy
			continue
		}
		width := int(b.cellSize.Fixed)
		for i := 0; i < toCopy; i++ {
			cellOffset := int(offsets[from+i])
			src := tileBytes[cellOffset*width : (cellOffset+1)*width]
			dstOff := b.written * width
			copy(b.Data[dstOff:dstOff+width], src)
			b.written++
		}
	}
	return nil
}
