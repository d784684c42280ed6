package rtreeindex

// Level is a contiguous sequence of MBRs serialized in flat layout, plus
// a count (§3). Level 0 is the root (always one MBR); level H is the
// leaf level. Ownership of Data is unique to the Level — children never
// alias parents (§9).
type Level struct {
	MBRNum   int
	Data     []byte
	Dim      int
	Datatype Datatype
}

func newLevel(dim int, dt Datatype, mbrNum int) Level {
	width := dt.ByteWidth()
	return Level{
		MBRNum:   mbrNum,
		Data:     make([]byte, mbrNum*2*dim*width),
		Dim:      dim,
		Datatype: dt,
	}
}

// mbrAt returns the MBR at index i within the level, sharing Data's
// backing array (a zero-copy view, matching §9's flat-byte-layout
// design note).
func (l Level) mbrAt(i int) MBR {
	width := l.Datatype.ByteWidth()
	stride := 2 * l.Dim * width
	return MBR{
		Dim:      l.Dim,
		Datatype: l.Datatype,
		Data:     l.Data[i*stride : (i+1)*stride],
	}
}

func (l Level) setMBR(i int, m MBR) {
	width := l.Datatype.ByteWidth()
	stride := 2 * l.Dim * width
	copy(l.Data[i*stride:(i+1)*stride], m.Data)
}

func (l Level) stride() int {
	return 2 * l.Dim * l.Datatype.ByteWidth()
}
