package rtreeindex

import "github.com/cespare/xxhash/v2"

// checksumLevels derives a cheap round-trip fingerprint over a tree's
// serialized levels (§3 "Checksum"). It is not a cryptographic digest —
// just detection of corrupted level payloads: Deserialize reads every
// level, then compares this value with the stored one before returning
// a tree.
func checksumLevels(levels []Level) uint64 {
	d := xxhash.New()
	for _, l := range levels {
		d.Write(l.Data)
	}
	return d.Sum64()
}

// cartesianSignature hashes a Subarray's per-dimension range lists plus
// the requested Layout into a stable key. A Query stores it when it
// builds its plan and exposes it as PlanSignature; it is not used as a
// cache key.
func cartesianSignature(s *Subarray, layout Layout) uint64 {
	d := xxhash.New()
	var buf [9]byte
	buf[0] = byte(layout)
	d.Write(buf[:1])
	for dim := 0; dim < s.domain.DimNum; dim++ {
		for _, r := range s.ranges[dim] {
			buf[0] = byte(dim)
			putUint64(buf[1:9], uint64(len(s.ranges[dim])))
			d.Write(buf[:9])
			writeRange(d, r)
		}
	}
	return d.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func writeRange(d *xxhash.Digest, r Range) {
	var buf [16]byte
	putUint64(buf[0:8], r.LoBits)
	putUint64(buf[8:16], r.HiBits)
	d.Write(buf[:])
}
