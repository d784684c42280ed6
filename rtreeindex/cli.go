package rtreeindex

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// BuildFromFile reads inputPath, a newline-delimited file of flat MBR
// tuples (space-separated coordinates, lo_0 hi_0 ... lo_{D-1} hi_{D-1}),
// bulk-builds an R-tree with the given fanout and datatype, and writes
// the serialized tree to outputPath (§6 cmd/rtreeinspect "build").
func BuildFromFile(logger *log.Logger, inputPath, outputPath string, fanout int, dt Datatype) error {
	leaves, err := readMBRLines(inputPath, dt)
	if err != nil {
		return err
	}

	tree, err := Build(fanout, leaves, NewDefaultProgressWriter())
	if err != nil {
		return err
	}

	blob := tree.Serialize()
	if err := os.WriteFile(outputPath, blob, 0644); err != nil {
		return errIoError(err, "writing %s", outputPath)
	}

	logger.Printf("built r-tree: height=%d fanout=%d leaves=%d size=%s",
		tree.Height(), tree.Fanout(), tree.LeafCount(), humanize.Bytes(uint64(len(blob))))
	return nil
}

// Inspect deserializes a tree file and prints its shape (§6
// cmd/rtreeinspect "inspect").
func Inspect(logger *log.Logger, path string, dim, fanout int, dt Datatype) error {
	tree, err := deserializeFile(path, dim, fanout, dt)
	if err != nil {
		return err
	}
	logger.Printf("%s", tree)
	for i, l := range tree.levels {
		logger.Printf("level %d: %d mbrs", i, l.MBRNum)
	}
	logger.Printf("checksum=%x", tree.Checksum())
	return nil
}

// QueryFile deserializes a tree file and runs GetTileOverlap for the
// given flat range, printing full and partial tile indices (§6
// cmd/rtreeinspect "query").
func QueryFile(logger *log.Logger, path string, dim, fanout int, dt Datatype, rangeCoords []string) error {
	tree, err := deserializeFile(path, dim, fanout, dt)
	if err != nil {
		return err
	}

	query, err := parseMBRLine(strings.Join(rangeCoords, " "), dt)
	if err != nil {
		return err
	}

	overlap := tree.GetTileOverlap(query)
	logger.Printf("full tiles (%d): %v", len(overlap.FullTiles), overlap.FullTiles)
	for _, pt := range overlap.PartialTiles {
		logger.Printf("partial tile %d: ratio=%.4f", pt.LeafIndex, pt.Ratio)
	}
	return nil
}

// ParseDatatype maps a CLI --datatype flag value to a Datatype. Only
// the datatypes parseMBRLine knows how to parse text coordinates for
// are accepted.
func ParseDatatype(name string) (Datatype, error) {
	switch name {
	case "i32":
		return Int32, nil
	case "i64":
		return Int64, nil
	case "f64":
		return Float64, nil
	default:
		return UnknownDatatype, errInvalidArgument("unsupported --datatype %q (want i32, i64, or f64)", name)
	}
}

func deserializeFile(path string, dim, fanout int, dt Datatype) (*RTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errIoError(err, "reading %s", path)
	}
	return Deserialize(data, dim, fanout, dt)
}

func readMBRLines(path string, dt Datatype) ([]MBR, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errIoError(err, "opening %s", path)
	}
	defer f.Close()

	var leaves []MBR
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m, err := parseMBRLine(line, dt)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, errIoError(err, "scanning %s", path)
	}
	return leaves, nil
}

func parseMBRLine(line string, dt Datatype) (MBR, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields)%2 != 0 {
		return MBR{}, errInvalidArgument("expected an even number of coordinates, got %d", len(fields))
	}

	switch dt {
	case Int32:
		return parseMBRFields[int32](fields, dt, func(s string) (int32, error) {
			v, err := strconv.ParseInt(s, 10, 32)
			return int32(v), err
		})
	case Int64:
		return parseMBRFields[int64](fields, dt, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		})
	case Float64:
		return parseMBRFields[float64](fields, dt, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		})
	default:
		return MBR{}, errInvalidArgument("unsupported datatype for CLI parsing: %s", dt)
	}
}

func parseMBRFields[T coordinate](fields []string, dt Datatype, parse func(string) (T, error)) (MBR, error) {
	coords := make([]T, len(fields))
	for i, f := range fields {
		v, err := parse(f)
		if err != nil {
			return MBR{}, errInvalidArgument("parsing coordinate %q: %v", f, err)
		}
		coords[i] = v
	}
	return NewMBR(dt, coords), nil
}
