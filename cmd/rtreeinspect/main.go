// Command rtreeinspect builds, inspects, and queries serialized R-tree
// index files (§6).
package main

import (
	"log"
	"os"

	"github.com/alecthomas/kong"

	"github.com/arrayquery/rtreeindex/rtreeindex"
)

var cli struct {
	Build struct {
		Input    string `arg:"" help:"newline-delimited MBR tuple file"`
		Output   string `arg:"" help:"path to write the serialized tree"`
		Fanout   int    `default:"16" help:"R-tree fanout"`
		Datatype string `default:"i32" help:"i32, i64, or f64"`
	} `cmd:"" help:"bulk-build an r-tree from leaf MBRs"`

	Inspect struct {
		Path     string `arg:"" help:"serialized tree file"`
		Dim      int    `required:"" help:"dimension count"`
		Fanout   int    `required:"" help:"fanout used at build time"`
		Datatype string `default:"i32" help:"i32, i64, or f64"`
	} `cmd:"" help:"print a serialized tree's shape"`

	Query struct {
		Path     string   `arg:"" help:"serialized tree file"`
		Range    []string `arg:"" help:"flat range coordinates: lo_0 hi_0 ... lo_n hi_n"`
		Dim      int      `required:"" help:"dimension count"`
		Fanout   int      `required:"" help:"fanout used at build time"`
		Datatype string   `default:"i32" help:"i32, i64, or f64"`
	} `cmd:"" help:"run get_tile_overlap against a serialized tree"`
}

func main() {
	logger := log.New(os.Stdout, "", log.Ldate|log.Ltime)
	ctx := kong.Parse(&cli,
		kong.Name("rtreeinspect"),
		kong.Description("inspect and query bulk-loaded r-tree index files"),
	)

	var err error
	switch ctx.Command() {
	case "build <input> <output>":
		dt, derr := rtreeindex.ParseDatatype(cli.Build.Datatype)
		if derr != nil {
			err = derr
			break
		}
		err = rtreeindex.BuildFromFile(logger, cli.Build.Input, cli.Build.Output, cli.Build.Fanout, dt)

	case "inspect <path>":
		dt, derr := rtreeindex.ParseDatatype(cli.Inspect.Datatype)
		if derr != nil {
			err = derr
			break
		}
		err = rtreeindex.Inspect(logger, cli.Inspect.Path, cli.Inspect.Dim, cli.Inspect.Fanout, dt)

	case "query <path> <range>":
		dt, derr := rtreeindex.ParseDatatype(cli.Query.Datatype)
		if derr != nil {
			err = derr
			break
		}
		err = rtreeindex.QueryFile(logger, cli.Query.Path, cli.Query.Dim, cli.Query.Fanout, dt, cli.Query.Range)

	default:
		ctx.Fatalf("unknown command: %s", ctx.Command())
	}

	if err != nil {
		logger.Fatalf("rtreeinspect: %v", err)
	}
}
