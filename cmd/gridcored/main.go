// Command gridcored is the engine's command-line entry point: a thin
// subcommand dispatcher over gridcore.Controller, the same os.Args[1]
// switch the teacher's main.go uses to pick between its repl/server/
// notebook/etc. modes.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"gridcore"
	"gridcore/internal/geom"
	"gridcore/internal/importer"
	"gridcore/internal/notify"
	"gridcore/internal/ops"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "-h", "--help", "help":
		usage()
	case "serve":
		os.Exit(serveCommand(os.Args[2:]))
	case "import":
		os.Exit(importCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: gridcored <command> [args]

commands:
  serve [addr]             start the out-of-core notification server (default :8080)
  import <csv|xlsx|parquet> <path>   import a file into a fresh sheet and report a summary`)
}

func serveCommand(args []string) int {
	addr := ":8080"
	if len(args) > 0 {
		addr = args[0]
	}
	hub := notify.NewHub()
	if err := hub.Serve(addr); err != nil {
		fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		return 1
	}
	return 0
}

func importCommand(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gridcored import <csv|xlsx|parquet> <path>")
		return 2
	}
	kind, path := args[0], args[1]

	hub := notify.NewHub()
	ctrl := gridcore.New(hub)
	ctrl.ClientMessage = func(msg ops.ClientMessage) {
		fmt.Fprintf(os.Stderr, "[%d] %s\n", msg.Severity, msg.Message)
	}

	sheetID := geom.SheetID(uuid.NewString())
	if _, err := ctrl.RunTransaction(ops.SourceUser, []ops.Operation{
		{Kind: ops.KindAddSheet, SheetID: sheetID, SheetName: "Sheet1"},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "add sheet: %v\n", err)
		return 1
	}

	var importOps []ops.Operation
	var err error
	switch kind {
	case "csv":
		var raw []byte
		raw, err = os.ReadFile(path)
		if err == nil {
			importOps, err = importer.ImportCSV(raw, importer.CSVOptions{
				SheetID: sheetID, Pos: geom.Pos{X: 1, Y: 1}, AsTable: true,
			})
		}
	case "xlsx":
		var f *excelize.File
		f, err = excelize.OpenFile(path)
		if err == nil {
			sheets := map[string]geom.SheetID{}
			for _, name := range f.GetSheetList() {
				sheets[name] = sheetID
			}
			importOps, err = importer.ImportExcel(f, importer.ExcelOptions{SheetIDs: sheets, Pos: geom.Pos{X: 1, Y: 1}})
		}
	case "parquet":
		var f *os.File
		f, err = os.Open(path)
		if err == nil {
			defer f.Close()
			var info os.FileInfo
			info, err = f.Stat()
			if err == nil {
				importOps, err = importer.ImportParquet(f, info.Size(), importer.ParquetOptions{
					SheetID: sheetID, Pos: geom.Pos{X: 1, Y: 1}, TableName: "Table1",
				})
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown import kind: %s\n", kind)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		return 1
	}

	if _, err := ctrl.RunTransaction(ops.SourceUser, importOps); err != nil {
		fmt.Fprintf(os.Stderr, "apply import: %v\n", err)
		return 1
	}

	bounds := ctrl.Sheet(sheetID).DataBounds()
	fmt.Printf("imported %s: data bounds %s:%s\n", path, bounds.Min, bounds.Max)
	return 0
}
