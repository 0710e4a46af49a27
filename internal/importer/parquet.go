package importer

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"gridcore/internal/geom"
	"gridcore/internal/grid"
	"gridcore/internal/ops"
	"gridcore/internal/table"
)

// ParquetOptions configures one Parquet import (spec 4.9 "Parquet
// path").
type ParquetOptions struct {
	SheetID   geom.SheetID
	Pos       geom.Pos
	TableName string
	Overwrite *table.DataTable
}

// ImportParquet converts r's rows into a row-major DataTable and
// emits a SetDataTable op. The column headers are the schema's field
// names (uniquified); every decoded row is a data row, and
// HeaderIsFirstRow stays false.
func ImportParquet(r io.ReaderAt, size int64, opts ParquetOptions) ([]ops.Operation, error) {
	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("importer: opening parquet file: %w", err)
	}
	schema := file.Schema()
	columns := schema.Fields()
	width := len(columns)

	reader := parquet.NewGenericReader[any](file)
	defer reader.Close()

	var dataRows []parquet.Row
	buf := make([]parquet.Row, 256)
	for {
		n, readErr := reader.ReadRows(buf)
		for i := 0; i < n; i++ {
			row := make(parquet.Row, len(buf[i]))
			copy(row, buf[i])
			dataRows = append(dataRows, row)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("importer: reading parquet rows: %w", readErr)
		}
	}

	dt := table.New(opts.TableName, width, len(dataRows))
	for col, field := range columns {
		dt.ColumnHeaders[col].Name = grid.Text(field.Name())
	}
	dt.UniquifyColumnNames()
	for rowIdx, row := range dataRows {
		for col := 0; col < width && col < len(row); col++ {
			dt.Set(col, rowIdx, parquetValueToCell(row[col]))
		}
	}
	dt.HeaderIsFirstRow = false

	if opts.Overwrite != nil {
		dt.Name = opts.Overwrite.Name
		dt.Formats = opts.Overwrite.Formats
		dt.Borders = opts.Overwrite.Borders
		dt.Sort = opts.Overwrite.Sort
		dt.ShowName = opts.Overwrite.ShowName
		dt.ShowColumns = opts.Overwrite.ShowColumns
	}

	return []ops.Operation{{
		Kind: ops.KindSetDataTable, SheetID: opts.SheetID, Pos: opts.Pos,
		DataTable: dt, IgnoreOldDataTable: opts.Overwrite == nil,
	}}, nil
}

func parquetValueToCell(v parquet.Value) grid.CellValue {
	if v.IsNull() {
		return grid.Blank()
	}
	switch v.Kind() {
	case parquet.Boolean:
		return grid.Logical(v.Boolean())
	case parquet.Int32:
		return grid.NumberFromInt(int64(v.Int32()))
	case parquet.Int64:
		return grid.NumberFromInt(v.Int64())
	case parquet.Float:
		return grid.NumberFromFloat(float64(v.Float()))
	case parquet.Double:
		return grid.NumberFromFloat(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return grid.Text(string(v.ByteArray()))
	default:
		return grid.Text(fmt.Sprint(v))
	}
}
