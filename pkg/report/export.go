package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/xuri/excelize/v2"

	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
)

// ExportFile writes reports to path, choosing the format from the
// extension: .xlsx, .parquet, .json or .yaml.
func ExportFile(path string, reports ...*Report) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		return wrapExport(path, WriteXLSXFile(path, reports...))
	}

	f, err := os.Create(path)
	if err != nil {
		return wrapExport(path, err)
	}
	switch ext {
	case ".parquet", ".pq":
		err = WriteParquet(f, reports...)
	case ".json":
		err = RenderAll(f, reports, FormatJSON, false)
	case ".yaml", ".yml":
		err = RenderAll(f, reports, FormatYAML, false)
	default:
		err = fmt.Errorf("unsupported report file extension %q", ext)
	}
	// The parquet writer closes f itself.
	if cerr := f.Close(); err == nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return wrapExport(path, err)
}

func wrapExport(path string, err error) error {
	if err == nil {
		return nil
	}
	return lferrors.Wrap(err, lferrors.CodeWriteFailed, "exporting report").WithContext("location", path)
}

// failureRow flattens one failure with its file for tabular exports.
type failureRow struct {
	location string
	outcome  string
	failure  Failure
}

func failureRows(reports []*Report) []failureRow {
	var rows []failureRow
	for _, r := range reports {
		for _, f := range r.Failures {
			rows = append(rows, failureRow{location: r.Location, outcome: string(r.Outcome), failure: f})
		}
	}
	return rows
}

// Sheet names of the XLSX export.
const (
	SheetSummary      = "Summary"
	SheetFailures     = "Failures"
	SheetDeclarations = "Declarations"
)

// WriteXLSXFile writes reports as a workbook with a summary sheet, a
// failure sheet and a sheet of declared tables.
func WriteXLSXFile(path string, reports ...*Report) error {
	f := buildWorkbook(reports)
	defer f.Close()
	return f.SaveAs(path)
}

// WriteXLSX writes the workbook to w.
func WriteXLSX(w io.Writer, reports ...*Report) error {
	f := buildWorkbook(reports)
	defer f.Close()
	return f.Write(w)
}

func buildWorkbook(reports []*Report) *excelize.File {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetSummary)
	f.NewSheet(SheetFailures)
	f.NewSheet(SheetDeclarations)

	setRow(f, SheetSummary, 1, "Location", "Outcome", "Mode", "Events", "Failures", "Warnings", "First failure", "Error", "Session")
	for i, r := range reports {
		first := ""
		if ff, ok := r.FirstFailure(); ok {
			first = ff.Rule
		}
		setRow(f, SheetSummary, i+2, r.Location, string(r.Outcome), r.Mode, r.Events, len(r.Failures), len(r.Warnings), first, r.Error, r.SessionID)
	}

	setRow(f, SheetFailures, 1, "Location", "Rule", "Category", "Event", "Message", "Causes")
	for i, row := range failureRows(reports) {
		var event any
		if row.failure.Event != nil {
			event = *row.failure.Event
		}
		setRow(f, SheetFailures, i+2, row.location, row.failure.Rule, row.failure.Category, event,
			row.failure.Message, strings.Join(row.failure.Causes, "; "))
	}

	setRow(f, SheetDeclarations, 1, "Location", "Table", "Code", "Name", "Description")
	n := 2
	for _, r := range reports {
		if r.Run == nil {
			continue
		}
		for _, t := range []struct {
			name  string
			codes []Code
		}{
			{"process", r.Run.Processes},
			{"vertex status", r.Run.VertexStatuses},
			{"particle status", r.Run.ParticleStatuses},
		} {
			for _, c := range t.codes {
				setRow(f, SheetDeclarations, n, r.Location, t.name, c.Code, c.Name, c.Description)
				n++
			}
		}
		for _, tag := range r.Run.Conventions {
			setRow(f, SheetDeclarations, n, r.Location, "convention", nil, tag, "")
			n++
		}
	}
	return f
}

func setRow(f *excelize.File, sheet string, row int, values ...any) {
	for col, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		f.SetCellValue(sheet, cell, v)
	}
}

// failureSchema is the Arrow schema of the Parquet failure table.
func failureSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "location", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "outcome", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "rule", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "category", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "event", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "message", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "causes", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

// WriteParquet writes the failures of reports as one Parquet row group.
func WriteParquet(w io.Writer, reports ...*Report) error {
	allocator := memory.NewGoAllocator()
	schema := failureSchema()

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	fw, err := pqarrow.NewFileWriter(schema, w, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	b := array.NewRecordBuilder(allocator, schema)
	defer b.Release()

	rows := failureRows(reports)
	for _, row := range rows {
		b.Field(0).(*array.StringBuilder).Append(row.location)
		b.Field(1).(*array.StringBuilder).Append(row.outcome)
		b.Field(2).(*array.StringBuilder).Append(row.failure.Rule)
		b.Field(3).(*array.StringBuilder).Append(row.failure.Category)
		if row.failure.Event != nil {
			b.Field(4).(*array.Int64Builder).Append(int64(*row.failure.Event))
		} else {
			b.Field(4).(*array.Int64Builder).AppendNull()
		}
		b.Field(5).(*array.StringBuilder).Append(row.failure.Message)
		if len(row.failure.Causes) > 0 {
			b.Field(6).(*array.StringBuilder).Append(strings.Join(row.failure.Causes, "; "))
		} else {
			b.Field(6).(*array.StringBuilder).AppendNull()
		}
	}

	rec := b.NewRecord()
	defer rec.Release()
	if len(rows) > 0 {
		if err := fw.Write(rec); err != nil {
			fw.Close()
			return fmt.Errorf("failed to write parquet batch: %w", err)
		}
	}
	return fw.Close()
}
