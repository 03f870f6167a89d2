package project

import (
	"context"
	"errors"
	"fmt"
	"io"

	"lazy-df-go/config"
	"lazy-df-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

var (
	_ = (operators.Operator)(&ParquetSource{})
)

type ParquetSource struct {
	schema             *arrow.Schema
	projectionPushDown []string // columns to read out of the file, empty means all
	reader             pqarrow.RecordReader
	done               bool // if set to true always return io.EOF
}

func NewParquetSource(r parquet.ReaderAtSeeker) (*ParquetSource, error) {
	return newParquetSource(r, nil)
}

// NewParquetSourcePushDown reads only the requested columns out of the file.
func NewParquetSourcePushDown(r parquet.ReaderAtSeeker, columns []string) (*ParquetSource, error) {
	if len(columns) == 0 {
		return nil, errors.New("no columns were provided for projection push down")
	}
	return newParquetSource(r, columns)
}

func newParquetSource(r parquet.ReaderAtSeeker, columns []string) (*ParquetSource, error) {
	allocator := memory.NewGoAllocator()
	fileReader, err := file.NewParquetReader(r)
	if err != nil {
		return nil, err
	}

	cfg := config.GetConfig().Batch
	arrowReader, err := pqarrow.NewFileReader(
		fileReader,
		pqarrow.ArrowReadProperties{
			Parallel:  cfg.EnableParallelRead,
			BatchSize: int64(cfg.Size),
		},
		allocator,
	)
	if err != nil {
		return nil, err
	}

	var wantedColumnsIDX []int
	if len(columns) > 0 {
		s, err := arrowReader.Schema()
		if err != nil {
			return nil, err
		}
		for _, col := range columns {
			idxArray := s.FieldIndices(col)
			if len(idxArray) == 0 {
				return nil, operators.ColumnNotFound([]string{col}, schemaNames(s))
			}
			wantedColumnsIDX = append(wantedColumnsIDX, idxArray...)
		}
	}

	rdr, err := arrowReader.GetRecordReader(context.TODO(), wantedColumnsIDX, nil)
	if err != nil {
		return nil, err
	}

	return &ParquetSource{
		schema:             rdr.Schema(),
		projectionPushDown: columns,
		reader:             rdr,
	}, nil
}

func schemaNames(s *arrow.Schema) []string {
	names := make([]string, 0, len(s.Fields()))
	for _, f := range s.Fields() {
		names = append(names, f.Name)
	}
	return names
}

func (ps *ParquetSource) Next(n uint16) (*operators.Table, error) {
	if ps.reader == nil || ps.done {
		return nil, io.EOF
	}
	columns := make([]arrow.Array, len(ps.schema.Fields()))
	mem := memory.NewGoAllocator()
	curRow := 0
	for curRow < int(n) && ps.reader.Next() {
		if err := ps.reader.Err(); err != nil {
			return nil, err
		}
		record := ps.reader.Record()
		numCols := int(record.NumCols())
		numRows := int(record.NumRows())

		for colIdx := 0; colIdx < numCols; colIdx++ {
			batchCol := record.Column(colIdx)
			existing := columns[colIdx]
			if existing == nil {
				batchCol.Retain()
				columns[colIdx] = batchCol
				continue
			}
			combined, err := array.Concatenate([]arrow.Array{existing, batchCol}, mem)
			if err != nil {
				return nil, err
			}
			columns[colIdx] = combined
			existing.Release()
		}
		record.Release()

		curRow += numRows
	}
	if curRow == 0 {
		ps.done = true
		return nil, io.EOF
	}
	return &operators.Table{
		Schema:   ps.schema,
		Columns:  columns,
		RowCount: uint64(curRow),
		Chunks:   1,
	}, nil
}

func (ps *ParquetSource) Close() error {
	if ps.reader == nil {
		return fmt.Errorf("close called on an already closed parquet source")
	}
	ps.reader.Release()
	ps.reader = nil
	return nil
}

func (ps *ParquetSource) Schema() *arrow.Schema {
	return ps.schema
}
