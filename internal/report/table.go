// Package report turns benchmark results into an Arrow record and renders it.
// The record is long-form, one row per (size, backend); the markdown
// renderer pivots it into one row per size.
package report

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-matbench/internal/bench"
)

const (
	colSize = iota
	colBackend
	colRepeat
	colMin
	colMean
	colStdDev
)

var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "size", Type: arrow.PrimitiveTypes.Int64},
	{Name: "backend", Type: arrow.BinaryTypes.String},
	{Name: "repeat", Type: arrow.PrimitiveTypes.Int64},
	{Name: "min_s", Type: arrow.PrimitiveTypes.Float64},
	{Name: "mean_s", Type: arrow.PrimitiveTypes.Float64},
	{Name: "stddev_s", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// Table owns an Arrow record; call Release when done.
type Table struct {
	rec     arrow.Record
	columns []string
}

// NewTable builds the record from results in the order given. The size of a
// result is its M dimension; the suite only runs square shapes.
func NewTable(mem memory.Allocator, results []bench.Result) *Table {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	size := b.Field(colSize).(*array.Int64Builder)
	name := b.Field(colBackend).(*array.StringBuilder)
	repeat := b.Field(colRepeat).(*array.Int64Builder)
	minB := b.Field(colMin).(*array.Float64Builder)
	mean := b.Field(colMean).(*array.Float64Builder)
	std := b.Field(colStdDev).(*array.Float64Builder)

	for _, r := range results {
		size.Append(int64(r.Shape.M))
		name.Append(r.Backend)
		repeat.Append(int64(r.Repeat))
		minB.Append(r.Min)
		mean.Append(r.Mean)
		std.Append(r.StdDev)
	}
	return &Table{rec: b.NewRecord()}
}

// WithColumns fixes the markdown column order. Listed backends get a column
// even with no rows; backends not listed follow in first-seen order.
func (t *Table) WithColumns(names []string) *Table {
	t.columns = append([]string(nil), names...)
	return t
}

func (t *Table) Record() arrow.Record { return t.rec }

func (t *Table) NumRows() int { return int(t.rec.NumRows()) }

func (t *Table) Release() {
	if t.rec != nil {
		t.rec.Release()
		t.rec = nil
	}
}

// Row is one decoded record row.
type Row struct {
	Size    int
	Backend string
	Repeat  int
	Min     float64
	Mean    float64
	StdDev  float64
}

func (t *Table) Row(i int) Row {
	return Row{
		Size:    int(t.rec.Column(colSize).(*array.Int64).Value(i)),
		Backend: t.rec.Column(colBackend).(*array.String).Value(i),
		Repeat:  int(t.rec.Column(colRepeat).(*array.Int64).Value(i)),
		Min:     t.rec.Column(colMin).(*array.Float64).Value(i),
		Mean:    t.rec.Column(colMean).(*array.Float64).Value(i),
		StdDev:  t.rec.Column(colStdDev).(*array.Float64).Value(i),
	}
}
