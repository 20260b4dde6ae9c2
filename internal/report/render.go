package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"

	"github.com/23skdu/longbow-matbench/internal/config"
)

// Write renders t in the given format.
func Write(w io.Writer, t *Table, format config.Format) error {
	switch format {
	case config.FormatMarkdown:
		return WriteMarkdown(w, t)
	case config.FormatCSV:
		return WriteCSV(w, t)
	case config.FormatJSON:
		return WriteJSON(w, t)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteMarkdown prints one header row, one separator row and one row per
// size. Backend columns follow t's column order, else the order backends
// first occur in t; a backend missing at some size renders as "-".
func WriteMarkdown(w io.Writer, t *Table) error {
	var (
		names []string
		sizes []int
		cells = make(map[int]map[string]string)
	)
	seen := make(map[string]bool)
	for _, n := range t.columns {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for i := 0; i < t.NumRows(); i++ {
		r := t.Row(i)
		if !seen[r.Backend] {
			seen[r.Backend] = true
			names = append(names, r.Backend)
		}
		if _, ok := cells[r.Size]; !ok {
			cells[r.Size] = make(map[string]string)
			sizes = append(sizes, r.Size)
		}
		cells[r.Size][r.Backend] = Triple(r.Min, r.Mean, r.StdDev)
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("| size |")
	for _, n := range names {
		fmt.Fprintf(bw, " %s, (min, avg, std) |", n)
	}
	bw.WriteString("\n| --- |")
	for range names {
		bw.WriteString(" --- |")
	}
	bw.WriteString("\n")

	for _, s := range sizes {
		fmt.Fprintf(bw, "|%d|", s)
		for _, n := range names {
			c, ok := cells[s][n]
			if !ok {
				c = "-"
			}
			bw.WriteString(c)
			bw.WriteString("|")
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// Triple formats "(min, mean, stddev)" with two significant digits each.
func Triple(lo, mean, std float64) string {
	return "(" + sig2(lo) + ", " + sig2(mean) + ", " + sig2(std) + ")"
}

func sig2(v float64) string {
	return strconv.FormatFloat(v, 'g', 2, 64)
}

// WriteCSV writes the long-form record with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w, Schema, csv.WithHeader(true))
	if err := cw.Write(t.Record()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return cw.Flush()
}

// WriteJSON writes one JSON object per row.
func WriteJSON(w io.Writer, t *Table) error {
	if err := array.RecordToJSON(t.Record(), w); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
