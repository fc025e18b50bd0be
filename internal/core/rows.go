package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
)

// Row is an immutable snapshot of one data row.
type Row struct {
	Line  int      // 1-based physical line number
	Cells []string // owned by the Row; never reused by the reader
}

// Len returns the cell count.
func (r Row) Len() int { return len(r.Cells) }

// IsBlank reports whether the row is a single empty cell, which is how a blank
// trailing line parses.
func (r Row) IsBlank() bool {
	return len(r.Cells) == 1 && r.Cells[0] == ""
}

// Cell returns the cell at pos, or false if pos is out of range.
func (r Row) Cell(pos int) (string, bool) {
	if pos < 0 || pos >= len(r.Cells) {
		return "", false
	}
	return r.Cells[pos], true
}

// ReaderStats counts what a RowReader saw.
type ReaderStats struct {
	Rows       int   // data rows returned by Next
	Mismatched int   // rows rejected for a column count mismatch
	Malformed  int   // rows the TSV parser could not split
	Blank      int   // blank rows skipped silently
	Bytes      int64 // bytes consumed
}

// RowReader streams a tab-separated file whose first row is a header.
// It is pull-based and not restartable: Header reads the first row, and each call to
// Next returns the next data row whose width matches the header.
type RowReader struct {
	fileName string
	logger   *slog.Logger
	counter  *countingReader
	csv      *csv.Reader

	header     ColumnIndex
	headerRead bool
	headerErr  error
	stats      ReaderStats
}

// NewRowReader creates a RowReader over r. fileName is used only for diagnostics.
func NewRowReader(r io.Reader, fileName string, logger *slog.Logger) *RowReader {
	if logger == nil {
		logger = slog.Default()
	}
	counter := &countingReader{r: r}

	cr := csv.NewReader(skipBOM(counter))
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	return &RowReader{
		fileName: fileName,
		logger:   logger,
		counter:  counter,
		csv:      cr,
	}
}

// Header reads the header row on first call and returns the ColumnIndex built from it.
// Returns io.EOF if the file is empty.
func (rr *RowReader) Header() (ColumnIndex, error) {
	if rr.headerRead {
		return rr.header, rr.headerErr
	}
	rr.headerRead = true

	cells, err := rr.csv.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			err = fmt.Errorf("read header of %s: %w", rr.fileName, err)
		}
		rr.headerErr = err
		return ColumnIndex{}, err
	}
	for i := range cells {
		cells[i] = sanitizeCell(cells[i])
	}
	rr.header = NewColumnIndex(cells)
	return rr.header, nil
}

// Next returns the next data row. Rows whose width differs from the header are logged
// and skipped, as are blank rows. Returns io.EOF when the file is exhausted.
func (rr *RowReader) Next() (Row, error) {
	idx, err := rr.Header()
	if err != nil {
		return Row{}, err
	}

	for {
		cells, err := rr.csv.Read()
		rr.stats.Bytes = rr.counter.BytesRead()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rr.stats.Malformed++
				rr.logger.Warn("malformed row skipped",
					"file", rr.fileName,
					"line", perr.Line,
					"error", perr.Err,
				)
				continue
			}
			if errors.Is(err, io.EOF) {
				return Row{}, io.EOF
			}
			return Row{}, fmt.Errorf("read %s: %w", rr.fileName, err)
		}

		line, _ := rr.csv.FieldPos(0)
		for i := range cells {
			cells[i] = sanitizeCell(cells[i])
		}
		row := Row{Line: line, Cells: cells}

		if row.IsBlank() {
			rr.stats.Blank++
			continue
		}
		if row.Len() != idx.Len() {
			rr.stats.Mismatched++
			rr.logger.Warn("row column count does not match header",
				"file", rr.fileName,
				"line", row.Line,
				"expected", idx.Len(),
				"actual", row.Len(),
			)
			continue
		}

		rr.stats.Rows++
		return row, nil
	}
}

// Rows adapts Next to a range-over-func sequence. Iteration ends at EOF; any other
// error is yielded once and ends the sequence.
func (rr *RowReader) Rows() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := rr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// Stats returns counters for the rows read so far.
func (rr *RowReader) Stats() ReaderStats {
	s := rr.stats
	s.Bytes = rr.counter.BytesRead()
	return s
}
