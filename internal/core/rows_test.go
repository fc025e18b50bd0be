package core

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readAll(t *testing.T, rr *RowReader) []Row {
	t.Helper()
	var rows []Row
	for row, err := range rr.Rows() {
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func TestRowReader_Header(t *testing.T) {
	rr := NewRowReader(strings.NewReader(" Name \tTIME\tname\n"), "a.tsv", discardLogger())

	idx, err := rr.Header()
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"name", "time"}, idx.Columns())

	pos, ok := idx.Lookup("NAME")
	assert.True(t, ok)
	assert.Equal(t, 0, pos, "first duplicate wins")

	_, ok = idx.Lookup("missing")
	assert.False(t, ok)

	// Header is read once.
	again, err := rr.Header()
	require.NoError(t, err)
	assert.Equal(t, idx, again)
}

func TestRowReader_EmptyFile(t *testing.T) {
	rr := NewRowReader(strings.NewReader(""), "empty.tsv", discardLogger())

	_, err := rr.Header()
	assert.ErrorIs(t, err, io.EOF)

	_, err = rr.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, readAll(t, rr))
}

func TestRowReader_Rows(t *testing.T) {
	data := "\xEF\xBB\xBFname\ttime\n" +
		"Alice\t2020-01-15 13:45:00\n" +
		"Alice\tBob\t2020-01-15 13:45:00\n" +
		"\n" + // skipped by the parser
		"Bob\t\n" +
		"Carol \"the\" Great\t2021-06-01 00:00:00\n"

	var logs bytes.Buffer
	rr := NewRowReader(strings.NewReader(data), "people.tsv", slog.New(slog.NewTextHandler(&logs, nil)))

	idx, err := rr.Header()
	require.NoError(t, err)
	pos, ok := idx.Lookup("name")
	require.True(t, ok, "BOM must not be part of the first column name")
	assert.Equal(t, 0, pos)

	rows := readAll(t, rr)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Alice", "2020-01-15 13:45:00"}, rows[0].Cells)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, []string{"Bob", ""}, rows[1].Cells)
	assert.Equal(t, `Carol "the" Great`, rows[2].Cells[0])

	stats := rr.Stats()
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.Mismatched)
	assert.Equal(t, int64(len(data)), stats.Bytes)
	assert.Contains(t, logs.String(), "row column count does not match header")
}

func TestRowReader_RowsAreSnapshots(t *testing.T) {
	rr := NewRowReader(strings.NewReader("a\tb\n1\t2\n3\t4\n"), "x.tsv", discardLogger())

	first, err := rr.Next()
	require.NoError(t, err)
	second, err := rr.Next()
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, first.Cells)
	assert.Equal(t, []string{"3", "4"}, second.Cells)

	first.Cells[0] = "changed"
	assert.Equal(t, "3", second.Cells[0])
}

func TestRowReader_InvalidUTF8(t *testing.T) {
	rr := NewRowReader(strings.NewReader("a\n\xff\xfe\n"), "x.tsv", discardLogger())
	rows := readAll(t, rr)
	require.Len(t, rows, 1)
	assert.Equal(t, "�", rows[0].Cells[0])
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestRowReader_ReadErrorEndsSequence(t *testing.T) {
	boom := errors.New("disk gone")
	rr := NewRowReader(&failingReader{data: []byte("a\tb\n1\t2\n"), err: boom}, "x.tsv", discardLogger())

	var rows int
	var gotErr error
	for _, err := range rr.Rows() {
		if err != nil {
			gotErr = err
			continue
		}
		rows++
	}
	assert.Equal(t, 1, rows)
	assert.ErrorIs(t, gotErr, boom)
}

func TestRow_Cell(t *testing.T) {
	row := Row{Cells: []string{"a", "b"}}
	v, ok := row.Cell(1)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = row.Cell(2)
	assert.False(t, ok)
	_, ok = row.Cell(-1)
	assert.False(t, ok)

	assert.True(t, Row{Cells: []string{""}}.IsBlank())
	assert.False(t, Row{Cells: []string{"", ""}}.IsBlank())
}
