package core

// streaming.go wraps TSV inputs before parsing:
//
//   - the UTF-8 BOM some Windows tools prepend is dropped
//   - bytes read are counted for the per-file result
//
// Invalid UTF-8 is repaired per cell by sanitizeCell rather than on the stream, so the
// reader never has to track multi-byte sequences split across reads.

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// countingReader tracks bytes read from the underlying reader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// BytesRead returns the number of bytes consumed so far, BOM included.
func (c *countingReader) BytesRead() int64 { return c.n }

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// sanitizeCell replaces invalid UTF-8 with U+FFFD.
func sanitizeCell(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}
