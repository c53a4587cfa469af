package ndjson

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Reader iterates over the records of an NDJSON stream.
type Reader struct {
	r       *bufio.Reader
	record  []byte
	line    int
	records int
	blank   int
	err     error
	eof     bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next non-blank line. It returns false at end of input
// or on a read error; check Err afterwards.
func (r *Reader) Next() bool {
	for !r.eof {
		raw, err := r.r.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
				r.record = nil
				return false
			}
			r.eof = true
			if len(raw) == 0 {
				break
			}
		}
		r.line++
		if r.line == 1 {
			raw = bytes.TrimPrefix(raw, bom)
		}
		raw = bytes.TrimRight(raw, "\r\n")
		if len(bytes.TrimSpace(raw)) == 0 {
			r.blank++
			continue
		}
		r.record = raw
		r.records++
		return true
	}
	r.record = nil
	return false
}

// Bytes returns the current record without its line terminator. Each call to
// Next allocates a fresh slice, so the result may be retained.
func (r *Reader) Bytes() []byte {
	return r.record
}

// Line is the 1-based line number of the current record.
func (r *Reader) Line() int {
	return r.line
}

// Records is the number of records returned so far.
func (r *Reader) Records() int {
	return r.records
}

// BlankLines is the number of blank lines skipped so far.
func (r *Reader) BlankLines() int {
	return r.blank
}

func (r *Reader) Err() error {
	return r.err
}
