// Package scanner provides the line reader used by both the header reader and
// the boundary scanner. It reads from an io.ReaderAt within a fixed range and
// reports the absolute offset of every line, which is what allows parsed parts
// to be addressed purely by offset.
package scanner

import (
	"bufio"
	"errors"
	"io"
)

// DefaultBufferSize is the default size of the read buffer. Lines longer than
// this are returned in fragments.
const DefaultBufferSize = 8 * 1024

// Line is a single line, or fragment of a line, read from the input.
type Line struct {
	// Offset is the absolute offset of the first byte of the line.
	Offset int64

	// Content holds the line without the line break. It is only valid until
	// the next call to Next.
	Content []byte

	// Break is the length of the line break that ended the line: 2 for CRLF,
	// 1 for LF and 0 when the line ended at the end of input or is a fragment.
	Break int

	// Start is true when this line begins at the start of a line. It is false
	// for the second and later fragments of an overlong line.
	Start bool

	// Partial is true when the line continues in the next fragment.
	Partial bool
}

// End returns the offset immediately after the line, including its line break.
func (l *Line) End() int64 {
	return l.Offset + int64(len(l.Content)+l.Break)
}

// Whole returns true when the line was read in one piece.
func (l *Line) Whole() bool {
	return l.Start && !l.Partial
}

// Blank returns true when the line is complete and empty.
func (l *Line) Blank() bool {
	return l.Whole() && len(l.Content) == 0
}

// Reader reads lines from a range of an io.ReaderAt.
type Reader struct {
	br        *bufio.Reader
	offset    int64
	lineStart bool
}

// New returns a Reader over [start, end) of r. A negative end reads to the end
// of r.
func New(r io.ReaderAt, start, end int64) *Reader {
	return NewSize(r, start, end, DefaultBufferSize)
}

// NewSize works like New, but sets the size of the read buffer.
func NewSize(r io.ReaderAt, start, end int64, size int) *Reader {
	n := end - start
	if end < 0 {
		n = 1<<63 - 1 - start
	}
	if n < 0 {
		n = 0
	}
	return &Reader{
		br:        bufio.NewReaderSize(io.NewSectionReader(r, start, n), size),
		offset:    start,
		lineStart: true,
	}
}

// Offset returns the offset of the next byte to be read.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next returns the next line. It returns io.EOF when the range is exhausted.
// Any other error comes from the underlying reader.
func (r *Reader) Next() (Line, error) {
	b, err := r.br.ReadSlice('\n')
	if len(b) == 0 {
		if err == nil || errors.Is(err, bufio.ErrBufferFull) {
			err = io.ErrNoProgress
		}
		return Line{}, err
	}

	line := Line{
		Offset: r.offset,
		Start:  r.lineStart,
	}

	switch {
	case err == nil:
		line.Break = 1
		if len(b) > 1 && b[len(b)-2] == '\r' {
			line.Break = 2
		}
	case errors.Is(err, bufio.ErrBufferFull):
		// a CR at the very end of the buffer might be half of a CRLF, so hold
		// it back for the next fragment
		if b[len(b)-1] == '\r' && len(b) > 1 {
			b = b[:len(b)-1]
			_ = r.br.UnreadByte()
		}
		line.Partial = true
	case errors.Is(err, io.EOF):
		// final line without a line break
	default:
		return Line{}, err
	}

	line.Content = b[:len(b)-line.Break]
	r.offset += int64(len(b))
	r.lineStart = !line.Partial

	return line, nil
}
