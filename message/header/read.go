package header

import (
	"errors"
	"fmt"
	"io"

	"github.com/zostay/go-mailmime/internal/scanner"
	"github.com/zostay/go-mailmime/message/header/field"
)

// DefaultMaxLength is the default number of bytes of header text Read will
// retain.
const DefaultMaxLength = 64 * 1024

// Malformed is a header line that could not be read as a field.
type Malformed struct {
	// Offset is where the line starts in the message.
	Offset int64

	// Raw holds the line, including any continuation lines.
	Raw []byte

	// Err says what is wrong with the line.
	Err error
}

// reader holds the state of a single call to Read.
type reader struct {
	maxLength int

	h        *Header
	retained int

	cur       []byte
	curOffset int64
	lastBreak int
}

// ReadOption configures Read.
type ReadOption func(*reader)

// WithMaxLength sets the number of bytes of header text Read will retain. Once
// the limit is reached, the rest of the header is skipped and the header is
// marked truncated. A value less than or equal to 0 removes the limit.
func WithMaxLength(n int) ReadOption {
	return func(r *reader) {
		r.maxLength = n
	}
}

// Read reads the header block found in [start, end) of src. Reading stops at
// the first blank line or at end. A negative end reads to the end of src.
//
// It returns the header and the offset of the first byte after the blank line,
// which is where the body begins. If no blank line is found, the body offset
// is the end of the range and the body is empty.
//
// The only errors returned are those of the underlying reader.
func Read(src io.ReaderAt, start, end int64, opts ...ReadOption) (*Header, int64, error) {
	r := &reader{
		maxLength: DefaultMaxLength,
		h:         &Header{},
	}
	for _, opt := range opts {
		opt(r)
	}

	s := scanner.New(src, start, end)
	for {
		line, err := s.Next()
		if errors.Is(err, io.EOF) {
			r.flush()
			return r.h, s.Offset(), nil
		} else if err != nil {
			return nil, 0, fmt.Errorf("unable to read header: %w", err)
		}

		if r.h.lbr == Meh {
			r.h.lbr = breakOfLen(line.Break)
		}

		if line.Blank() {
			r.flush()
			return r.h, line.End(), nil
		}

		r.add(&line)
	}
}

// add accumulates a line, starting a new field when the line does not
// continue the previous one.
func (r *reader) add(line *scanner.Line) {
	continued := !line.Start ||
		len(line.Content) > 0 && (line.Content[0] == ' ' || line.Content[0] == '\t')

	if !continued || r.cur == nil {
		r.flush()
		r.curOffset = line.Offset
		r.cur = []byte{}
	}

	if r.h.truncated {
		return
	}

	n := len(line.Content) + line.Break
	if r.maxLength > 0 && r.retained+n > r.maxLength {
		r.h.truncated = true
		return
	}
	r.retained += n

	if line.Start && len(r.cur) > 0 {
		r.cur = append(r.cur, breakOfLen(r.lastBreak)...)
	}
	r.cur = append(r.cur, line.Content...)
	r.lastBreak = line.Break
}

// flush turns the accumulated lines into a field or a malformed line.
func (r *reader) flush() {
	if len(r.cur) == 0 {
		r.cur = nil
		return
	}

	raw := r.cur
	r.cur = nil

	f, err := field.Parse(raw, r.curOffset)
	if err != nil {
		r.h.malformed = append(r.h.malformed, Malformed{
			Offset: r.curOffset,
			Raw:    raw,
			Err:    err,
		})
		return
	}

	r.h.fields = append(r.h.fields, f)
}
