// Package boundary splits the body of a multipart entity into the byte ranges
// of its parts by scanning for delimiter lines.
//
// A delimiter line is "--" followed by the boundary token and a closing
// delimiter line has a further "--" appended. Trailing whitespace on either
// is ignored. The line break that precedes a delimiter line belongs to the
// delimiter, not to the part before it.
package boundary

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/zostay/go-mailmime/internal/scanner"
)

// Range is a half-open range of offsets, [Start, End).
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// Result is the outcome of scanning a multipart body.
type Result struct {
	// Parts holds the content range of each part, in order. The range starts
	// after the delimiter line and ends before the line break preceding the
	// next delimiter.
	Parts []Range

	// Preamble is the content before the first delimiter line. If no
	// delimiter was found, it covers the whole scanned range.
	Preamble Range

	// Epilogue is the content after the closing delimiter line. It is empty
	// when the closing delimiter is missing.
	Epilogue Range

	// Found is true if at least one delimiter line was seen.
	Found bool

	// Terminated is true if the closing delimiter line was seen.
	Terminated bool
}

// ErrEmptyToken is returned when Scan is called without a boundary token.
var ErrEmptyToken = errors.New("empty boundary token")

// matcher recognizes the delimiter lines of a single boundary token.
type matcher struct {
	open  []byte
	close []byte
}

func newMatcher(token string) *matcher {
	open := []byte("--" + token)
	return &matcher{
		open:  open,
		close: append(append([]byte{}, open...), '-', '-'),
	}
}

// match returns whether the line is a delimiter line and, if it is, whether
// it is the closing delimiter.
func (m *matcher) match(line []byte) (isDelim, isClose bool) {
	if !bytes.HasPrefix(line, m.open) {
		return false, false
	}

	line = bytes.TrimRight(line, " \t")
	switch {
	case bytes.Equal(line, m.open):
		return true, false
	case bytes.Equal(line, m.close):
		return true, true
	}
	return false, false
}

// Scan reads [start, end) of src looking for delimiter lines of the given
// boundary token. A negative end scans to the end of src. Lines are matched
// against this token only, so delimiters of nested multiparts that use other
// tokens are left inside the part ranges.
//
// A missing closing delimiter is not an error: the last part runs to the end
// of the range. The only errors returned are ErrEmptyToken and those of the
// underlying reader.
func Scan(src io.ReaderAt, start, end int64, token string) (*Result, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	var (
		m         = newMatcher(token)
		s         = scanner.New(src, start, end)
		res       = &Result{}
		partStart = start
		lastBreak = 0
	)

	// contentEnd is where the content before a delimiter at off stops
	contentEnd := func(off int64) int64 {
		e := off - int64(lastBreak)
		if e < partStart {
			e = partStart
		}
		return e
	}

	for {
		line, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("unable to scan for boundary: %w", err)
		}

		isDelim, isClose := false, false
		if line.Whole() {
			isDelim, isClose = m.match(line.Content)
		}

		if !isDelim {
			lastBreak = line.Break
			continue
		}

		cut := contentEnd(line.Offset)
		if res.Found {
			res.Parts = append(res.Parts, Range{partStart, cut})
		} else {
			res.Preamble = Range{start, cut}
			res.Found = true
		}

		if isClose {
			res.Terminated = true
			return res, drain(s, res, line.End())
		}

		partStart = line.End()
		lastBreak = 0
	}

	stop := s.Offset()
	if !res.Found {
		res.Preamble = Range{start, stop}
	} else {
		res.Parts = append(res.Parts, Range{partStart, stop})
	}
	res.Epilogue = Range{stop, stop}

	return res, nil
}

// drain reads the rest of the range to find where the epilogue ends.
func drain(s *scanner.Reader, res *Result, epilogueStart int64) error {
	for {
		_, err := s.Next()
		if errors.Is(err, io.EOF) {
			res.Epilogue = Range{epilogueStart, s.Offset()}
			return nil
		} else if err != nil {
			return fmt.Errorf("unable to scan epilogue: %w", err)
		}
	}
}
