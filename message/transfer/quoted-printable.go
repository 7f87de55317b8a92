package transfer

import (
	"bufio"
	"bytes"
	"io"
)

// maxSoftBreakPadding is the amount of whitespace permitted between an "=" and
// the line break that makes it a soft line break.
const maxSoftBreakPadding = 64

// qpDecoder decodes quoted-printable data. Unlike mime/quotedprintable, it
// never returns an error for malformed input: an "=" that does not start a
// valid escape or soft line break is passed through literally.
type qpDecoder struct {
	r   *bufio.Reader
	ws  []byte // whitespace held back until we know it is not trailing
	out []byte
}

// NewQuotedPrintableDecoder will read bytes from the given io.Reader and return
// them in the returned io.Reader after decoding them from quoted-printable
// format.
func NewQuotedPrintableDecoder(r io.Reader) io.Reader {
	return &qpDecoder{r: bufio.NewReaderSize(r, 4096)}
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// softBreak checks whether the bytes following an "=" are optional whitespace
// and a line break. If so, it consumes them and returns true.
func (d *qpDecoder) softBreak() bool {
	for n := 1; n <= maxSoftBreakPadding; n++ {
		peek, _ := d.r.Peek(n)
		if len(peek) < n {
			// "=" at the very end of input is a soft break too
			if len(bytes.Trim(peek, " \t")) == 0 {
				_, _ = d.r.Discard(len(peek))
				return true
			}
			return false
		}
		switch peek[n-1] {
		case ' ', '\t':
			continue
		case '\n':
			_, _ = d.r.Discard(n)
			return true
		case '\r':
			peek, _ = d.r.Peek(n + 1)
			if len(peek) == n+1 && peek[n] == '\n' {
				_, _ = d.r.Discard(n + 1)
			} else {
				_, _ = d.r.Discard(n)
			}
			return true
		default:
			return false
		}
	}
	return false
}

// next decodes the next unit of input into d.out.
func (d *qpDecoder) next() error {
	c, err := d.r.ReadByte()
	if err != nil {
		// trailing whitespace at the end of input is dropped with the line
		d.ws = d.ws[:0]
		return err
	}

	switch c {
	case ' ', '\t':
		d.ws = append(d.ws, c)
		return nil
	case '\r', '\n':
		d.ws = d.ws[:0]
		d.out = append(d.out, c)
		return nil
	}

	d.out = append(d.out, d.ws...)
	d.ws = d.ws[:0]

	if c != '=' {
		d.out = append(d.out, c)
		return nil
	}

	if d.softBreak() {
		return nil
	}

	hex, _ := d.r.Peek(2)
	if len(hex) == 2 {
		hi, ok1 := unhex(hex[0])
		lo, ok2 := unhex(hex[1])
		if ok1 && ok2 {
			_, _ = d.r.Discard(2)
			d.out = append(d.out, hi<<4|lo)
			return nil
		}
	}

	d.out = append(d.out, '=')
	return nil
}

// Read implements io.Reader.
func (d *qpDecoder) Read(p []byte) (int, error) {
	for len(d.out) == 0 {
		if err := d.next(); err != nil {
			return 0, err
		}
	}

	n := copy(p, d.out)
	d.out = d.out[:copy(d.out, d.out[n:])]
	return n, nil
}
