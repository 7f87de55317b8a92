package transfer

import (
	"bufio"
	"errors"
	"io"
)

// base64Values maps each byte of the base64 alphabet to its 6-bit value. Any
// other byte maps to 0xff.
var base64Values = func() [256]byte {
	var vs [256]byte
	for i := range vs {
		vs[i] = 0xff
	}
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	for i := 0; i < len(alphabet); i++ {
		vs[alphabet[i]] = byte(i)
	}
	return vs
}()

// base64Decoder decodes base64 a quantum at a time. Line breaks, whitespace and
// any other byte outside the alphabet are skipped. Padding ends the current
// quantum, which allows several base64 blocks to be concatenated.
type base64Decoder struct {
	r       *bufio.Reader
	quad    [4]byte
	n       int
	out     [3]byte
	pending []byte
	eof     bool
}

// NewBase64Decoder will translate all bytes read from the given io.Reader as
// base64 and return the binary data to the returned io.Reader.
func NewBase64Decoder(r io.Reader) io.Reader {
	return &base64Decoder{r: bufio.NewReader(r)}
}

// flush turns the collected sextets into output bytes. A lone sextet carries
// less than a byte of data and is dropped.
func (d *base64Decoder) flush() {
	q := d.quad
	d.out = [3]byte{q[0]<<2 | q[1]>>4, q[1]<<4 | q[2]>>2, q[2]<<6 | q[3]}
	if d.n > 1 {
		d.pending = d.out[:d.n-1]
	}
	d.n = 0
	d.quad = [4]byte{}
}

// Read implements io.Reader.
func (d *base64Decoder) Read(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if len(d.pending) > 0 {
			n := copy(p[written:], d.pending)
			d.pending = d.pending[n:]
			written += n
			continue
		}

		if d.eof {
			if written == 0 {
				return 0, io.EOF
			}
			return written, nil
		}

		c, err := d.r.ReadByte()
		if errors.Is(err, io.EOF) {
			d.eof = true
			d.flush()
			continue
		} else if err != nil {
			return written, err
		}

		if c == '=' {
			d.flush()
			continue
		}

		v := base64Values[c]
		if v == 0xff {
			continue
		}

		d.quad[d.n] = v
		d.n++
		if d.n == 4 {
			d.flush()
		}
	}
	return written, nil
}
