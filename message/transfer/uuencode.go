package transfer

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// uuDecoder decodes uuencoded data, as produced by the uuencode utility and
// occasionally labeled x-uuencode in mail. The "begin" and "end" lines are
// skipped, as is anything else that is not a valid data line.
type uuDecoder struct {
	r    *bufio.Reader
	out  []byte
	done bool
}

// NewUUDecoder returns an io.Reader that decodes uuencoded data read from r.
func NewUUDecoder(r io.Reader) io.Reader {
	return &uuDecoder{r: bufio.NewReader(r)}
}

// decodeUULine decodes a single uuencoded line. The first character gives the
// number of decoded bytes on the line.
func decodeUULine(line []byte) []byte {
	if len(line) == 0 {
		return nil
	}

	n := int((line[0] - ' ') & 0x3f)
	if n == 0 {
		return nil
	}

	out := make([]byte, 0, n)
	data := line[1:]
	for i := 0; len(out) < n; i += 4 {
		var q [4]byte
		for j := 0; j < 4; j++ {
			if i+j < len(data) {
				q[j] = (data[i+j] - ' ') & 0x3f
			}
		}
		out = append(out, q[0]<<2|q[1]>>4, q[1]<<4|q[2]>>2, q[2]<<6|q[3])
		if i+4 >= len(data) {
			break
		}
	}

	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Read implements io.Reader.
func (d *uuDecoder) Read(p []byte) (int, error) {
	for len(d.out) == 0 {
		if d.done {
			return 0, io.EOF
		}

		line, err := d.r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			d.done = true
		} else if err != nil {
			return 0, err
		}

		line = bytes.TrimRight(line, "\r\n")
		switch {
		case bytes.HasPrefix(line, []byte("begin ")):
			continue
		case bytes.Equal(line, []byte("end")):
			d.done = true
			continue
		}

		d.out = append(d.out, decodeUULine(line)...)
	}

	n := copy(p, d.out)
	d.out = d.out[:copy(d.out, d.out[n:])]
	return n, nil
}
