package source

import "io"

// remainder takes the bytes already read from an io.Reader and makes a new
// reader that returns those bytes first and then passes the reads from the
// unread part of the io.Reader on to the caller.
type remainder struct {
	prefix []byte
	r      io.Reader
}

// Read reads from the prefix buffer first, if any bytes remain. Once those
// bytes have been consumed, it starts consuming bytes from the io.Reader.
func (r *remainder) Read(p []byte) (n int, err error) {
	if len(r.prefix) > 0 {
		n = copy(p, r.prefix)
		r.prefix = r.prefix[n:]
		return n, nil
	}

	return r.r.Read(p)
}
