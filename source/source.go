// Package source provides the byte storage that every other layer of the
// parser reads from. A Source is addressed by offset rather than by cursor so
// that the same range may be read any number of times, during parsing and long
// after, when the content of a part is finally decoded.
//
// Small messages are held in memory. Larger messages are spooled to a
// temporary file once they grow past the memory limit. Callers above this
// package cannot tell the difference.
package source

import (
	"bytes"
	"errors"
	"io"
	"os"
)

const (
	// DefaultMemoryLimit is the number of bytes FromReader will hold in memory
	// before spooling the message to a temporary file.
	DefaultMemoryLimit = 8 << 20

	// chunkSize is the size of the reads made while spooling input.
	chunkSize = 32 << 10
)

// Errors returned while building a Source.
var (
	// ErrTooLarge is returned by FromReader when the input exceeds the size
	// configured with WithMaxSize.
	ErrTooLarge = errors.New("message exceeds the maximum size")
)

// Source is a seekable, re-readable byte stream of known length. Reads are
// always addressed by offset. Implementations must allow concurrent calls to
// ReadAt.
type Source interface {
	io.ReaderAt
	io.Closer

	// Size returns the total number of bytes in the source.
	Size() int64
}

// ReadRange returns the bytes in [start, end). A range extending past the end
// of the source is truncated rather than treated as an error, since messages
// are frequently cut short.
func ReadRange(src Source, start, end int64) ([]byte, error) {
	start, end = Clamp(src, start, end)
	buf := make([]byte, end-start)
	n, err := src.ReadAt(buf, start)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return buf[:n], err
}

// Section returns a fresh reader over [start, end), clamped to the size of the
// source. Each call returns an independent reader.
func Section(src Source, start, end int64) *io.SectionReader {
	start, end = Clamp(src, start, end)
	return io.NewSectionReader(src, start, end-start)
}

// Clamp restricts [start, end) to the bounds of the source. A negative end
// means the end of the source.
func Clamp(src Source, start, end int64) (int64, int64) {
	size := src.Size()
	if end < 0 || end > size {
		end = size
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return start, end
}

// memory is a Source held entirely in memory.
type memory struct {
	*bytes.Reader
}

// Close is a no-op.
func (m *memory) Close() error { return nil }

// FromBytes returns a memory backed Source. The slice must not be modified
// while the Source is in use.
func FromBytes(b []byte) Source {
	return &memory{bytes.NewReader(b)}
}

// file is a Source backed by a file on disk.
type file struct {
	f      *os.File
	size   int64
	remove bool
}

// ReadAt reads from the underlying file.
func (f *file) ReadAt(p []byte, off int64) (int, error) {
	return f.f.ReadAt(p, off)
}

// Size returns the size of the file when the source was created.
func (f *file) Size() int64 {
	return f.size
}

// Close closes the file and, for spooled input, removes it.
func (f *file) Close() error {
	err := f.f.Close()
	if f.remove {
		if rerr := os.Remove(f.f.Name()); err == nil {
			err = rerr
		}
	}
	return err
}

// FromFile returns a Source reading from an open file. Closing the Source
// closes the file. The file must not be written to while the Source is in use.
func FromFile(f *os.File) (Source, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &file{f: f, size: fi.Size()}, nil
}

type options struct {
	memoryLimit int64
	maxSize     int64
	tempDir     string
}

// Option configures FromReader.
type Option func(*options)

// WithMemoryLimit sets the number of bytes held in memory before the input is
// spooled to disk. A value less than or equal to 0 keeps everything in memory.
func WithMemoryLimit(n int64) Option {
	return func(o *options) { o.memoryLimit = n }
}

// WithMaxSize sets the maximum number of bytes FromReader will accept. A value
// less than or equal to 0 means no limit.
func WithMaxSize(n int64) Option {
	return func(o *options) { o.maxSize = n }
}

// WithTempDir sets the directory used for spooled input. The default is
// os.TempDir().
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// FromReader copies r into a new Source. Input up to the memory limit is kept
// in memory; anything larger is written to a temporary file which is removed
// when the Source is closed.
func FromReader(r io.Reader, opts ...Option) (Source, error) {
	o := &options{memoryLimit: DefaultMemoryLimit}
	for _, opt := range opts {
		opt(o)
	}

	buf := &bytes.Buffer{}
	p := make([]byte, chunkSize)
	for {
		n, err := r.Read(p)
		buf.Write(p[:n])

		if o.maxSize > 0 && int64(buf.Len()) > o.maxSize {
			return nil, ErrTooLarge
		}

		if errors.Is(err, io.EOF) {
			return FromBytes(buf.Bytes()), nil
		} else if err != nil {
			return nil, err
		}

		if o.memoryLimit > 0 && int64(buf.Len()) > o.memoryLimit {
			return spool(&remainder{buf.Bytes(), r}, o)
		}
	}
}

// spool writes the rest of the input to a temporary file.
func spool(r io.Reader, o *options) (Source, error) {
	f, err := os.CreateTemp(o.tempDir, "mailmime-")
	if err != nil {
		return nil, err
	}

	fail := func(err error) (Source, error) {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}

	if o.maxSize > 0 {
		r = io.LimitReader(r, o.maxSize+1)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		return fail(err)
	}

	if o.maxSize > 0 && n > o.maxSize {
		return fail(ErrTooLarge)
	}

	return &file{f: f, size: n, remove: true}, nil
}
