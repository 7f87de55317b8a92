package field

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/zostay/go-mailmime/message/charset"
	"github.com/zostay/go-mailmime/message/header/param"
)

// Errors returned by Parse for lines that are not header fields.
var (
	// ErrNoColon is returned when the line has no colon separating the name
	// from the value.
	ErrNoColon = errors.New("header field has no colon")

	// ErrBadName is returned when the text before the colon is not a valid
	// header field name.
	ErrBadName = errors.New("invalid header field name")
)

// Field is a single header field. A Field is immutable.
type Field struct {
	name   string
	value  string
	raw    []byte
	offset int64
}

// New creates a field from a name and an unfolded value.
func New(name, value string) *Field {
	return &Field{
		name:   name,
		value:  value,
		raw:    []byte(name + ": " + value),
		offset: -1,
	}
}

// validName reports whether n is made only of printable ASCII other than the
// colon.
func validName(n []byte) bool {
	if len(n) == 0 {
		return false
	}
	for _, c := range n {
		if c <= ' ' || c > '~' || c == ':' {
			return false
		}
	}
	return true
}

// Parse builds a field from the raw bytes of a header line, including any
// folded continuation lines but without the final line break. The offset is
// where the line starts in the message.
//
// If the line is not a header field, a nil Field is returned with ErrNoColon
// or ErrBadName.
func Parse(raw []byte, offset int64) (*Field, error) {
	ix := bytes.IndexByte(raw, ':')
	if ix < 0 {
		return nil, ErrNoColon
	}

	// tolerate "Subject : value"
	name := bytes.TrimRight(raw[:ix], " \t")
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrBadName, name)
	}

	return &Field{
		name:   string(name),
		value:  Unfold(raw[ix+1:]),
		raw:    raw,
		offset: offset,
	}, nil
}

// Unfold joins folded lines into a single line. Each line is trimmed of
// surrounding whitespace and the lines are joined with a single space.
func Unfold(b []byte) string {
	if !bytes.ContainsAny(b, "\r\n") {
		return string(bytes.TrimSpace(b))
	}

	var sb strings.Builder
	for _, line := range bytes.Split(b, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.Write(line)
	}
	return sb.String()
}

// Name returns the name of the header field as it appeared in the message.
func (f *Field) Name() string {
	return f.name
}

// Is returns true if the field has the given name. Names are compared
// case-insensitively.
func (f *Field) Is(name string) bool {
	return strings.EqualFold(f.name, name)
}

// Value returns the unfolded value of the field, without decoding any
// encoded words.
func (f *Field) Value() string {
	return f.value
}

// Body returns the value of the field with any RFC 2047 encoded words decoded
// into UTF-8. If decoding fails, the undecoded value is returned.
func (f *Field) Body() string {
	b, err := Decode(f.value)
	if err != nil {
		return f.value
	}
	return b
}

// Raw returns the original bytes of the field, including folding.
func (f *Field) Raw() []byte {
	return f.raw
}

// Offset returns the offset of the field within the message. Fields created
// with New have an offset of -1.
func (f *Field) Offset() int64 {
	return f.offset
}

// Params parses the value as a parameterized value. A best-effort value is
// returned even when the error is not nil.
func (f *Field) Params() (*param.Value, error) {
	return param.Parse(f.value)
}

// String returns the field as "Name: value".
func (f *Field) String() string {
	return f.name + ": " + f.value
}

// Decode transforms a single header field body and looks for MIME word encoded
// field values. When they are found, these are decoded into native unicode.
func Decode(body string) (string, error) {
	if !strings.Contains(body, "=?") {
		return body, nil
	}

	dec := &mime.WordDecoder{
		CharsetReader: charset.CharsetReader,
	}

	return dec.DecodeHeader(body)
}
