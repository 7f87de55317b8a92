// Package charset converts decoded body bytes from the charset a part declares
// into the charset the caller wants to read text in. Conversion is
// best-effort: a charset that cannot be identified results in the bytes being
// passed through unchanged and the conversion being flagged as a fallback,
// never in an error.
//
// Charset names are matched case-insensitively and a wide range of aliases is
// recognized through golang.org/x/text/encoding/ianaindex and htmlindex.
package charset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	_ "golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names with special handling.
const (
	UTF8    = "utf-8"
	USASCII = "us-ascii"
)

// DefaultTarget is the charset text is converted into unless configured
// otherwise.
const DefaultTarget = UTF8

// ErrUnknownCharset is returned when a charset name cannot be resolved to an
// encoding.
var ErrUnknownCharset = errors.New("unknown charset")

// aliases holds names seen in the wild that the indexes do not know about.
var aliases = map[string]string{
	"utf8":            UTF8,
	"ascii":           USASCII,
	"ansi_x3.4-1968":  USASCII,
	"iso646-us":       USASCII,
	"646":             USASCII,
	"latin1":          "iso-8859-1",
	"latin-1":         "iso-8859-1",
	"iso8859-1":       "iso-8859-1",
	"iso_8859-1":      "iso-8859-1",
	"latin2":          "iso-8859-2",
	"iso8859-2":       "iso-8859-2",
	"iso8859-15":      "iso-8859-15",
	"cp1250":          "windows-1250",
	"cp1251":          "windows-1251",
	"cp1252":          "windows-1252",
	"win-1252":        "windows-1252",
	"ks_c_5601-1987":  "euc-kr",
	"x-sjis":          "shift_jis",
	"gb2312":          "gbk",
	"x-gbk":           "gbk",
	"cp932":           "shift_jis",
	"cp936":           "gbk",
	"cp949":           "euc-kr",
	"cp950":           "big5",
	"gb-18030":        "gb18030",
}

// Normalize lower-cases the charset name, strips surrounding whitespace and
// quotes and maps well-known aliases onto their canonical name.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.Trim(n, `"'`)
	n = strings.TrimSpace(n)
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

// isIdentity returns true for charsets whose bytes are already valid in a
// UTF-8 reading without transformation.
func isIdentity(name string) bool {
	return name == UTF8 || name == USASCII
}

// Lookup resolves a charset name to an encoding. The second value is false
// when the charset is not recognized.
func Lookup(name string) (encoding.Encoding, bool) {
	n := Normalize(name)
	if n == "" {
		return nil, false
	}

	if isIdentity(n) {
		return unicode.UTF8, true
	}

	if e, err := ianaindex.MIME.Encoding(n); err == nil && e != nil {
		return e, true
	}

	if e, err := ianaindex.IANA.Encoding(n); err == nil && e != nil {
		return e, true
	}

	if e, err := htmlindex.Get(n); err == nil && e != nil {
		return e, true
	}

	return nil, false
}

// Known returns true if the charset name can be resolved.
func Known(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Converter transforms text from declared charsets into its target charset.
// A Converter is immutable and safe for concurrent use.
type Converter struct {
	target string
	enc    encoding.Encoding
}

// NewConverter returns a Converter producing text in the named target
// charset. It returns ErrUnknownCharset if the target cannot be resolved.
func NewConverter(target string) (*Converter, error) {
	if target == "" {
		target = DefaultTarget
	}

	n := Normalize(target)
	enc, ok := Lookup(n)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, target)
	}

	if n == USASCII {
		n = UTF8
	}

	return &Converter{target: n, enc: enc}, nil
}

// Target returns the normalized name of the target charset.
func (c *Converter) Target() string {
	return c.target
}

// Reader returns a reader producing the content of r converted from the
// declared charset into the target charset. The second value reports a
// fallback: the declared charset could not be resolved and the bytes are
// returned unchanged.
func (c *Converter) Reader(declared string, r io.Reader) (io.Reader, bool) {
	n := Normalize(declared)
	if n == "" {
		n = USASCII
	}

	if n == c.target || isIdentity(n) && c.target == UTF8 {
		return r, false
	}

	src, ok := Lookup(n)
	if !ok {
		return r, true
	}

	if !isIdentity(n) {
		r = transform.NewReader(r, src.NewDecoder())
	}

	if c.target != UTF8 {
		r = transform.NewReader(r, encoding.ReplaceUnsupported(c.enc.NewEncoder()))
	}

	return r, false
}

// Bytes converts b from the declared charset into the target charset. The
// second value reports a fallback as for Reader.
func (c *Converter) Bytes(declared string, b []byte) ([]byte, bool, error) {
	r, fallback := c.Reader(declared, bytes.NewReader(b))
	out, err := io.ReadAll(r)
	return out, fallback, err
}

// CharsetReader adapts charset conversion for mime.WordDecoder. Text is
// always decoded into UTF-8. An unknown charset is an error so the decoder
// leaves the encoded word untouched.
func CharsetReader(name string, r io.Reader) (io.Reader, error) {
	n := Normalize(name)
	if isIdentity(n) {
		return r, nil
	}

	e, ok := Lookup(n)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
	}

	return transform.NewReader(r, e.NewDecoder()), nil
}

// DecodeString decodes s from the named charset into UTF-8. It is used for
// RFC 2231 parameter values.
func DecodeString(name, s string) (string, error) {
	r, err := CharsetReader(name, strings.NewReader(s))
	if err != nil {
		return s, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return s, err
	}
	return string(b), nil
}

// DetectSampleSize is the number of bytes Detect looks at.
const DetectSampleSize = 4096

// Detect guesses the charset of a sample of text. It returns false when no
// guess could be made. Pure ASCII samples are reported as us-ascii without
// consulting the detector.
func Detect(sample []byte) (string, bool) {
	if len(sample) > DetectSampleSize {
		sample = sample[:DetectSampleSize]
	}

	ascii := true
	for _, c := range sample {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return USASCII, true
	}

	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || res == nil {
		return "", false
	}

	n := Normalize(res.Charset)
	if !Known(n) {
		return "", false
	}

	return n, true
}
