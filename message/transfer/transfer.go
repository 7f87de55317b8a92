package transfer

import (
	"io"
	"strings"
)

// Names of the transfer encodings recognized by this package.
const (
	None            = ""                 // bytes will be left as-is
	Bit7            = "7bit"             // bytes will be left as-is
	Bit8            = "8bit"             // bytes will be left as-is
	Binary          = "binary"           // bytes will be left as-is
	QuotedPrintable = "quoted-printable" // bytes will be decoded from quoted-printable
	Base64          = "base64"           // bytes will be decoded from base64
	UUEncode        = "x-uuencode"       // bytes will be decoded from uuencode
)

// Default is the transfer encoding assumed when none is declared.
const Default = Bit7

// Decoder returns an io.Reader that decodes the data read from the given
// io.Reader.
type Decoder func(io.Reader) io.Reader

// Decoders defines the supported Content-transfer-encodings and how to decode
// them. Keys are normalized names.
var Decoders = map[string]Decoder{
	Bit7:            NewAsIsDecoder,
	Bit8:            NewAsIsDecoder,
	Binary:          NewAsIsDecoder,
	QuotedPrintable: NewQuotedPrintableDecoder,
	Base64:          NewBase64Decoder,
	UUEncode:        NewUUDecoder,
}

// aliases maps names seen in the wild onto the names in Decoders.
var aliases = map[string]string{
	"uuencode": UUEncode,
	"x-uue":    UUEncode,
	"uue":      UUEncode,
	"7-bit":    Bit7,
	"8-bit":    Bit8,
}

// Normalize lower-cases and trims a Content-transfer-encoding value and maps
// aliases to their canonical name. An empty value normalizes to Default.
func Normalize(cte string) string {
	n := strings.ToLower(strings.TrimSpace(cte))
	n = strings.Trim(n, `"`)
	if n == None {
		return Default
	}
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

// IsKnown returns true if the transfer encoding has a decoder.
func IsKnown(cte string) bool {
	_, ok := Decoders[Normalize(cte)]
	return ok
}

// IsIdentity returns true if the transfer encoding leaves bytes as-is,
// including encodings that are not recognized.
func IsIdentity(cte string) bool {
	switch Normalize(cte) {
	case QuotedPrintable, Base64, UUEncode:
		return false
	default:
		return true
	}
}

// NewDecoder returns an io.Reader that decodes r according to the named
// transfer encoding. Unknown encodings are read as-is.
func NewDecoder(cte string, r io.Reader) io.Reader {
	if dec, ok := Decoders[Normalize(cte)]; ok {
		return dec(r)
	}
	return NewAsIsDecoder(r)
}
