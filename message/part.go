package message

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/zostay/go-mailmime/message/charset"
	"github.com/zostay/go-mailmime/message/header"
	"github.com/zostay/go-mailmime/message/header/param"
	"github.com/zostay/go-mailmime/message/transfer"
	"github.com/zostay/go-mailmime/source"
)

// Part is one node of a parsed message. A part is either a container, with
// sub-parts, or a leaf, with content. Containers are multipart/* parts and
// message/rfc822 parts, the latter always holding exactly one sub-part for
// the embedded message.
//
// The content of a part is not decoded during parsing. Each call to Reader()
// or TextReader() decodes it afresh from the source, so content may be read
// any number of times and parts may be read concurrently.
//
// The offsets of a part refer to its source. For parts inside an embedded
// message that was itself transfer encoded, that is the decoded copy of the
// embedded message rather than the original input.
type Part struct {
	// Header holds the header fields of the part.
	header.Header

	src  source.Source
	conv *charset.Converter

	headerOffset int64
	bodyOffset   int64
	endOffset    int64

	contentType      *param.Value
	disposition      string
	transferEncoding string
	charset          string
	declaredCharset  bool
	charsetFallback  bool

	depth   int
	parts   []*Part
	defects []Defect

	detect     bool
	detectOnce sync.Once
	detected   string
}

// MediaType returns the media type of the part, e.g., "text/plain". This is
// text/plain when no valid Content-type is given, or message/rfc822 inside a
// multipart/digest.
func (p *Part) MediaType() string {
	return p.contentType.MediaType()
}

// Type returns the primary type of the media type, e.g., "text".
func (p *Part) Type() string {
	return p.contentType.Type()
}

// Subtype returns the subtype of the media type, e.g., "plain".
func (p *Part) Subtype() string {
	return p.contentType.Subtype()
}

// ContentType returns the Content-type of the part with its parameters. It is
// never nil.
func (p *Part) ContentType() *param.Value {
	return p.contentType
}

// Charset returns the charset of the part: the declared charset, or the
// default charset when none is declared.
func (p *Part) Charset() string {
	return p.charset
}

// DeclaredCharset returns true if the part declares its charset.
func (p *Part) DeclaredCharset() bool {
	return p.declaredCharset
}

// CharsetFallback returns true if the declared charset is not recognized. The
// text of such a part is its decoded bytes without any charset conversion.
func (p *Part) CharsetFallback() bool {
	return p.charsetFallback
}

// TransferEncoding returns the normalized Content-transfer-encoding of the
// part. This is 7bit when none is declared.
func (p *Part) TransferEncoding() string {
	return p.transferEncoding
}

// Boundary returns the boundary parameter of the Content-type.
func (p *Part) Boundary() string {
	return p.contentType.Boundary()
}

// Disposition returns the lower-cased Content-disposition, e.g., "inline" or
// "attachment". It is empty when none is given.
func (p *Part) Disposition() string {
	return p.disposition
}

// Filename returns the file name of the part from the Content-disposition, or
// from the Content-type name parameter.
func (p *Part) Filename() string {
	fn, _ := p.GetFilename()
	return fn
}

// ContentID returns the Content-id of the part without the angle brackets.
func (p *Part) ContentID() string {
	id, _ := p.GetContentID()
	return strings.Trim(strings.TrimSpace(id), "<>")
}

// HeaderOffset returns the offset of the first byte of the header.
func (p *Part) HeaderOffset() int64 {
	return p.headerOffset
}

// BodyOffset returns the offset of the first byte of the body.
func (p *Part) BodyOffset() int64 {
	return p.bodyOffset
}

// EndOffset returns the offset immediately after the last byte of the body.
func (p *Part) EndOffset() int64 {
	return p.endOffset
}

// Range returns the range of the raw body, [BodyOffset(), EndOffset()).
func (p *Part) Range() (int64, int64) {
	return p.bodyOffset, p.endOffset
}

// Size returns the length of the raw body.
func (p *Part) Size() int64 {
	return p.endOffset - p.bodyOffset
}

// Parts returns the sub-parts of a container. It returns nil for a leaf.
func (p *Part) Parts() []*Part {
	return p.parts
}

// IsMultipart returns true if the part has sub-parts.
func (p *Part) IsMultipart() bool {
	return len(p.parts) > 0
}

// IsEmbedded returns true if the part is a message/rfc822 container.
func (p *Part) IsEmbedded() bool {
	return p.IsMultipart() && p.Type() == "message"
}

// Depth returns how deeply the part is nested. The message itself is at depth
// 0.
func (p *Part) Depth() int {
	return p.depth
}

// Defects returns the problems found while parsing this part, not including
// those of its sub-parts.
func (p *Part) Defects() []Defect {
	return p.defects
}

// HasDefect returns true if the part has a defect of the given kind.
func (p *Part) HasDefect(kind DefectKind) bool {
	for _, d := range p.defects {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// IsText returns true if the media type is text/*.
func (p *Part) IsText() bool {
	return p.Type() == "text"
}

// IsAttachment returns true if the part is meant to be saved rather than
// shown. That is a leaf or an embedded message with an attachment
// disposition, or any part other than a multipart or inline text.
func (p *Part) IsAttachment() bool {
	switch {
	case p.Type() == "multipart":
		return false
	case p.disposition == "attachment":
		return true
	case p.disposition == "inline" && p.IsText():
		return false
	}

	switch p.MediaType() {
	case "text/plain", "text/html":
		return p.Filename() != ""
	}

	return true
}

// Source returns the source the offsets of this part refer to.
func (p *Part) Source() source.Source {
	return p.src
}

// RawReader returns a reader for the body exactly as it appears in the
// source.
func (p *Part) RawReader() io.Reader {
	return source.Section(p.src, p.bodyOffset, p.endOffset)
}

// Reader returns a reader for the body with the Content-transfer-encoding
// decoded.
func (p *Part) Reader() io.Reader {
	return transfer.NewDecoder(p.transferEncoding, p.RawReader())
}

// Content returns all of the transfer decoded body.
func (p *Part) Content() ([]byte, error) {
	return io.ReadAll(p.Reader())
}

// textCharset returns the charset used to read text, guessing it from the
// content when detection is on and no charset was declared.
func (p *Part) textCharset() string {
	if !p.detect || p.declaredCharset {
		return p.charset
	}

	p.detectOnce.Do(func() {
		p.detected = p.charset

		br := bufio.NewReaderSize(p.Reader(), charset.DetectSampleSize)
		sample, _ := br.Peek(charset.DetectSampleSize)
		if cs, ok := charset.Detect(sample); ok {
			p.detected = cs
		}
	})

	return p.detected
}

// TextReader returns a reader for the body with the Content-transfer-encoding
// decoded and the text converted into the target charset. The second value
// is true if the charset is not recognized, in which case the bytes are
// returned without conversion.
func (p *Part) TextReader() (io.Reader, bool) {
	return p.conv.Reader(p.textCharset(), p.Reader())
}

// Text returns all of the body as text in the target charset. The error is
// only for a failure to read the source.
func (p *Part) Text() (string, error) {
	r, _ := p.TextReader()
	b, err := io.ReadAll(r)
	return string(b), err
}

// TextCharset returns the charset the text of the part is read in. This is
// Charset() unless charset detection is enabled and no charset was declared.
func (p *Part) TextCharset() string {
	return p.textCharset()
}
