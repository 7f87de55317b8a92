package message

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zostay/go-mailmime/message/boundary"
	"github.com/zostay/go-mailmime/message/charset"
	"github.com/zostay/go-mailmime/message/header"
	"github.com/zostay/go-mailmime/message/header/param"
	"github.com/zostay/go-mailmime/message/transfer"
	"github.com/zostay/go-mailmime/source"
)

// Parse copies the message read from r into a new source and parses it. Input
// larger than the memory limit is kept in a temporary file until the message
// is closed. See WithMemoryLimit and WithMaxSize.
//
// Parsing never fails because a message is malformed. Problems are recovered
// from and recorded as defects on the parts they were found in. Parse fails
// only when the input cannot be read or stored or when an option is invalid.
//
// The returned Message must be closed when it is no longer needed.
func Parse(r io.Reader, opts ...ParseOption) (*Message, error) {
	pr := newParser(opts)

	src, err := source.FromReader(r, pr.sourceOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to read message: %w", err)
	}

	return pr.parseOwned(src)
}

// ParseBytes parses a message held in memory. The slice must not be modified
// while the message is in use.
func ParseBytes(b []byte, opts ...ParseOption) (*Message, error) {
	return newParser(opts).parseOwned(source.FromBytes(b))
}

// ParseFile opens and parses the named file. The file is read in place and
// stays open until the message is closed.
func ParseFile(name string, opts ...ParseOption) (*Message, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	src, err := source.FromFile(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return newParser(opts).parseOwned(src)
}

// ParseSource parses a message from a source owned by the caller. Closing the
// message does not close src, but src must stay open for as long as the
// message is in use.
func ParseSource(src source.Source, opts ...ParseOption) (*Message, error) {
	return newParser(opts).parse(src)
}

// parseOwned parses src and closes it with the message.
func (pr *parser) parseOwned(src source.Source) (*Message, error) {
	pr.owned = append(pr.owned, src)
	return pr.parse(src)
}

// parse builds the part tree for src. On failure, every source the parser
// owns is closed.
func (pr *parser) parse(src source.Source) (*Message, error) {
	fail := func(err error) (*Message, error) {
		for _, s := range pr.owned {
			_ = s.Close()
		}
		return nil, err
	}

	conv, err := charset.NewConverter(pr.targetCharset)
	if err != nil {
		return fail(err)
	}
	pr.conv = conv

	if !charset.Known(pr.defaultCharset) {
		return fail(fmt.Errorf("default %w: %q", charset.ErrUnknownCharset, pr.defaultCharset))
	}

	root, err := pr.build(src, 0, src.Size(), 0, "text/plain")
	if err != nil {
		return fail(err)
	}

	return &Message{Part: root, owned: pr.owned}, nil
}

// defect records a defect on the part and logs it.
func (pr *parser) defect(p *Part, kind DefectKind, offset int64, detail string) {
	p.defects = append(p.defects, Defect{kind, offset, detail})
	pr.logger.Debug("recovered from malformed message",
		slog.String("defect", kind.String()),
		slog.Int64("offset", offset),
		slog.Int("depth", p.depth),
		slog.String("detail", detail),
	)
}

// build parses the part in [start, end) of src and everything inside it.
// defaultType is the media type assumed when the part has no Content-type.
func (pr *parser) build(
	src source.Source,
	start, end int64,
	depth int,
	defaultType string,
) (*Part, error) {
	h, bodyOffset, err := header.Read(src, start, end, header.WithMaxLength(pr.maxHeaderLen))
	if err != nil {
		return nil, err
	}

	p := &Part{
		Header:       *h,
		src:          src,
		conv:         pr.conv,
		headerOffset: start,
		bodyOffset:   bodyOffset,
		endOffset:    end,
		depth:        depth,
		detect:       pr.detect,
	}

	for _, m := range h.Malformed() {
		pr.defect(p, DefectMalformedHeader, m.Offset, m.Err.Error())
	}
	if h.Truncated() {
		pr.defect(p, DefectHeaderTooLong, start, "")
	}

	pr.readContentType(p, defaultType)
	pr.readTransferEncoding(p)
	pr.readCharset(p)

	if pv, err := h.GetContentDisposition(); pv != nil {
		p.disposition = pv.Disposition()
		if errors.Is(err, param.ErrBadParameter) {
			pr.defect(p, DefectBadParameter, start, err.Error())
		}
	}

	switch {
	case p.Type() == "multipart":
		err = pr.buildMultipart(p)
	case isEmbeddedMessage(p.MediaType()):
		err = pr.buildEmbedded(p)
	}
	if err != nil {
		return nil, err
	}

	return p, nil
}

// isEmbeddedMessage returns true for the media types holding a complete
// message.
func isEmbeddedMessage(mt string) bool {
	switch mt {
	case "message/rfc822", "message/global":
		return true
	}
	return false
}

// readContentType sets the content type of the part, recovering what it can
// from a malformed Content-type.
func (pr *parser) readContentType(p *Part, defaultType string) {
	pv, err := p.GetContentType()
	switch {
	case errors.Is(err, header.ErrNoSuchField):
		p.contentType = param.New(defaultType)
		return
	case errors.Is(err, param.ErrBadValue):
		mt := recoverMediaType(pv.Value())
		pr.defect(p, DefectBadContentType, p.headerOffset,
			fmt.Sprintf("%q read as %q", pv.Value(), mt))
		pv = param.New(mt, pv.Params()...)
	case errors.Is(err, param.ErrBadParameter):
		pr.defect(p, DefectBadParameter, p.headerOffset, err.Error())
	}

	if pv.Type() == "" || pv.Subtype() == "" {
		pr.defect(p, DefectBadContentType, p.headerOffset,
			fmt.Sprintf("%q read as %q", pv.Value(), "text/plain"))
		pv = param.New("text/plain", pv.Params()...)
	}

	p.contentType = pv
}

// recoverMediaType pulls a type/subtype out of a malformed media type, such
// as "text/html charset=utf-8" or "text/plain,". It returns text/plain if
// nothing usable is found.
func recoverMediaType(v string) string {
	fs := strings.FieldsFunc(v, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ';' || r == '"'
	})
	if len(fs) > 0 {
		if t, st, ok := strings.Cut(fs[0], "/"); ok && t != "" && st != "" {
			if pv, err := param.Parse(fs[0]); err == nil {
				return pv.MediaType()
			}
		}
	}
	return "text/plain"
}

// readTransferEncoding sets the transfer encoding of the part.
func (pr *parser) readTransferEncoding(p *Part) {
	cte, err := p.GetTransferEncoding()
	if errors.Is(err, header.ErrNoSuchField) {
		p.transferEncoding = transfer.Default
		return
	}

	p.transferEncoding = transfer.Normalize(cte)
	if !transfer.IsKnown(p.transferEncoding) {
		pr.defect(p, DefectUnknownTransferEncoding, p.headerOffset, p.transferEncoding)
	}
}

// readCharset sets the charset of the part.
func (pr *parser) readCharset(p *Part) {
	cs := charset.Normalize(p.contentType.Charset())
	if cs == "" {
		p.charset = charset.Normalize(pr.defaultCharset)
		return
	}

	p.charset = cs
	p.declaredCharset = true
	if !charset.Known(cs) {
		p.charsetFallback = true
		pr.defect(p, DefectUnknownCharset, p.headerOffset, cs)
	}
}

// tooDeep checks the depth limit for a container and records a defect when it
// is exceeded.
func (pr *parser) tooDeep(p *Part) bool {
	if pr.maxDepth < 0 || p.depth < pr.maxDepth {
		return false
	}

	pr.defect(p, DefectDepthExceeded, p.headerOffset,
		fmt.Sprintf("limit is %d", pr.maxDepth))
	return true
}

// buildMultipart splits the body of a multipart part and parses each piece.
// Any problem leaves the part as a leaf.
func (pr *parser) buildMultipart(p *Part) error {
	if pr.noMultipart || pr.tooDeep(p) {
		return nil
	}

	token := p.Boundary()
	if token == "" {
		pr.defect(p, DefectMissingBoundary, p.headerOffset, "")
		return nil
	}

	res, err := boundary.Scan(p.src, p.bodyOffset, p.endOffset, token)
	if err != nil {
		return err
	}

	if len(res.Parts) == 0 {
		pr.defect(p, DefectNoDelimiter, p.bodyOffset, token)
		return nil
	}

	if !res.Terminated {
		pr.defect(p, DefectUnterminatedMultipart, p.endOffset, token)
	}

	childType := "text/plain"
	if p.Subtype() == "digest" {
		childType = "message/rfc822"
	}

	parts := make([]*Part, 0, len(res.Parts))
	for _, r := range res.Parts {
		child, err := pr.build(p.src, r.Start, r.End, p.depth+1, childType)
		if err != nil {
			return err
		}
		parts = append(parts, child)
	}

	p.parts = parts
	return nil
}

// buildEmbedded parses the message held in the body of a message/rfc822 part.
// An embedded message that was transfer encoded is decoded into a source of
// its own.
func (pr *parser) buildEmbedded(p *Part) error {
	if pr.noMultipart || pr.tooDeep(p) {
		return nil
	}

	src, start, end := p.src, p.bodyOffset, p.endOffset
	if !transfer.IsIdentity(p.transferEncoding) {
		dec, err := source.FromReader(p.Reader(), pr.sourceOpts...)
		if err != nil {
			return fmt.Errorf("unable to decode embedded message: %w", err)
		}
		pr.owned = append(pr.owned, dec)
		src, start, end = dec, 0, dec.Size()
	}

	child, err := pr.build(src, start, end, p.depth+1, "text/plain")
	if err != nil {
		return err
	}

	p.parts = []*Part{child}
	return nil
}
