package message

import (
	"errors"

	"github.com/zostay/go-mailmime/internal/htmltext"
	"github.com/zostay/go-mailmime/source"
)

// ErrNoSuchPart is returned when a part asked for does not exist.
var ErrNoSuchPart = errors.New("no such part")

// Message is a parsed message. It is the root part of the tree together with
// the sources the tree reads from.
type Message struct {
	*Part

	owned []source.Source
}

// Close releases the sources owned by the message: the copy of the input
// made by Parse, the file opened by ParseFile and any decoded embedded
// messages. Parts must not be read after the message is closed.
func (m *Message) Close() error {
	var errs []error
	for _, s := range m.owned {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.owned = nil
	return errors.Join(errs...)
}

// AllParts returns every part of the message, starting with the message
// itself, in depth-first order.
func (m *Message) AllParts() []*Part {
	var all []*Part
	var visit func(p *Part)
	visit = func(p *Part) {
		all = append(all, p)
		for _, c := range p.parts {
			visit(c)
		}
	}
	visit(m.Part)
	return all
}

// contentParts returns the parts that belong to this message, in depth-first
// order, without descending into embedded messages.
func (m *Message) contentParts(keep func(*Part) bool) []*Part {
	var found []*Part
	var visit func(p *Part)
	visit = func(p *Part) {
		if keep(p) {
			found = append(found, p)
		}
		if p != m.Part && p.IsEmbedded() {
			return
		}
		for _, c := range p.parts {
			visit(c)
		}
	}
	visit(m.Part)
	return found
}

// inlineOf returns a filter for leaves of the media type that are not
// attachments.
func inlineOf(mt string) func(*Part) bool {
	return func(p *Part) bool {
		return !p.IsMultipart() && p.MediaType() == mt && !p.IsAttachment()
	}
}

// TextPart returns the i-th inline text/plain part, counting from 0. It
// returns nil if there is no such part.
func (m *Message) TextPart(i int) *Part {
	ps := m.contentParts(inlineOf("text/plain"))
	if i < 0 || i >= len(ps) {
		return nil
	}
	return ps[i]
}

// TextPartCount returns the number of inline text/plain parts.
func (m *Message) TextPartCount() int {
	return len(m.contentParts(inlineOf("text/plain")))
}

// HTMLPart returns the i-th inline text/html part, counting from 0. It
// returns nil if there is no such part.
func (m *Message) HTMLPart(i int) *Part {
	ps := m.contentParts(inlineOf("text/html"))
	if i < 0 || i >= len(ps) {
		return nil
	}
	return ps[i]
}

// HTMLPartCount returns the number of inline text/html parts.
func (m *Message) HTMLPartCount() int {
	return len(m.contentParts(inlineOf("text/html")))
}

// Attachments returns the attachments of the message. Embedded messages are
// returned as a whole rather than as their parts.
func (m *Message) Attachments() []*Part {
	return m.contentParts(func(p *Part) bool {
		return p != m.Part && p.IsAttachment()
	})
}

// TextContent returns the text of the first inline text/plain part. If there
// is none, the text of the first inline text/html part is converted to plain
// text. It returns ErrNoSuchPart if the message has neither.
func (m *Message) TextContent() (string, error) {
	if p := m.TextPart(0); p != nil {
		return p.Text()
	}

	p := m.HTMLPart(0)
	if p == nil {
		return "", ErrNoSuchPart
	}

	r, _ := p.TextReader()
	return htmltext.FromReader(r)
}

// HTMLContent returns the text of the first inline text/html part. It returns
// ErrNoSuchPart if the message has none.
func (m *Message) HTMLContent() (string, error) {
	p := m.HTMLPart(0)
	if p == nil {
		return "", ErrNoSuchPart
	}
	return p.Text()
}

// PartByPath returns the part reached by following the given sub-part
// indexes from the message. An empty path returns the message itself. It
// returns ErrNoSuchPart if an index is out of range.
func (m *Message) PartByPath(path ...int) (*Part, error) {
	p := m.Part
	for _, i := range path {
		if i < 0 || i >= len(p.parts) {
			return nil, ErrNoSuchPart
		}
		p = p.parts[i]
	}
	return p, nil
}
