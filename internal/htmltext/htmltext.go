// Package htmltext turns HTML into readable plain text. It is used when a
// message has no plain text part and the text of its HTML part is wanted
// instead.
package htmltext

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blocks are the elements that start a new line of text.
const blocks = "p, div, br, li, tr, h1, h2, h3, h4, h5, h6, blockquote, pre, table, ul, ol, hr"

// sep marks the edges of block elements while the text is extracted. The
// paragraph separator does not appear in ordinary mail.
const sep = "\u2029"

// FromReader reads an HTML document and returns its text. Scripts, styles and
// the document head are dropped. Block elements are separated by line breaks,
// runs of whitespace within a line are collapsed and blank lines are removed.
func FromReader(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head, noscript, template").Remove()
	doc.Find(blocks).Each(func(_ int, s *goquery.Selection) {
		s.BeforeHtml(sep)
		s.AfterHtml(sep)
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), sep) {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n"), nil
}

// FromString works like FromReader for a string.
func FromString(s string) (string, error) {
	return FromReader(strings.NewReader(s))
}
