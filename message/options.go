package message

import (
	"io"
	"log/slog"

	"github.com/zostay/go-mailmime/message/charset"
	"github.com/zostay/go-mailmime/message/header"
	"github.com/zostay/go-mailmime/source"
)

// Constants related to Parse() options.
const (
	// DefaultMaxDepth is the default depth the parser will recurse into a
	// message.
	DefaultMaxDepth = 100

	// DefaultMaxHeaderLength is the default number of bytes of each header
	// block that will be kept.
	DefaultMaxHeaderLength = header.DefaultMaxLength

	// DefaultCharset is the charset assumed for a part that does not declare
	// one.
	DefaultCharset = charset.USASCII
)

type parser struct {
	maxDepth       int
	noMultipart    bool
	maxHeaderLen   int
	targetCharset  string
	defaultCharset string
	detect         bool
	sourceOpts     []source.Option
	logger         *slog.Logger

	conv  *charset.Converter
	owned []source.Source
}

func newParser(opts []ParseOption) *parser {
	pr := &parser{
		maxDepth:       DefaultMaxDepth,
		maxHeaderLen:   DefaultMaxHeaderLength,
		targetCharset:  charset.DefaultTarget,
		defaultCharset: DefaultCharset,
	}

	for _, opt := range opts {
		opt(pr)
	}

	if pr.logger == nil {
		pr.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return pr
}

// ParseOption refers to options that may be passed to the Parse function to
// modify how the parser works.
type ParseOption func(pr *parser)

// WithMaxDepth is a ParseOption that controls how deep the parser will go in
// recursively parsing a multipart message. This is set to DefaultMaxDepth by
// default. A part nested deeper than this is kept as a leaf and marked with
// DefectDepthExceeded. A negative value removes the limit.
func WithMaxDepth(maxDepth int) ParseOption {
	return func(pr *parser) { pr.maxDepth = maxDepth }
}

// WithUnlimitedRecursion is a ParseOption that will allow the parser to parse
// sub-parts of any depth.
func WithUnlimitedRecursion() ParseOption {
	return func(pr *parser) { pr.maxDepth = -1 }
}

// WithoutMultipart is a ParseOption that will not allow parsing of any
// multipart messages. The message returned from Parse() will always be a
// single leaf with the whole body as content.
//
// You should use this option if all you are interested in is the top-level
// headers.
func WithoutMultipart() ParseOption {
	return func(pr *parser) { pr.noMultipart = true }
}

// WithMaxHeaderLength is a ParseOption that sets the number of bytes of each
// header block that will be kept. The rest of a longer header is skipped and
// the part is marked with DefectHeaderTooLong. Setting this to a value less
// than or equal to 0 will result in there being no maximum length. The default
// value is DefaultMaxHeaderLength.
func WithMaxHeaderLength(n int) ParseOption {
	return func(pr *parser) { pr.maxHeaderLen = n }
}

// WithTargetCharset is a ParseOption that sets the charset text is converted
// into when read with TextReader() or Text(). The default is utf-8.
func WithTargetCharset(cs string) ParseOption {
	return func(pr *parser) { pr.targetCharset = cs }
}

// WithDefaultCharset is a ParseOption that sets the charset assumed for parts
// that do not declare one. The default is DefaultCharset.
func WithDefaultCharset(cs string) ParseOption {
	return func(pr *parser) { pr.defaultCharset = cs }
}

// WithCharsetDetection is a ParseOption that makes text parts without a
// declared charset guess their charset from their content the first time
// their text is read.
func WithCharsetDetection() ParseOption {
	return func(pr *parser) { pr.detect = true }
}

// WithMemoryLimit is a ParseOption that sets how much of the input is held in
// memory before the rest is written to a temporary file. See
// source.WithMemoryLimit.
func WithMemoryLimit(n int64) ParseOption {
	return func(pr *parser) {
		pr.sourceOpts = append(pr.sourceOpts, source.WithMemoryLimit(n))
	}
}

// WithMaxSize is a ParseOption that sets the largest input Parse will accept.
// Larger input fails with source.ErrTooLarge.
func WithMaxSize(n int64) ParseOption {
	return func(pr *parser) {
		pr.sourceOpts = append(pr.sourceOpts, source.WithMaxSize(n))
	}
}

// WithTempDir is a ParseOption that sets where temporary files are created.
func WithTempDir(dir string) ParseOption {
	return func(pr *parser) {
		pr.sourceOpts = append(pr.sourceOpts, source.WithTempDir(dir))
	}
}

// WithLogger is a ParseOption that sets a logger. Problems the parser
// recovers from are logged at debug level. By default nothing is logged.
func WithLogger(logger *slog.Logger) ParseOption {
	return func(pr *parser) { pr.logger = logger }
}
