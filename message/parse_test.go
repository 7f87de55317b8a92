package message_test

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-mailmime/message"
	"github.com/zostay/go-mailmime/message/charset"
	"github.com/zostay/go-mailmime/source"
)

const mixed = "From: a@example.com\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"preamble\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=inner\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Hello</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment; filename=data.bin\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"AAECAw==\r\n" +
	"--outer--\r\n" +
	"epilogue\r\n"

func parse(t *testing.T, msg string, opts ...message.ParseOption) *message.Message {
	t.Helper()

	m, err := message.ParseBytes([]byte(msg), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func content(t *testing.T, p *message.Part) string {
	t.Helper()

	b, err := p.Content()
	require.NoError(t, err)
	return string(b)
}

func text(t *testing.T, p *message.Part) string {
	t.Helper()

	s, err := p.Text()
	require.NoError(t, err)
	return s
}

func TestParse_SinglePart(t *testing.T) {
	t.Parallel()

	m := parse(t, "Subject: test\r\n"+
		"Content-Type: text/plain; charset=ISO-8859-1\r\n"+
		"Content-Transfer-Encoding: Quoted-Printable\r\n"+
		"\r\n"+
		"caf=E9 =\r\nau lait\r\n")

	assert.False(t, m.IsMultipart())
	assert.Empty(t, m.Parts())
	assert.Equal(t, "text/plain", m.MediaType())
	assert.Equal(t, "iso-8859-1", m.Charset())
	assert.True(t, m.DeclaredCharset())
	assert.Equal(t, "quoted-printable", m.TransferEncoding())
	assert.Empty(t, m.Defects())

	assert.Equal(t, "caf\xe9 au lait\r\n", content(t, m.Part))
	assert.Equal(t, "café au lait\r\n", text(t, m.Part))

	raw, err := io.ReadAll(m.RawReader())
	require.NoError(t, err)
	assert.Equal(t, "caf=E9 =\r\nau lait\r\n", string(raw))

	// decoding is restartable
	assert.Equal(t, "café au lait\r\n", text(t, m.Part))
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	m := parse(t, "Subject: none\r\n\r\nplain body")
	assert.Equal(t, "text/plain", m.MediaType())
	assert.Equal(t, "us-ascii", m.Charset())
	assert.False(t, m.DeclaredCharset())
	assert.Equal(t, "7bit", m.TransferEncoding())
	assert.Equal(t, "plain body", text(t, m.Part))
	assert.Equal(t, int64(0), m.HeaderOffset())
	assert.Equal(t, int64(17), m.BodyOffset())
	assert.Equal(t, int64(27), m.EndOffset())
}

func TestParse_FoldedHeader(t *testing.T) {
	t.Parallel()

	m := parse(t, "Subject: Hello\r\n World\r\n\r\nbody")
	s, err := m.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "Hello World", s)
}

func TestParse_Multipart(t *testing.T) {
	t.Parallel()

	m := parse(t, mixed)
	require.True(t, m.IsMultipart())
	require.Len(t, m.Parts(), 2)
	assert.Empty(t, m.Defects())
	assert.Equal(t, "outer", m.Boundary())

	alt := m.Parts()[0]
	assert.Equal(t, "multipart/alternative", alt.MediaType())
	assert.Equal(t, 1, alt.Depth())
	require.Len(t, alt.Parts(), 2)

	plain, html := alt.Parts()[0], alt.Parts()[1]
	assert.Equal(t, 2, plain.Depth())
	assert.Equal(t, "Hello", text(t, plain))
	assert.Equal(t, "<p>Hello</p>", text(t, html))

	att := m.Parts()[1]
	assert.Equal(t, "application/octet-stream", att.MediaType())
	assert.Equal(t, "attachment", att.Disposition())
	assert.Equal(t, "data.bin", att.Filename())
	assert.True(t, att.IsAttachment())
	assert.Equal(t, []byte{0, 1, 2, 3}, []byte(content(t, att)))

	for _, p := range m.AllParts() {
		assert.Empty(t, p.Defects())
	}
}

func TestParse_ChildCount(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5, 20} {
		var sb strings.Builder
		sb.WriteString("Content-Type: multipart/mixed; boundary=sep\r\n\r\n")
		sb.WriteString("This is a preamble that mentions --sep- but is not a delimiter.\r\n")
		for i := 0; i < n; i++ {
			fmt.Fprintf(&sb, "--sep\r\nX-Index: %d\r\n\r\npart %d\r\n", i, i)
		}
		sb.WriteString("--sep--\r\n--sep\r\nepilogue that looks like a part\r\n")

		m := parse(t, sb.String())
		require.Len(t, m.Parts(), n)
		for i, p := range m.Parts() {
			idx, err := p.Get("X-Index")
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprint(i), idx)
			assert.Equal(t, fmt.Sprintf("part %d", i), text(t, p))
		}
	}
}

func TestParse_Base64RoundTrip(t *testing.T) {
	t.Parallel()

	data := make([]byte, 10_000)
	_, _ = rand.New(rand.NewSource(7)).Read(data)

	enc := base64.StdEncoding.EncodeToString(data)
	var body strings.Builder
	for len(enc) > 76 {
		body.WriteString(enc[:76] + "\r\n")
		enc = enc[76:]
	}
	body.WriteString(enc + "\r\n")

	m := parse(t, "Content-Type: application/octet-stream\r\n"+
		"Content-Transfer-Encoding: base64\r\n\r\n"+body.String())
	assert.Equal(t, data, []byte(content(t, m.Part)))
}

// describe summarizes everything about the tree that should not change from
// one parse to the next.
func describe(t *testing.T, m *message.Message) []string {
	t.Helper()

	var out []string
	for _, p := range m.AllParts() {
		names := make([]string, 0, p.Len())
		for _, f := range p.ListFields() {
			names = append(names, f.Name())
		}
		out = append(out, fmt.Sprintf("%d %s %d %v %q",
			p.Depth(), p.MediaType(), len(p.Parts()), names, content(t, p)))
	}
	return out
}

func TestParse_Idempotent(t *testing.T) {
	t.Parallel()

	first := describe(t, parse(t, mixed))
	second := describe(t, parse(t, mixed))
	assert.Equal(t, first, second)

	m, err := message.Parse(strings.NewReader(mixed))
	require.NoError(t, err)
	defer func() { _ = m.Close() }()
	assert.Equal(t, first, describe(t, m))
}

func TestParse_Unterminated(t *testing.T) {
	t.Parallel()

	m := parse(t, "Content-Type: multipart/mixed; boundary=b\r\n\r\n"+
		"--b\r\n\r\none\r\n"+
		"--b\r\n\r\ntwo\r\nstill two\r\n")

	assert.True(t, m.HasDefect(message.DefectUnterminatedMultipart))
	require.Len(t, m.Parts(), 2)
	assert.Equal(t, "one", text(t, m.Parts()[0]))
	assert.Equal(t, "two\r\nstill two\r\n", text(t, m.Parts()[1]))
}

func TestParse_NestedScope(t *testing.T) {
	t.Parallel()

	// the inner multipart never closes, but the outer delimiter still ends it
	m := parse(t, "Content-Type: multipart/mixed; boundary=outer\r\n\r\n"+
		"--outer\r\n"+
		"Content-Type: multipart/alternative; boundary=inner\r\n\r\n"+
		"--inner\r\n\r\na\r\n"+
		"--inner\r\n\r\nb\r\n"+
		"--outer\r\n\r\nc\r\n"+
		"--outer--\r\n")

	require.Len(t, m.Parts(), 2)
	alt := m.Parts()[0]
	require.Len(t, alt.Parts(), 2)
	assert.True(t, alt.HasDefect(message.DefectUnterminatedMultipart))
	assert.Equal(t, "a", text(t, alt.Parts()[0]))
	assert.Equal(t, "b", text(t, alt.Parts()[1]))
	assert.Equal(t, "c", text(t, m.Parts()[1]))
}

func TestParse_CharsetFallback(t *testing.T) {
	t.Parallel()

	m := parse(t, "Content-Type: text/plain; charset=\"bogus-charset\"\r\n\r\ncaf\xe9 caf\xc3\xa9")

	assert.True(t, m.CharsetFallback())
	assert.True(t, m.HasDefect(message.DefectUnknownCharset))
	assert.Equal(t, "bogus-charset", m.Charset())

	r, fallback := m.TextReader()
	assert.True(t, fallback)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "caf\xe9 caf\xc3\xa9", string(b))
}

func TestParse_Embedded(t *testing.T) {
	t.Parallel()

	m := parse(t, "Subject: outer\r\n"+
		"Content-Type: message/rfc822\r\n\r\n"+
		"Subject: inner\r\n"+
		"Content-Type: text/plain\r\n\r\n"+
		"inner body\r\n")

	assert.True(t, m.IsEmbedded())
	require.Len(t, m.Parts(), 1)

	inner := m.Parts()[0]
	s, err := inner.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "inner", s)
	assert.Equal(t, 1, inner.Depth())
	assert.Equal(t, "inner body\r\n", text(t, inner))
	assert.Equal(t, m.BodyOffset(), inner.HeaderOffset())
}

func TestParse_EmbeddedEncoded(t *testing.T) {
	t.Parallel()

	inner := "Subject: inner\r\n" +
		"Content-Type: multipart/mixed; boundary=x\r\n\r\n" +
		"--x\r\n\r\nfirst\r\n--x\r\n\r\nsecond\r\n--x--\r\n"

	m := parse(t, "Content-Type: message/rfc822\r\n"+
		"Content-Transfer-Encoding: base64\r\n\r\n"+
		base64.StdEncoding.EncodeToString([]byte(inner))+"\r\n")

	require.Len(t, m.Parts(), 1)
	em := m.Parts()[0]
	assert.NotSame(t, m.Source(), em.Source())
	assert.Equal(t, int64(len(inner)), em.Source().Size())
	require.Len(t, em.Parts(), 2)
	assert.Equal(t, "first", text(t, em.Parts()[0]))
	assert.Equal(t, "second", text(t, em.Parts()[1]))
}

func TestParse_Digest(t *testing.T) {
	t.Parallel()

	m := parse(t, "Content-Type: multipart/digest; boundary=d\r\n\r\n"+
		"--d\r\n\r\nSubject: one\r\n\r\nfirst\r\n"+
		"--d\r\nContent-Type: text/plain\r\n\r\nnot a message\r\n"+
		"--d--\r\n")

	require.Len(t, m.Parts(), 2)
	assert.Equal(t, "message/rfc822", m.Parts()[0].MediaType())
	require.Len(t, m.Parts()[0].Parts(), 1)
	s, err := m.Parts()[0].Parts()[0].GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "one", s)

	assert.Equal(t, "text/plain", m.Parts()[1].MediaType())
}

func nested(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Content-Type: multipart/mixed; boundary=b%d\r\n\r\n--b%d\r\n", i, i)
	}
	sb.WriteString("\r\nx")
	for i := n - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "\r\n--b%d--", i)
	}
	return sb.String()
}

func deepest(p *message.Part) *message.Part {
	for p.IsMultipart() {
		p = p.Parts()[0]
	}
	return p
}

func TestParse_MaxDepth(t *testing.T) {
	t.Parallel()

	msg := nested(150)

	p := deepest(parse(t, msg).Part)
	assert.Equal(t, message.DefaultMaxDepth, p.Depth())
	assert.True(t, p.HasDefect(message.DefectDepthExceeded))
	assert.Equal(t, "multipart/mixed", p.MediaType())

	p = deepest(parse(t, msg, message.WithUnlimitedRecursion()).Part)
	assert.Equal(t, 150, p.Depth())
	assert.Empty(t, p.Defects())
	assert.Equal(t, "x", text(t, p))

	p = deepest(parse(t, msg, message.WithMaxDepth(2)).Part)
	assert.Equal(t, 2, p.Depth())
	assert.True(t, p.HasDefect(message.DefectDepthExceeded))
	assert.True(t, strings.HasPrefix(content(t, p), "--b2\r\n"))

	m := parse(t, msg, message.WithoutMultipart())
	assert.False(t, m.IsMultipart())
	assert.Empty(t, m.Defects())
}

func TestParse_Degraded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		msg    string
		kind   message.DefectKind
		mt     string
		body   string
		offset int64
	}{
		{
			name: "missing boundary",
			msg:  "Content-Type: multipart/mixed\r\n\r\n--x\r\n\r\nhi\r\n--x--\r\n",
			kind: message.DefectMissingBoundary,
			mt:   "multipart/mixed",
			body: "--x\r\n\r\nhi\r\n--x--\r\n",
		},
		{
			name:   "no delimiter",
			msg:    "Content-Type: multipart/mixed; boundary=zzz\r\n\r\njust text\r\n",
			kind:   message.DefectNoDelimiter,
			mt:     "multipart/mixed",
			body:   "just text\r\n",
			offset: 47,
		},
		{
			name: "bad content type",
			msg:  "Content-Type: text/html charset=utf-8\r\n\r\n<b>x</b>",
			kind: message.DefectBadContentType,
			mt:   "text/html",
			body: "<b>x</b>",
		},
		{
			name: "content type without subtype",
			msg:  "Content-Type: garbage\r\n\r\nx",
			kind: message.DefectBadContentType,
			mt:   "text/plain",
			body: "x",
		},
		{
			name: "bad parameter",
			msg:  "Content-Type: text/plain; charset\r\n\r\nx",
			kind: message.DefectBadParameter,
			mt:   "text/plain",
			body: "x",
		},
		{
			name: "unknown transfer encoding",
			msg:  "Content-Transfer-Encoding: x-made-up\r\n\r\n=41",
			kind: message.DefectUnknownTransferEncoding,
			mt:   "text/plain",
			body: "=41",
		},
		{
			name:   "malformed header",
			msg:    "Subject: hi\r\nbogus line\r\n\r\nbody",
			kind:   message.DefectMalformedHeader,
			mt:     "text/plain",
			body:   "body",
			offset: 13,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			m := parse(t, test.msg)
			assert.False(t, m.IsMultipart())
			require.Len(t, m.Defects(), 1)
			assert.Equal(t, test.kind, m.Defects()[0].Kind)
			assert.Equal(t, test.offset, m.Defects()[0].Offset)
			assert.Equal(t, test.mt, m.MediaType())
			assert.Equal(t, test.body, content(t, m.Part))
		})
	}
}

func TestParse_HeaderTooLong(t *testing.T) {
	t.Parallel()

	msg := "Subject: first\r\n" + strings.Repeat("X-Filler: 0123456789\r\n", 10) + "\r\nbody"
	m := parse(t, msg, message.WithMaxHeaderLength(64))
	assert.True(t, m.HasDefect(message.DefectHeaderTooLong))
	assert.Equal(t, "body", text(t, m.Part))
}

func TestParse_Charsets(t *testing.T) {
	t.Parallel()

	m := parse(t, "\r\ncaf\xe9", message.WithDefaultCharset("latin1"))
	assert.Equal(t, "iso-8859-1", m.Charset())
	assert.Equal(t, "café", text(t, m.Part))

	m = parse(t, "Content-Type: text/plain; charset=utf-8\r\n\r\ncafé",
		message.WithTargetCharset("ISO-8859-1"))
	assert.Equal(t, "caf\xe9", text(t, m.Part))

	_, err := message.ParseBytes([]byte("\r\n"), message.WithTargetCharset("bogus"))
	assert.ErrorIs(t, err, charset.ErrUnknownCharset)

	_, err = message.ParseBytes([]byte("\r\n"), message.WithDefaultCharset("bogus"))
	assert.ErrorIs(t, err, charset.ErrUnknownCharset)
}

func TestParse_CharsetDetection(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("Привет, как дела? Это тестовое сообщение. ", 20)
	m := parse(t, "Content-Type: text/plain\r\n\r\n"+body, message.WithCharsetDetection())
	assert.Equal(t, "us-ascii", m.Charset())
	assert.Equal(t, "utf-8", m.TextCharset())
	assert.Equal(t, body, text(t, m.Part))

	m = parse(t, "Content-Type: text/plain\r\n\r\n"+body)
	assert.Equal(t, "us-ascii", m.TextCharset())
}

func TestParse_Spool(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inner := "Subject: inner\r\n\r\n" + strings.Repeat("inner line\r\n", 100)
	msg := "Content-Type: message/rfc822\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\n" +
		base64.StdEncoding.EncodeToString([]byte(inner)) + "\r\n"

	m, err := message.Parse(strings.NewReader(msg),
		message.WithMemoryLimit(64),
		message.WithTempDir(dir),
	)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.Len(t, m.Parts(), 1)
	assert.Equal(t, strings.Repeat("inner line\r\n", 100), text(t, m.Parts()[0]))

	require.NoError(t, m.Close())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = message.Parse(strings.NewReader(msg), message.WithMaxSize(10))
	assert.ErrorIs(t, err, source.ErrTooLarge)
}

func TestParseSource(t *testing.T) {
	t.Parallel()

	src := source.FromBytes([]byte(mixed))
	m, err := message.ParseSource(src)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	// the caller still owns the source
	b, err := source.ReadRange(src, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "From:", string(b))
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	fn := t.TempDir() + "/msg.eml"
	require.NoError(t, os.WriteFile(fn, []byte(mixed), 0o600))

	m, err := message.ParseFile(fn)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()
	assert.Len(t, m.Parts(), 2)

	_, err = message.ParseFile(fn + ".missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Logger(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	parse(t, "Content-Type: multipart/mixed\r\n\r\nx", message.WithLogger(logger))
	assert.Contains(t, buf.String(), "missing boundary")
}

func TestPart_Concurrent(t *testing.T) {
	t.Parallel()

	m := parse(t, mixed, message.WithCharsetDetection())
	plain := m.Parts()[0].Parts()[0]

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := plain.Text()
			assert.NoError(t, err)
			assert.Equal(t, "Hello", s)
		}()
	}
	wg.Wait()
}
