package boundary_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-mailmime/message/boundary"
)

func scan(t *testing.T, body, token string) (*boundary.Result, []string) {
	t.Helper()

	res, err := boundary.Scan(strings.NewReader(body), 0, int64(len(body)), token)
	require.NoError(t, err)

	parts := make([]string, len(res.Parts))
	for i, r := range res.Parts {
		parts[i] = body[r.Start:r.End]
	}
	return res, parts
}

func text(body string, r boundary.Range) string {
	return body[r.Start:r.End]
}

func TestScan(t *testing.T) {
	t.Parallel()

	const body = "This is the preamble.\r\n" +
		"--abc\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"one\r\n" +
		"--abc \t\r\n" +
		"\r\n" +
		"two\r\n" +
		"\r\n" +
		"--abc--\r\n" +
		"This is the epilogue.\r\n"

	res, parts := scan(t, body, "abc")
	assert.True(t, res.Found)
	assert.True(t, res.Terminated)
	assert.Equal(t, []string{
		"Content-Type: text/plain\r\n\r\none",
		"\r\ntwo\r\n",
	}, parts)
	assert.Equal(t, "This is the preamble.", text(body, res.Preamble))
	assert.Equal(t, "This is the epilogue.\r\n", text(body, res.Epilogue))
}

func TestScan_LF(t *testing.T) {
	t.Parallel()

	const body = "--b\nA: 1\n\none\n--b\n\ntwo\n--b\n\nthree\n--b--"
	res, parts := scan(t, body, "b")
	assert.True(t, res.Terminated)
	assert.Equal(t, []string{"A: 1\n\none", "\ntwo", "\nthree"}, parts)
	assert.Equal(t, int64(0), res.Preamble.Len())
	assert.Equal(t, int64(0), res.Epilogue.Len())
}

func TestScan_Unterminated(t *testing.T) {
	t.Parallel()

	const body = "--b\r\n\r\none\r\n--b\r\n\r\ntwo\r\nand more\r\n"
	res, parts := scan(t, body, "b")
	assert.True(t, res.Found)
	assert.False(t, res.Terminated)
	assert.Equal(t, []string{"\r\none", "\r\ntwo\r\nand more\r\n"}, parts)
	assert.Equal(t, int64(len(body)), res.Epilogue.Start)
}

func TestScan_NotFound(t *testing.T) {
	t.Parallel()

	const body = "no delimiters\r\n--other\r\n"
	res, parts := scan(t, body, "b")
	assert.False(t, res.Found)
	assert.Empty(t, parts)
	assert.Equal(t, body, text(body, res.Preamble))
}

func TestScan_OnlyOwnToken(t *testing.T) {
	t.Parallel()

	const body = "--outer\r\n" +
		"Content-Type: multipart/alternative; boundary=inner\r\n" +
		"\r\n" +
		"--inner\r\n" +
		"\r\n" +
		"plain\r\n" +
		"--inner\r\n" +
		"\r\n" +
		"<p>html</p>\r\n" +
		"--inner--\r\n" +
		"--outer\r\n" +
		"\r\n" +
		"attachment\r\n" +
		"--outer--\r\n"

	res, parts := scan(t, body, "outer")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "--inner--")
	assert.Equal(t, "\r\nattachment", parts[1])

	// prefixes of the token and longer tokens do not match
	res, parts = scan(t, "--ab\r\nx\r\n--abc\r\ny\r\n--abcd\r\n--abc--", "abc")
	assert.True(t, res.Terminated)
	assert.Equal(t, []string{"y\r\n--abcd"}, parts)
}

func TestScan_EmptyParts(t *testing.T) {
	t.Parallel()

	_, parts := scan(t, "--b\r\n--b\r\n--b--\r\n", "b")
	assert.Equal(t, []string{"", ""}, parts)
}

func TestScan_SubRange(t *testing.T) {
	t.Parallel()

	const msg = "Header: x\r\n\r\n--b\r\none\r\n--b--\r\ntrailing"
	start := int64(strings.Index(msg, "--b"))
	end := int64(strings.Index(msg, "trailing"))

	res, err := boundary.Scan(strings.NewReader(msg), start, end, "b")
	require.NoError(t, err)
	require.Len(t, res.Parts, 1)
	assert.Equal(t, "one", text(msg, res.Parts[0]))
	assert.Equal(t, end, res.Epilogue.End)
}

func TestScan_EmptyToken(t *testing.T) {
	t.Parallel()

	_, err := boundary.Scan(strings.NewReader("--\r\n"), 0, -1, "")
	assert.ErrorIs(t, err, boundary.ErrEmptyToken)
}
