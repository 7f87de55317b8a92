package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-mailmime/message/header/field"
)

func TestNew(t *testing.T) {
	t.Parallel()

	f := field.New("Subject", "testing")

	assert.Equal(t, "Subject: testing", f.String())
	assert.Equal(t, []byte("Subject: testing"), f.Raw())
	assert.Equal(t, "Subject", f.Name())
	assert.Equal(t, "testing", f.Value())
	assert.Equal(t, "testing", f.Body())
	assert.Equal(t, int64(-1), f.Offset())
	assert.True(t, f.Is("SUBJECT"))
	assert.False(t, f.Is("Subjec"))
}

func TestParse(t *testing.T) {
	t.Parallel()

	raw := []byte("Subject: Hello\r\n World")
	f, err := field.Parse(raw, 42)
	require.NoError(t, err)

	assert.Equal(t, "Subject", f.Name())
	assert.Equal(t, "Hello World", f.Value())
	assert.Equal(t, raw, f.Raw())
	assert.Equal(t, int64(42), f.Offset())

	f, err = field.Parse([]byte("X-Spaced : \tvalue  \n\t  more\t"), 0)
	require.NoError(t, err)
	assert.Equal(t, "X-Spaced", f.Name())
	assert.Equal(t, "value more", f.Value())

	f, err = field.Parse([]byte("Empty:"), 0)
	require.NoError(t, err)
	assert.Equal(t, "", f.Value())
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := field.Parse([]byte("no colon here"), 0)
	assert.ErrorIs(t, err, field.ErrNoColon)

	_, err = field.Parse([]byte("bad name: value"), 0)
	assert.ErrorIs(t, err, field.ErrBadName)

	_, err = field.Parse([]byte(": value"), 0)
	assert.ErrorIs(t, err, field.ErrBadName)
}

func TestField_Body(t *testing.T) {
	t.Parallel()

	f, err := field.Parse([]byte("Subject: =?ISO-8859-1?Q?caf=E9?= =?utf-8?b?4pqA?="), 0)
	require.NoError(t, err)
	assert.Equal(t, "=?ISO-8859-1?Q?caf=E9?= =?utf-8?b?4pqA?=", f.Value())
	assert.Equal(t, "café⚀", f.Body())

	// unknown charsets leave the encoded word alone
	f = field.New("Subject", "=?x-bogus?q?abc?=")
	assert.Equal(t, "=?x-bogus?q?abc?=", f.Body())
}

func TestField_Params(t *testing.T) {
	t.Parallel()

	f := field.New("Content-Type", `text/plain; charset="ISO-8859-1"`)
	pv, err := f.Params()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", pv.MediaType())
	assert.Equal(t, "ISO-8859-1", pv.Charset())
}
