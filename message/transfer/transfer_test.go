package transfer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zostay/go-mailmime/message/transfer"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, transfer.Bit7, transfer.Normalize(""))
	assert.Equal(t, transfer.Base64, transfer.Normalize(" Base64 "))
	assert.Equal(t, transfer.QuotedPrintable, transfer.Normalize("Quoted-Printable"))
	assert.Equal(t, transfer.UUEncode, transfer.Normalize("uuencode"))
	assert.Equal(t, "x-custom", transfer.Normalize("X-Custom"))
}

func TestIsKnown(t *testing.T) {
	t.Parallel()

	assert.True(t, transfer.IsKnown("8BIT"))
	assert.True(t, transfer.IsKnown(""))
	assert.False(t, transfer.IsKnown("x-custom"))

	assert.True(t, transfer.IsIdentity("binary"))
	assert.True(t, transfer.IsIdentity("x-custom"))
	assert.False(t, transfer.IsIdentity("base64"))
}
