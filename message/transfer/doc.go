// Package transfer decodes the Content-transfer-encoding of a message body.
// Only quoted-printable, base64 and x-uuencode actually change the bytes.
// Other settings such as binary, 7bit or 8bit, or any encoding this package
// does not recognize, leave the bytes as-is.
//
// Every decoder here is lenient. Real mail routinely contains broken line
// lengths, stray characters in base64 data and bad quoted-printable escapes.
// The decoders skip or pass through what they cannot make sense of rather than
// failing, since the caller nearly always prefers some content to an error.
//
// For the sake of this module, the term "decoded" means that the content has
// been transformed from the named Content-transfer-encoding to the charset
// encoded form.
package transfer
