// Package mailmime parses MIME messages into a tree of parts that can be
// navigated, queried and read, however badly the message was put together.
//
// Start with message.Parse() (or ParseBytes() or ParseFile()). The result is
// a message.Message, which is the root message.Part along with the storage it
// was read into. Every part has its header, found in the embedded
// header.Header, and is either a container with sub-parts or a leaf with
// content. Multipart parts are split on their boundary and message/rfc822
// parts hold the embedded message as their only sub-part.
//
// Nothing is decoded until it is asked for. A part only records where its
// header and body are found in the message. Calling Reader() on a part
// decodes the Content-transfer-encoding and TextReader() additionally
// converts the text into UTF-8 (or any other charset you ask for). Since the
// message is kept in a source that can be read again and again, this may be
// done as many times as you like.
//
// The parser never gives up on a malformed message. Missing boundaries,
// broken header lines, unknown charsets and the like are recovered from as
// well as possible and recorded as defects on the part where they were
// found. Only a failure to read the message at all is returned as an error.
//
// The packages are split according to part of message:
//
//	source                 re-readable storage for the raw message
//	message                the part tree, Parse() and content queries
//	message/header         header blocks and the accessors for them
//	message/header/field   single header fields and encoded words
//	message/header/param   parameterized values such as Content-type
//	message/transfer       Content-transfer-encoding decoders
//	message/charset        charset conversion and detection
//	message/boundary       the multipart boundary scanner
//	message/walker         depth-first traversal of the part tree
//
// The mimetree command in cmd/mimetree is a small tool built on these for
// looking inside messages from the command line.
package mailmime
