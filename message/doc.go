// Package message is the heart of this library. It parses a MIME message into
// a tree of parts that survives even when the input is not strictly correct.
//
// Parsing reads each header block, works out the media type of the part and,
// for multipart/* and message/rfc822 parts, carves the body into sub-parts
// which are parsed the same way. Nothing is decoded while parsing. Every part
// keeps the offsets of its body within the source, and the body is decoded
// only when it is read:
//
//	msg, err := message.Parse(in)
//	if err != nil {
//	  panic(err)
//	}
//	defer msg.Close()
//
//	for _, p := range msg.AllParts() {
//	  fmt.Println(p.Depth(), p.MediaType(), p.Charset())
//	}
//
//	text, err := msg.TextContent()
//
// Malformed input is never an error. A multipart part without a usable
// boundary is kept as a leaf, an unknown charset is read without conversion
// and so on, and each such problem is recorded as a Defect on the part.
package message
