package message

import "fmt"

// DefectKind names a problem found in a message that the parser recovered
// from.
type DefectKind int

// The kinds of defect the parser records.
const (
	// DefectMalformedHeader marks a header line that is not a header field.
	DefectMalformedHeader DefectKind = iota + 1

	// DefectHeaderTooLong marks a header that was cut short because it
	// exceeded the maximum header length.
	DefectHeaderTooLong

	// DefectBadContentType marks a Content-type header that could not be
	// parsed. The media type was recovered where possible and is text/plain
	// otherwise.
	DefectBadContentType

	// DefectBadParameter marks a header parameter that could not be parsed.
	DefectBadParameter

	// DefectMissingBoundary marks a multipart part without a boundary
	// parameter. The part is treated as a leaf.
	DefectMissingBoundary

	// DefectNoDelimiter marks a multipart part whose body holds no delimiter
	// line for its boundary. The part is treated as a leaf.
	DefectNoDelimiter

	// DefectUnterminatedMultipart marks a multipart part without a closing
	// delimiter line. The last part runs to the end of the body.
	DefectUnterminatedMultipart

	// DefectDepthExceeded marks a part nested deeper than the maximum depth.
	// The part is treated as a leaf.
	DefectDepthExceeded

	// DefectUnknownCharset marks a part declaring a charset that is not
	// recognized. Its text is read without conversion.
	DefectUnknownCharset

	// DefectUnknownTransferEncoding marks a part declaring a
	// Content-transfer-encoding that is not recognized. Its content is read
	// as-is.
	DefectUnknownTransferEncoding
)

var defectNames = map[DefectKind]string{
	DefectMalformedHeader:         "malformed header",
	DefectHeaderTooLong:           "header too long",
	DefectBadContentType:          "bad content-type",
	DefectBadParameter:            "bad parameter",
	DefectMissingBoundary:         "missing boundary",
	DefectNoDelimiter:             "no delimiter",
	DefectUnterminatedMultipart:   "unterminated multipart",
	DefectDepthExceeded:           "depth exceeded",
	DefectUnknownCharset:          "unknown charset",
	DefectUnknownTransferEncoding: "unknown transfer encoding",
}

// String returns a short description of the kind.
func (k DefectKind) String() string {
	if n, ok := defectNames[k]; ok {
		return n
	}
	return fmt.Sprintf("defect(%d)", int(k))
}

// Defect describes a problem found while parsing a part.
type Defect struct {
	Kind DefectKind

	// Offset is where in the part's source the problem was found.
	Offset int64

	// Detail says more about the problem, if anything more is known.
	Detail string
}

// String returns the defect as "kind at offset: detail".
func (d Defect) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("%s at %d", d.Kind, d.Offset)
	}
	return fmt.Sprintf("%s at %d: %s", d.Kind, d.Offset, d.Detail)
}
