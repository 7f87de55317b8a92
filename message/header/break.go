package header

// Break represents the linebreak used by a header.
type Break string

// Constants for the line breaks that may be detected in a header.
const (
	Meh  Break = ""         // Sometimes it doesn't matter
	CRLF Break = "\x0d\x0a" // \r\n - Network linebreak
	LF   Break = "\x0a"     // \n - Unix/Linux/BSD linebreak
	CR   Break = "\x0d"     // \r - Commodores/old Macs linebreak
	LFCR Break = "\x0a\x0d" // \n\r - for weirdos
)

// breakOfLen returns the break a line reader reported by its length.
func breakOfLen(n int) Break {
	switch n {
	case 2:
		return CRLF
	case 1:
		return LF
	default:
		return Meh
	}
}

// String returns the break as a string.
func (b Break) String() string {
	return string(b)
}

// Bytes returns the break as a slice of bytes.
func (b Break) Bytes() []byte {
	return []byte(b)
}
