// Package header reads the header block at the top of a message or MIME part
// and provides accessors for the fields in it.
//
// Read is liberal in what it accepts. Folded lines are unfolded, lines that
// are not header fields are kept aside as malformed lines, and an overlong
// header is cut short rather than rejected. Only a failure to read from the
// underlying source is an error.
package header
