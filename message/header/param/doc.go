// Package param provides a tool for dealing with parameterized headers. These
// headers include the Content-type and Content-disposition header. In addition,
// it provides some helper methods for breaking down the MIME types that get
// set in the Content-type header.
//
// Parsing is lenient. A best-effort Value is always returned, even when an
// error reports that the header was malformed. Parameters keep the order they
// were given in, and RFC 2231 extended and continued parameters are merged
// and decoded.
package param
