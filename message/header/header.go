package header

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/zostay/go-mailmime/message/header/field"
	"github.com/zostay/go-mailmime/message/header/param"
)

// Errors returned by various header methods and functions.
var (
	// ErrNoSuchField is returned by Header methods when the operation
	// being performed failed because the header named does not exist.
	ErrNoSuchField = errors.New("no such header field")

	// ErrNoSuchFieldParameter is returned by Header methods when the
	// operation being performed failed because the header exists, but a
	// sub-field of the header does not exist.
	ErrNoSuchFieldParameter = errors.New("no such header field parameter")

	// ErrManyFields is returned by Header methods when the operation
	// being performed failed because the there are multiple fields with the
	// given name.
	ErrManyFields = errors.New("many header fields found")
)

// These are standard headers defined in RFC 5322 and RFC 2045.
const (
	Bcc                     = "Bcc"
	Cc                      = "Cc"
	Comments                = "Comments"
	ContentDescription      = "Content-description"
	ContentDisposition      = "Content-disposition"
	ContentID               = "Content-id"
	ContentTransferEncoding = "Content-transfer-encoding"
	ContentType             = "Content-type"
	Date                    = "Date"
	From                    = "From"
	InReplyTo               = "In-reply-to"
	Keywords                = "Keywords"
	MessageID               = "Message-id"
	MIMEVersion             = "Mime-version"
	Received                = "Received"
	References              = "References"
	ReplyTo                 = "Reply-to"
	Sender                  = "Sender"
	Subject                 = "Subject"
	To                      = "To"
)

// Even more custom date formats, built from those seen in the wild that the
// usual parsers have trouble with.
const (
	// UnixDateWithEarlyYear is a weird one, eh?
	UnixDateWithEarlyYear = "Mon Jan 02 15:04:05 2006 MST"
)

// Header is the ordered list of fields read from a header block. Fields with
// the same name are kept, in order. A Header is not modified after Read
// returns it and is safe for concurrent use.
//
// The getter methods of this object will return an error if the field being
// fetched has not been set on the header. The error returned will be
// ErrNoSuchField.
type Header struct {
	fields    []*field.Field
	malformed []Malformed
	lbr       Break
	truncated bool
}

// New returns a header holding the given fields.
func New(fields ...*field.Field) *Header {
	return &Header{fields: fields}
}

// Len returns the number of fields in the header.
func (h *Header) Len() int {
	return len(h.fields)
}

// GetField returns the field at the given index.
func (h *Header) GetField(i int) *field.Field {
	return h.fields[i]
}

// ListFields returns all the fields in the order they were read. Do not modify
// the returned slice.
func (h *Header) ListFields() []*field.Field {
	return h.fields
}

// Break returns the line break found at the end of the first header line, or
// Meh if the header had no line breaks.
func (h *Header) Break() Break {
	return h.lbr
}

// Malformed returns the lines of the header that could not be read as header
// fields.
func (h *Header) Malformed() []Malformed {
	return h.malformed
}

// Truncated returns true if the header was longer than the maximum length
// and the remainder was skipped.
func (h *Header) Truncated() bool {
	return h.truncated
}

// GetIndexesNamed returns the indexes of the fields with the given name.
func (h *Header) GetIndexesNamed(name string) []int {
	var ixs []int
	for i, f := range h.fields {
		if f.Is(name) {
			ixs = append(ixs, i)
		}
	}
	return ixs
}

// GetAllFieldsNamed returns all the fields with the given name, in order.
func (h *Header) GetAllFieldsNamed(name string) []*field.Field {
	var fs []*field.Field
	for _, f := range h.fields {
		if f.Is(name) {
			fs = append(fs, f)
		}
	}
	return fs
}

// Get retrieves the decoded value of the named field.
//
// If the named field is not set in the header, it will return an empty string
// with ErrNoSuchField. If there are multiple headers for the given named field,
// it will return the first value found and return ErrManyFields.
func (h *Header) Get(name string) (string, error) {
	ixs := h.GetIndexesNamed(name)
	if len(ixs) == 0 {
		return "", ErrNoSuchField
	}

	b := h.GetField(ixs[0]).Body()
	if len(ixs) > 1 {
		return b, ErrManyFields
	}

	return b, nil
}

// getRaw works like Get, but returns the value without decoding encoded
// words. Parameterized values must be parsed before encoded words are
// decoded.
func (h *Header) getRaw(name string) (string, error) {
	ixs := h.GetIndexesNamed(name)
	if len(ixs) == 0 {
		return "", ErrNoSuchField
	}

	v := h.GetField(ixs[0]).Value()
	if len(ixs) > 1 {
		return v, ErrManyFields
	}

	return v, nil
}

// GetAll fetches all the decoded values for fields with the given name and
// returns them as a slice of strings, in order.
//
// It returns nil with ErrNoSuchField if no field with the given name is set on
// the header.
func (h *Header) GetAll(name string) ([]string, error) {
	fs := h.GetAllFieldsNamed(name)
	if len(fs) == 0 {
		return nil, ErrNoSuchField
	}

	bs := make([]string, len(fs))
	for i, f := range fs {
		bs[i] = f.Body()
	}

	return bs, nil
}

// ParseTime is a function that provides the time parsing used by GetTime() and
// GetDate() to parse dates to be used on any field body. This will attempt to
// parse the date using the format specified by RFC 5322 first and fallback to
// parsing it in many other formats.
//
// It either returns a parsed time or the parse error.
func ParseTime(body string) (time.Time, error) {
	t, err := mail.ParseDate(body)
	if err == nil {
		return t, nil
	}

	t, err = dateparse.ParseAny(body)
	if err == nil {
		return t, nil
	}

	t, err = time.Parse(UnixDateWithEarlyYear, body)
	if err == nil {
		return t, nil
	}

	return t, fmt.Errorf("time string %q cannot be parsed", body)
}

// GetTime gets the given date header field as a time.Time. It will attempt to
// parse the date in many formats, not just the format specified by RFC 5322
// (though, it will try that first).
//
// It will return an error if it is unable to parse the time value from the date
// header. It will return the zero value and ErrNoSuchField if the header does
// not exist. When more than one field has the name, the first is parsed and
// ErrManyFields is returned with it.
func (h *Header) GetTime(name string) (time.Time, error) {
	body, err := h.Get(name)
	if errors.Is(err, ErrNoSuchField) {
		return time.Time{}, err
	}

	t, perr := ParseTime(body)
	if perr != nil {
		return t, perr
	}

	return t, err
}

// GetParamValue will return a param.Value for the header field matching the
// given name.
//
// Parsing is lenient: when the field is malformed, the best-effort value is
// returned along with the parse error. This will return ErrNoSuchField if no
// field with the given name is present. When more than one field has the
// name, the first is parsed and ErrManyFields is returned with it.
func (h *Header) GetParamValue(name string) (*param.Value, error) {
	v, err := h.getRaw(name)
	if errors.Is(err, ErrNoSuchField) {
		return nil, err
	}

	pv, perr := param.Parse(v)
	if perr != nil {
		return pv, perr
	}

	return pv, err
}

// getParamValueParam returns the named parameter of a parameterized field, or
// ErrNoSuchFieldParameter if it is not set.
func (h *Header) getParamValueParam(name, p string) (string, error) {
	pv, err := h.GetParamValue(name)
	if pv == nil {
		return "", err
	}

	v := pv.Parameter(p)
	if v == "" {
		return "", ErrNoSuchFieldParameter
	}

	return v, nil
}

// GetContentType retrieves the Content-type header field as a param.Value.
func (h *Header) GetContentType() (*param.Value, error) {
	return h.GetParamValue(ContentType)
}

// GetMediaType returns the media type of the Content-type header, e.g.,
// "text/plain".
func (h *Header) GetMediaType() (string, error) {
	pv, err := h.GetContentType()
	if pv == nil {
		return "", err
	}
	return pv.MediaType(), err
}

// GetCharset returns the charset parameter of the Content-type header.
func (h *Header) GetCharset() (string, error) {
	return h.getParamValueParam(ContentType, param.Charset)
}

// GetBoundary returns the boundary parameter of the Content-type header.
func (h *Header) GetBoundary() (string, error) {
	return h.getParamValueParam(ContentType, param.Boundary)
}

// GetContentDisposition retrieves the Content-disposition header field as a
// param.Value.
func (h *Header) GetContentDisposition() (*param.Value, error) {
	return h.GetParamValue(ContentDisposition)
}

// GetPresentation returns the disposition of the Content-disposition header,
// e.g., "inline" or "attachment".
func (h *Header) GetPresentation() (string, error) {
	pv, err := h.GetContentDisposition()
	if pv == nil {
		return "", err
	}
	return pv.Disposition(), err
}

// GetFilename returns the filename parameter of the Content-disposition
// header. When that is not set, the name parameter of the Content-type header
// is tried.
func (h *Header) GetFilename() (string, error) {
	fn, err := h.getParamValueParam(ContentDisposition, param.Filename)
	if err == nil {
		return decodeParam(fn), nil
	}

	if n, nerr := h.getParamValueParam(ContentType, param.Name); nerr == nil {
		return decodeParam(n), nil
	}

	return "", err
}

// decodeParam decodes encoded words in a parameter value. Many mailers encode
// file names that way instead of using RFC 2231.
func decodeParam(v string) string {
	d, err := field.Decode(v)
	if err != nil {
		return v
	}
	return d
}

// GetTransferEncoding returns the value of the Content-transfer-encoding
// header, lower-cased and trimmed.
func (h *Header) GetTransferEncoding() (string, error) {
	v, err := h.getRaw(ContentTransferEncoding)
	return strings.ToLower(strings.TrimSpace(v)), err
}

// GetDate returns the Date header as a time.Time.
func (h *Header) GetDate() (time.Time, error) {
	return h.GetTime(Date)
}

// GetSubject returns the decoded Subject header.
func (h *Header) GetSubject() (string, error) {
	return h.Get(Subject)
}

// GetMessageID returns the Message-id header.
func (h *Header) GetMessageID() (string, error) {
	return h.Get(MessageID)
}

// GetContentID returns the Content-id header.
func (h *Header) GetContentID() (string, error) {
	return h.Get(ContentID)
}
