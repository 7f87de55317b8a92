package param

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zostay/go-mailmime/message/charset"
)

const (
	// Charset is the name of the charset parameter that may be present in the
	// Content-type header.
	Charset = "charset"

	// Boundary is the name of the boundary parameter that may be present in the
	// Content-type header.
	Boundary = "boundary"

	// Filename is the name of the filename parameter that may be present in the
	// Content-disposition header.
	Filename = "filename"

	// Name is the name of the name parameter. Older mailers put the file name
	// of an attachment here, on the Content-type header.
	Name = "name"
)

// Errors reported by Parse. The Value returned alongside them is still usable.
var (
	// ErrBadValue is returned when the primary value contains characters that
	// are not permitted in a MIME token.
	ErrBadValue = errors.New("malformed header value")

	// ErrBadParameter is returned when a parameter cannot be parsed. The
	// offending parameter is skipped or truncated.
	ErrBadParameter = errors.New("malformed header parameter")
)

// Param is a single parameter of a Value.
type Param struct {
	// Name is the lower-cased parameter name, with any RFC 2231 section and
	// extension markers removed.
	Name string

	// Value is the decoded parameter value.
	Value string

	// Language is the RFC 2231 language tag, if one was given.
	Language string
}

// Value represents a parsed parameterized header field, such as is used in the
// Content-type and Content-disposition headers. A Value object is immutable.
type Value struct {
	v  string
	ps []Param
}

// New creates a new parameterized header field with the given parameters.
func New(v string, ps ...Param) *Value {
	return &Value{v, ps}
}

// isTokenChar reports whether c may appear in an RFC 2045 token.
func isTokenChar(c byte) bool {
	if c <= ' ' || c >= 0x7f {
		return false
	}
	return !strings.ContainsRune(`()<>@,;:\"/[]?=`, rune(c))
}

// validPrimary reports whether v is made of tokens, optionally separated by a
// single slash.
func validPrimary(v string) bool {
	if v == "" {
		return false
	}
	slashes := 0
	for i := 0; i < len(v); i++ {
		if v[i] == '/' {
			slashes++
			continue
		}
		if !isTokenChar(v[i]) {
			return false
		}
	}
	return slashes <= 1 && v[0] != '/' && v[len(v)-1] != '/'
}

// section is one piece of a parameter split across RFC 2231 continuations.
type section struct {
	n        int
	value    string
	extended bool
}

// pending collects the sections of one parameter while parsing.
type pending struct {
	name     string
	sections []section
}

// Parse takes a header field body, parses it as a Value and returns it. The
// returned Value is never nil. If the body is malformed, the error describes
// the first problem found.
func Parse(v string) (*Value, error) {
	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	primary, rest, _ := strings.Cut(v, ";")
	primary = strings.ToLower(strings.TrimSpace(primary))
	if !validPrimary(primary) {
		fail(fmt.Errorf("%w: %q", ErrBadValue, primary))
	}

	var (
		order []*pending
		byKey = map[string]*pending{}
	)

	for rest != "" {
		rest = strings.TrimLeft(rest, " \t\r\n;")
		if rest == "" {
			break
		}

		var name, value string
		eq := strings.IndexAny(rest, "=;")
		if eq < 0 || rest[eq] == ';' {
			// a parameter without a value
			end := len(rest)
			if eq >= 0 {
				end = eq
			}
			fail(fmt.Errorf("%w: %q has no value", ErrBadParameter, strings.TrimSpace(rest[:end])))
			rest = rest[end:]
			continue
		}

		name = strings.ToLower(strings.TrimSpace(rest[:eq]))
		rest = strings.TrimLeft(rest[eq+1:], " \t\r\n")

		var err error
		value, rest, err = parseValue(rest)
		if err != nil {
			fail(fmt.Errorf("%w: %s: %w", ErrBadParameter, name, err))
		}

		if name == "" {
			fail(fmt.Errorf("%w: missing name", ErrBadParameter))
			continue
		}

		base, sec := splitName(name)
		sec.value = value

		p, ok := byKey[base]
		if !ok {
			p = &pending{name: base}
			byKey[base] = p
			order = append(order, p)
		}
		p.sections = append(p.sections, sec)
	}

	ps := make([]Param, 0, len(order))
	for _, p := range order {
		pm, err := p.merge()
		if err != nil {
			fail(fmt.Errorf("%w: %s: %w", ErrBadParameter, p.name, err))
		}
		ps = append(ps, pm)
	}

	return &Value{primary, ps}, firstErr
}

// parseValue reads a quoted string or a token from the front of s and returns
// the value and the remainder of s.
func parseValue(s string) (string, string, error) {
	if !strings.HasPrefix(s, `"`) {
		end := strings.IndexByte(s, ';')
		if end < 0 {
			end = len(s)
		}
		return strings.TrimSpace(s[:end]), s[end:], nil
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			rest := s[i+1:]
			// anything between the closing quote and the next ";" is junk
			if end := strings.IndexByte(rest, ';'); end >= 0 {
				rest = rest[end:]
			} else {
				rest = ""
			}
			return b.String(), rest, nil
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), "", errors.New("unterminated quoted string")
}

// splitName separates the RFC 2231 section number and extended marker from a
// parameter name.
func splitName(name string) (string, section) {
	var sec section
	if strings.HasSuffix(name, "*") {
		sec.extended = true
		name = name[:len(name)-1]
	}

	if ix := strings.LastIndexByte(name, '*'); ix >= 0 {
		if n, err := strconv.Atoi(name[ix+1:]); err == nil && n >= 0 {
			sec.n = n
			name = name[:ix]
		}
	}

	return name, sec
}

// merge joins the sections of a parameter and decodes any extended value.
func (p *pending) merge() (Param, error) {
	sort.SliceStable(p.sections, func(i, j int) bool {
		return p.sections[i].n < p.sections[j].n
	})

	pm := Param{Name: p.name}
	if len(p.sections) == 1 && !p.sections[0].extended {
		pm.Value = p.sections[0].value
		return pm, nil
	}

	var (
		cs  string
		raw strings.Builder
	)
	for i, sec := range p.sections {
		if i > 0 && sec.n == p.sections[i-1].n {
			// duplicate section, the first one wins
			continue
		}

		v := sec.value
		if sec.extended && i == 0 {
			if parts := strings.SplitN(v, "'", 3); len(parts) == 3 {
				cs, pm.Language, v = parts[0], parts[1], parts[2]
			}
		}

		if sec.extended {
			v = percentDecode(v)
		}
		raw.WriteString(v)
	}

	if cs == "" {
		pm.Value = raw.String()
		return pm, nil
	}

	s, err := charset.DecodeString(cs, raw.String())
	pm.Value = s
	return pm, err
}

// percentDecode decodes %XX escapes. Invalid escapes are kept as they are.
func percentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(n))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Value returns the primary value of the Value. This is the value before the
// first semi-colon, lower-cased.
func (pv *Value) Value() string {
	return pv.v
}

// Disposition is a synonym for Value() and returns the Content-disposition,
// either "inline" or "attachment".
func (pv *Value) Disposition() string {
	return pv.v
}

// MediaType is a synonym for Value() and returns the Content-type value, e.g.,
// "text/html", "image/jpeg", "multipart/mixed", etc.
func (pv *Value) MediaType() string {
	return pv.v
}

// Type is only intended for use with the Content-type header. It searches the
// MediaType() for a slash. If found, it will return the string before that
// slash. If no slash is found, it returns an empty string.
//
// For example, if MediaType() returns "image/jpeg", this method will return
// "image".
func (pv *Value) Type() string {
	if ix := strings.IndexRune(pv.v, '/'); ix >= 0 {
		return pv.v[:ix]
	}
	return ""
}

// Subtype is only intended for use with the Content-type header. It searches
// the MediaType() for a slash. If found, it will return the string after that
// slash. If no slash is found, it returns an empty string.
//
// For example, if MediaType() returns "text/html", this method will return
// "html".
func (pv *Value) Subtype() string {
	if ix := strings.IndexRune(pv.v, '/'); ix >= 0 {
		return pv.v[ix+1:]
	}
	return ""
}

// Params returns the parameters in the order they appeared in the header. Do
// not modify the returned slice.
func (pv *Value) Params() []Param {
	return pv.ps
}

// Parameters returns the parameters as a map. When a parameter was given more
// than once, the first value wins.
func (pv *Value) Parameters() map[string]string {
	m := make(map[string]string, len(pv.ps))
	for _, p := range pv.ps {
		if _, ok := m[p.Name]; !ok {
			m[p.Name] = p.Value
		}
	}
	return m
}

// Parameter returns the value of the parameter with the given name. Names are
// matched case-insensitively.
func (pv *Value) Parameter(k string) string {
	k = strings.ToLower(k)
	for _, p := range pv.ps {
		if p.Name == k {
			return p.Value
		}
	}
	return ""
}

// Filename returns the value of the "filename" parameter. It is intended for
// use with the Content-disposition header.
func (pv *Value) Filename() string {
	return pv.Parameter(Filename)
}

// Name returns the value of the "name" parameter.
func (pv *Value) Name() string {
	return pv.Parameter(Name)
}

// Charset returns the value of the "charset" parameter. It is intended for use
// with the Content-type header.
func (pv *Value) Charset() string {
	return pv.Parameter(Charset)
}

// Boundary returns the value of the "boundary" parameter. It is intended for
// use with the Content-type header.
func (pv *Value) Boundary() string {
	return pv.Parameter(Boundary)
}

// String returns the serialized value of the Value including the primary value
// and all parameters, in order.
func (pv *Value) String() string {
	parts := make([]string, len(pv.ps)+1)
	parts[0] = pv.v

	for n, p := range pv.ps {
		parts[n+1] = fmt.Sprintf("%s=%s", p.Name, quote(p.Value))
	}

	return strings.Join(parts, "; ")
}

// quote returns v as a token when possible, otherwise as a quoted string.
func quote(v string) string {
	if v != "" {
		token := true
		for i := 0; i < len(v); i++ {
			if !isTokenChar(v[i]) {
				token = false
				break
			}
		}
		if token {
			return v
		}
	}

	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

// Clone returns a deep copy of the Value.
func (pv *Value) Clone() *Value {
	ps := make([]Param, len(pv.ps))
	copy(ps, pv.ps)
	return &Value{pv.v, ps}
}
