package request

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"httpwire/message"
	"httpwire/rule"
	"httpwire/uri"
	"httpwire/wire"
	"httpwire/wire/chunked"
)

// Builder accumulates the parts of a request and renders them to wire
// bytes. Methods chain; validation happens in [Builder.Build].
type Builder struct {
	method    string
	target    string
	headers   message.Headers
	body      []byte
	hasBody   bool
	forceBody bool
	chunked   bool
}

func NewBuilder(method, target string) *Builder {
	return &Builder{method: method, target: target}
}

// Method returns the request method.
func (b *Builder) Method() string { return b.method }

// Target returns the request target as given.
func (b *Builder) Target() string { return b.target }

// Header appends a header field. Order is preserved and duplicates are
// allowed.
func (b *Builder) Header(name, value string) *Builder {
	b.headers.Add(name, value)
	return b
}

// Query appends a percent-encoded key=value pair to the request target's
// query component.
func (b *Builder) Query(key, value string) *Builder {
	sep := "?"
	if strings.Contains(b.target, "?") {
		sep = "&"
	}
	b.target += sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
	return b
}

// Body sets the request body.
func (b *Builder) Body(body []byte) *Builder {
	b.body = body
	b.hasBody = true
	return b
}

func (b *Builder) BodyString(body string) *Builder {
	return b.Body([]byte(body))
}

// ForceBody permits a body on a method that conventionally has none, such
// as GET or DELETE. TRACE still refuses one.
func (b *Builder) ForceBody() *Builder {
	b.forceBody = true
	return b
}

// Chunked sends the body with the chunked transfer coding instead of a
// Content-Length header.
func (b *Builder) Chunked() *Builder {
	b.chunked = true
	return b
}

// Build validates the accumulated request and renders its wire form.
func (b *Builder) Build() ([]byte, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	target := b.target
	if target == "" {
		target = "/"
	}

	var out bytes.Buffer
	out.WriteString(b.method)
	out.WriteByte(rule.SP)
	out.WriteString(target)
	out.WriteByte(rule.SP)
	out.WriteString("HTTP/1.1")
	out.Write(rule.CRLF)

	for _, f := range b.headers.Fields() {
		out.WriteString(f.Name)
		out.WriteString(": ")
		out.WriteString(f.Value)
		out.Write(rule.CRLF)
	}

	switch {
	case b.chunked:
		out.WriteString("Transfer-Encoding: chunked")
		out.Write(rule.CRLF)
		out.Write(rule.CRLF)
		enc := chunked.NewEncoder(&out)
		if err := enc.WriteChunk(b.body); err != nil {
			return nil, err
		}
		if err := enc.Close(nil); err != nil {
			return nil, err
		}

	case b.hasBody && !b.headers.Has("Content-Length") && !b.headers.Has("Transfer-Encoding"):
		out.WriteString("Content-Length: ")
		out.WriteString(strconv.Itoa(len(b.body)))
		out.Write(rule.CRLF)
		out.Write(rule.CRLF)
		out.Write(b.body)

	default:
		out.Write(rule.CRLF)
		out.Write(b.body)
	}

	return out.Bytes(), nil
}

func (b *Builder) validate() error {
	if err := ValidateMethod(b.method); err != nil {
		return err
	}

	wantsBody := b.hasBody && len(b.body) > 0
	if wantsBody && !MethodAllowsBody(b.method) {
		if !b.forceBody || b.method == MethodTrace {
			return errors.Wrapf(wire.ErrBodyNotAllowed, "method %s", b.method)
		}
	}

	switch b.headers.Count("Host") {
	case 0:
		return wire.ErrMissingHostHeader
	case 1:
	default:
		return wire.ErrMultipleHostHeaders
	}
	host, _ := b.headers.Get("Host")
	if err := uri.AssertValidHostValue(host); err != nil {
		return errors.Wrapf(wire.ErrInvalidHostValue, "host %q", host)
	}

	for _, f := range b.headers.Fields() {
		if !rule.IsValidToken(f.Name) {
			return errors.Wrapf(wire.ErrInvalidHeaderName, "name %q", f.Name)
		}
		if err := validateFieldValue(f.Value); err != nil {
			return errors.Wrapf(err, "header %s", f.Name)
		}
	}

	if err := b.validateTE(); err != nil {
		return err
	}
	return b.validateFraming()
}

// validateFieldValue rejects values that would corrupt the wire framing:
// any CR or LF is refused, including obsolete line folding.
func validateFieldValue(v string) error {
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case rule.CR:
			if i+2 < len(v) && v[i+1] == rule.LF && rule.IsOWS(v[i+2]) {
				return wire.ErrObsoleteFold
			}
			return errors.Wrap(wire.ErrBareCR, "CR in field value")
		case rule.LF:
			return errors.Wrap(wire.ErrBareCR, "LF in field value")
		}
	}
	return nil
}

// validateTE enforces the rules for the TE request header: it must not name
// the chunked coding, and its presence requires "TE" in Connection.
func (b *Builder) validateTE() error {
	values := b.headers.GetAll("TE")
	if len(values) == 0 {
		return nil
	}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			token := strings.ToLower(rule.TrimOWSString(part))
			// rank parameters may follow the coding name
			if name, _, found := strings.Cut(token, ";"); found {
				token = rule.TrimOWSString(name)
			}
			if token == "chunked" {
				return wire.ErrChunkedInTE
			}
		}
	}

	for _, v := range b.headers.GetAll("Connection") {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(rule.TrimOWSString(part), "TE") {
				return nil
			}
		}
	}
	return wire.ErrTEMissingConnection
}

func (b *Builder) validateFraming() error {
	chunkedInHeader := false
	for _, v := range b.headers.GetAll("Transfer-Encoding") {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(rule.TrimOWSString(part), "chunked") {
				chunkedInHeader = true
			}
		}
	}

	if b.chunked && chunkedInHeader {
		return wire.ErrChunkedAppliedTwice
	}
	if (b.chunked || b.headers.Has("Transfer-Encoding")) && b.headers.Has("Content-Length") {
		return wire.ErrConflictingFraming
	}
	return nil
}
