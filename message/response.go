// Package message assembles complete HTTP/1.1 responses out of the wire
// primitives: status line, header section, and a body delimited per the
// framing rules of RFC 9112 section 6.
package message

import (
	"bytes"

	"github.com/pkg/errors"

	"httpwire/wire"
	"httpwire/wire/chunked"
)

// Response is a fully assembled HTTP response.
type Response struct {
	Version    wire.Version
	StatusCode uint16
	Reason     string
	Headers    Headers
	Body       []byte
	// Trailers holds fields received after a chunked body. Empty otherwise.
	Trailers Headers
}

func (r *Response) Class() StatusClass { return ClassOf(r.StatusCode) }

func (r *Response) IsSuccess() bool     { return r.Class() == StatusClassSuccessful }
func (r *Response) IsRedirect() bool    { return r.Class() == StatusClassRedirection }
func (r *Response) IsClientError() bool { return r.Class() == StatusClassClientError }
func (r *Response) IsServerError() bool { return r.Class() == StatusClassServerError }

// Text returns the body interpreted as a string.
func (r *Response) Text() string { return string(r.Body) }

func (r *Response) GetHeader(name string) (string, bool) {
	return r.Headers.Get(name)
}

// Decompressor undoes a Content-Encoding. It receives the raw encoding
// header value and the body as read off the wire.
type Decompressor func(encoding string, body []byte) ([]byte, error)

// ParseOptions adjusts response assembly.
type ParseOptions struct {
	// ForceNoBody treats the response as header-only regardless of its
	// framing headers. Set for responses to HEAD and for 2xx responses
	// to CONNECT.
	ForceNoBody bool
	// Decompressor, when non-nil, is applied to the assembled body if the
	// response carries a Content-Encoding header.
	Decompressor Decompressor
}

// ParseResponse parses one complete response from input. Leading empty
// lines before the status line are skipped. In this single-shot form any
// bytes left over after a delimited body are an error.
func ParseResponse(input []byte, opts ParseOptions) (*Response, error) {
	line, headers, rest, err := ParseResponseHeaders(input)
	if err != nil {
		return nil, err
	}

	strategy := Strategy{Kind: StrategyNoBody}
	if !opts.ForceNoBody {
		strategy, err = BodyStrategy(line.StatusCode, headers)
		if err != nil {
			return nil, err
		}
	}

	body, trailers, err := assembleBody(rest, strategy, true)
	if err != nil {
		return nil, err
	}
	body, err = maybeDecompress(body, headers, opts)
	if err != nil {
		return nil, err
	}

	return &Response{
		Version:    line.Version,
		StatusCode: line.StatusCode,
		Reason:     line.Reason,
		Headers:    headers,
		Body:       body,
		Trailers:   trailers,
	}, nil
}

// ParseResponseHeaders parses the status line and header section, returning
// the unconsumed remainder. It performs the header-level framing checks that
// do not depend on the body bytes.
func ParseResponseHeaders(input []byte) (wire.StatusLine, Headers, []byte, error) {
	data := skipLeadingLineEnds(input)

	line, rest, err := wire.ParseStatusLine(data)
	if err != nil {
		return wire.StatusLine{}, Headers{}, nil, err
	}
	fields, rest, err := wire.ParseFields(rest)
	if err != nil {
		return wire.StatusLine{}, Headers{}, nil, err
	}
	headers := NewHeaders(fields...)

	if headers.Has("Transfer-Encoding") && !line.Version.AtLeast(wire.Version11) {
		return wire.StatusLine{}, Headers{}, nil,
			errors.Wrapf(wire.ErrTransferEncodingVersion, "version %s", line.Version)
	}
	return line, headers, rest, nil
}

// ParseBody assembles the body from input given the already-parsed status
// code and headers. Used for two-phase parsing where headers and body arrive
// separately.
func ParseBody(input []byte, status uint16, headers Headers, opts ParseOptions) ([]byte, Headers, error) {
	strategy := Strategy{Kind: StrategyNoBody}
	if !opts.ForceNoBody {
		var err error
		strategy, err = BodyStrategy(status, headers)
		if err != nil {
			return nil, Headers{}, err
		}
	}
	body, trailers, err := assembleBody(input, strategy, true)
	if err != nil {
		return nil, Headers{}, err
	}
	body, err = maybeDecompress(body, headers, opts)
	if err != nil {
		return nil, Headers{}, err
	}
	return body, trailers, nil
}

// assembleBody realizes the body bytes under strategy. In strict mode bytes
// left over after a delimited body fail with [wire.ErrExtraData]; the
// incremental reader passes strict=false since it stops feeding once the
// body is complete.
func assembleBody(input []byte, strategy Strategy, strict bool) ([]byte, Headers, error) {
	switch strategy.Kind {
	case StrategyNoBody:
		return nil, Headers{}, nil

	case StrategyContentLength:
		if len(input) < strategy.Length {
			return nil, Headers{}, errors.Wrapf(wire.ErrUnexpectedEOF,
				"body has %d of %d bytes", len(input), strategy.Length)
		}
		if strict && len(input) > strategy.Length {
			return nil, Headers{}, errors.Wrapf(wire.ErrExtraData,
				"%d bytes after body", len(input)-strategy.Length)
		}
		body := make([]byte, strategy.Length)
		copy(body, input[:strategy.Length])
		return body, Headers{}, nil

	case StrategyChunked:
		dec := chunked.NewDecoder()
		var out bytes.Buffer
		rest, err := dec.Decode(input, &out)
		if err != nil {
			return nil, Headers{}, err
		}
		if !dec.Complete() {
			return nil, Headers{}, errors.Wrap(wire.ErrUnexpectedEOF,
				"chunked body not terminated")
		}
		if strict && len(rest) > 0 {
			return nil, Headers{}, errors.Wrapf(wire.ErrExtraData,
				"%d bytes after chunked body", len(rest))
		}
		return out.Bytes(), NewHeaders(dec.Trailers()...), nil

	case StrategyUntilClose:
		body := make([]byte, len(input))
		copy(body, input)
		return body, Headers{}, nil

	default:
		return nil, Headers{}, errors.Errorf("unknown body strategy %d", strategy.Kind)
	}
}

func maybeDecompress(body []byte, headers Headers, opts ParseOptions) ([]byte, error) {
	if opts.Decompressor == nil {
		return body, nil
	}
	enc, ok := headers.Get("Content-Encoding")
	if !ok || enc == "" {
		return body, nil
	}
	out, err := opts.Decompressor(enc, body)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %q body", enc)
	}
	return out, nil
}

// skipLeadingLineEnds drops empty lines preceding the status line. Some
// servers emit a stray CRLF after a previous message's body.
func skipLeadingLineEnds(input []byte) []byte {
	for {
		switch {
		case len(input) >= 2 && input[0] == '\r' && input[1] == '\n':
			input = input[2:]
		case len(input) >= 1 && input[0] == '\n':
			input = input[1:]
		default:
			return input
		}
	}
}
