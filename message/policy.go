package message

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"httpwire/rule"
	"httpwire/wire"
)

// StrategyKind says how the response body is delimited on the wire.
type StrategyKind uint8

const (
	// StrategyNoBody means the message has no body at all.
	StrategyNoBody StrategyKind = iota
	// StrategyContentLength means the body is exactly Length bytes.
	StrategyContentLength
	// StrategyChunked means the body uses the chunked transfer coding.
	StrategyChunked
	// StrategyUntilClose means the body runs until the connection closes.
	StrategyUntilClose
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyNoBody:
		return "no-body"
	case StrategyContentLength:
		return "content-length"
	case StrategyChunked:
		return "chunked"
	case StrategyUntilClose:
		return "until-close"
	default:
		return "unknown"
	}
}

// Strategy is the resolved body framing for one response.
type Strategy struct {
	Kind StrategyKind
	// Length is the body size in bytes. Only meaningful when Kind is
	// [StrategyContentLength].
	Length int
}

// BodyStrategy resolves the body framing for a response with the given
// status code and header section, applying the RFC 9112 precedence rules.
// Responses carrying both Transfer-Encoding and Content-Length are rejected
// outright rather than letting one win.
func BodyStrategy(status uint16, headers Headers) (Strategy, error) {
	hasTE := headers.Has("Transfer-Encoding")

	if hasTE && (status < 200 || status == 204) {
		return Strategy{}, errors.Wrapf(wire.ErrTransferEncodingForbidden,
			"status %d", status)
	}
	if status < 200 || status == 204 || status == 304 {
		return Strategy{Kind: StrategyNoBody}, nil
	}
	if hasTE && headers.Has("Content-Length") {
		return Strategy{}, wire.ErrConflictingFraming
	}

	if hasTE {
		codings := transferCodings(headers)
		for i, c := range codings {
			if c == "chunked" && i != len(codings)-1 {
				return Strategy{}, wire.ErrChunkedNotFinal
			}
		}
		if len(codings) > 0 && codings[len(codings)-1] == "chunked" {
			return Strategy{Kind: StrategyChunked}, nil
		}
		// Transfer-Encoding without a final chunked coding leaves the
		// length unknowable; read to connection close.
		return Strategy{Kind: StrategyUntilClose}, nil
	}

	if headers.Has("Content-Length") {
		n, err := contentLength(headers)
		if err != nil {
			return Strategy{}, err
		}
		return Strategy{Kind: StrategyContentLength, Length: n}, nil
	}

	// Without any length signal and without chunking, nothing is read.
	return Strategy{Kind: StrategyNoBody}, nil
}

// transferCodings flattens every Transfer-Encoding value into a list of
// lowercased coding tokens in wire order.
func transferCodings(headers Headers) []string {
	codings := make([]string, 0, 1)
	for _, v := range headers.GetAll("Transfer-Encoding") {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToLower(rule.TrimOWSString(part))
			if part != "" {
				codings = append(codings, part)
			}
		}
	}
	return codings
}

// contentLength parses the Content-Length value. Multiple fields are
// tolerated only when every value is byte-identical.
func contentLength(headers Headers) (int, error) {
	values := headers.GetAll("Content-Length")
	for _, v := range values[1:] {
		if v != values[0] {
			return 0, errors.Wrap(wire.ErrInvalidContentLength,
				"multiple differing Content-Length values")
		}
	}

	raw := rule.TrimOWSString(values[0])
	for i := 0; i < len(raw); i++ {
		if !rule.IsDigit(raw[i]) {
			return 0, errors.Wrapf(wire.ErrInvalidContentLength, "value %q", raw)
		}
	}
	n, err := strconv.ParseUint(raw, 10, 63)
	if err != nil {
		return 0, errors.Wrapf(wire.ErrInvalidContentLength, "value %q", raw)
	}
	return int(n), nil
}
