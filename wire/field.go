package wire

import (
	"bytes"

	"httpwire/rule"

	"github.com/pkg/errors"
)

// Field is a single header field. Name keeps its original case; comparisons
// are done case-insensitively by consumers.
type Field struct {
	Name  string
	Value string
}

// ParseFields parses the header section that follows the start line, up to
// and including the empty line that terminates it. Fields are returned in
// wire order, names verbatim. Obsolete line folding (CRLF followed by SP or
// HTAB) is accepted and replaced by a single SP per RFC 9112 section 5.2.
func ParseFields(input []byte) ([]Field, []byte, error) {
	if len(input) > 0 && rule.IsOWS(input[0]) {
		// Whitespace between the start line and the first header field
		// could hide a smuggled field. Reject instead of skipping.
		return nil, nil, errors.Wrap(ErrInvalidWhitespace, "whitespace before first header field")
	}

	fields := make([]Field, 0, 8)
	rest := input

	for {
		field, after, end, err := parseField(rest)
		if err != nil {
			return nil, nil, err
		}
		rest = after

		if end {
			return fields, rest, nil
		}

		fields = append(fields, field)
	}
}

// parseField parses one field line. end is true when the terminating empty
// line was consumed instead of a field.
func parseField(input []byte) (field Field, rest []byte, end bool, err error) {
	if len(input) == 0 {
		return Field{}, nil, false, errors.Wrap(ErrUnexpectedEOF, "header section not terminated")
	}

	if input[0] == '\r' || input[0] == '\n' {
		rest, err := ConsumeLineEnd(input)
		if err != nil {
			return Field{}, nil, false, err
		}
		return Field{}, rest, true, nil
	}

	name, rest, err := parseFieldName(input)
	if err != nil {
		return Field{}, nil, false, err
	}

	value, rest, err := parseFieldValue(rest)
	if err != nil {
		return Field{}, nil, false, err
	}

	return Field{Name: name, Value: value}, rest, false, nil
}

func parseFieldName(input []byte) (string, []byte, error) {
	colon := -1
	for i, c := range input {
		if c == ':' {
			colon = i
			break
		}
		if c == '\r' || c == '\n' {
			break
		}
	}

	if colon < 0 {
		return "", nil, errors.Wrap(ErrInvalidHeaderName, "colon separator not found")
	}
	if colon == 0 {
		return "", nil, errors.Wrap(ErrInvalidHeaderName, "empty field name")
	}

	name := input[:colon]
	for _, c := range name {
		if !rule.IsTokenChar(c) {
			return "", nil, errors.Wrap(ErrInvalidHeaderName, "field name is not a token")
		}
	}

	return string(name), input[colon+1:], nil
}

func parseFieldValue(input []byte) (string, []byte, error) {
	for len(input) > 0 && rule.IsOWS(input[0]) {
		input = input[1:]
	}

	buf := bytes.NewBuffer(nil)
	rest := input

	for {
		end := 0
		for end < len(rest) && rest[end] != '\r' && rest[end] != '\n' {
			end++
		}
		buf.Write(rest[:end])

		var err error
		rest, err = ConsumeLineEnd(rest[end:])
		if err != nil {
			return "", nil, err
		}

		if len(rest) == 0 || !rule.IsOWS(rest[0]) {
			break
		}

		// obs-fold: the line break plus folding whitespace collapses
		// into a single SP and the value continues.
		for len(rest) > 0 && rule.IsOWS(rest[0]) {
			rest = rest[1:]
		}
		buf.WriteByte(rule.SP)
	}

	value := rule.TrimOWS(buf.Bytes())

	return string(value), rest, nil
}
