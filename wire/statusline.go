// Package wire implements byte-level HTTP/1.1 message parsing: start lines,
// header fields (including obsolete line folding) and framing boundary
// detection over possibly-partial buffers (RFC 9112 sections 2-5).
package wire

import (
	"github.com/pkg/errors"
)

// [Major, Minor]
type Version [2]uint8

var Version11 = Version{1, 1}

func (ver Version) String() string {
	return "HTTP/" + string([]byte{'0' + ver[0], '.', '0' + ver[1]})
}

func (ver Version) AtLeast(other Version) bool {
	if ver[0] != other[0] {
		return ver[0] > other[0]
	}
	return ver[1] >= other[1]
}

// parseVersion parses exactly "HTTP/" DIGIT "." DIGIT at the start of input.
func parseVersion(input []byte) (Version, []byte, error) {
	if len(input) < 8 {
		return Version{}, nil, errors.Wrap(ErrUnexpectedEOF, "reading version")
	}

	if string(input[:5]) != "HTTP/" {
		return Version{}, nil, errors.Wrap(ErrInvalidVersion, "missing HTTP/ prefix")
	}

	major, dot, minor := input[5], input[6], input[7]
	if major < '0' || major > '9' || minor < '0' || minor > '9' {
		return Version{}, nil, errors.Wrap(ErrInvalidVersion, "version digits are not ASCII digits")
	}
	if dot != '.' {
		return Version{}, nil, errors.Wrap(ErrInvalidVersion, "missing dot separator")
	}

	return Version{major - '0', minor - '0'}, input[8:], nil
}

type StatusLine struct {
	Version    Version
	StatusCode uint16
	Reason     string
}

// ParseStatusLine parses "HTTP-version SP 3DIGIT SP reason-phrase CRLF" at
// the start of input and returns the bytes after the terminating CRLF. The
// reason-phrase may be empty and may contain any byte up to CR/LF, including
// obs-text.
func ParseStatusLine(input []byte) (StatusLine, []byte, error) {
	ver, rest, err := parseVersion(input)
	if err != nil {
		return StatusLine{}, nil, err
	}

	if len(rest) == 0 || rest[0] != ' ' {
		return StatusLine{}, nil, errors.Wrap(ErrInvalidWhitespace, "missing SP after version")
	}
	rest = rest[1:]

	code, rest, err := parseStatusCode(rest)
	if err != nil {
		return StatusLine{}, nil, err
	}

	if len(rest) == 0 || rest[0] != ' ' {
		return StatusLine{}, nil, errors.Wrap(ErrInvalidWhitespace, "missing SP after status code")
	}
	rest = rest[1:]

	end := 0
	for end < len(rest) && rest[end] != '\r' && rest[end] != '\n' {
		end++
	}
	reason := rest[:end]

	rest, err = ConsumeLineEnd(rest[end:])
	if err != nil {
		return StatusLine{}, nil, err
	}

	return StatusLine{Version: ver, StatusCode: code, Reason: string(reason)}, rest, nil
}

func parseStatusCode(input []byte) (uint16, []byte, error) {
	if len(input) < 3 {
		return 0, nil, errors.Wrap(ErrInvalidStatusCode, "fewer than three digits")
	}

	code := uint16(0)
	for _, c := range input[:3] {
		if c < '0' || c > '9' {
			return 0, nil, errors.Wrap(ErrInvalidStatusCode, "status code is not numeric")
		}
		code = code*10 + uint16(c-'0')
	}

	if code < 100 || code > 599 {
		return 0, nil, errors.Wrap(ErrInvalidStatusCode, "status code out of range")
	}

	return code, input[3:], nil
}

// ConsumeLineEnd consumes a CRLF or a lone LF. A CR not followed by LF is
// rejected, never silently accepted as a terminator.
func ConsumeLineEnd(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, errors.Wrap(ErrMissingCRLF, "input ended before line terminator")
	}

	if input[0] == '\r' {
		if len(input) < 2 {
			return nil, errors.Wrap(ErrMissingCRLF, "input ended after CR")
		}
		if input[1] != '\n' {
			return nil, errors.Wrap(ErrBareCR, "CR not followed by LF")
		}
		return input[2:], nil
	}

	if input[0] == '\n' {
		return input[1:], nil
	}

	return nil, errors.Wrap(ErrMissingCRLF, "line terminator not found")
}
