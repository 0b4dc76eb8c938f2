package wire

import (
	"bytes"

	"github.com/pkg/errors"
)

var (
	headerTerminator  = []byte("\r\n\r\n")
	chunkedTerminator = []byte("0\r\n\r\n")
)

// FindHeaderEnd returns the position just past the CRLF CRLF that terminates
// the header section, or -1 when the buffer does not yet contain one.
func FindHeaderEnd(data []byte) int {
	idx := bytes.Index(data, headerTerminator)
	if idx < 0 {
		return -1
	}
	return idx + len(headerTerminator)
}

// HasCompleteHeaders reports whether data contains a full header section.
func HasCompleteHeaders(data []byte) bool {
	return bytes.Contains(data, headerTerminator)
}

// HasChunkedTerminator reports whether data contains the minimal last-chunk
// sequence "0\r\n\r\n" anywhere. This is a deliberately permissive check:
// the chunked decoder does the strict validation when the body is parsed.
func HasChunkedTerminator(data []byte) bool {
	return bytes.Contains(data, chunkedTerminator)
}

// SplitHeaders splits data into the header section (start line included, the
// terminating CRLF CRLF excluded) and the bytes after it.
func SplitHeaders(data []byte) (head, rest []byte, err error) {
	end := FindHeaderEnd(data)
	if end < 0 {
		return nil, nil, errors.Wrap(ErrUnexpectedEOF, "header section incomplete")
	}

	return data[:end-len(headerTerminator)], data[end:], nil
}
