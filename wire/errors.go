package wire

import "github.com/pkg/errors"

// The closed set of wire-level parse and serialize failures. Malformed input
// is always rejected with one of these; callers classify with [errors.Is].
var (
	ErrInvalidVersion      = errors.New("invalid HTTP version")
	ErrInvalidMethod       = errors.New("invalid method")
	ErrInvalidStatusCode   = errors.New("invalid status code")
	ErrInvalidReasonPhrase = errors.New("invalid reason phrase")
	ErrInvalidHeaderName   = errors.New("invalid header name")
	ErrInvalidHeaderValue  = errors.New("invalid header value")
	ErrMissingCRLF         = errors.New("missing CRLF")
	ErrBareCR              = errors.New("bare CR not allowed")
	ErrUnexpectedEOF       = errors.New("unexpected end of input")
	ErrInvalidWhitespace   = errors.New("invalid whitespace")
	ErrLineTooLong         = errors.New("line too long")
	ErrHeaderTooLarge      = errors.New("header section exceeds size limit")
	ErrInvalidState        = errors.New("invalid reader state")

	ErrInvalidChunkSize          = errors.New("invalid chunk size")
	ErrInvalidContentLength      = errors.New("invalid Content-Length value")
	ErrConflictingFraming        = errors.New("both Transfer-Encoding and Content-Length present")
	ErrChunkedNotFinal           = errors.New("chunked must be the final transfer coding")
	ErrChunkedAppliedTwice       = errors.New("chunked transfer coding applied more than once")
	ErrTransferEncodingForbidden = errors.New("Transfer-Encoding not allowed for this status code")
	ErrTransferEncodingVersion   = errors.New("Transfer-Encoding requires HTTP/1.1")
	ErrExtraData                 = errors.New("extra data after complete response")

	ErrMissingHostHeader   = errors.New("Host header is required")
	ErrMultipleHostHeaders = errors.New("multiple Host headers present")
	ErrInvalidHostValue    = errors.New("invalid Host header value")
	ErrObsoleteFold        = errors.New("header value contains obs-fold")
	ErrChunkedInTE         = errors.New("TE header must not claim chunked")
	ErrTEMissingConnection = errors.New("TE header requires \"Connection: TE\"")
	ErrBodyNotAllowed      = errors.New("method does not allow a request body")
)

// RequiresConnectionClose reports whether err makes the message framing
// ambiguous, so that the underlying connection must not be reused
// (RFC 9112 section 6.3).
func RequiresConnectionClose(err error) bool {
	for _, target := range []error{
		ErrConflictingFraming,
		ErrChunkedNotFinal,
		ErrInvalidContentLength,
		ErrUnexpectedEOF,
		ErrExtraData,
		ErrInvalidWhitespace,
		ErrTransferEncodingForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
