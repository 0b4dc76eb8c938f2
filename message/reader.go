package message

import (
	"bytes"

	"github.com/pkg/errors"

	"httpwire/wire"
	"httpwire/wire/chunked"
)

// DefaultMaxHeaderSize caps the buffered bytes while waiting for the end of
// the header section.
const DefaultMaxHeaderSize = 8192

// ReaderOptions adjusts an incremental [ResponseReader].
type ReaderOptions struct {
	// MaxHeaderSize bounds how many bytes may be buffered before the end
	// of the header section is seen. Zero means [DefaultMaxHeaderSize].
	MaxHeaderSize int
	ParseOptions
}

type readerState uint8

const (
	readerHeaders readerState = iota
	readerBody
	readerDone
)

// ResponseReader assembles one response from data arriving in arbitrary
// splits. Feed bytes as they arrive; once [ResponseReader.HasCompleteHeaders]
// reports true, call [ResponseReader.ParseHeaders], keep feeding until
// [ResponseReader.IsBodyComplete], then [ResponseReader.Finish].
//
// A reader handles a single response and is not safe for concurrent use.
type ResponseReader struct {
	state    readerState
	buf      []byte
	opts     ReaderOptions
	line     wire.StatusLine
	headers  Headers
	strategy Strategy
	eof      bool
}

func NewResponseReader(opts ReaderOptions) *ResponseReader {
	if opts.MaxHeaderSize <= 0 {
		opts.MaxHeaderSize = DefaultMaxHeaderSize
	}
	return &ResponseReader{opts: opts}
}

// Feed appends bytes read from the connection.
func (r *ResponseReader) Feed(p []byte) error {
	if r.state == readerDone {
		return errors.Wrap(wire.ErrInvalidState, "response already finished")
	}
	r.buf = append(r.buf, p...)
	if r.state == readerHeaders && !wire.HasCompleteHeaders(r.buf) &&
		len(r.buf) > r.opts.MaxHeaderSize {
		return errors.Wrapf(wire.ErrHeaderTooLarge,
			"%d bytes buffered without header terminator", len(r.buf))
	}
	return nil
}

// MarkEOF records that the connection reached end of stream. For a body read
// until close, this is what completes it.
func (r *ResponseReader) MarkEOF() { r.eof = true }

// HasCompleteHeaders reports whether the full header section has arrived.
func (r *ResponseReader) HasCompleteHeaders() bool {
	if r.state != readerHeaders {
		return true
	}
	return wire.HasCompleteHeaders(skipLeadingLineEnds(r.buf))
}

// ParseHeaders consumes the status line and header section, resolves the
// body framing strategy, and moves the reader into the body phase. The
// remaining buffered bytes are retained as the start of the body.
func (r *ResponseReader) ParseHeaders() (wire.StatusLine, Headers, Strategy, error) {
	if r.state != readerHeaders {
		return wire.StatusLine{}, Headers{}, Strategy{},
			errors.Wrap(wire.ErrInvalidState, "headers already parsed")
	}
	if !r.HasCompleteHeaders() {
		return wire.StatusLine{}, Headers{}, Strategy{},
			errors.Wrap(wire.ErrUnexpectedEOF, "header section incomplete")
	}

	line, headers, rest, err := ParseResponseHeaders(r.buf)
	if err != nil {
		return wire.StatusLine{}, Headers{}, Strategy{}, err
	}

	strategy := Strategy{Kind: StrategyNoBody}
	if !r.opts.ForceNoBody {
		strategy, err = BodyStrategy(line.StatusCode, headers)
		if err != nil {
			return wire.StatusLine{}, Headers{}, Strategy{}, err
		}
	}

	body := make([]byte, len(rest))
	copy(body, rest)

	r.line = line
	r.headers = headers
	r.strategy = strategy
	r.buf = body
	r.state = readerBody
	return line, headers, strategy, nil
}

// IsBodyComplete reports whether enough bytes have arrived to realize the
// body under the resolved strategy. Always false before ParseHeaders.
func (r *ResponseReader) IsBodyComplete() bool {
	switch r.state {
	case readerHeaders:
		return false
	case readerDone:
		return true
	}
	switch r.strategy.Kind {
	case StrategyNoBody:
		return true
	case StrategyContentLength:
		return len(r.buf) >= r.strategy.Length
	case StrategyChunked:
		// A byte-scan for the last-chunk marker misses trailer sections
		// and false-positives on chunk data, so run a trial decode.
		dec := chunked.NewDecoder()
		var out bytes.Buffer
		if _, err := dec.Decode(r.buf, &out); err != nil {
			// Hard parse failures will not heal with more input; report
			// complete so Finish surfaces them.
			return !errors.Is(err, wire.ErrUnexpectedEOF) &&
				!errors.Is(err, wire.ErrMissingCRLF)
		}
		return dec.Complete()
	case StrategyUntilClose:
		return r.eof
	default:
		return false
	}
}

// BytesNeeded returns how many more body bytes are known to be required.
// The bool is false when the remaining length is unknowable, as with
// chunked or read-until-close bodies.
func (r *ResponseReader) BytesNeeded() (int, bool) {
	if r.state != readerBody || r.strategy.Kind != StrategyContentLength {
		return 0, false
	}
	n := r.strategy.Length - len(r.buf)
	if n < 0 {
		n = 0
	}
	return n, true
}

// Finish assembles the buffered body into a complete [Response]. The reader
// is spent afterwards.
func (r *ResponseReader) Finish() (*Response, error) {
	switch r.state {
	case readerHeaders:
		return nil, errors.Wrap(wire.ErrInvalidState, "headers not parsed yet")
	case readerDone:
		return nil, errors.Wrap(wire.ErrInvalidState, "response already finished")
	}
	if !r.IsBodyComplete() {
		return nil, errors.Wrap(wire.ErrUnexpectedEOF, "body incomplete")
	}

	body, trailers, err := assembleBody(r.buf, r.strategy, false)
	if err != nil {
		return nil, err
	}
	body, err = maybeDecompress(body, r.headers, r.opts.ParseOptions)
	if err != nil {
		return nil, err
	}

	r.state = readerDone
	r.buf = nil
	return &Response{
		Version:    r.line.Version,
		StatusCode: r.line.StatusCode,
		Reason:     r.line.Reason,
		Headers:    r.headers,
		Body:       body,
		Trailers:   trailers,
	}, nil
}
