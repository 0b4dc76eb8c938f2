// Package chunked implements the chunked transfer coding of RFC 9112
// section 7.1 as a forward-only state machine, so that partial input can be
// retried by feeding a longer buffer instead of raising.
package chunked

import (
	"bytes"
	"io"
	"strconv"

	"httpwire/rule"
	"httpwire/wire"

	"github.com/pkg/errors"
)

type state uint8

const (
	stateChunkSize state = iota
	stateChunkData
	stateChunkDataCRLF
	stateTrailers
	stateComplete
)

// Decoder decodes a chunked message body. The zero value is not usable;
// construct with [NewDecoder]. A Decoder is owned by a single caller and
// never backtracks.
type Decoder struct {
	state     state
	remaining int // unread data bytes of the current chunk
	trailers  []wire.Field
}

func NewDecoder() *Decoder {
	return &Decoder{state: stateChunkSize}
}

// Complete reports whether the terminating chunk and trailer section have
// been consumed.
func (d *Decoder) Complete() bool { return d.state == stateComplete }

// Trailers returns the trailer fields collected after the last chunk, in
// wire order.
func (d *Decoder) Trailers() []wire.Field { return d.trailers }

// Decode consumes chunks from input, appending chunk data to out, and
// returns the bytes left over once decoding is complete. A chunk cut short
// by the end of input fails with [wire.ErrUnexpectedEOF]; incremental
// callers should read more bytes and retry from the start with a fresh
// Decoder, since a failed pass leaves the state partially advanced.
func (d *Decoder) Decode(input []byte, out *bytes.Buffer) ([]byte, error) {
	rest := input

	for {
		switch d.state {
		case stateChunkSize:
			size, after, err := parseChunkSize(rest)
			if err != nil {
				return nil, errors.Wrap(err, "parsing chunk size")
			}
			rest = after

			if size == 0 {
				d.state = stateTrailers
			} else {
				d.remaining = size
				d.state = stateChunkData
			}

		case stateChunkData:
			if len(rest) < d.remaining {
				return nil, errors.Wrap(wire.ErrUnexpectedEOF, "chunk data cut short")
			}
			out.Write(rest[:d.remaining])
			rest = rest[d.remaining:]
			d.state = stateChunkDataCRLF

		case stateChunkDataCRLF:
			after, err := wire.ConsumeLineEnd(rest)
			if err != nil {
				return nil, errors.Wrap(err, "after chunk data")
			}
			rest = after
			d.state = stateChunkSize

		case stateTrailers:
			done, after, err := d.parseTrailerLine(rest)
			if err != nil {
				return nil, errors.Wrap(err, "parsing trailer section")
			}
			rest = after

			if done {
				d.state = stateComplete
			}

		case stateComplete:
			return rest, nil
		}
	}
}

// parseChunkSize reads the hex chunk size, ignoring any ";"-prefixed chunk
// extension up to the line end. Hex accumulation is overflow-checked: a size
// field that would not fit an int is rejected rather than wrapped.
func parseChunkSize(input []byte) (int, []byte, error) {
	const maxSize = int(^uint(0) >> 1)

	if len(input) == 0 {
		return 0, nil, errors.Wrap(wire.ErrUnexpectedEOF, "chunk size not received")
	}

	size := 0
	i := 0
	for i < len(input) {
		c := input[i]
		if c == ';' || c == '\r' || c == '\n' {
			break
		}
		if !rule.IsHexDigit(c) {
			return 0, nil, errors.Wrap(wire.ErrInvalidChunkSize, "non-hex digit in chunk size")
		}

		if size > (maxSize-15)/16 {
			return 0, nil, errors.Wrap(wire.ErrInvalidChunkSize, "chunk size overflows")
		}
		size = size*16 + hexValue(c)
		i++
	}

	if i == 0 {
		return 0, nil, errors.Wrap(wire.ErrInvalidChunkSize, "empty chunk size")
	}

	// Skip the chunk extension, if any.
	rest := input[i:]
	for len(rest) > 0 && rest[0] != '\r' && rest[0] != '\n' {
		rest = rest[1:]
	}

	rest, err := wire.ConsumeLineEnd(rest)
	if err != nil {
		return 0, nil, err
	}

	return size, rest, nil
}

// parseTrailerLine consumes one line of the trailer section. done is true
// when the empty line terminating the section was consumed. Lines without a
// colon are skipped rather than rejected.
func (d *Decoder) parseTrailerLine(input []byte) (done bool, rest []byte, err error) {
	if len(input) > 0 && (input[0] == '\r' || input[0] == '\n') {
		rest, err := wire.ConsumeLineEnd(input)
		if err != nil {
			return false, nil, err
		}
		return true, rest, nil
	}

	end := 0
	for end < len(input) && input[end] != '\r' && input[end] != '\n' {
		end++
	}

	if end == 0 {
		return false, nil, errors.Wrap(wire.ErrUnexpectedEOF, "trailer section not terminated")
	}

	line := input[:end]
	rest, err = wire.ConsumeLineEnd(input[end:])
	if err != nil {
		return false, nil, err
	}

	if colon := bytes.IndexByte(line, ':'); colon > 0 {
		name := line[:colon]
		value := rule.TrimOWS(line[colon+1:])
		d.trailers = append(d.trailers, wire.Field{Name: string(name), Value: string(value)})
	}

	return false, rest, nil
}

func hexValue(c byte) int {
	switch {
	case c >= 'a':
		return int(c-'a') + 10
	case c >= 'A':
		return int(c-'A') + 10
	default:
		return int(c - '0')
	}
}

// Encoder serializes an outgoing chunked body. Each [Encoder.WriteChunk]
// emits one chunk; [Encoder.Close] writes the last chunk and the trailer
// section.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

func (e *Encoder) WriteChunk(p []byte) error {
	if len(p) == 0 {
		// A zero-length chunk would terminate the body.
		return nil
	}

	head := strconv.FormatInt(int64(len(p)), 16)
	if _, err := e.w.Write([]byte(head)); err != nil {
		return errors.Wrap(err, "writing chunk header")
	}
	if _, err := e.w.Write(rule.CRLF); err != nil {
		return errors.Wrap(err, "writing chunk header terminator")
	}
	if _, err := e.w.Write(p); err != nil {
		return errors.Wrap(err, "writing chunk data")
	}
	if _, err := e.w.Write(rule.CRLF); err != nil {
		return errors.Wrap(err, "writing chunk data terminator")
	}

	return nil
}

func (e *Encoder) Close(trailers []wire.Field) error {
	if _, err := e.w.Write([]byte("0\r\n")); err != nil {
		return errors.Wrap(err, "writing last chunk")
	}

	for _, field := range trailers {
		line := field.Name + ": " + field.Value + "\r\n"
		if _, err := e.w.Write([]byte(line)); err != nil {
			return errors.Wrap(err, "writing trailer field")
		}
	}

	if _, err := e.w.Write(rule.CRLF); err != nil {
		return errors.Wrap(err, "terminating trailer section")
	}

	return nil
}
