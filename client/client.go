// Package client drives a request-response roundtrip over a caller-supplied
// connection. It owns no sockets: anything that can read, write, and carry a
// read deadline will do.
package client

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"httpwire/coding"
	"httpwire/message"
	"httpwire/request"
	"httpwire/uri"
	"httpwire/wire"
)

// Conn is the transport a roundtrip runs over.
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

type Client struct {
	opts Options

	logger *slog.Logger
	clock  clock.Clock

	codings *coding.Registry
}

func New(logger *slog.Logger, clock clock.Clock, opts Options) *Client {
	if opts.Receive.ReadBufferSize <= 0 {
		opts.Receive.ReadBufferSize = DefaultOptions().Receive.ReadBufferSize
	}
	return &Client{
		opts:    opts,
		logger:  logger,
		clock:   clock,
		codings: coding.NewRegistry(),
	}
}

// Do serializes the request, writes it to conn, and reads one complete
// response. Responses to HEAD and CONNECT are treated as header-only.
func (c *Client) Do(ctx context.Context, conn Conn, b *request.Builder) (*message.Response, error) {
	raw, err := b.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}

	c.logger.DebugContext(ctx, "sending request",
		"method", b.Method(), "target", b.Target(), "bytes", len(raw))

	if err := writeAll(conn, raw); err != nil {
		return nil, errors.Wrap(err, "writing request")
	}

	res, err := c.readResponse(ctx, conn, b.Method())
	if err != nil {
		if wire.RequiresConnectionClose(err) {
			// Framing is ambiguous from here on; the connection must
			// not be handed back for reuse.
			if cerr := conn.Close(); cerr != nil {
				c.logger.WarnContext(ctx, "closing poisoned connection", "error", cerr)
			}
		}
		return nil, err
	}

	c.logger.DebugContext(ctx, "received response",
		"status", res.StatusCode, "body_bytes", len(res.Body))
	return res, nil
}

func (c *Client) readResponse(ctx context.Context, conn Conn, method string) (*message.Response, error) {
	opts := message.ReaderOptions{MaxHeaderSize: c.opts.Receive.MaxHeaderSize}
	opts.ForceNoBody = method == request.MethodHead || method == request.MethodConnect
	if c.opts.Decompress {
		opts.Decompressor = c.codings.Decompressor()
	}
	reader := message.NewResponseReader(opts)

	buf := make([]byte, c.opts.Receive.ReadBufferSize)

	for !reader.HasCompleteHeaders() {
		n, err := c.read(ctx, conn, buf)
		if n > 0 {
			if ferr := reader.Feed(buf[:n]); ferr != nil {
				return nil, ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.Wrap(wire.ErrUnexpectedEOF,
					"connection closed before header section")
			}
			return nil, errors.Wrap(err, "reading headers")
		}
	}

	if _, _, _, err := reader.ParseHeaders(); err != nil {
		return nil, errors.Wrap(err, "parsing headers")
	}

	for !reader.IsBodyComplete() {
		n, err := c.read(ctx, conn, buf)
		if n > 0 {
			if ferr := reader.Feed(buf[:n]); ferr != nil {
				return nil, ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				reader.MarkEOF()
				break
			}
			return nil, errors.Wrap(err, "reading body")
		}
	}

	res, err := reader.Finish()
	if err != nil {
		return nil, errors.Wrap(err, "assembling response")
	}

	if !c.opts.Receive.UseReceivedReasonPhrase {
		if phrase := message.ReasonPhrase(res.StatusCode); phrase != "" {
			res.Reason = phrase
		}
	}
	return res, nil
}

func (c *Client) read(ctx context.Context, conn Conn, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if d := c.opts.Timeout.ReadTimeout; d > 0 {
		if err := conn.SetReadDeadline(c.clock.Now().Add(d)); err != nil {
			return 0, errors.Wrap(err, "setting read deadline")
		}
	}
	return conn.Read(buf)
}

func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// RedirectTarget resolves the Location header of a redirect response
// against the URI the request was sent to.
func RedirectTarget(base *uri.URI, res *message.Response) (string, error) {
	if !res.IsRedirect() {
		return "", errors.Errorf("status %d is not a redirect", res.StatusCode)
	}
	loc, ok := res.Headers.Get("Location")
	if !ok {
		return "", errors.New("redirect response without Location header")
	}
	target, err := base.ResolveRelative(loc)
	if err != nil {
		return "", errors.Wrap(err, "resolving Location")
	}
	return target, nil
}
