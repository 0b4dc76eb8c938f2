package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"httpwire/message"
	"httpwire/request"
	"httpwire/uri"
	"httpwire/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeConn replays scripted read chunks and records everything written.
type fakeConn struct {
	reads [][]byte

	wrote    bytes.Buffer
	closed   bool
	deadline time.Time
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if len(c.reads) == 0 {
		return 0, io.EOF
	}
	chunk := c.reads[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		c.reads[0] = chunk[n:]
	} else {
		c.reads = c.reads[1:]
	}
	return n, nil
}

func (c *fakeConn) Write(p []byte) (int, error) { return c.wrote.Write(p) }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.deadline = t
	return nil
}

func splitBytes(data []byte, n int) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

type ClientTestSuite struct {
	suite.Suite

	clock  *clock.Mock
	client *Client
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.client = New(logger, s.clock, DefaultOptions())
}

func (s *ClientTestSuite) TestDo() {
	conn := &fakeConn{reads: [][]byte{
		[]byte("HTTP/1.1 200 Whatever\r\nContent-Length: 5\r\n\r\nHello"),
	}}

	b := request.NewBuilder(request.MethodGet, "/greeting").
		Header("Host", "example.com")

	res, err := s.client.Do(context.Background(), conn, b)
	s.Require().NoError(err)

	s.Equal("GET /greeting HTTP/1.1\r\nHost: example.com\r\n\r\n", conn.wrote.String())
	s.Equal(uint16(200), res.StatusCode)
	s.Equal("Hello", res.Text())
	// reason phrase is normalized by default
	s.Equal("OK", res.Reason)
}

func (s *ClientTestSuite) TestDoWithFragmentedReads() {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Length: 11\r\n\r\nHello World")

	for _, n := range []int{1, 2, 7, 64} {
		conn := &fakeConn{reads: splitBytes(raw, n)}
		b := request.NewBuilder(request.MethodGet, "/").Header("Host", "h")

		res, err := s.client.Do(context.Background(), conn, b)
		s.Require().NoError(err, "chunk size %d", n)
		s.Equal("Hello World", res.Text(), "chunk size %d", n)
	}
}

func (s *ClientTestSuite) TestDoChunkedWithTrailers() {
	conn := &fakeConn{reads: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n"),
		[]byte("5\r\nHello\r\n6\r\n World\r\n"),
		[]byte("0\r\nX-Sum: 1\r\n\r\n"),
	}}

	b := request.NewBuilder(request.MethodGet, "/").Header("Host", "h")

	res, err := s.client.Do(context.Background(), conn, b)
	s.Require().NoError(err)
	s.Equal("Hello World", res.Text())

	v, ok := res.Trailers.Get("X-Sum")
	s.True(ok)
	s.Equal("1", v)
}

func (s *ClientTestSuite) TestDoDecompressesGzip() {
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write([]byte("Hello World"))
	s.Require().NoError(err)
	s.Require().NoError(zw.Close())

	var raw bytes.Buffer
	raw.WriteString("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\nContent-Length: ")
	raw.WriteString(strconv.Itoa(compressed.Len()))
	raw.WriteString("\r\n\r\n")
	raw.Write(compressed.Bytes())

	conn := &fakeConn{reads: [][]byte{raw.Bytes()}}
	b := request.NewBuilder(request.MethodGet, "/").Header("Host", "h")

	res, err := s.client.Do(context.Background(), conn, b)
	s.Require().NoError(err)
	s.Equal("Hello World", res.Text())
}

func (s *ClientTestSuite) TestDoHeadIgnoresContentLength() {
	conn := &fakeConn{reads: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n"),
	}}

	b := request.NewBuilder(request.MethodHead, "/").Header("Host", "h")

	res, err := s.client.Do(context.Background(), conn, b)
	s.Require().NoError(err)
	s.Empty(res.Body)
}

func (s *ClientTestSuite) TestDoUntilClose() {
	conn := &fakeConn{reads: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: identity\r\n\r\n"),
		[]byte("stream "),
		[]byte("until close"),
	}}

	b := request.NewBuilder(request.MethodGet, "/").Header("Host", "h")

	res, err := s.client.Do(context.Background(), conn, b)
	s.Require().NoError(err)
	s.Equal("stream until close", res.Text())
}

func (s *ClientTestSuite) TestDoSetsReadDeadline() {
	conn := &fakeConn{reads: [][]byte{
		[]byte("HTTP/1.1 204 No Content\r\n\r\n"),
	}}

	b := request.NewBuilder(request.MethodGet, "/").Header("Host", "h")

	_, err := s.client.Do(context.Background(), conn, b)
	s.Require().NoError(err)
	s.Equal(s.clock.Now().Add(DefaultOptions().Timeout.ReadTimeout), conn.deadline)
}

func (s *ClientTestSuite) TestDoEOFBeforeHeaders() {
	conn := &fakeConn{reads: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\nContent-"),
	}}

	b := request.NewBuilder(request.MethodGet, "/").Header("Host", "h")

	_, err := s.client.Do(context.Background(), conn, b)
	s.ErrorIs(err, wire.ErrUnexpectedEOF)
}

func (s *ClientTestSuite) TestDoInvalidRequest() {
	conn := &fakeConn{}
	b := request.NewBuilder(request.MethodGet, "/")

	_, err := s.client.Do(context.Background(), conn, b)
	s.ErrorIs(err, wire.ErrMissingHostHeader)
	s.Zero(conn.wrote.Len())
}

func (s *ClientTestSuite) TestDoCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := &fakeConn{reads: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\n\r\n"),
	}}
	b := request.NewBuilder(request.MethodGet, "/").Header("Host", "h")

	_, err := s.client.Do(ctx, conn, b)
	s.ErrorIs(err, context.Canceled)
}

func (s *ClientTestSuite) TestDoClosesConnOnAmbiguousFraming() {
	conn := &fakeConn{reads: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nContent-Length: 5\r\n\r\nHello"),
	}}

	b := request.NewBuilder(request.MethodGet, "/").Header("Host", "h")

	_, err := s.client.Do(context.Background(), conn, b)
	s.ErrorIs(err, wire.ErrConflictingFraming)
	s.True(conn.closed)
}

func (s *ClientTestSuite) TestRedirectTarget() {
	base, err := uri.Parse("http://example.com:8080/a")
	s.Require().NoError(err)

	res := &message.Response{StatusCode: 302}
	res.Headers.Add("Location", "/b")

	target, err := RedirectTarget(&base, res)
	s.Require().NoError(err)
	s.Equal("http://example.com:8080/b", target)

	res.StatusCode = 200
	_, err = RedirectTarget(&base, res)
	s.Error(err)

	res.StatusCode = 301
	res.Headers.Del("Location")
	_, err = RedirectTarget(&base, res)
	s.Error(err)
}

func (s *ClientTestSuite) TestJSONHelpers() {
	type payload struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	b, err := JSONBody(
		request.NewBuilder(request.MethodPost, "/users").Header("Host", "h"),
		payload{Name: "gopher", Age: 13},
	)
	s.Require().NoError(err)

	raw, err := b.Build()
	s.Require().NoError(err)
	s.Contains(string(raw), "Content-Type: application/json\r\n")
	s.Contains(string(raw), `{"name":"gopher","age":13}`)

	res := &message.Response{Body: []byte(`{"name":"gopher","age":13}`)}
	var got payload
	s.Require().NoError(DecodeJSON(res, &got))
	s.Equal(payload{Name: "gopher", Age: 13}, got)
}
