// Package coding decodes Content-Encoding transformations applied to
// response bodies.
package coding

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"httpwire/message"
	"httpwire/rule"
)

// DecodeFunc undoes a single content coding.
type DecodeFunc func(body []byte) ([]byte, error)

// Registry maps content-coding tokens to decoders. Lookups are
// case-insensitive.
type Registry struct {
	decoders map[string]DecodeFunc
}

// NewRegistry returns a registry with the standard codings: identity,
// gzip (and its x-gzip alias), deflate, and zstd.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]DecodeFunc)}
	r.Register("identity", decodeIdentity)
	r.Register("gzip", decodeGzip)
	r.Register("x-gzip", decodeGzip)
	r.Register("deflate", decodeDeflate)
	r.Register("zstd", decodeZstd)
	return r
}

func (r *Registry) Register(name string, fn DecodeFunc) {
	r.decoders[strings.ToLower(name)] = fn
}

func (r *Registry) Lookup(name string) (DecodeFunc, bool) {
	fn, ok := r.decoders[strings.ToLower(name)]
	return fn, ok
}

// Decode undoes the codings named in a Content-Encoding value. The value is
// a comma-separated list in application order, so decoding walks it in
// reverse.
func (r *Registry) Decode(encoding string, body []byte) ([]byte, error) {
	parts := strings.Split(encoding, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		name := strings.ToLower(rule.TrimOWSString(parts[i]))
		if name == "" {
			continue
		}
		fn, ok := r.Lookup(name)
		if !ok {
			return nil, errors.Errorf("unsupported content coding %q", name)
		}
		out, err := fn(body)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %q", name)
		}
		body = out
	}
	return body, nil
}

// Decompressor adapts the registry to the shape the message package expects.
func (r *Registry) Decompressor() message.Decompressor {
	return r.Decode
}

func decodeIdentity(body []byte) ([]byte, error) { return body, nil }

func decodeGzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// decodeDeflate accepts both the zlib-wrapped form RFC 9110 specifies and
// the raw deflate stream some servers send instead.
func decodeDeflate(body []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err == nil {
		defer zr.Close()
		return io.ReadAll(zr)
	}

	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	return io.ReadAll(fr)
}

func decodeZstd(body []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(body, nil)
}
