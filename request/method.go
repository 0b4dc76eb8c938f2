// Package request serializes HTTP/1.1 requests. A [Builder] collects the
// request line, header fields, and body, validates them against the grammar
// and framing rules, and renders the on-wire bytes.
package request

import (
	"github.com/pkg/errors"

	"httpwire/rule"
	"httpwire/wire"
)

// Common request methods.
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
	MethodConnect = "CONNECT"
	MethodTrace   = "TRACE"
)

// ValidateMethod checks that method is a non-empty token.
func ValidateMethod(method string) error {
	if !rule.IsValidToken(method) {
		return errors.Wrapf(wire.ErrInvalidMethod, "method %q", method)
	}
	return nil
}

// MethodAllowsBody reports whether a request with this method conventionally
// carries a body. Callers can override the convention, except for TRACE
// which must never have one.
func MethodAllowsBody(method string) bool {
	switch method {
	case MethodGet, MethodHead, MethodDelete, MethodOptions,
		MethodConnect, MethodTrace:
		return false
	default:
		return true
	}
}
